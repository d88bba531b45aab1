package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// client -> server
	TypeHello    = "HELLO"
	TypeCmd      = "CMD"
	TypeFix      = "FIX"
	TypeFixError = "FIX_ERROR"

	// server -> client
	TypeWelcome   = "WELCOME"
	TypeDraw      = "DRAW"
	TypeTooltip   = "TOOLTIP"
	TypePopup     = "POPUP"
	TypeClear     = "CLEAR"
	TypeInventory = "INVENTORY"
	TypePlayer    = "PLAYER"
	TypeCenter    = "CENTER"
	TypeRange     = "RANGE"
	TypeControls  = "CONTROLS"
	TypeGeo       = "GEO"
	TypeError     = "ERROR"
)

// Commands carried by CMD.
const (
	CmdMove    = "MOVE"
	CmdTake    = "TAKE"
	CmdCombine = "COMBINE"
	CmdStore   = "STORE"
	CmdOpen    = "OPEN"
	CmdMode    = "MODE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
