package protocol

// Positions on the wire are [x, y], that is [lng, lat]. Cells are [x, y]
// lattice indices.

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Mode is the launch-time override: geo, geolocation or buttons.
	Mode string `json:"mode,omitempty"`

	// Geo reports whether the client can stream position fixes.
	Geo bool `json:"geo,omitempty"`
}

// CMD (client -> server)
type CmdMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Cmd             string  `json:"cmd"`
	Dir             string  `json:"dir,omitempty"`
	Cell            *[2]int `json:"cell,omitempty"`
	Mode            string  `json:"mode,omitempty"`
}

// FIX (client -> server)
type FixMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
}

// FIX_ERROR (client -> server)
type FixErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	Params          WorldParams `json:"params"`
}

type WorldParams struct {
	TileSize                float64 `json:"tile_size"`
	WindowRadius            int     `json:"window_radius"`
	InteractionRadiusMeters float64 `json:"interaction_radius_meters"`
	WinThreshold            int     `json:"win_threshold"`
	RangeRadiusPx           int     `json:"range_radius_px"`
}

type Bounds struct {
	SW [2]float64 `json:"sw"`
	NE [2]float64 `json:"ne"`
}

// DRAW (server -> client)
type DrawMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Handle          uint64 `json:"handle"`
	Cell            [2]int `json:"cell"`
	Bounds          Bounds `json:"bounds"`
}

// TOOLTIP (server -> client). A null text removes the tooltip.
type TooltipMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Handle          uint64  `json:"handle"`
	Text            *string `json:"text"`
}

type Controls struct {
	Take    bool `json:"take"`
	Combine bool `json:"combine"`
	Store   bool `json:"store"`
}

// POPUP (server -> client)
type PopupMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Handle          uint64   `json:"handle"`
	Cell            [2]int   `json:"cell"`
	Message         string   `json:"message"`
	Controls        Controls `json:"controls"`
}

// CLEAR (server -> client)
type ClearMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// INVENTORY (server -> client). Text is empty when nothing is held.
type InventoryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

// PLAYER (server -> client)
type PlayerMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Pos             [2]float64 `json:"pos"`
	Tooltip         string     `json:"tooltip"`
}

// CENTER (server -> client)
type CenterMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Pos             [2]float64 `json:"pos"`
}

// RANGE (server -> client)
type RangeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Center          [2]float64 `json:"center"`
	RadiusPx        int        `json:"radius_px"`
}

// CONTROLS (server -> client)
type ControlsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ButtonsEnabled  bool   `json:"buttons_enabled"`
	Mode            string `json:"mode"`
	Requested       string `json:"requested"`
}

// GEO (server -> client) asks the client to start or stop streaming fixes.
type GeoMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Watch           bool   `json:"watch"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
