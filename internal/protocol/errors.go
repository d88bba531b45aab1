package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrBlocked       = "E_BLOCKED"
	ErrInternal      = "E_INTERNAL"

	// Position source failures reported by the client.
	ErrGeoDenied      = "E_GEO_DENIED"
	ErrGeoUnavailable = "E_GEO_UNAVAILABLE"
	ErrGeoTimeout     = "E_GEO_TIMEOUT"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrInvalidTarget:   {},
	ErrBlocked:         {},
	ErrInternal:        {},
	ErrGeoDenied:       {},
	ErrGeoUnavailable:  {},
	ErrGeoTimeout:      {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
