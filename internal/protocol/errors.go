package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Area requests.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownRealm  = "E_UNKNOWN_REALM"
	ErrAreaTooLarge  = "E_AREA_TOO_LARGE"
	ErrServerClosing = "E_SERVER_CLOSING"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrUnknownRealm:    {},
	ErrAreaTooLarge:    {},
	ErrServerClosing:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
