package multiplayer

import "errors"

// Errors surfaced by the coordinator. All but ErrInvalidHandshake and
// ErrExternalNotify are reported only to the connection that caused them.
var (
	ErrInvalidHandshake   = errors.New("invalid handshake")
	ErrNotInSession       = errors.New("connection is not in a session")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionEnded       = errors.New("session has ended")
	ErrInvalidMovePayload = errors.New("invalid move payload")
	ErrIllegalMove        = errors.New("illegal move")

	// ErrExternalNotify wraps match-history failures. Logged only.
	ErrExternalNotify = errors.New("match history notification failed")

	errInternal = errors.New("internal error")
)

// ClientMessage maps an error to the message shown to the participant.
func ClientMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidHandshake):
		return "Invalid user data"
	case errors.Is(err, ErrNotInSession):
		return "You are not in a game"
	case errors.Is(err, ErrSessionNotFound):
		return "Game not found"
	case errors.Is(err, ErrSessionEnded):
		return "Game has ended"
	case errors.Is(err, ErrInvalidMovePayload):
		return "Invalid move data"
	case errors.Is(err, ErrIllegalMove):
		return "Invalid move"
	default:
		return "Server error"
	}
}
