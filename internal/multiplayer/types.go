// Package multiplayer coordinates two-party turn-based sessions.
// It owns the matchmaking queue and the session registry, binds connections
// to participants, relays moves through a rules oracle and keeps sessions
// alive across short disconnects.
package multiplayer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ParticipantID is the stable identity supplied by the identity provider.
type ParticipantID string

// SessionID uniquely identifies a live two-party session.
type SessionID string

// HandleID uniquely identifies one transport connection.
// A participant who reconnects gets a new HandleID.
type HandleID string

// Participant is an authenticated identity as trusted at connection time.
type Participant struct {
	ID          ParticipantID
	DisplayName string
}

// Slot is one of the two positions inside a session.
type Slot int

const (
	// NoSlot is used where no side applies (e.g. the winner of a draw).
	NoSlot Slot = -1

	// SlotFirst always moves first. The earlier-waiting entry is assigned here.
	SlotFirst Slot = 0

	// SlotSecond moves second.
	SlotSecond Slot = 1
)

// Opponent returns the other slot.
func (s Slot) Opponent() Slot {
	switch s {
	case SlotFirst:
		return SlotSecond
	case SlotSecond:
		return SlotFirst
	default:
		return NoSlot
	}
}

// Valid reports whether s names one of the two session slots.
func (s Slot) Valid() bool {
	return s == SlotFirst || s == SlotSecond
}

// String returns a human-readable name for the slot.
func (s Slot) String() string {
	switch s {
	case SlotFirst:
		return "first"
	case SlotSecond:
		return "second"
	default:
		return "none"
	}
}

// Position is an opaque, serializable snapshot owned by the oracle.
type Position string

// MovePayload is a move as submitted by a client.
// From and To are required; Promotion and FEN are optional.
// A non-empty FEN is a fast-forward: the resulting position is adopted as-is.
type MovePayload struct {
	From      string
	To        string
	Promotion string
	FEN       string
}

// Validate checks that the payload carries the required fields.
func (m MovePayload) Validate() error {
	if strings.TrimSpace(m.From) == "" || strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: from and to are required", ErrInvalidMovePayload)
	}
	return nil
}

// Handshake carries the identity extracted from a new connection.
type Handshake struct {
	ParticipantID ParticipantID
	DisplayName   string
	LastSessionID SessionID // optional reconnection hint
}

// Handshake limits, in bytes.
const (
	MaxParticipantIDLen = 128
	MaxDisplayNameLen   = 64
)

// Participant validates the handshake and returns the participant it names.
// An empty display name falls back to the participant id.
func (h Handshake) Participant() (Participant, error) {
	id := strings.TrimSpace(string(h.ParticipantID))
	if id == "" {
		return Participant{}, fmt.Errorf("%w: missing participant id", ErrInvalidHandshake)
	}
	if len(id) > MaxParticipantIDLen || strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return Participant{}, fmt.Errorf("%w: malformed participant id", ErrInvalidHandshake)
	}

	name := strings.TrimSpace(h.DisplayName)
	if name == "" {
		name = id
	}
	if len(name) > MaxDisplayNameLen || strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return Participant{}, fmt.Errorf("%w: malformed display name", ErrInvalidHandshake)
	}

	return Participant{ID: ParticipantID(id), DisplayName: name}, nil
}

// PositionStatus is the oracle's view of a position.
type PositionStatus struct {
	Terminal  bool // no further moves (checkmate, stalemate, draw rules)
	Checkmate bool // terminal because the side to move is mated
	ToMove    Slot // whose turn it is in this position
}

// Oracle validates moves and detects terminal positions.
// The coordinator is rule-agnostic; everything game-specific lives here.
type Oracle interface {
	// Start returns the initial position of a new session.
	Start() Position

	// Apply returns the position after mv, or an error wrapping
	// ErrIllegalMove if the move is rejected.
	Apply(pos Position, mv MovePayload) (Position, error)

	// Status reports whether pos is terminal and whose turn it is.
	Status(pos Position) (PositionStatus, error)

	// Roles returns the display labels of the first and second slot.
	Roles() [2]string
}

// EndReason describes why a session ended.
type EndReason int

const (
	EndReasonCheckmate EndReason = iota // the side to move is mated
	EndReasonDraw                       // stalemate or another drawn terminal
)

func (r EndReason) String() string {
	switch r {
	case EndReasonCheckmate:
		return "checkmate"
	case EndReasonDraw:
		return "draw"
	default:
		return "unknown"
	}
}

// Outcome is the result of an ended session.
type Outcome struct {
	Winner    Slot // NoSlot for a draw
	Checkmate bool
	Draw      bool
	Reason    EndReason
}

// OutcomeFor derives a session outcome from a terminal position status.
// Checkmate is won by the side that is NOT to move; anything else is a draw.
func OutcomeFor(status PositionStatus) (Outcome, error) {
	if !status.Terminal {
		return Outcome{}, errors.New("multiplayer: position is not terminal")
	}
	if status.Checkmate {
		return Outcome{
			Winner:    status.ToMove.Opponent(),
			Checkmate: true,
			Reason:    EndReasonCheckmate,
		}, nil
	}
	return Outcome{Winner: NoSlot, Draw: true, Reason: EndReasonDraw}, nil
}

// Result is a participant's personal outcome.
type Result string

const (
	ResultWin  Result = "win"
	ResultLose Result = "lose"
	ResultDraw Result = "draw"
)

// ResultFor returns the personal result of the participant in slot.
func (o Outcome) ResultFor(slot Slot) Result {
	switch {
	case o.Draw || !o.Winner.Valid():
		return ResultDraw
	case o.Winner == slot:
		return ResultWin
	default:
		return ResultLose
	}
}
