package multiplayer

import (
	"sort"
	"time"
)

// SessionStatus is the lifecycle state of a session: active -> ended.
type SessionStatus int

const (
	SessionActive SessionStatus = iota
	SessionEnded
)

func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// SlotState is one participant's seat in a session.
// Connected is false while the participant is inside its disconnect grace period;
// Handle then still points at the connection that dropped.
type SlotState struct {
	Participant Participant
	Handle      Handle
	Connected   bool
}

// MoveRecord is one entry of a session's append-only move log.
type MoveRecord struct {
	Slot     Slot
	Move     MovePayload
	Position Position // position after the move
	At       time.Time
}

// Session is one live two-party game instance.
type Session struct {
	ID        SessionID
	Slots     [2]SlotState
	Position  Position
	Moves     []MoveRecord
	StartedAt time.Time
	EndedAt   time.Time
	Status    SessionStatus
	Outcome   Outcome
}

// SlotOf returns the slot held by the participant.
func (s *Session) SlotOf(id ParticipantID) (Slot, bool) {
	for i := range s.Slots {
		if s.Slots[i].Participant.ID == id {
			return Slot(i), true
		}
	}
	return NoSlot, false
}

// SlotOfHandle returns the slot currently bound to the connection.
func (s *Session) SlotOfHandle(id HandleID) (Slot, bool) {
	for i := range s.Slots {
		if h := s.Slots[i].Handle; h != nil && h.ID() == id {
			return Slot(i), true
		}
	}
	return NoSlot, false
}

// Active reports whether the session is still being played.
func (s *Session) Active() bool {
	return s.Status == SessionActive
}

// Registry is the authoritative map from session id to session state.
// It is owned by the coordinator's event loop and is not safe for concurrent use.
type Registry struct {
	sessions map[SessionID]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[SessionID]*Session),
	}
}

// Add stores a new session.
func (r *Registry) Add(s *Session) {
	r.sessions[s.ID] = s
}

// Get looks up a session. Absence is not an error at this layer.
func (r *Registry) Get(id SessionID) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Remove deletes a session and returns it. Removing an unknown id is a no-op.
func (r *Registry) Remove(id SessionID) (*Session, bool) {
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// ActiveFor returns the active session that contains the participant, if any.
func (r *Registry) ActiveFor(id ParticipantID) (*Session, bool) {
	for _, s := range r.sessions {
		if !s.Active() {
			continue
		}
		if _, ok := s.SlotOf(id); ok {
			return s, true
		}
	}
	return nil, false
}

// StartedBefore returns ids of sessions started before cutoff, oldest first.
func (r *Registry) StartedBefore(cutoff time.Time) []SessionID {
	var stale []*Session
	for _, s := range r.sessions {
		if s.StartedAt.Before(cutoff) {
			stale = append(stale, s)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].StartedAt.Before(stale[j].StartedAt)
	})

	ids := make([]SessionID, len(stale))
	for i, s := range stale {
		ids[i] = s.ID
	}
	return ids
}

// Len returns the number of sessions, ended ones included.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// ActiveCount returns the number of sessions still being played.
func (r *Registry) ActiveCount() int {
	n := 0
	for _, s := range r.sessions {
		if s.Active() {
			n++
		}
	}
	return n
}
