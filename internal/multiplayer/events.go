package multiplayer

// Event represents an event sent from the coordinator to a connection.
type Event interface {
	sessionEvent()
}

// AssignedRoleEvent tells a connection which slot it plays.
type AssignedRoleEvent struct {
	SessionID SessionID
	Slot      Slot
	Role      string // oracle label, e.g. "white"
}

func (AssignedRoleEvent) sessionEvent() {}

// OpponentInfoEvent carries the opponent's identity.
type OpponentInfoEvent struct {
	Opponent Participant
}

func (OpponentInfoEvent) sessionEvent() {}

// QueuedEvent reports whether the connection is waiting for an opponent.
type QueuedEvent struct {
	Queued bool
}

func (QueuedEvent) sessionEvent() {}

// QueueLengthEvent reports how many participants are waiting.
type QueueLengthEvent struct {
	Length int
}

func (QueueLengthEvent) sessionEvent() {}

// SessionAssignedEvent carries the id of the session the connection is bound to.
type SessionAssignedEvent struct {
	SessionID SessionID
}

func (SessionAssignedEvent) sessionEvent() {}

// CurrentStateEvent carries the authoritative position of a session.
type CurrentStateEvent struct {
	SessionID SessionID
	Position  Position
}

func (CurrentStateEvent) sessionEvent() {}

// MoveEvent forwards the opponent's applied move.
type MoveEvent struct {
	SessionID SessionID
	Slot      Slot // who moved
	Move      MovePayload
}

func (MoveEvent) sessionEvent() {}

// SessionEndedEvent is sent to both sides when a session reaches a terminal position.
type SessionEndedEvent struct {
	SessionID  SessionID
	Outcome    Outcome
	WinnerRole string // empty for a draw
}

func (SessionEndedEvent) sessionEvent() {}

// OpponentReconnectedEvent is sent when the opponent rebinds to the session.
type OpponentReconnectedEvent struct {
	DisplayName string
}

func (OpponentReconnectedEvent) sessionEvent() {}

// OpponentDisconnectedEvent is sent when the opponent is gone for good.
type OpponentDisconnectedEvent struct {
	DisplayName string
}

func (OpponentDisconnectedEvent) sessionEvent() {}

// MatchHistoryUpdatedEvent tells a participant their outcome was recorded.
type MatchHistoryUpdatedEvent struct {
	SessionID SessionID
}

func (MatchHistoryUpdatedEvent) sessionEvent() {}

// ErrorEvent is a scoped error reported to a single connection.
type ErrorEvent struct {
	Message string
}

func (ErrorEvent) sessionEvent() {}

// CoordinatorMessage represents a message from a connection to the coordinator.
type CoordinatorMessage interface {
	coordinatorMessage()
}

// ConnectMsg announces a new connection and its handshake.
type ConnectMsg struct {
	Handle    Handle
	Handshake Handshake
}

func (ConnectMsg) coordinatorMessage() {}

// MoveMsg submits a move from a bound connection.
type MoveMsg struct {
	HandleID HandleID
	Move     MovePayload
}

func (MoveMsg) coordinatorMessage() {}

// RequestStateMsg asks for the current position of the bound session.
type RequestStateMsg struct {
	HandleID HandleID
}

func (RequestStateMsg) coordinatorMessage() {}

// RequestQueueLengthMsg asks for the number of waiting participants.
type RequestQueueLengthMsg struct {
	HandleID HandleID
}

func (RequestQueueLengthMsg) coordinatorMessage() {}

// MatchAcknowledgedMsg confirms the client saw the end of a session.
// The session is removed immediately.
type MatchAcknowledgedMsg struct {
	HandleID  HandleID
	SessionID SessionID // empty means the session bound to the connection
}

func (MatchAcknowledgedMsg) coordinatorMessage() {}

// ParticipantLeavingMsg announces that a participant abandons its session.
type ParticipantLeavingMsg struct {
	HandleID    HandleID
	OpponentID  ParticipantID
	DisplayName string
}

func (ParticipantLeavingMsg) coordinatorMessage() {}

// DisconnectMsg is sent by the transport when a connection drops.
type DisconnectMsg struct {
	HandleID HandleID
}

func (DisconnectMsg) coordinatorMessage() {}

// Internal messages posted by timers and background work.

type graceExpiredMsg struct {
	sessionID SessionID
	slot      Slot
	handleID  HandleID // handle bound to the slot when the grace period began
}

func (graceExpiredMsg) coordinatorMessage() {}

type removeSessionMsg struct {
	sessionID SessionID
	reason    string
}

func (removeSessionMsg) coordinatorMessage() {}

type reapStaleMsg struct{}

func (reapStaleMsg) coordinatorMessage() {}

type logStateMsg struct{}

func (logStateMsg) coordinatorMessage() {}

type historyRecordedMsg struct {
	sessionID   SessionID
	participant ParticipantID
}

func (historyRecordedMsg) coordinatorMessage() {}

type statsMsg struct {
	reply chan Stats
}

func (statsMsg) coordinatorMessage() {}

// origin returns the connection a message came from, if any.
func origin(msg CoordinatorMessage) HandleID {
	switch m := msg.(type) {
	case ConnectMsg:
		if m.Handle != nil {
			return m.Handle.ID()
		}
	case MoveMsg:
		return m.HandleID
	case RequestStateMsg:
		return m.HandleID
	case RequestQueueLengthMsg:
		return m.HandleID
	case MatchAcknowledgedMsg:
		return m.HandleID
	case ParticipantLeavingMsg:
		return m.HandleID
	}
	return ""
}
