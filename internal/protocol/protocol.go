// Package protocol is the JSON wire format spoken over WebSocket connections.
// Every frame is an envelope {"event": name, "data": {...}}. The codec is
// symmetric: the server decodes inbound messages and encodes events, the
// client does the reverse.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

// Inbound event names.
const (
	EventMove                = "move"
	EventRequestCurrentState = "requestCurrentState"
	EventRequestQueueLength  = "requestQueueLength"
	EventMatchAcknowledged   = "matchAcknowledged"
	EventParticipantLeaving  = "participantLeaving"
)

// Outbound event names. "move" is shared with the inbound set.
const (
	EventAssignedRole         = "assignedRole"
	EventOpponentInfo         = "opponentInfo"
	EventQueued               = "queued"
	EventQueueLength          = "queueLength"
	EventSessionAssigned      = "sessionAssigned"
	EventCurrentState         = "currentState"
	EventSessionEnded         = "sessionEnded"
	EventOpponentReconnected  = "opponentReconnected"
	EventOpponentDisconnected = "opponentDisconnected"
	EventMatchHistoryUpdated  = "matchHistoryUpdated"
	EventError                = "error"
)

// Decode errors. Both report to the client as invalid data.
var (
	ErrMalformed    = fmt.Errorf("%w: malformed frame", multiplayer.ErrInvalidMovePayload)
	ErrUnknownEvent = fmt.Errorf("%w: unknown event", multiplayer.ErrInvalidMovePayload)
)

// Envelope is the outer shape of every frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MoveData is a move as it travels in both directions.
type MoveData struct {
	SessionID string `json:"sessionId,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	FEN       string `json:"fen,omitempty"`
}

type matchAcknowledgedData struct {
	SessionID string `json:"sessionId"`
}

type participantLeavingData struct {
	OpponentID  string `json:"opponentId"`
	DisplayName string `json:"displayName"`
}

type assignedRoleData struct {
	SessionID string `json:"sessionId"`
	Role      string `json:"role"`
	Slot      int    `json:"slot"`
}

type participantData struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

type queuedData struct {
	Queued bool `json:"queued"`
}

type queueLengthData struct {
	Length int `json:"length"`
}

type sessionData struct {
	SessionID string `json:"sessionId"`
}

type currentStateData struct {
	SessionID string `json:"sessionId"`
	Position  string `json:"position"`
}

// SessionEndedData is the outcome as shown to clients.
type SessionEndedData struct {
	SessionID   string  `json:"sessionId"`
	Winner      *string `json:"winner"`     // role label, null for a draw
	WinnerSlot  int     `json:"winnerSlot"` // -1 for a draw
	IsCheckmate bool    `json:"isCheckmate"`
	IsDraw      bool    `json:"isDraw"`
	Reason      string  `json:"reason"`
}

type displayNameData struct {
	DisplayName string `json:"displayName"`
}

type errorData struct {
	Message string `json:"message"`
}

// DecodeInbound parses a client frame into a coordinator message bound to h.
func DecodeInbound(raw []byte, h multiplayer.HandleID) (multiplayer.CoordinatorMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Event {
	case EventMove:
		var d MoveData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		mv := multiplayer.MovePayload{From: d.From, To: d.To, Promotion: d.Promotion, FEN: d.FEN}
		if err := mv.Validate(); err != nil {
			return nil, err
		}
		return multiplayer.MoveMsg{HandleID: h, Move: mv}, nil

	case EventRequestCurrentState:
		return multiplayer.RequestStateMsg{HandleID: h}, nil

	case EventRequestQueueLength:
		return multiplayer.RequestQueueLengthMsg{HandleID: h}, nil

	case EventMatchAcknowledged:
		var d matchAcknowledgedData
		if err := decodeData(env.Data, &d, false); err != nil {
			return nil, err
		}
		return multiplayer.MatchAcknowledgedMsg{HandleID: h, SessionID: multiplayer.SessionID(d.SessionID)}, nil

	case EventParticipantLeaving:
		var d participantLeavingData
		if err := decodeData(env.Data, &d, false); err != nil {
			return nil, err
		}
		return multiplayer.ParticipantLeavingMsg{
			HandleID:    h,
			OpponentID:  multiplayer.ParticipantID(d.OpponentID),
			DisplayName: d.DisplayName,
		}, nil

	case "":
		return nil, fmt.Errorf("%w: missing event name", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// EncodeInbound builds the client frame for msg. Handle ids are not sent.
func EncodeInbound(msg multiplayer.CoordinatorMessage) ([]byte, error) {
	switch m := msg.(type) {
	case multiplayer.MoveMsg:
		return encode(EventMove, MoveData{
			From:      m.Move.From,
			To:        m.Move.To,
			Promotion: m.Move.Promotion,
			FEN:       m.Move.FEN,
		})
	case multiplayer.RequestStateMsg:
		return encode(EventRequestCurrentState, nil)
	case multiplayer.RequestQueueLengthMsg:
		return encode(EventRequestQueueLength, nil)
	case multiplayer.MatchAcknowledgedMsg:
		return encode(EventMatchAcknowledged, matchAcknowledgedData{SessionID: string(m.SessionID)})
	case multiplayer.ParticipantLeavingMsg:
		return encode(EventParticipantLeaving, participantLeavingData{
			OpponentID:  string(m.OpponentID),
			DisplayName: m.DisplayName,
		})
	default:
		return nil, fmt.Errorf("protocol: cannot encode %T", msg)
	}
}

// EncodeEvent builds the server frame for evt.
func EncodeEvent(evt multiplayer.Event) ([]byte, error) {
	switch e := evt.(type) {
	case multiplayer.AssignedRoleEvent:
		return encode(EventAssignedRole, assignedRoleData{SessionID: string(e.SessionID), Role: e.Role, Slot: int(e.Slot)})
	case multiplayer.OpponentInfoEvent:
		return encode(EventOpponentInfo, participantData{
			ParticipantID: string(e.Opponent.ID),
			DisplayName:   e.Opponent.DisplayName,
		})
	case multiplayer.QueuedEvent:
		return encode(EventQueued, queuedData{Queued: e.Queued})
	case multiplayer.QueueLengthEvent:
		return encode(EventQueueLength, queueLengthData{Length: e.Length})
	case multiplayer.SessionAssignedEvent:
		return encode(EventSessionAssigned, sessionData{SessionID: string(e.SessionID)})
	case multiplayer.CurrentStateEvent:
		return encode(EventCurrentState, currentStateData{SessionID: string(e.SessionID), Position: string(e.Position)})
	case multiplayer.MoveEvent:
		return encode(EventMove, MoveData{
			SessionID: string(e.SessionID),
			From:      e.Move.From,
			To:        e.Move.To,
			Promotion: e.Move.Promotion,
			FEN:       e.Move.FEN,
		})
	case multiplayer.SessionEndedEvent:
		return encode(EventSessionEnded, endedData(e))
	case multiplayer.OpponentReconnectedEvent:
		return encode(EventOpponentReconnected, displayNameData{DisplayName: e.DisplayName})
	case multiplayer.OpponentDisconnectedEvent:
		return encode(EventOpponentDisconnected, displayNameData{DisplayName: e.DisplayName})
	case multiplayer.MatchHistoryUpdatedEvent:
		return encode(EventMatchHistoryUpdated, sessionData{SessionID: string(e.SessionID)})
	case multiplayer.ErrorEvent:
		return encode(EventError, errorData{Message: e.Message})
	default:
		return nil, fmt.Errorf("protocol: cannot encode %T", evt)
	}
}

// DecodeEvent parses a server frame.
func DecodeEvent(raw []byte) (multiplayer.Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Event {
	case EventAssignedRole:
		var d assignedRoleData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return multiplayer.AssignedRoleEvent{
			SessionID: multiplayer.SessionID(d.SessionID),
			Slot:      multiplayer.Slot(d.Slot),
			Role:      d.Role,
		}, nil
	case EventOpponentInfo:
		var d participantData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return multiplayer.OpponentInfoEvent{Opponent: multiplayer.Participant{
			ID:          multiplayer.ParticipantID(d.ParticipantID),
			DisplayName: d.DisplayName,
		}}, nil
	case EventQueued:
		var d queuedData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return multiplayer.QueuedEvent{Queued: d.Queued}, nil
	case EventQueueLength:
		var d queueLengthData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return multiplayer.QueueLengthEvent{Length: d.Length}, nil
	case EventSessionAssigned:
		var d sessionData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return multiplayer.SessionAssignedEvent{SessionID: multiplayer.SessionID(d.SessionID)}, nil
	case EventCurrentState:
		var d currentStateData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return multiplayer.CurrentStateEvent{
			SessionID: multiplayer.SessionID(d.SessionID),
			Position:  multiplayer.Position(d.Position),
		}, nil
	case EventMove:
		var d MoveData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return multiplayer.MoveEvent{
			SessionID: multiplayer.SessionID(d.SessionID),
			Slot:      multiplayer.NoSlot,
			Move:      multiplayer.MovePayload{From: d.From, To: d.To, Promotion: d.Promotion, FEN: d.FEN},
		}, nil
	case EventSessionEnded:
		var d SessionEndedData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return d.event(), nil
	case EventOpponentReconnected:
		var d displayNameData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return multiplayer.OpponentReconnectedEvent{DisplayName: d.DisplayName}, nil
	case EventOpponentDisconnected:
		var d displayNameData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return multiplayer.OpponentDisconnectedEvent{DisplayName: d.DisplayName}, nil
	case EventMatchHistoryUpdated:
		var d sessionData
		if err := decodeData(env.Data, &d, false); err != nil {
			return nil, err
		}
		return multiplayer.MatchHistoryUpdatedEvent{SessionID: multiplayer.SessionID(d.SessionID)}, nil
	case EventError:
		var d errorData
		if err := decodeData(env.Data, &d, true); err != nil {
			return nil, err
		}
		return multiplayer.ErrorEvent{Message: d.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func endedData(e multiplayer.SessionEndedEvent) SessionEndedData {
	d := SessionEndedData{
		SessionID:   string(e.SessionID),
		WinnerSlot:  int(multiplayer.NoSlot),
		IsCheckmate: e.Outcome.Checkmate,
		IsDraw:      e.Outcome.Draw,
		Reason:      e.Outcome.Reason.String(),
	}
	if e.Outcome.Winner.Valid() {
		role := e.WinnerRole
		d.Winner = &role
		d.WinnerSlot = int(e.Outcome.Winner)
	}
	return d
}

func (d SessionEndedData) event() multiplayer.SessionEndedEvent {
	o := multiplayer.Outcome{
		Winner:    multiplayer.Slot(d.WinnerSlot),
		Checkmate: d.IsCheckmate,
		Draw:      d.IsDraw,
		Reason:    multiplayer.EndReasonDraw,
	}
	if !o.Winner.Valid() {
		o.Winner = multiplayer.NoSlot
	}
	if d.Reason == multiplayer.EndReasonCheckmate.String() {
		o.Reason = multiplayer.EndReasonCheckmate
	}
	evt := multiplayer.SessionEndedEvent{SessionID: multiplayer.SessionID(d.SessionID), Outcome: o}
	if d.Winner != nil {
		evt.WinnerRole = *d.Winner
	}
	return evt
}

// decodeData strictly decodes the data object. Unknown fields are rejected.
func decodeData(data json.RawMessage, dst any, required bool) error {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		if required {
			return fmt.Errorf("%w: missing data", ErrMalformed)
		}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func encode(event string, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("protocol: cannot encode %s: %w", event, err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// IsMalformed reports whether err came from decoding a frame.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrUnknownEvent)
}
