package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

func TestDecodeInboundMove(t *testing.T) {
	raw := []byte(`{"event":"move","data":{"from":"e7","to":"e8","promotion":"n"}}`)

	msg, err := DecodeInbound(raw, "h1")
	if err != nil {
		t.Fatalf("DecodeInbound() failed: %v", err)
	}
	mv, ok := msg.(multiplayer.MoveMsg)
	if !ok {
		t.Fatalf("Expected MoveMsg, got %T", msg)
	}
	want := multiplayer.MovePayload{From: "e7", To: "e8", Promotion: "n"}
	if mv.HandleID != "h1" || mv.Move != want {
		t.Errorf("Unexpected message %+v", mv)
	}
}

func TestDecodeInboundRejectsBadFrames(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		malformed bool
	}{
		{"not json", `{"event":`, true},
		{"missing event", `{"data":{}}`, true},
		{"unknown event", `{"event":"resign"}`, true},
		{"move without data", `{"event":"move"}`, true},
		{"move without to", `{"event":"move","data":{"from":"e2"}}`, false},
		{"move with unknown field", `{"event":"move","data":{"from":"e2","to":"e4","piece":"p"}}`, true},
		{"acknowledge with wrong type", `{"event":"matchAcknowledged","data":{"sessionId":7}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tt.raw), "h1")
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !errors.Is(err, multiplayer.ErrInvalidMovePayload) {
				t.Errorf("Expected an invalid-data error, got %v", err)
			}
			if multiplayer.ClientMessage(err) != "Invalid move data" {
				t.Errorf("Unexpected client message %q", multiplayer.ClientMessage(err))
			}
			if got := IsMalformed(err); got != tt.malformed {
				t.Errorf("IsMalformed() = %v, want %v", got, tt.malformed)
			}
		})
	}
}

func TestDecodeInboundOptionalData(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"event":"requestCurrentState"}`), "h1")
	if err != nil {
		t.Fatalf("DecodeInbound() failed: %v", err)
	}
	if _, ok := msg.(multiplayer.RequestStateMsg); !ok {
		t.Errorf("Expected RequestStateMsg, got %T", msg)
	}

	msg, err = DecodeInbound([]byte(`{"event":"matchAcknowledged","data":null}`), "h1")
	if err != nil {
		t.Fatalf("DecodeInbound() failed: %v", err)
	}
	if ack := msg.(multiplayer.MatchAcknowledgedMsg); ack.SessionID != "" {
		t.Errorf("Expected empty session id, got %q", ack.SessionID)
	}

	msg, err = DecodeInbound([]byte(`{"event":"participantLeaving","data":{"opponentId":"2","displayName":"Ann"}}`), "h1")
	if err != nil {
		t.Fatalf("DecodeInbound() failed: %v", err)
	}
	leave := msg.(multiplayer.ParticipantLeavingMsg)
	if leave.OpponentID != "2" || leave.DisplayName != "Ann" {
		t.Errorf("Unexpected message %+v", leave)
	}
}

func TestSessionEndedWireShape(t *testing.T) {
	raw, err := EncodeEvent(multiplayer.SessionEndedEvent{
		SessionID:  "s1",
		Outcome:    multiplayer.Outcome{Winner: multiplayer.SlotSecond, Checkmate: true, Reason: multiplayer.EndReasonCheckmate},
		WinnerRole: "black",
	})
	if err != nil {
		t.Fatalf("EncodeEvent() failed: %v", err)
	}

	var env struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if env.Event != "sessionEnded" {
		t.Errorf("Expected sessionEnded, got %s", env.Event)
	}
	if env.Data["winner"] != "black" || env.Data["isCheckmate"] != true || env.Data["isDraw"] != false {
		t.Errorf("Unexpected data %v", env.Data)
	}

	raw, err = EncodeEvent(multiplayer.SessionEndedEvent{
		SessionID: "s1",
		Outcome:   multiplayer.Outcome{Winner: multiplayer.NoSlot, Draw: true, Reason: multiplayer.EndReasonDraw},
	})
	if err != nil {
		t.Fatalf("EncodeEvent() failed: %v", err)
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if w, ok := env.Data["winner"]; !ok || w != nil {
		t.Errorf("Expected winner null for a draw, got %v", w)
	}
}

func TestEventsSurviveTheWire(t *testing.T) {
	events := []multiplayer.Event{
		multiplayer.AssignedRoleEvent{SessionID: "s1", Slot: multiplayer.SlotFirst, Role: "white"},
		multiplayer.OpponentInfoEvent{Opponent: multiplayer.Participant{ID: "2", DisplayName: "Bob"}},
		multiplayer.QueuedEvent{Queued: true},
		multiplayer.QueueLengthEvent{Length: 3},
		multiplayer.CurrentStateEvent{SessionID: "s1", Position: "fen"},
		multiplayer.SessionEndedEvent{
			SessionID:  "s1",
			Outcome:    multiplayer.Outcome{Winner: multiplayer.SlotFirst, Checkmate: true, Reason: multiplayer.EndReasonCheckmate},
			WinnerRole: "white",
		},
		multiplayer.OpponentDisconnectedEvent{DisplayName: "Bob"},
		multiplayer.ErrorEvent{Message: "Invalid move"},
	}

	for _, evt := range events {
		raw, err := EncodeEvent(evt)
		if err != nil {
			t.Fatalf("EncodeEvent(%T) failed: %v", evt, err)
		}
		got, err := DecodeEvent(raw)
		if err != nil {
			t.Fatalf("DecodeEvent(%s) failed: %v", raw, err)
		}
		if got != evt {
			t.Errorf("Expected %+v, got %+v", evt, got)
		}
	}
}

func TestEncodeInboundIsDecodable(t *testing.T) {
	raw, err := EncodeInbound(multiplayer.MoveMsg{Move: multiplayer.MovePayload{From: "e2", To: "e4"}})
	if err != nil {
		t.Fatalf("EncodeInbound() failed: %v", err)
	}
	msg, err := DecodeInbound(raw, "h9")
	if err != nil {
		t.Fatalf("DecodeInbound() failed: %v", err)
	}
	if mv := msg.(multiplayer.MoveMsg); mv.Move.From != "e2" || mv.HandleID != "h9" {
		t.Errorf("Unexpected message %+v", mv)
	}

	if _, err := EncodeInbound(multiplayer.DisconnectMsg{}); err == nil {
		t.Error("Expected transport-level messages not to be encodable")
	}
}
