package tui

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/duelhub/internal/games/chess"
	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

type fakeLink struct {
	mu      sync.Mutex
	events  chan multiplayer.Event
	done    chan struct{}
	calls   []string
	moves   []multiplayer.MovePayload
	acked   []multiplayer.SessionID
	left    []multiplayer.ParticipantID
	moveErr error
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		events: make(chan multiplayer.Event, 16),
		done:   make(chan struct{}),
	}
}

func (f *fakeLink) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeLink) Events() <-chan multiplayer.Event { return f.events }
func (f *fakeLink) Done() <-chan struct{}            { return f.done }

func (f *fakeLink) Move(mv multiplayer.MovePayload) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	f.record("move")
	f.moves = append(f.moves, mv)
	return nil
}

func (f *fakeLink) RequestState() error {
	f.record("state")
	return nil
}

func (f *fakeLink) RequestQueueLength() error {
	f.record("queue")
	return nil
}

func (f *fakeLink) Acknowledge(id multiplayer.SessionID) error {
	f.record("ack")
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeLink) Leave(opponent multiplayer.ParticipantID, displayName string) error {
	f.record("leave")
	f.left = append(f.left, opponent)
	return nil
}

func (f *fakeLink) callList() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.calls, ",")
}

func update(t *testing.T, m DuelModel, msg tea.Msg) DuelModel {
	t.Helper()
	next, _ := m.Update(msg)
	dm, ok := next.(DuelModel)
	if !ok {
		t.Fatalf("Update() returned %T", next)
	}
	return dm
}

func event(evt multiplayer.Event) tea.Msg {
	return eventMsg{evt: evt}
}

// playing returns a model that is white in session s1 against Bob.
func playing(t *testing.T, link *fakeLink) DuelModel {
	t.Helper()
	m := NewDuelModel(link, chess.New(), "Alice")
	m = update(t, m, event(multiplayer.QueuedEvent{Queued: true}))
	m = update(t, m, event(multiplayer.AssignedRoleEvent{SessionID: "s1", Slot: multiplayer.SlotFirst, Role: "white"}))
	m = update(t, m, event(multiplayer.OpponentInfoEvent{Opponent: multiplayer.Participant{ID: "2", DisplayName: "Bob"}}))
	m = update(t, m, event(multiplayer.CurrentStateEvent{SessionID: "s1", Position: chess.StartFEN}))
	return m
}

func TestDuelModelQueueFlow(t *testing.T) {
	link := newFakeLink()
	m := NewDuelModel(link, chess.New(), "Alice")

	if m.Phase() != PhaseConnecting {
		t.Fatalf("Expected PhaseConnecting, got %d", m.Phase())
	}

	m = update(t, m, event(multiplayer.QueuedEvent{Queued: true}))
	m = update(t, m, event(multiplayer.QueueLengthEvent{Length: 3}))
	if m.Phase() != PhaseQueued {
		t.Fatalf("Expected PhaseQueued, got %d", m.Phase())
	}
	if !strings.Contains(m.View(), "3 in queue") {
		t.Errorf("Expected the queue length in the view, got:\n%s", m.View())
	}

	m = update(t, m, TickMsg{})
	if link.callList() != "queue" {
		t.Errorf("Expected a queue length poll, got %q", link.callList())
	}
}

func TestDuelModelShowsBoardAndRole(t *testing.T) {
	m := playing(t, newFakeLink())

	if m.Phase() != PhasePlaying || m.SessionID() != "s1" {
		t.Fatalf("Expected to be playing s1, got phase %d session %q", m.Phase(), m.SessionID())
	}
	view := m.View()
	if !strings.Contains(view, "You are white against Bob") {
		t.Errorf("Expected role and opponent in the view, got:\n%s", view)
	}
	if !strings.Contains(view, "CHESS DUEL") {
		t.Errorf("Expected the game title, got:\n%s", view)
	}
	if !strings.Contains(view, "a") || !strings.Contains(view, "h") {
		t.Errorf("Expected file labels, got:\n%s", view)
	}
}

func TestDuelModelSubmitsMoveAndRequestsState(t *testing.T) {
	link := newFakeLink()
	m := playing(t, link)

	m.input.SetValue("e2-e4")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if link.callList() != "move,state" {
		t.Fatalf("Expected move then state request, got %q", link.callList())
	}
	if link.moves[0].From != "e2" || link.moves[0].To != "e4" {
		t.Errorf("Unexpected move %+v", link.moves[0])
	}
	if m.input.Value() != "" {
		t.Errorf("Expected the input to be cleared, got %q", m.input.Value())
	}
	if !strings.Contains(m.View(), "Last move: e2e4") {
		t.Errorf("Expected the last move in the view")
	}
}

func TestDuelModelRejectsBadInput(t *testing.T) {
	link := newFakeLink()
	m := playing(t, link)

	m.input.SetValue("hello")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if link.callList() != "" {
		t.Errorf("Expected nothing sent, got %q", link.callList())
	}
	if m.errMsg == "" {
		t.Error("Expected an error message")
	}
}

func TestDuelModelReportsTransportError(t *testing.T) {
	link := newFakeLink()
	link.moveErr = errors.New("client: cannot send: broken pipe")
	m := playing(t, link)

	m.input.SetValue("e2e4")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if !strings.Contains(m.View(), "broken pipe") {
		t.Errorf("Expected the send error in the view, got:\n%s", m.View())
	}
}

func TestDuelModelMoveNotPlaying(t *testing.T) {
	link := newFakeLink()
	m := NewDuelModel(link, chess.New(), "Alice")
	m = update(t, m, event(multiplayer.QueuedEvent{Queued: true}))

	m.input.SetValue("e2e4")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if link.callList() != "" {
		t.Errorf("Expected nothing sent while queued, got %q", link.callList())
	}
	if m.errMsg != "You are not in a game" {
		t.Errorf("Unexpected error %q", m.errMsg)
	}
}

func TestDuelModelOpponentMoveUpdatesBoard(t *testing.T) {
	m := playing(t, newFakeLink())
	after := "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2"

	m = update(t, m, event(multiplayer.MoveEvent{
		SessionID: "s1",
		Slot:      multiplayer.SlotSecond,
		Move:      multiplayer.MovePayload{From: "e7", To: "e5", FEN: after},
	}))

	if string(m.position) != after {
		t.Errorf("Expected the forwarded position, got %s", m.position)
	}
	if m.lastMove != "e7e5" {
		t.Errorf("Expected last move e7e5, got %s", m.lastMove)
	}
}

func TestDuelModelAcknowledgesEnd(t *testing.T) {
	link := newFakeLink()
	m := playing(t, link)

	m = update(t, m, event(multiplayer.SessionEndedEvent{
		SessionID:  "s1",
		Outcome:    multiplayer.Outcome{Winner: multiplayer.SlotSecond, Checkmate: true, Reason: multiplayer.EndReasonCheckmate},
		WinnerRole: "black",
	}))

	if m.Phase() != PhaseEnded {
		t.Fatalf("Expected PhaseEnded, got %d", m.Phase())
	}
	if len(link.acked) != 1 || link.acked[0] != "s1" {
		t.Errorf("Expected s1 to be acknowledged, got %v", link.acked)
	}
	if !strings.Contains(m.View(), "You lost by checkmate") {
		t.Errorf("Expected the outcome in the view, got:\n%s", m.View())
	}
}

func TestDuelModelDrawOutcome(t *testing.T) {
	m := playing(t, newFakeLink())
	m = update(t, m, event(multiplayer.SessionEndedEvent{
		SessionID: "s1",
		Outcome:   multiplayer.Outcome{Winner: multiplayer.NoSlot, Draw: true, Reason: multiplayer.EndReasonDraw},
	}))

	if m.outcome != "Draw" {
		t.Errorf("Expected Draw, got %q", m.outcome)
	}
}

func TestDuelModelLeave(t *testing.T) {
	link := newFakeLink()
	m := playing(t, link)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if len(link.left) != 1 || link.left[0] != "2" {
		t.Errorf("Expected to leave against Bob, got %v", link.left)
	}
	if !m.IsQuitting() {
		t.Error("Expected the model to quit after leaving")
	}
}

func TestDuelModelRefresh(t *testing.T) {
	link := newFakeLink()
	m := playing(t, link)

	update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if link.callList() != "state" {
		t.Errorf("Expected a state request, got %q", link.callList())
	}
}

func TestDuelModelOpponentLeft(t *testing.T) {
	m := playing(t, newFakeLink())
	m = update(t, m, event(multiplayer.OpponentDisconnectedEvent{DisplayName: "Bob"}))

	if m.Phase() != PhaseEnded {
		t.Errorf("Expected PhaseEnded, got %d", m.Phase())
	}
	if !strings.Contains(m.View(), "Bob left the game") {
		t.Errorf("Expected a notice, got:\n%s", m.View())
	}
}

func TestDuelModelServerError(t *testing.T) {
	m := playing(t, newFakeLink())
	m = update(t, m, event(multiplayer.ErrorEvent{Message: "Invalid move"}))

	if !strings.Contains(m.View(), "Invalid move") {
		t.Errorf("Expected the error in the view")
	}
}

func TestDuelModelWaitsForEvents(t *testing.T) {
	link := newFakeLink()
	m := NewDuelModel(link, chess.New(), "Alice")

	link.events <- multiplayer.QueuedEvent{Queued: true}
	msg := m.waitForEvent()()
	em, ok := msg.(eventMsg)
	if !ok {
		t.Fatalf("Expected eventMsg, got %T", msg)
	}
	if _, ok := em.evt.(multiplayer.QueuedEvent); !ok {
		t.Errorf("Expected QueuedEvent, got %T", em.evt)
	}

	close(link.done)
	if _, ok := m.waitForEvent()().(linkClosedMsg); !ok {
		t.Error("Expected linkClosedMsg after the link is done")
	}

	m = update(t, m, linkClosedMsg{})
	if m.Phase() != PhaseClosed {
		t.Errorf("Expected PhaseClosed, got %d", m.Phase())
	}
}
