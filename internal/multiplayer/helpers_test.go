package multiplayer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingHandle records every event it is sent.
type recordingHandle struct {
	id     HandleID
	mu     sync.Mutex
	events []Event
	closed bool
}

func newRecordingHandle(id string) *recordingHandle {
	return &recordingHandle{id: HandleID(id)}
}

func (h *recordingHandle) ID() HandleID { return h.id }

func (h *recordingHandle) Send(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
}

func (h *recordingHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

func (h *recordingHandle) all() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *recordingHandle) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

// eventsOf returns the events of type T received by h, in order.
func eventsOf[T Event](h *recordingHandle) []T {
	var out []T
	for _, evt := range h.all() {
		if e, ok := evt.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

// scriptedOracle appends each move to the position string. Positions listed
// in statuses are reported with that status; everything else is in play.
type scriptedOracle struct {
	statuses map[Position]PositionStatus
	applied  int
}

func newScriptedOracle() *scriptedOracle {
	return &scriptedOracle{statuses: make(map[Position]PositionStatus)}
}

func (o *scriptedOracle) Start() Position { return "start" }

func (o *scriptedOracle) Apply(pos Position, mv MovePayload) (Position, error) {
	switch mv.From {
	case "boom":
		panic("oracle exploded")
	case "xx":
		return "", fmt.Errorf("%w: no piece on %s", ErrIllegalMove, mv.From)
	case "zz":
		return "", errors.New("square out of range")
	}
	o.applied++
	return Position(string(pos) + " " + mv.From + mv.To), nil
}

func (o *scriptedOracle) Status(pos Position) (PositionStatus, error) {
	if pos == "garbage" {
		return PositionStatus{}, errors.New("cannot parse position")
	}
	if st, ok := o.statuses[pos]; ok {
		return st, nil
	}
	toMove := SlotFirst
	if strings.Count(string(pos), " ")%2 == 1 {
		toMove = SlotSecond
	}
	return PositionStatus{ToMove: toMove}, nil
}

func (o *scriptedOracle) Roles() [2]string { return [2]string{"white", "black"} }

// fakeTimer is a scheduled callback the test fires by hand.
type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) afterFunc(d time.Duration, f func()) func() bool {
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return func() bool {
		if t.stopped || t.fired {
			return false
		}
		t.stopped = true
		return true
	}
}

// fire runs every unfired timer with duration d. With force, stopped timers
// run too, which models a stop call that lost the race against the timer.
func (s *fakeScheduler) fire(d time.Duration, force bool) int {
	n := 0
	for _, t := range s.timers {
		if t.d != d || t.fired || (t.stopped && !force) {
			continue
		}
		t.fired = true
		t.f()
		n++
	}
	return n
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	c      *Coordinator
	oracle *scriptedOracle
	sched  *fakeScheduler
	clock  *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		oracle: newScriptedOracle(),
		sched:  &fakeScheduler{},
		clock:  &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.c = NewCoordinator(DefaultCoordinatorConfig(), h.oracle, nil)
	h.c.now = h.clock.Now
	h.c.afterFunc = h.sched.afterFunc
	seq := 0
	h.c.newSessionID = func() SessionID {
		seq++
		return SessionID(fmt.Sprintf("s%d", seq))
	}
	t.Cleanup(h.c.Stop)
	return h
}

// flush processes queued messages without starting the event loop.
func (h *harness) flush() {
	for {
		select {
		case msg := <-h.c.msgChan:
			h.c.handleMessage(msg)
		default:
			return
		}
	}
}

func (h *harness) connect(handle *recordingHandle, id, name string, hint SessionID) {
	h.c.handleMessage(ConnectMsg{
		Handle: handle,
		Handshake: Handshake{
			ParticipantID: ParticipantID(id),
			DisplayName:   name,
			LastSessionID: hint,
		},
	})
}

// pair connects Alice and Bob and returns their handles and the session.
func (h *harness) pair(t *testing.T) (*recordingHandle, *recordingHandle, *Session) {
	t.Helper()
	a := newRecordingHandle("a1")
	b := newRecordingHandle("b1")
	h.connect(a, "1", "Alice", "")
	h.connect(b, "2", "Bob", "")

	sess, ok := h.c.sessions.ActiveFor("1")
	if !ok {
		t.Fatalf("Expected Alice and Bob to be paired")
	}
	return a, b, sess
}

func (h *harness) move(handle *recordingHandle, from, to string) {
	h.c.handleMessage(MoveMsg{HandleID: handle.ID(), Move: MovePayload{From: from, To: to}})
}

func lastError(h *recordingHandle) string {
	errs := eventsOf[ErrorEvent](h)
	if len(errs) == 0 {
		return ""
	}
	return errs[len(errs)-1].Message
}
