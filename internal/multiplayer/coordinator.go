package multiplayer

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// CoordinatorConfig holds configuration for the coordinator.
type CoordinatorConfig struct {
	DisconnectGrace  time.Duration // How long a dropped participant may take to come back
	EndedRetention   time.Duration // How long an ended session stays addressable
	StaleSweepPeriod time.Duration // How often to look for stale sessions
	MaxSessionAge    time.Duration // Sessions older than this are reaped regardless of activity
	StateLogPeriod   time.Duration // How often to log queue/registry sizes (0 disables)
	RecorderTimeout  time.Duration // Per-call timeout for the match-history recorder
	MessageBuffer    int           // Capacity of the inbound message channel
}

// DefaultCoordinatorConfig returns sensible defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		DisconnectGrace:  30 * time.Second,
		EndedRetention:   60 * time.Second,
		StaleSweepPeriod: 15 * time.Minute,
		MaxSessionAge:    3 * time.Hour,
		StateLogPeriod:   60 * time.Second,
		RecorderTimeout:  10 * time.Second,
		MessageBuffer:    256,
	}
}

// Stats is a point-in-time view of the coordinator.
type Stats struct {
	Waiting        int
	ActiveSessions int
	EndedSessions  int
	Connections    int
}

// connection is the coordinator's view of one bound transport connection.
type connection struct {
	handle      Handle
	participant Participant
	session     SessionID // empty until paired or rebound
}

type graceKey struct {
	session SessionID
	slot    Slot
}

type pendingGrace struct {
	handleID HandleID
	stop     func() bool
}

// Coordinator pairs participants and runs their sessions.
// All queue, registry and connection state is touched only from the
// goroutine started by Start; every inbound event runs to completion
// before the next one is handled.
type Coordinator struct {
	config   CoordinatorConfig
	oracle   Oracle
	recorder HistoryRecorder // Optional, can be nil
	logger   *log.Logger

	queue    *Queue
	sessions *Registry
	conns    map[HandleID]*connection
	grace    map[graceKey]pendingGrace

	// Replaced in tests.
	now          func() time.Time
	afterFunc    func(d time.Duration, f func()) (stop func() bool)
	newSessionID func() SessionID

	msgChan  chan CoordinatorMessage
	done     chan struct{}
	stopOnce sync.Once
}

// NewCoordinator creates a new coordinator around a rules oracle.
func NewCoordinator(cfg CoordinatorConfig, oracle Oracle, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.MessageBuffer < 1 {
		cfg.MessageBuffer = 256
	}
	return &Coordinator{
		config:   cfg,
		oracle:   oracle,
		logger:   logger,
		queue:    NewQueue(),
		sessions: NewRegistry(),
		conns:    make(map[HandleID]*connection),
		grace:    make(map[graceKey]pendingGrace),
		now:      time.Now,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		newSessionID: func() SessionID {
			return SessionID(uuid.NewString())
		},
		msgChan: make(chan CoordinatorMessage, cfg.MessageBuffer),
		done:    make(chan struct{}),
	}
}

// SetRecorder sets the optional match-history recorder.
// Must be called before Start.
func (c *Coordinator) SetRecorder(r HistoryRecorder) {
	c.recorder = r
}

// Start begins the coordinator's background processing.
func (c *Coordinator) Start() {
	go c.processMessages()
	go c.sweepLoop()
}

// Stop shuts down the coordinator. Pending timers become no-ops.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// Send sends a message to the coordinator for async processing.
func (c *Coordinator) Send(msg CoordinatorMessage) {
	select {
	case c.msgChan <- msg:
	case <-c.done:
	}
}

// Stats returns queue and registry sizes. Blocks until the loop answers
// or the coordinator stops.
func (c *Coordinator) Stats() Stats {
	reply := make(chan Stats, 1)
	c.Send(statsMsg{reply: reply})
	select {
	case s := <-reply:
		return s
	case <-c.done:
		return Stats{}
	}
}

// processMessages handles incoming messages one at a time.
func (c *Coordinator) processMessages() {
	for {
		select {
		case msg := <-c.msgChan:
			c.handleMessage(msg)
		case <-c.done:
			return
		}
	}
}

// handleMessage is the dispatch boundary: a failing handler is reported to
// the sender and never takes the loop down.
func (c *Coordinator) handleMessage(msg CoordinatorMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panic", "message", fmt.Sprintf("%T", msg), "panic", r)
			if id := origin(msg); id != "" {
				c.sendError(id, errInternal)
			}
		}
	}()

	switch m := msg.(type) {
	case ConnectMsg:
		c.handleConnect(m)
	case MoveMsg:
		c.handleMove(m)
	case RequestStateMsg:
		c.handleRequestState(m)
	case RequestQueueLengthMsg:
		c.handleRequestQueueLength(m)
	case MatchAcknowledgedMsg:
		c.handleMatchAcknowledged(m)
	case ParticipantLeavingMsg:
		c.handleParticipantLeaving(m)
	case DisconnectMsg:
		c.handleDisconnect(m)
	case graceExpiredMsg:
		c.handleGraceExpired(m)
	case removeSessionMsg:
		c.removeSession(m.sessionID, m.reason)
	case reapStaleMsg:
		c.reapStale()
	case logStateMsg:
		c.logState()
	case historyRecordedMsg:
		c.handleHistoryRecorded(m)
	case statsMsg:
		m.reply <- c.stats()
	}
}

func (c *Coordinator) stats() Stats {
	return Stats{
		Waiting:        c.queue.Len(),
		ActiveSessions: c.sessions.ActiveCount(),
		EndedSessions:  c.sessions.Len() - c.sessions.ActiveCount(),
		Connections:    len(c.conns),
	}
}

// createSession turns two waiting entries into a session.
// first always takes SlotFirst.
func (c *Coordinator) createSession(first, second *WaitingEntry) *Session {
	sess := &Session{
		ID: c.newSessionID(),
		Slots: [2]SlotState{
			{Participant: first.Participant, Handle: first.Handle, Connected: true},
			{Participant: second.Participant, Handle: second.Handle, Connected: true},
		},
		Position:  c.oracle.Start(),
		StartedAt: c.now(),
		Status:    SessionActive,
	}
	c.sessions.Add(sess)

	for i := range sess.Slots {
		if conn, ok := c.conns[sess.Slots[i].Handle.ID()]; ok {
			conn.session = sess.ID
		}
	}

	c.logger.Info("session created",
		"session", sess.ID,
		"first", sess.Slots[SlotFirst].Participant.ID,
		"second", sess.Slots[SlotSecond].Participant.ID,
	)

	for _, slot := range []Slot{SlotFirst, SlotSecond} {
		c.pushSessionView(sess, slot, sess.Slots[slot].Handle)
	}
	return sess
}

// pushSessionView sends role, opponent, session id and position to h.
func (c *Coordinator) pushSessionView(sess *Session, slot Slot, h Handle) {
	roles := c.oracle.Roles()
	h.Send(AssignedRoleEvent{SessionID: sess.ID, Slot: slot, Role: roles[slot]})
	h.Send(OpponentInfoEvent{Opponent: sess.Slots[slot.Opponent()].Participant})
	h.Send(SessionAssignedEvent{SessionID: sess.ID})
	h.Send(QueuedEvent{Queued: false})
	h.Send(CurrentStateEvent{SessionID: sess.ID, Position: sess.Position})
}

// endSession marks the session ended, tells both sides, records history and
// schedules removal once late acknowledgements can no longer arrive.
func (c *Coordinator) endSession(sess *Session, outcome Outcome) {
	if !sess.Active() {
		return
	}
	sess.Status = SessionEnded
	sess.Outcome = outcome
	sess.EndedAt = c.now()
	c.cancelAllGrace(sess.ID)

	evt := SessionEndedEvent{SessionID: sess.ID, Outcome: outcome}
	if outcome.Winner.Valid() {
		evt.WinnerRole = c.oracle.Roles()[outcome.Winner]
	}
	c.sendToSlot(sess, SlotFirst, evt)
	c.sendToSlot(sess, SlotSecond, evt)

	c.logger.Info("session ended",
		"session", sess.ID,
		"reason", outcome.Reason,
		"winner", outcome.Winner,
		"moves", len(sess.Moves),
	)

	c.notifyHistory(sess)

	id := sess.ID
	c.afterFunc(c.config.EndedRetention, func() {
		c.Send(removeSessionMsg{sessionID: id, reason: "retention elapsed"})
	})
}

// removeSession deletes a session immediately. Idempotent.
// Connections keep their session id so that later requests see SessionNotFound.
func (c *Coordinator) removeSession(id SessionID, reason string) {
	if _, ok := c.sessions.Remove(id); !ok {
		return
	}
	c.cancelAllGrace(id)
	c.logger.Info("session removed", "session", id, "reason", reason)
}

// sendToSlot delivers evt to the slot's connection if it is currently connected.
func (c *Coordinator) sendToSlot(sess *Session, slot Slot, evt Event) {
	st := sess.Slots[slot]
	if st.Connected && st.Handle != nil {
		st.Handle.Send(evt)
	}
}

// sendError reports err to a single connection.
func (c *Coordinator) sendError(id HandleID, err error) {
	c.logger.Debug("scoped error", "handle", id, "error", err)
	if conn, ok := c.conns[id]; ok {
		conn.handle.Send(ErrorEvent{Message: ClientMessage(err)})
	}
}

// broadcastQueueLength tells every waiting entry the current queue length.
func (c *Coordinator) broadcastQueueLength() {
	n := c.queue.Len()
	for _, e := range c.queue.Entries() {
		e.Handle.Send(QueueLengthEvent{Length: n})
	}
}

// tryPair pairs waiting entries while at least two are waiting.
func (c *Coordinator) tryPair() {
	paired := false
	for {
		first, second, ok := c.queue.TryPair()
		if !ok {
			break
		}
		c.createSession(first, second)
		paired = true
	}
	if paired {
		c.broadcastQueueLength()
	}
}

// boundSession resolves the session a connection is bound to.
func (c *Coordinator) boundSession(id HandleID) (*connection, *Session, error) {
	conn, ok := c.conns[id]
	if !ok || conn.session == "" {
		return nil, nil, ErrNotInSession
	}
	sess, ok := c.sessions.Get(conn.session)
	if !ok {
		return conn, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, conn.session)
	}
	return conn, sess, nil
}
