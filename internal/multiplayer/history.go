package multiplayer

import (
	"context"
	"fmt"
	"time"
)

// HistoryRecord is one participant's view of an ended session.
type HistoryRecord struct {
	SessionID     SessionID
	ParticipantID ParticipantID
	DisplayName   string
	OpponentID    ParticipantID
	OpponentName  string
	Result        Result
	Reason        EndReason
	Moves         int
	EndedAt       time.Time
}

// HistoryRecorder persists match outcomes. Implementations may block;
// the coordinator always calls them off the event loop.
type HistoryRecorder interface {
	RecordOutcome(ctx context.Context, rec HistoryRecord) error
}

// notifyHistory records the outcome for both participants. Each call runs
// in its own goroutine so one failing recorder call never affects the other.
func (c *Coordinator) notifyHistory(sess *Session) {
	if c.recorder == nil {
		return
	}
	for _, slot := range []Slot{SlotFirst, SlotSecond} {
		me := sess.Slots[slot].Participant
		opp := sess.Slots[slot.Opponent()].Participant
		rec := HistoryRecord{
			SessionID:     sess.ID,
			ParticipantID: me.ID,
			DisplayName:   me.DisplayName,
			OpponentID:    opp.ID,
			OpponentName:  opp.DisplayName,
			Result:        sess.Outcome.ResultFor(slot),
			Reason:        sess.Outcome.Reason,
			Moves:         len(sess.Moves),
			EndedAt:       sess.EndedAt,
		}
		go c.recordOutcome(rec)
	}
}

func (c *Coordinator) recordOutcome(rec HistoryRecord) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("history recorder panic", "participant", rec.ParticipantID, "panic", r)
		}
	}()

	timeout := c.config.RecorderTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.recorder.RecordOutcome(ctx, rec); err != nil {
		c.logger.Warn("failed to record match",
			"session", rec.SessionID,
			"participant", rec.ParticipantID,
			"error", fmt.Errorf("%w: %v", ErrExternalNotify, err),
		)
		return
	}
	c.Send(historyRecordedMsg{sessionID: rec.SessionID, participant: rec.ParticipantID})
}

// handleHistoryRecorded tells a still-connected participant their history changed.
func (c *Coordinator) handleHistoryRecorded(msg historyRecordedMsg) {
	sess, ok := c.sessions.Get(msg.sessionID)
	if !ok {
		return
	}
	slot, ok := sess.SlotOf(msg.participant)
	if !ok {
		return
	}
	c.sendToSlot(sess, slot, MatchHistoryUpdatedEvent{SessionID: sess.ID})
}
