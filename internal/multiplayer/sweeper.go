package multiplayer

import "time"

// scheduleGrace starts the disconnect grace period for a slot.
// The timer captures the handle that dropped; at fire time the slot is
// re-checked, so a reconnect wins even if the stop call loses the race.
func (c *Coordinator) scheduleGrace(id SessionID, slot Slot, handleID HandleID) {
	key := graceKey{session: id, slot: slot}
	c.cancelGrace(id, slot)

	stop := c.afterFunc(c.config.DisconnectGrace, func() {
		c.Send(graceExpiredMsg{sessionID: id, slot: slot, handleID: handleID})
	})
	c.grace[key] = pendingGrace{handleID: handleID, stop: stop}

	c.logger.Info("grace period started",
		"session", id,
		"slot", slot,
		"grace", c.config.DisconnectGrace,
	)
}

func (c *Coordinator) cancelGrace(id SessionID, slot Slot) {
	key := graceKey{session: id, slot: slot}
	if p, ok := c.grace[key]; ok {
		if p.stop != nil {
			p.stop()
		}
		delete(c.grace, key)
	}
}

func (c *Coordinator) cancelAllGrace(id SessionID) {
	c.cancelGrace(id, SlotFirst)
	c.cancelGrace(id, SlotSecond)
}

// handleGraceExpired removes the session if the slot is still held by the
// connection that dropped.
func (c *Coordinator) handleGraceExpired(msg graceExpiredMsg) {
	key := graceKey{session: msg.sessionID, slot: msg.slot}
	if p, ok := c.grace[key]; ok && p.handleID == msg.handleID {
		delete(c.grace, key)
	}

	sess, ok := c.sessions.Get(msg.sessionID)
	if !ok || !sess.Active() {
		return
	}
	st := sess.Slots[msg.slot]
	if st.Connected || st.Handle == nil || st.Handle.ID() != msg.handleID {
		return
	}

	c.logger.Info("participant did not return",
		"session", sess.ID,
		"participant", st.Participant.ID,
	)
	c.sendToSlot(sess, msg.slot.Opponent(), OpponentDisconnectedEvent{DisplayName: st.Participant.DisplayName})
	c.removeSession(sess.ID, "disconnect grace elapsed")
}

// reapStale removes sessions older than MaxSessionAge regardless of activity.
func (c *Coordinator) reapStale() {
	if c.config.MaxSessionAge <= 0 {
		return
	}
	cutoff := c.now().Add(-c.config.MaxSessionAge)
	ids := c.sessions.StartedBefore(cutoff)
	for _, id := range ids {
		c.removeSession(id, "stale")
	}
	if len(ids) > 0 {
		c.logger.Info("reaped stale sessions", "count", len(ids))
	}
}

func (c *Coordinator) logState() {
	c.logger.Info("coordinator state",
		"waiting", c.queue.Len(),
		"active", c.sessions.ActiveCount(),
		"sessions", c.sessions.Len(),
		"connections", len(c.conns),
	)
	if c.queue.Len() > 0 {
		ids := make([]ParticipantID, 0, c.queue.Len())
		for _, e := range c.queue.Entries() {
			ids = append(ids, e.Participant.ID)
		}
		c.logger.Debug("waiting participants", "ids", ids)
	}
}

// sweepLoop posts periodic maintenance messages into the event loop.
func (c *Coordinator) sweepLoop() {
	sweep := c.config.StaleSweepPeriod
	if sweep <= 0 {
		sweep = 15 * time.Minute
	}
	staleTicker := time.NewTicker(sweep)
	defer staleTicker.Stop()

	var stateC <-chan time.Time
	if c.config.StateLogPeriod > 0 {
		stateTicker := time.NewTicker(c.config.StateLogPeriod)
		defer stateTicker.Stop()
		stateC = stateTicker.C
	}

	for {
		select {
		case <-staleTicker.C:
			c.Send(reapStaleMsg{})
		case <-stateC:
			c.Send(logStateMsg{})
		case <-c.done:
			return
		}
	}
}
