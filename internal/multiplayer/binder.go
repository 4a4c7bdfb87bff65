package multiplayer

// handleConnect binds a new connection. Resolution order:
// the session named by the hint, any active session holding the participant,
// the participant's existing queue entry, and finally a new queue entry.
func (c *Coordinator) handleConnect(msg ConnectMsg) {
	if msg.Handle == nil {
		return
	}

	p, err := msg.Handshake.Participant()
	if err != nil {
		c.logger.Warn("rejected connection", "handle", msg.Handle.ID(), "error", err)
		msg.Handle.Send(ErrorEvent{Message: ClientMessage(err)})
		msg.Handle.Close()
		return
	}

	conn := &connection{handle: msg.Handle, participant: p}
	c.conns[msg.Handle.ID()] = conn
	c.logger.Info("connected", "participant", p.ID, "name", p.DisplayName, "handle", msg.Handle.ID())

	if sess, ok := c.sessionForHint(p.ID, msg.Handshake.LastSessionID); ok {
		c.rebind(sess, conn)
		return
	}
	if sess, ok := c.sessions.ActiveFor(p.ID); ok {
		c.rebind(sess, conn)
		return
	}

	if entry, ok := c.queue.Find(p.ID); ok {
		c.logger.Debug("updating handle of waiting participant", "participant", p.ID)
		entry.Handle = msg.Handle
	} else {
		c.queue.Enqueue(p, msg.Handle, c.now())
	}

	msg.Handle.Send(QueuedEvent{Queued: true})
	c.broadcastQueueLength()
	c.tryPair()
}

// sessionForHint returns the active session named by hint if the participant is in it.
func (c *Coordinator) sessionForHint(id ParticipantID, hint SessionID) (*Session, bool) {
	if hint == "" {
		return nil, false
	}
	sess, ok := c.sessions.Get(hint)
	if !ok || !sess.Active() {
		return nil, false
	}
	if _, in := sess.SlotOf(id); !in {
		return nil, false
	}
	return sess, true
}

// rebind moves the participant's slot onto a new connection and replays the
// session to it. A previous connection for the slot is unbound.
func (c *Coordinator) rebind(sess *Session, conn *connection) {
	slot, _ := sess.SlotOf(conn.participant.ID)
	st := &sess.Slots[slot]

	if prev := st.Handle; prev != nil && prev.ID() != conn.handle.ID() {
		if pc, ok := c.conns[prev.ID()]; ok && pc.session == sess.ID {
			pc.session = ""
		}
	}

	st.Handle = conn.handle
	st.Connected = true
	conn.session = sess.ID
	c.cancelGrace(sess.ID, slot)

	c.logger.Info("participant rebound",
		"session", sess.ID,
		"participant", conn.participant.ID,
		"slot", slot,
	)

	c.pushSessionView(sess, slot, conn.handle)
	c.sendToSlot(sess, slot.Opponent(), OpponentReconnectedEvent{DisplayName: st.Participant.DisplayName})
}

// handleDisconnect drops a connection. A waiting participant leaves the queue
// at once; a participant in an active session gets a grace period.
func (c *Coordinator) handleDisconnect(msg DisconnectMsg) {
	conn, ok := c.conns[msg.HandleID]
	if !ok {
		return
	}
	delete(c.conns, msg.HandleID)
	c.logger.Info("disconnected", "participant", conn.participant.ID, "handle", msg.HandleID)

	if _, removed := c.queue.RemoveHandle(msg.HandleID); removed {
		c.broadcastQueueLength()
	}

	if conn.session == "" {
		return
	}
	sess, ok := c.sessions.Get(conn.session)
	if !ok || !sess.Active() {
		return
	}
	slot, ok := sess.SlotOfHandle(msg.HandleID)
	if !ok {
		return
	}
	sess.Slots[slot].Connected = false
	c.scheduleGrace(sess.ID, slot, msg.HandleID)
}

// handleMatchAcknowledged removes an ended session the client is done with.
// Acknowledging a session still in play is ignored; leaving is how a
// participant abandons it.
func (c *Coordinator) handleMatchAcknowledged(msg MatchAcknowledgedMsg) {
	conn, ok := c.conns[msg.HandleID]
	if !ok {
		return
	}
	id := msg.SessionID
	if id == "" {
		id = conn.session
	}
	if id == "" {
		return
	}
	sess, ok := c.sessions.Get(id)
	if !ok {
		return
	}
	if _, in := sess.SlotOf(conn.participant.ID); !in {
		return
	}
	if sess.Active() {
		c.logger.Debug("ignoring acknowledgement of a session in play",
			"session", id, "participant", conn.participant.ID)
		return
	}
	c.removeSession(id, "acknowledged")
}

// handleParticipantLeaving tells the opponent the sender is gone and drops
// the sender's session without waiting for a grace period.
func (c *Coordinator) handleParticipantLeaving(msg ParticipantLeavingMsg) {
	conn, ok := c.conns[msg.HandleID]
	if !ok {
		return
	}
	name := msg.DisplayName
	if name == "" {
		name = conn.participant.DisplayName
	}
	evt := OpponentDisconnectedEvent{DisplayName: name}

	notified := false
	var sess *Session
	if conn.session != "" {
		sess, _ = c.sessions.Get(conn.session)
	}
	if sess != nil {
		if slot, in := sess.SlotOf(conn.participant.ID); in {
			opp := slot.Opponent()
			if msg.OpponentID == "" || sess.Slots[opp].Participant.ID == msg.OpponentID {
				c.sendToSlot(sess, opp, evt)
				notified = true
			}
		}
	}
	if !notified && msg.OpponentID != "" {
		for _, other := range c.conns {
			if other.participant.ID == msg.OpponentID {
				other.handle.Send(evt)
			}
		}
	}

	if sess != nil {
		c.removeSession(sess.ID, "participant left")
	}
}
