package multiplayer

import (
	"errors"
	"fmt"
)

// handleMove validates and applies a move from a bound connection.
// Every failure is reported to the mover only and leaves the session untouched.
func (c *Coordinator) handleMove(msg MoveMsg) {
	conn, sess, err := c.boundSession(msg.HandleID)
	if err != nil {
		c.sendError(msg.HandleID, err)
		return
	}
	if !sess.Active() {
		c.sendError(msg.HandleID, ErrSessionEnded)
		return
	}
	if err := msg.Move.Validate(); err != nil {
		c.sendError(msg.HandleID, err)
		return
	}
	slot, ok := sess.SlotOfHandle(msg.HandleID)
	if !ok {
		c.sendError(msg.HandleID, ErrNotInSession)
		return
	}

	if err := c.applyMove(sess, slot, msg.Move); err != nil {
		c.logger.Debug("move rejected",
			"session", sess.ID,
			"participant", conn.participant.ID,
			"from", msg.Move.From,
			"to", msg.Move.To,
			"error", err,
		)
		c.sendError(msg.HandleID, err)
	}
}

// applyMove computes the next position and its status, and only then commits.
func (c *Coordinator) applyMove(sess *Session, slot Slot, mv MovePayload) error {
	var next Position
	if mv.FEN != "" {
		// Fast-forward: the client already resolved the position.
		next = Position(mv.FEN)
	} else {
		current, err := c.oracle.Status(sess.Position)
		if err != nil {
			return fmt.Errorf("%w: unreadable position: %v", ErrIllegalMove, err)
		}
		if current.ToMove != slot {
			return fmt.Errorf("%w: not the %s slot's turn", ErrIllegalMove, slot)
		}
		pos, err := c.oracle.Apply(sess.Position, mv)
		if err != nil {
			if !errors.Is(err, ErrIllegalMove) {
				err = fmt.Errorf("%w: %v", ErrIllegalMove, err)
			}
			return err
		}
		next = pos
	}

	status, err := c.oracle.Status(next)
	if err != nil {
		return fmt.Errorf("%w: unreadable position: %v", ErrInvalidMovePayload, err)
	}

	forwarded := mv
	if forwarded.FEN == "" {
		forwarded.FEN = string(next)
	}

	sess.Position = next
	sess.Moves = append(sess.Moves, MoveRecord{
		Slot:     slot,
		Move:     mv,
		Position: next,
		At:       c.now(),
	})

	c.sendToSlot(sess, slot.Opponent(), MoveEvent{SessionID: sess.ID, Slot: slot, Move: forwarded})

	if !status.Terminal {
		return nil
	}
	outcome, err := OutcomeFor(status)
	if err != nil {
		return err
	}
	c.endSession(sess, outcome)
	return nil
}

// handleRequestState replays the authoritative position to the requester.
// Ended sessions still inside their retention window answer too.
func (c *Coordinator) handleRequestState(msg RequestStateMsg) {
	_, sess, err := c.boundSession(msg.HandleID)
	if err != nil {
		c.sendError(msg.HandleID, err)
		return
	}
	if conn, ok := c.conns[msg.HandleID]; ok {
		conn.handle.Send(CurrentStateEvent{SessionID: sess.ID, Position: sess.Position})
	}
}

// handleRequestQueueLength answers any connection, bound or not.
func (c *Coordinator) handleRequestQueueLength(msg RequestQueueLengthMsg) {
	if conn, ok := c.conns[msg.HandleID]; ok {
		conn.handle.Send(QueueLengthEvent{Length: c.queue.Len()})
	}
}
