package multiplayer

import "sync"

// Handle is the transport-neutral interface for pushing events to one connection.
// A handle may stop being routable at any time; Send must tolerate that.
type Handle interface {
	// ID returns the unique connection identifier.
	ID() HandleID

	// Send delivers an event to the connection asynchronously.
	// Must be non-blocking and must not fail loudly on a dead connection.
	Send(evt Event)

	// Close terminates the connection. Safe to call multiple times.
	Close()
}

// ChannelHandle is a Handle implementation using Go channels.
// Used by the SSH layer to bridge Bubble Tea programs with the coordinator.
type ChannelHandle struct {
	id        HandleID
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelHandle creates a new channel-based handle.
// bufferSize controls how many events can be buffered before dropping.
func NewChannelHandle(id HandleID, bufferSize int) *ChannelHandle {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &ChannelHandle{
		id:     id,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
}

// ID returns the handle identifier.
func (h *ChannelHandle) ID() HandleID {
	return h.id
}

// Send queues an event for the connection.
// If the buffer is full the oldest event is dropped to prevent blocking.
func (h *ChannelHandle) Send(evt Event) {
	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.events <- evt:
	default:
		select {
		case <-h.events:
		default:
		}
		select {
		case h.events <- evt:
		default:
		}
	}
}

// Events returns the channel to receive events from.
func (h *ChannelHandle) Events() <-chan Event {
	return h.events
}

// Done returns a channel that closes when the handle is closed.
func (h *ChannelHandle) Done() <-chan struct{} {
	return h.done
}

// Close marks the handle as done.
func (h *ChannelHandle) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}
