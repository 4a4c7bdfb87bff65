package tui

import (
	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

// Link is a participant's connection to the coordinator as seen by the UI.
// *client.Link satisfies it over WebSocket; CoordinatorLink satisfies it
// in-process for SSH sessions.
type Link interface {
	Events() <-chan multiplayer.Event
	Done() <-chan struct{}
	Move(mv multiplayer.MovePayload) error
	RequestState() error
	RequestQueueLength() error
	Acknowledge(id multiplayer.SessionID) error
	Leave(opponent multiplayer.ParticipantID, displayName string) error
}

// Sender is the part of the coordinator a CoordinatorLink needs.
type Sender interface {
	Send(msg multiplayer.CoordinatorMessage)
}

// CoordinatorLink routes a UI's requests straight to an in-process
// coordinator and reads events from a ChannelHandle.
type CoordinatorLink struct {
	coord  Sender
	handle *multiplayer.ChannelHandle
}

// NewCoordinatorLink creates a link for a handle already announced with a ConnectMsg.
func NewCoordinatorLink(coord Sender, handle *multiplayer.ChannelHandle) *CoordinatorLink {
	return &CoordinatorLink{coord: coord, handle: handle}
}

// Events returns the handle's event channel.
func (l *CoordinatorLink) Events() <-chan multiplayer.Event {
	return l.handle.Events()
}

// Done is closed when the handle is closed.
func (l *CoordinatorLink) Done() <-chan struct{} {
	return l.handle.Done()
}

func (l *CoordinatorLink) Move(mv multiplayer.MovePayload) error {
	l.coord.Send(multiplayer.MoveMsg{HandleID: l.handle.ID(), Move: mv})
	return nil
}

func (l *CoordinatorLink) RequestState() error {
	l.coord.Send(multiplayer.RequestStateMsg{HandleID: l.handle.ID()})
	return nil
}

func (l *CoordinatorLink) RequestQueueLength() error {
	l.coord.Send(multiplayer.RequestQueueLengthMsg{HandleID: l.handle.ID()})
	return nil
}

func (l *CoordinatorLink) Acknowledge(id multiplayer.SessionID) error {
	l.coord.Send(multiplayer.MatchAcknowledgedMsg{HandleID: l.handle.ID(), SessionID: id})
	return nil
}

func (l *CoordinatorLink) Leave(opponent multiplayer.ParticipantID, displayName string) error {
	l.coord.Send(multiplayer.ParticipantLeavingMsg{
		HandleID:    l.handle.ID(),
		OpponentID:  opponent,
		DisplayName: displayName,
	})
	return nil
}
