// Package client is the WebSocket side of a participant: it dials the
// server, decodes events and encodes inbound messages.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
	"github.com/vovakirdan/duelhub/internal/protocol"
)

// Options configure a connection.
type Options struct {
	URL           string // e.g. ws://localhost:8080/ws
	ParticipantID string
	DisplayName   string
	LastSessionID string
	Token         string // sent as a bearer token when set
	Logger        *log.Logger
}

// Link is one live connection to the server.
type Link struct {
	conn      *websocket.Conn
	events    chan multiplayer.Event
	done      chan struct{}
	writeMu   sync.Mutex
	closeOnce sync.Once
	logger    *log.Logger
}

// Dial connects and starts decoding events.
func Dial(ctx context.Context, opts Options) (*Link, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("client: invalid url: %w", err)
	}
	q := u.Query()
	q.Set("participantId", opts.ParticipantID)
	if opts.DisplayName != "" {
		q.Set("displayName", opts.DisplayName)
	}
	if opts.LastSessionID != "" {
		q.Set("lastSessionId", opts.LastSessionID)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("client: cannot connect to %s: %w", opts.URL, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	l := &Link{
		conn:   conn,
		events: make(chan multiplayer.Event, 64),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.readLoop()
	return l, nil
}

// Events delivers decoded server events. Closed when the connection ends.
func (l *Link) Events() <-chan multiplayer.Event {
	return l.events
}

// Done is closed when the connection ends.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

func (l *Link) readLoop() {
	defer close(l.events)
	defer l.closeDone()

	for {
		_, raw, err := l.conn.ReadMessage()
		if err != nil {
			l.logger.Debug("connection closed", "error", err)
			return
		}
		evt, err := protocol.DecodeEvent(raw)
		if err != nil {
			l.logger.Warn("skipping frame", "error", err)
			continue
		}
		l.events <- evt
	}
}

func (l *Link) closeDone() {
	l.closeOnce.Do(func() { close(l.done) })
}

func (l *Link) send(msg multiplayer.CoordinatorMessage) error {
	frame, err := protocol.EncodeInbound(msg)
	if err != nil {
		return err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	l.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := l.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("client: cannot send: %w", err)
	}
	return nil
}

// Move submits a move.
func (l *Link) Move(mv multiplayer.MovePayload) error {
	return l.send(multiplayer.MoveMsg{Move: mv})
}

// RequestState asks for the authoritative position.
func (l *Link) RequestState() error {
	return l.send(multiplayer.RequestStateMsg{})
}

// RequestQueueLength asks how many participants are waiting.
func (l *Link) RequestQueueLength() error {
	return l.send(multiplayer.RequestQueueLengthMsg{})
}

// Acknowledge confirms the end of a session.
func (l *Link) Acknowledge(id multiplayer.SessionID) error {
	return l.send(multiplayer.MatchAcknowledgedMsg{SessionID: id})
}

// Leave abandons the current session.
func (l *Link) Leave(opponent multiplayer.ParticipantID, displayName string) error {
	return l.send(multiplayer.ParticipantLeavingMsg{OpponentID: opponent, DisplayName: displayName})
}

// Close sends a close frame and tears the connection down.
func (l *Link) Close() error {
	l.writeMu.Lock()
	l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	l.writeMu.Unlock()
	return l.conn.Close()
}
