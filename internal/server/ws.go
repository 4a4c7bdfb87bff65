package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
	"github.com/vovakirdan/duelhub/internal/protocol"
)

// wsHandle is a multiplayer.Handle backed by one WebSocket connection.
// Frames are written by a single writer goroutine.
type wsHandle struct {
	id        multiplayer.HandleID
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *log.Logger
}

func newWSHandle(conn *websocket.Conn, buffer int, logger *log.Logger) *wsHandle {
	if buffer < 1 {
		buffer = 64
	}
	id := multiplayer.HandleID(uuid.NewString())
	return &wsHandle{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		logger: logger.With("handle", id),
	}
}

// ID returns the handle identifier.
func (h *wsHandle) ID() multiplayer.HandleID {
	return h.id
}

// Send encodes and queues an event. If the buffer is full the oldest
// frame is dropped.
func (h *wsHandle) Send(evt multiplayer.Event) {
	frame, err := protocol.EncodeEvent(evt)
	if err != nil {
		h.logger.Error("cannot encode event", "error", err)
		return
	}

	select {
	case <-h.done:
		return
	default:
	}

	select {
	case h.send <- frame:
	default:
		select {
		case <-h.send:
		default:
		}
		select {
		case h.send <- frame:
		default:
		}
	}
}

// Close stops the writer, which flushes queued frames and closes the socket.
func (h *wsHandle) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

func (h *wsHandle) writePump(cfg Config) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		h.conn.Close()
	}()

	write := func(frame []byte) bool {
		h.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
		if err := h.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.logger.Debug("write failed", "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case frame := <-h.send:
			if !write(frame) {
				h.Close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(cfg.WriteTimeout)
			if err := h.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.Close()
				return
			}
		case <-h.done:
			// Flush what the coordinator already queued, e.g. a handshake error.
			for {
				select {
				case frame := <-h.send:
					if !write(frame) {
						return
					}
				default:
					h.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(time.Second))
					return
				}
			}
		}
	}
}

// readPump feeds inbound frames to the coordinator until the socket fails.
func (h *wsHandle) readPump(cfg Config, coord Coordinator) {
	defer func() {
		coord.Send(multiplayer.DisconnectMsg{HandleID: h.id})
		h.Close()
	}()

	h.conn.SetReadLimit(cfg.MaxFrameBytes)
	h.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	h.conn.SetPongHandler(func(string) error {
		return h.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	})

	for {
		_, raw, err := h.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("connection lost", "error", err)
			}
			return
		}
		h.conn.SetReadDeadline(time.Now().Add(cfg.PongTimeout))

		msg, err := protocol.DecodeInbound(raw, h.id)
		if err != nil {
			if protocol.IsMalformed(err) {
				h.logger.Warn("malformed frame", "error", err)
			} else {
				h.logger.Debug("rejected frame", "error", err)
			}
			h.Send(multiplayer.ErrorEvent{Message: multiplayer.ClientMessage(err)})
			continue
		}
		coord.Send(msg)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h := newWSHandle(conn, s.config.SendBuffer, s.logger)

	hs, err := s.identity.Handshake(r)
	if err != nil {
		s.logger.Warn("rejected handshake", "remote", r.RemoteAddr, "error", err)
		h.Send(multiplayer.ErrorEvent{Message: multiplayer.ClientMessage(err)})
		h.Close()
		h.writePump(s.config)
		return
	}

	go h.writePump(s.config)
	s.coord.Send(multiplayer.ConnectMsg{Handle: h, Handshake: hs})
	h.readPump(s.config, s.coord)
}
