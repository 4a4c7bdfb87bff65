// Package server exposes the coordinator over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/vovakirdan/duelhub/internal/identity"
	"github.com/vovakirdan/duelhub/internal/multiplayer"
	"github.com/vovakirdan/duelhub/internal/storage"
)

// Config holds configuration for the HTTP server.
type Config struct {
	Addr           string
	AllowedOrigins []string
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int // per-connection outbound frames
	MaxFrameBytes  int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		AllowedOrigins: []string{"*"},
		PingInterval:   25 * time.Second,
		PongTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		SendBuffer:     64,
		MaxFrameBytes:  8 << 10,
	}
}

// Coordinator is the part of the multiplayer coordinator the server uses.
type Coordinator interface {
	Send(msg multiplayer.CoordinatorMessage)
	Stats() multiplayer.Stats
}

// HistoryStore serves the match-history routes.
type HistoryStore interface {
	AddMatch(ctx context.Context, e storage.MatchEntry) (int64, error)
	MatchHistory(ctx context.Context, participantID string, limit int) ([]storage.MatchEntry, error)
	Stats(ctx context.Context, participantID string) (storage.ParticipantStats, error)
}

// Server is the HTTP and WebSocket front of the coordinator.
type Server struct {
	config   Config
	coord    Coordinator
	identity *identity.Provider
	store    HistoryStore // Optional, can be nil
	logger   *log.Logger
	upgrader websocket.Upgrader
	http     *http.Server
}

// New creates a server. store may be nil, which disables the history routes.
func New(cfg Config, coord Coordinator, ident *identity.Provider, store HistoryStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		config:   cfg,
		coord:    coord,
		identity: ident,
		store:    store,
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	if s.store != nil {
		p := r.PathPrefix("/participants/{id}").Subrouter()
		p.HandleFunc("/match-history", s.handleGetHistory).Methods(http.MethodGet)
		p.HandleFunc("/match-history", s.handleAddHistory).Methods(http.MethodPost)
		p.HandleFunc("/stats", s.handleParticipantStats).Methods(http.MethodGet)
	}

	return cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)
}

// ListenAndServe starts serving. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.config.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.config.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.coord.Stats()
	writeJSON(w, http.StatusOK, map[string]int{
		"waiting":        st.Waiting,
		"activeSessions": st.ActiveSessions,
		"endedSessions":  st.EndedSessions,
		"connections":    st.Connections,
	})
}

type matchJSON struct {
	SessionID string    `json:"sessionId,omitempty"`
	Opponent  string    `json:"opponent"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Moves     int       `json:"moves"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.store.MatchHistory(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("match history query failed", "participant", id, "error", err)
		writeError(w, http.StatusInternalServerError, "cannot load match history")
		return
	}

	out := make([]matchJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, matchJSON{
			SessionID: e.SessionID,
			Opponent:  e.OpponentName,
			Status:    string(e.Outcome),
			Reason:    e.Reason,
			Moves:     e.Moves,
			CreatedAt: e.EndedAt.UTC(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"matchHistory": out})
}

func (s *Server) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body struct {
		Opponent string `json:"opponent"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if body.Opponent == "" {
		writeError(w, http.StatusBadRequest, "opponent is required")
		return
	}

	_, err := s.store.AddMatch(r.Context(), storage.MatchEntry{
		ParticipantID: id,
		OpponentName:  body.Opponent,
		Outcome:       multiplayer.Result(body.Status),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := s.store.Stats(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cannot load stats")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Match history added successfully",
		"stats":   st,
	})
}

func (s *Server) handleParticipantStats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := s.store.Stats(r.Context(), id)
	if err != nil {
		s.logger.Error("stats query failed", "participant", id, "error", err)
		writeError(w, http.StatusInternalServerError, "cannot load stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
