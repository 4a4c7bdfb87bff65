// Package tui provides the terminal side of duelhub: the Bubble Tea duel
// screen and an SSH server (via Wish) that puts every SSH session into the
// matchmaking queue.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/google/uuid"
	gossh "golang.org/x/crypto/ssh"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
	"github.com/vovakirdan/duelhub/internal/registry"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.duelhub/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// EventBuffer is the per-session event buffer.
	EventBuffer int
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		IdleTimeout: 30 * time.Minute,
		EventBuffer: 64,
	}
}

type contextKey string

const handleKey contextKey = "duelhub-handle"

// SSHServer wraps a Wish SSH server in front of the coordinator.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	coord  Sender
	game   registry.Game
	logger *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
// game renders positions for the sessions it serves.
func NewSSHServer(cfg SSHServerConfig, coord Sender, game registry.Game, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.Default()
	}

	srv := &SSHServer{
		config: cfg,
		coord:  coord,
		game:   game,
		logger: logger.WithPrefix("ssh"),
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", err)
		}
		hostKeyPath = filepath.Join(home, ".duelhub", "host_key")
	}

	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", err)
	}

	// Middleware runs last-to-first: logging wraps the participant binding,
	// which wraps the Bubble Tea program.
	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithPublicKeyAuth(func(ssh.Context, ssh.PublicKey) bool { return true }),
		wish.WithKeyboardInteractiveAuth(func(ssh.Context, gossh.KeyboardInteractiveChallenge) bool { return true }),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			activeterm.Middleware(),
			srv.participantMiddleware,
			srv.loggingMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// Handshake derives a participant identity from an SSH session. The public
// key fingerprint keeps two people with the same user name apart.
// Long or unprintable user names are shortened rather than rejected.
func Handshake(user string, key ssh.PublicKey) multiplayer.Handshake {
	name := sshDisplayName(user)
	id := "ssh:" + name
	if key != nil {
		id += ":" + gossh.FingerprintSHA256(key)
	}
	return multiplayer.Handshake{
		ParticipantID: multiplayer.ParticipantID(id),
		DisplayName:   name,
	}
}

// sshDisplayName drops control characters and cuts user to
// MaxDisplayNameLen bytes on a rune boundary.
func sshDisplayName(user string) string {
	name := strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, user))
	if len(name) <= multiplayer.MaxDisplayNameLen {
		return name
	}
	cut := multiplayer.MaxDisplayNameLen
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return strings.TrimSpace(name[:cut])
}

// participantMiddleware announces the SSH session to the coordinator as a
// connection and withdraws it when the session ends.
func (s *SSHServer) participantMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		h := multiplayer.NewChannelHandle(multiplayer.HandleID(uuid.NewString()), s.config.EventBuffer)
		sess.Context().SetValue(handleKey, h)

		s.coord.Send(multiplayer.ConnectMsg{
			Handle:    h,
			Handshake: Handshake(sess.User(), sess.PublicKey()),
		})

		next(sess)

		s.coord.Send(multiplayer.DisconnectMsg{HandleID: h.ID()})
		h.Close()
	}
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	h, ok := sess.Context().Value(handleKey).(*multiplayer.ChannelHandle)
	if !ok {
		s.logger.Error("session has no connection handle", "user", sess.User())
		return nil, nil
	}

	model := NewDuelModel(NewCoordinatorLink(s.coord, h), s.game, sess.User())
	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		start := time.Now()
		s.logger.Info("session started",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
		)
		next(sess)
		s.logger.Info("session ended",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
			"duration", time.Since(start).Round(time.Second),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until Shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("SSH server listening", "address", s.config.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
