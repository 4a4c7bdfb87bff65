package config

import (
	_ "embed"
	"time"

	"github.com/vovakirdan/duelhub/internal/identity"
	"github.com/vovakirdan/duelhub/internal/multiplayer"
	"github.com/vovakirdan/duelhub/internal/platform/tui"
	"github.com/vovakirdan/duelhub/internal/server"
)

//go:embed defaults/duelhub.yaml
var defaultYAML []byte

// Default returns the built-in configuration. It matches defaults/duelhub.yaml
// and is used when the embedded file cannot be parsed.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			SSHAddr:        ":23234",
			AllowedOrigins: []string{"*"},
			PingInterval:   25 * time.Second,
			PongTimeout:    60 * time.Second,
		},
		Coordinator: CoordinatorConfig{
			Game:             "chess",
			DisconnectGrace:  30 * time.Second,
			EndedRetention:   60 * time.Second,
			StaleSweepPeriod: 15 * time.Minute,
			MaxSessionAge:    3 * time.Hour,
			StateLogPeriod:   60 * time.Second,
			EventBuffer:      64,
			MessageBuffer:    256,
			RecorderTimeout:  10 * time.Second,
		},
		History: HistoryConfig{
			DBPath: "~/.duelhub/history.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// CoordinatorSettings converts the coordinator section.
func (c Config) CoordinatorSettings() multiplayer.CoordinatorConfig {
	return multiplayer.CoordinatorConfig{
		DisconnectGrace:  c.Coordinator.DisconnectGrace,
		EndedRetention:   c.Coordinator.EndedRetention,
		StaleSweepPeriod: c.Coordinator.StaleSweepPeriod,
		MaxSessionAge:    c.Coordinator.MaxSessionAge,
		StateLogPeriod:   c.Coordinator.StateLogPeriod,
		RecorderTimeout:  c.Coordinator.RecorderTimeout,
		MessageBuffer:    c.Coordinator.MessageBuffer,
	}
}

// HTTPSettings converts the server section for the WebSocket front.
func (c Config) HTTPSettings() server.Config {
	cfg := server.DefaultConfig()
	cfg.Addr = c.Server.HTTPAddr
	cfg.AllowedOrigins = c.Server.AllowedOrigins
	cfg.PingInterval = c.Server.PingInterval
	cfg.PongTimeout = c.Server.PongTimeout
	cfg.SendBuffer = c.Coordinator.EventBuffer
	return cfg
}

// SSHSettings converts the server section for the SSH front.
func (c Config) SSHSettings() tui.SSHServerConfig {
	cfg := tui.DefaultSSHServerConfig()
	cfg.Address = c.Server.SSHAddr
	cfg.HostKeyPath = c.Server.HostKeyPath
	cfg.EventBuffer = c.Coordinator.EventBuffer
	return cfg
}

// IdentitySettings converts the identity section.
func (c Config) IdentitySettings() identity.Config {
	return identity.Config{
		JWTSecret:    c.Identity.JWTSecret,
		RequireToken: c.Identity.RequireToken,
	}
}
