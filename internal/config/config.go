// Package config loads duelhub configuration from YAML files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Config is the full duelhub configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Identity    IdentityConfig    `yaml:"identity"`
	History     HistoryConfig     `yaml:"history"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig configures the network fronts.
type ServerConfig struct {
	HTTPAddr       string        `yaml:"http_addr" env:"DUELHUB_HTTP_ADDR"`
	SSHAddr        string        `yaml:"ssh_addr" env:"DUELHUB_SSH_ADDR"` // Empty disables SSH
	HostKeyPath    string        `yaml:"host_key_path" env:"DUELHUB_HOST_KEY_PATH"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"DUELHUB_ALLOWED_ORIGINS" envSeparator:","`
	PingInterval   time.Duration `yaml:"ping_interval" env:"DUELHUB_PING_INTERVAL"`
	PongTimeout    time.Duration `yaml:"pong_timeout" env:"DUELHUB_PONG_TIMEOUT"`
}

// CoordinatorConfig configures matchmaking and session lifetimes.
type CoordinatorConfig struct {
	Game             string        `yaml:"game" env:"DUELHUB_GAME"`
	DisconnectGrace  time.Duration `yaml:"disconnect_grace" env:"DUELHUB_DISCONNECT_GRACE"`
	EndedRetention   time.Duration `yaml:"ended_retention" env:"DUELHUB_ENDED_RETENTION"`
	StaleSweepPeriod time.Duration `yaml:"stale_sweep_period" env:"DUELHUB_STALE_SWEEP_PERIOD"`
	MaxSessionAge    time.Duration `yaml:"max_session_age" env:"DUELHUB_MAX_SESSION_AGE"`
	StateLogPeriod   time.Duration `yaml:"state_log_period" env:"DUELHUB_STATE_LOG_PERIOD"` // 0 disables
	EventBuffer      int           `yaml:"event_buffer" env:"DUELHUB_EVENT_BUFFER"`         // Per-connection outbound events
	MessageBuffer    int           `yaml:"message_buffer" env:"DUELHUB_MESSAGE_BUFFER"`
	RecorderTimeout  time.Duration `yaml:"recorder_timeout" env:"DUELHUB_RECORDER_TIMEOUT"`
}

// IdentityConfig configures handshake verification.
type IdentityConfig struct {
	JWTSecret    string `yaml:"jwt_secret" env:"DUELHUB_JWT_SECRET"`
	RequireToken bool   `yaml:"require_token" env:"DUELHUB_REQUIRE_TOKEN"`
}

// HistoryConfig configures where match outcomes are recorded.
type HistoryConfig struct {
	DBPath   string `yaml:"db_path" env:"DUELHUB_DB_PATH"`           // Empty disables the local store
	Endpoint string `yaml:"endpoint" env:"DUELHUB_HISTORY_ENDPOINT"` // Empty disables the HTTP recorder
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level string `yaml:"level" env:"DUELHUB_LOG_LEVEL"`
}

// Validate checks that the configuration can start a server.
func (c Config) Validate() error {
	var errs []error

	if c.Server.HTTPAddr == "" {
		errs = append(errs, errors.New("server.http_addr is required"))
	}
	if c.Server.PingInterval <= 0 {
		errs = append(errs, errors.New("server.ping_interval must be positive"))
	}
	if c.Server.PongTimeout <= c.Server.PingInterval {
		errs = append(errs, errors.New("server.pong_timeout must be longer than server.ping_interval"))
	}

	co := c.Coordinator
	if co.Game == "" {
		errs = append(errs, errors.New("coordinator.game is required"))
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"disconnect_grace", co.DisconnectGrace},
		{"ended_retention", co.EndedRetention},
		{"stale_sweep_period", co.StaleSweepPeriod},
		{"max_session_age", co.MaxSessionAge},
		{"recorder_timeout", co.RecorderTimeout},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("coordinator.%s must be positive", d.name))
		}
	}
	if co.StateLogPeriod < 0 {
		errs = append(errs, errors.New("coordinator.state_log_period must not be negative"))
	}
	if co.EventBuffer < 1 || co.MessageBuffer < 1 {
		errs = append(errs, errors.New("coordinator buffers must be at least 1"))
	}

	if c.Identity.RequireToken && c.Identity.JWTSecret == "" {
		errs = append(errs, errors.New("identity.require_token needs identity.jwt_secret"))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}
