// duelhub is a matchmaking and session coordinator for two-player
// turn-based games, reachable over WebSocket and SSH.
//
// Usage:
//
//	duelhub serve                  - Start the WebSocket and SSH servers
//	duelhub play --id <id>         - Join the queue from this terminal
//	duelhub history [participant]  - Show recorded match outcomes
//	duelhub games                  - List available rulesets
//	duelhub token <participant>    - Issue an identity token
//
// Global flags:
//
//	--config <path>     - Config file (default: ~/.duelhub/config.yaml, ./configs/duelhub.yaml)
//	--log-level <lvl>   - Override log.level (debug, info, warn, error)
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/duelhub/internal/config"

	// Import games to register them
	_ "github.com/vovakirdan/duelhub/internal/games/chess"
)

var (
	// Global flags
	flagConfig   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "duelhub",
	Short: "duelhub - pair players and relay their moves",
	Long: `duelhub pairs waiting players first-come first-served, creates a session
for each pair and relays moves between them through a rules oracle.
Players connect over WebSocket or SSH; a dropped player has a grace
period to reconnect before the opponent is told they are gone.

Available commands:
  serve    - Start the WebSocket and SSH servers
  play     - Play from this terminal against a running server
  history  - Show recorded match outcomes
  games    - List available rulesets
  token    - Issue an identity token for a participant

Examples:
  duelhub serve
  duelhub serve --config ./configs/duelhub.yaml
  duelhub play --id alice --url ws://localhost:8080/ws
  duelhub history alice
  ssh localhost -p 23234`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(gamesCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadConfig reads the configuration and builds the root logger.
func loadConfig() (config.Config, *log.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, nil, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return cfg, nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "duelhub",
		Level:           level,
	})
	return cfg, logger, nil
}
