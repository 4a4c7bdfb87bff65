package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/duelhub/internal/history"
	"github.com/vovakirdan/duelhub/internal/identity"
	"github.com/vovakirdan/duelhub/internal/multiplayer"
	"github.com/vovakirdan/duelhub/internal/platform/tui"
	"github.com/vovakirdan/duelhub/internal/registry"
	"github.com/vovakirdan/duelhub/internal/server"
	"github.com/vovakirdan/duelhub/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var (
	flagHTTPAddr string
	flagSSHAddr  string
	flagHostKey  string
	flagDBPath   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the duelhub servers",
	Long: `Start the coordinator with its WebSocket front and, unless server.ssh_addr
is empty, an SSH front.

WebSocket clients connect to /ws with participantId, displayName and
optionally lastSessionId as query parameters. SSH users are identified by
user name and public key.

Host key handling:
  - If --host-key (or server.host_key_path) is set, uses that key file
  - Otherwise, auto-generates a key at ~/.duelhub/host_key

Examples:
  duelhub serve                       # HTTP on :8080, SSH on :23234
  duelhub serve --http :9000          # Different HTTP address
  duelhub serve --ssh ""              # WebSocket only
  duelhub serve --db ./history.db     # Use specific database

Users can connect with:
  ssh localhost -p 23234`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagHTTPAddr, "http", "", "HTTP/WebSocket address (overrides server.http_addr)")
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH address, empty disables SSH (overrides server.ssh_addr)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (overrides server.host_key_path)")
	serveCmd.Flags().StringVar(&flagDBPath, "db", "", "Path to match history database (overrides history.db_path)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("http") {
		cfg.Server.HTTPAddr = flagHTTPAddr
	}
	if flags.Changed("ssh") {
		cfg.Server.SSHAddr = flagSSHAddr
	}
	if flags.Changed("host-key") {
		cfg.Server.HostKeyPath = flagHostKey
	}
	if flags.Changed("db") {
		cfg.History.DBPath = flagDBPath
	}

	game, err := registry.Create(cfg.Coordinator.Game)
	if err != nil {
		return fmt.Errorf("coordinator.game: %w", err)
	}

	coord := multiplayer.NewCoordinator(cfg.CoordinatorSettings(), game, logger.WithPrefix("coordinator"))

	var (
		recorders    history.Multi
		historyStore server.HistoryStore
	)
	if cfg.History.DBPath != "" {
		store, err := storage.Open(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		recorders = append(recorders, store)
		historyStore = store
	}
	if cfg.History.Endpoint != "" {
		recorders = append(recorders, history.NewHTTPRecorder(cfg.History.Endpoint, nil))
	}
	if len(recorders) > 0 {
		coord.SetRecorder(recorders)
	} else {
		logger.Warn("match history disabled: no db_path and no endpoint")
	}

	coord.Start()
	defer coord.Stop()

	httpSrv := server.New(cfg.HTTPSettings(), coord,
		identity.NewProvider(cfg.IdentitySettings()), historyStore, logger.WithPrefix("http"))

	var sshSrv *tui.SSHServer
	if cfg.Server.SSHAddr != "" {
		sshSrv, err = tui.NewSSHServer(cfg.SSHSettings(), coord, game, logger)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpSrv.ListenAndServe)
	if sshSrv != nil {
		g.Go(sshSrv.ListenAndServe)
		logger.Info("connect with", "ssh", "ssh localhost -p "+portOf(cfg.Server.SSHAddr))
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if sshSrv != nil {
			if err := sshSrv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("ssh shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// portOf returns the port part of a listen address such as ":23234".
func portOf(addr string) string {
	if _, port, err := net.SplitHostPort(addr); err == nil {
		return port
	}
	return addr
}
