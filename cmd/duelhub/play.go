package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/duelhub/internal/client"
	"github.com/vovakirdan/duelhub/internal/platform/tui"
	"github.com/vovakirdan/duelhub/internal/registry"
)

var (
	flagURL         string
	flagID          string
	flagName        string
	flagLastSession string
	flagToken       string
	flagGame        string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play from this terminal",
	Long: `Connect to a duelhub server over WebSocket, wait for an opponent and play.

Controls:
  Type a move and press Enter (e2e4, e7e8q for promotion)
  Ctrl+R     - Refresh the position or queue length
  Esc        - Leave the game
  Ctrl+C     - Quit

If the connection drops, run the same command again with --last-session
to rejoin within the grace period.

Examples:
  duelhub play --id alice
  duelhub play --id bob --name Bob --url ws://duel.example:8080/ws
  duelhub play --id alice --last-session 3f2c...`,
	Run: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagURL, "url", "ws://localhost:8080/ws", "Server WebSocket URL")
	playCmd.Flags().StringVar(&flagID, "id", "", "Participant id (required)")
	playCmd.Flags().StringVar(&flagName, "name", "", "Display name (defaults to the id)")
	playCmd.Flags().StringVar(&flagLastSession, "last-session", "", "Session to rejoin")
	playCmd.Flags().StringVar(&flagToken, "token", "", "Identity token, sent as a bearer token")
	playCmd.Flags().StringVar(&flagGame, "game", "chess", "Ruleset used to draw the board")
	_ = playCmd.MarkFlagRequired("id")
}

func runPlay(cmd *cobra.Command, args []string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: play needs an interactive terminal")
		os.Exit(1)
	}

	game, err := registry.Create(flagGame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'duelhub games' to see available games.")
		os.Exit(1)
	}

	name := flagName
	if name == "" {
		name = flagID
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	link, err := client.Dial(ctx, client.Options{
		URL:           flagURL,
		ParticipantID: flagID,
		DisplayName:   name,
		LastSessionID: flagLastSession,
		Token:         flagToken,
	})
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer link.Close()

	p := tea.NewProgram(
		tui.NewDuelModel(link, game, name),
		tea.WithAltScreen(),
	)

	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running game: %v\n", err)
		os.Exit(1)
	}

	// A session still in progress can be rejoined.
	if m, ok := finalModel.(tui.DuelModel); ok && m.Phase() == tui.PhasePlaying && !m.IsQuitting() {
		fmt.Printf("Rejoin with: duelhub play --id %s --last-session %s\n", flagID, m.SessionID())
	}
}
