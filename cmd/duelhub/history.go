package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/duelhub/internal/config"
	"github.com/vovakirdan/duelhub/internal/platform/tui"
	"github.com/vovakirdan/duelhub/internal/storage"
)

var (
	flagLimit     int
	flagClear     bool
	flagPlain     bool
	flagHistoryDB string
)

var historyCmd = &cobra.Command{
	Use:   "history [participant]",
	Short: "Show recorded match outcomes",
	Long: `Display recorded matches from the local history database.

With a participant id, shows that participant's matches and win/loss/draw
totals. Without one, shows the most recent matches on the server.

In a terminal the list opens as a scrollable table; use --plain for text.

Examples:
  duelhub history
  duelhub history alice --limit 50
  duelhub history alice --clear`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "Maximum number of matches to show")
	historyCmd.Flags().BoolVar(&flagClear, "clear", false, "Delete the participant's history")
	historyCmd.Flags().BoolVar(&flagPlain, "plain", false, "Print plain text even in a terminal")
	historyCmd.Flags().StringVar(&flagHistoryDB, "db", "", "Path to match history database (overrides history.db_path)")
}

func runHistory(cmd *cobra.Command, args []string) {
	dbPath := flagHistoryDB
	if dbPath == "" {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		dbPath = cfg.History.DBPath
	}
	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "Error: no history database configured (history.db_path)")
		os.Exit(1)
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := cmd.Context()
	if len(args) == 0 {
		if flagClear {
			fmt.Fprintln(os.Stderr, "Error: --clear needs a participant id")
			os.Exit(1)
		}
		showRecent(ctx, store)
		return
	}

	participant := args[0]
	if flagClear {
		if err := store.ClearHistory(ctx, participant); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing history: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cleared match history for %s\n", participant)
		return
	}
	showParticipant(ctx, store, participant)
}

func showRecent(ctx context.Context, store *storage.Store) {
	entries, err := store.RecentMatches(ctx, flagLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving history: %v\n", err)
		os.Exit(1)
	}
	display("RECENT MATCHES", entries, nil)
}

func showParticipant(ctx context.Context, store *storage.Store, participant string) {
	entries, err := store.MatchHistory(ctx, participant, flagLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving history: %v\n", err)
		os.Exit(1)
	}
	stats, err := store.Stats(ctx, participant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving stats: %v\n", err)
		os.Exit(1)
	}
	display("MATCH HISTORY - "+participant, entries, &stats)
}

func display(title string, entries []storage.MatchEntry, stats *storage.ParticipantStats) {
	if !flagPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		width, height := 80, 24 // Defaults
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width, height = w, h
		}
		if err := tui.RunHistory(title, entries, stats, width, height); err != nil {
			fmt.Fprintf(os.Stderr, "Error running history view: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println(title)
	fmt.Println()

	if stats != nil {
		fmt.Printf("Wins %d  Losses %d  Draws %d  Total %d\n\n", stats.Wins, stats.Losses, stats.Draws, stats.Total)
	}

	if len(entries) == 0 {
		fmt.Println("No matches recorded yet.")
		return
	}

	fmt.Printf("  %-16s  %-16s  %-6s  %-10s  %5s  %s\n", "Player", "Opponent", "Result", "Reason", "Moves", "Date")
	fmt.Printf("  %-16s  %-16s  %-6s  %-10s  %5s  %s\n", "------", "--------", "------", "------", "-----", "----")
	for _, e := range entries {
		fmt.Printf("  %-16s  %-16s  %-6s  %-10s  %5d  %s\n",
			e.DisplayName, e.OpponentName, e.Outcome, e.Reason, e.Moves, e.EndedAt.Format("2006-01-02 15:04"))
	}
}
