package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/duelhub/internal/registry"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List available rulesets",
	Long:  `Shows every rules oracle compiled into duelhub. Pick one with coordinator.game.`,
	Run:   runGames,
}

func runGames(cmd *cobra.Command, args []string) {
	games := registry.List()

	if len(games) == 0 {
		fmt.Println("No games available.")
		return
	}

	fmt.Println("Available games:")
	fmt.Println()

	maxIDLen := 2 // "ID" header
	for _, g := range games {
		if len(g.ID) > maxIDLen {
			maxIDLen = len(g.ID)
		}
	}

	fmt.Printf("  %-*s  %s\n", maxIDLen, "ID", "Title")
	fmt.Printf("  %-*s  %s\n", maxIDLen, "--", "-----")

	for _, g := range games {
		fmt.Printf("  %-*s  %s\n", maxIDLen, g.ID, g.Title)
	}

	fmt.Println()
	fmt.Println("Set coordinator.game (or DUELHUB_GAME) to choose the ruleset a server runs.")
}
