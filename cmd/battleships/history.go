package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-battleships/internal/storage"
)

var (
	flagHistoryLimit int
	flagPlayer       string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent match results",
	Long: `Display the most recently finished matches.

Examples:
  battleships history
  battleships history --limit 5
  battleships history --player Ahab`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 10, "Maximum number of matches to show")
	historyCmd.Flags().StringVar(&flagPlayer, "player", "", "Also show the win count for this name")
}

func runHistory(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	matches, err := store.RecentMatches(flagHistoryLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving matches: %v\n", err)
		return
	}

	fmt.Println("Recent matches")
	fmt.Println()

	if len(matches) == 0 {
		fmt.Println("No matches finished yet.")
		fmt.Println()
		fmt.Println("Play 'battleships play' to record the first one!")
		return
	}

	fmt.Printf("  %-8s  %-16s  %-33s  %-9s  %s\n", "Room", "Winner", "Match", "Shots", "Finished")
	fmt.Printf("  %-8s  %-16s  %-33s  %-9s  %s\n", "----", "------", "-----", "-----", "--------")
	for _, m := range matches {
		fmt.Printf("  %-8s  %-16s  %-33s  %-9s  %s\n",
			m.RoomCode,
			m.WinnerName(),
			m.Player1Name+" vs "+m.Player2Name,
			fmt.Sprintf("%d/%d", m.Shots1, m.Shots2),
			since(m.FinishedAt),
		)
	}

	if flagPlayer != "" {
		wins, err := store.PlayerWins(flagPlayer)
		if err == nil {
			fmt.Println()
			fmt.Printf("%s: %d wins\n", flagPlayer, wins)
		}
	}
}
