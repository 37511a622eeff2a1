package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
	"github.com/vovakirdan/tui-battleships/internal/platform/tui"
	"github.com/vovakirdan/tui-battleships/internal/storage"
)

var (
	flagDifficulty string
	flagName       string
	flagName2      string
	flagHotseat    bool
	flagSeed       int64
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play against the computer, or a friend on this terminal",
	Long: `Play a game against the computer in this terminal. The room lives in
memory only; the result is added to the match history when the database
can be opened.

With --hotseat two players share the terminal instead. The boards are
covered between turns until the next player presses enter.

Controls:
  Arrows/hjkl  - Move the cursor
  R            - Rotate the next ship
  Enter/Space  - Place a ship, or fire
  U            - Undo the last placement
  A            - Auto-place the remaining ships
  D            - Done placing
  X            - New game after game over
  Q/Ctrl+C     - Quit

Difficulty options:
  easy   - Fires at random
  medium - Hunts on a checkerboard and finishes ships it hits
  hard   - Like medium, and reasons about which ships are left

Examples:
  battleships play
  battleships play --difficulty hard --name Ahab
  battleships play --seed 42
  battleships play --hotseat --name Ahab --name2 Ishmael`,
	Run: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "Computer difficulty: easy, medium, hard (default from config)")
	playCmd.Flags().StringVar(&flagName, "name", "", "Your display name")
	playCmd.Flags().BoolVar(&flagHotseat, "hotseat", false, "Two players take turns on this terminal")
	playCmd.Flags().StringVar(&flagName2, "name2", "", "Second player's display name with --hotseat")
	playCmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
}

func runPlay(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()

	seed := flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	bot, err := cfg.AI.BotConfig(flagDifficulty, seed, "Computer")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	name := flagName
	if name == "" {
		name = os.Getenv("USER")
	}

	// Logging would tear the alternate screen, so the coordinator runs quiet.
	coord := multiplayer.NewCoordinator(cfg.CoordinatorConfig(), multiplayer.NewMemoryStore(), nil)
	defer coord.Stop()

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: match history disabled: %v\n", err)
	} else {
		defer store.Close()
		coord.SetResultSaver(store)
	}

	width, height := 80, 24
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	if flagHotseat {
		err = tui.PlayHotseat(context.Background(), coord, tui.HotseatLocalConfig{
			Names:       [2]string{name, flagName2},
			EventBuffer: cfg.Rooms.EventBuffer,
			Width:       width,
			Height:      height,
			Seed:        seed,
		})
	} else {
		err = tui.PlayLocal(context.Background(), coord, tui.LocalConfig{
			Name:        name,
			Bot:         bot,
			EventBuffer: cfg.Rooms.EventBuffer,
			Width:       width,
			Height:      height,
			Seed:        seed,
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running game: %v\n", err)
		os.Exit(1)
	}
}
