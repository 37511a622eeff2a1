// battleships runs networked Battleships rooms and a terminal client.
//
// Usage:
//
//	battleships serve              - Start the HTTP/WebSocket and SSH servers
//	battleships play               - Play against the computer in this terminal
//	battleships rooms              - List persisted rooms
//	battleships history            - Show recent match results
//
// Global flags:
//
//	--config <path>     - Configuration file (default: search order, then built-in)
//	--db <path>         - Override the database path
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/tui-battleships/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "battleships",
	Short: "Battleships - sink your opponent's fleet over SSH, WebSocket or locally",
	Long: `Battleships runs two-player rooms on a 10x10 board. Players join a room by
code from a browser (WebSocket), from an SSH terminal, or play the computer
locally. Rooms survive restarts when backed by the SQLite database.

Available commands:
  serve    - Start the HTTP/WebSocket and SSH servers
  play     - Play against the computer in this terminal
  rooms    - List persisted rooms
  history  - Show recent match results

Examples:
  battleships serve
  battleships serve --http :9000 --no-ssh
  battleships play --difficulty hard --name Ahab
  battleships history --player Ahab`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to database (overrides storage.db_path)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(historyCmd)
}

// mustLoadConfig loads the configuration and applies global flag overrides.
func mustLoadConfig() config.Config {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if flagDBPath != "" {
		cfg.Storage.DBPath = flagDBPath
	}
	return cfg
}

// newLogger builds the process logger on stderr.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "battleships",
	})
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		logger.Warn("unknown log level, using info", "level", flagLogLevel)
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
