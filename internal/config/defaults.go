package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/battleships.yaml
var defaultYAML []byte

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:    ":8080",
			SSHAddr:     ":23234",
			IdleTimeout: Duration(30 * time.Minute),
		},
		Storage: StorageConfig{
			DBPath: "~/.battleships/battleships.db",
		},
		Rooms: RoomsConfig{
			SessionTimeout:     Duration(10 * time.Minute),
			IdleRetention:      Duration(24 * time.Hour),
			FinishedRetention:  Duration(time.Hour),
			CleanupPeriod:      Duration(5 * time.Minute),
			RecentActions:      100,
			LogTail:            50,
			EventBuffer:        64,
			RedactHiddenFleets: true,
		},
		AI: AIConfig{
			Difficulty: "medium",
			ThinkDelay: Duration(700 * time.Millisecond),
		},
		Limits: LimitsConfig{
			ActionsPerSecond: 10,
			Burst:            20,
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}
