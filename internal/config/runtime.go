package config

import (
	"fmt"
	"sort"

	"github.com/vovakirdan/tui-battleships/internal/ai"
	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

// ParsedDifficulty returns the configured AI difficulty.
func (c AIConfig) ParsedDifficulty() (ai.Difficulty, error) {
	d, err := ai.ParseDifficulty(c.Difficulty)
	if err != nil {
		return "", fmt.Errorf("ai.difficulty: %w", err)
	}
	return d, nil
}

// BotConfig builds a bot configuration. An empty override keeps the
// configured difficulty.
func (c AIConfig) BotConfig(override string, seed int64, name string) (multiplayer.BotConfig, error) {
	raw := c.Difficulty
	if override != "" {
		raw = override
	}
	d, err := ai.ParseDifficulty(raw)
	if err != nil {
		return multiplayer.BotConfig{}, err
	}
	return multiplayer.BotConfig{
		Difficulty: d,
		ThinkDelay: c.ThinkDelay.D(),
		Seed:       seed,
		Name:       name,
	}, nil
}

// CoordinatorConfig converts the rooms section for the multiplayer package.
func (c Config) CoordinatorConfig() multiplayer.CoordinatorConfig {
	cfg := multiplayer.DefaultCoordinatorConfig()
	cfg.Room.SessionTimeout = c.Rooms.SessionTimeout.D()
	cfg.Room.RecentActions = c.Rooms.RecentActions
	cfg.Room.LogTail = c.Rooms.LogTail
	cfg.Room.RedactHiddenFleets = c.Rooms.RedactHiddenFleets
	cfg.IdleRetention = c.Rooms.IdleRetention.D()
	cfg.FinishedRetention = c.Rooms.FinishedRetention.D()
	cfg.CleanupPeriod = c.Rooms.CleanupPeriod.D()
	return cfg
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
