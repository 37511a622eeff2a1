package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads the battleships configuration.
// Search order: customPath -> ~/.battleships/config.yaml -> ./configs/battleships.yaml -> embedded default.
// Files are layered over Default(), so a partial file only overrides what it names.
func Load(customPath string) (Config, error) {
	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: failed to read %s: %w", customPath, err)
		}
		cfg, err := Parse(data)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", customPath, err)
		}
		return cfg, nil
	}

	// Try user config directory
	if path := userConfigPath("config.yaml"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if cfg, err := Parse(data); err == nil {
				return cfg, nil
			}
		}
	}

	// Try local configs directory
	if data, err := os.ReadFile(filepath.Join("configs", "battleships.yaml")); err == nil {
		if cfg, err := Parse(data); err == nil {
			return cfg, nil
		}
	}

	// Use embedded default YAML
	cfg, err := Parse(defaultYAML)
	if err != nil {
		return Default(), nil // Fallback to hardcoded if embed fails
	}
	return cfg, nil
}

// Parse decodes YAML over Default() and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	positive := map[string]Duration{
		"server.idle_timeout":      c.Server.IdleTimeout,
		"rooms.session_timeout":    c.Rooms.SessionTimeout,
		"rooms.idle_retention":     c.Rooms.IdleRetention,
		"rooms.finished_retention": c.Rooms.FinishedRetention,
		"rooms.cleanup_period":     c.Rooms.CleanupPeriod,
	}
	for _, name := range sortedKeys(positive) {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.AI.ThinkDelay < 0 {
		errs = append(errs, errors.New("ai.think_delay must not be negative"))
	}
	if c.Rooms.RecentActions <= 0 {
		errs = append(errs, errors.New("rooms.recent_actions must be positive"))
	}
	if c.Rooms.LogTail <= 0 {
		errs = append(errs, errors.New("rooms.log_tail must be positive"))
	}
	if c.Rooms.EventBuffer <= 0 {
		errs = append(errs, errors.New("rooms.event_buffer must be positive"))
	}
	if c.Limits.ActionsPerSecond <= 0 || c.Limits.Burst <= 0 {
		errs = append(errs, errors.New("limits.actions_per_second and limits.burst must be positive"))
	}
	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.db_path is required"))
	}
	if _, err := c.AI.ParsedDifficulty(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".battleships", filename)
}
