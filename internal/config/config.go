// Package config provides YAML-based server configuration loading for
// battleships.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full battleships configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Rooms   RoomsConfig   `yaml:"rooms"`
	AI      AIConfig      `yaml:"ai"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// ServerConfig defines listener addresses for the network front ends.
type ServerConfig struct {
	HTTPAddr       string   `yaml:"http_addr"`
	SSHAddr        string   `yaml:"ssh_addr"`
	HostKey        string   `yaml:"host_key"`     // empty generates ~/.battleships/host_key
	IdleTimeout    Duration `yaml:"idle_timeout"` // SSH sessions
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig defines where rooms and match history live.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// RoomsConfig defines room lifetime and synchronisation parameters.
type RoomsConfig struct {
	SessionTimeout     Duration `yaml:"session_timeout"`
	IdleRetention      Duration `yaml:"idle_retention"`
	FinishedRetention  Duration `yaml:"finished_retention"`
	CleanupPeriod      Duration `yaml:"cleanup_period"`
	RecentActions      int      `yaml:"recent_actions"`
	LogTail            int      `yaml:"log_tail"`
	EventBuffer        int      `yaml:"event_buffer"`
	RedactHiddenFleets bool     `yaml:"redact_hidden_fleets"`
}

// AIConfig defines the computer opponent.
type AIConfig struct {
	Difficulty string   `yaml:"difficulty"` // easy, medium or hard
	ThinkDelay Duration `yaml:"think_delay"`
}

// LimitsConfig defines per-connection rate limits.
type LimitsConfig struct {
	ActionsPerSecond float64 `yaml:"actions_per_second"`
	Burst            int     `yaml:"burst"`
}

// Duration is a time.Duration written as a Go duration string ("10m", "700ms").
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", node.Line, err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
