package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all fizzy configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Sweep     SweepConfig     `yaml:"sweep"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScoringConfig tunes the activity-decay curve. The half-life is policy,
// not algorithm: nothing else may assume a specific curve shape.
type ScoringConfig struct {
	HalfLifeDays float64 `yaml:"half_life_days"`
}

type LifecycleConfig struct {
	DefaultEntropyDays int `yaml:"default_entropy_days"` // account-level auto-postpone default
	StagnationDays     int `yaml:"stagnation_days"`      // postponed longer than this gets reconsidered
}

type SweepConfig struct {
	DataDir         string `yaml:"data_dir"` // one sqlite database per tenant
	IntervalMinutes int    `yaml:"interval_minutes"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38388,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Scoring: ScoringConfig{
			HalfLifeDays: 7,
		},
		Lifecycle: LifecycleConfig{
			DefaultEntropyDays: 30,
			StagnationDays:     90,
		},
		Sweep: SweepConfig{
			DataDir:         "",
			IntervalMinutes: 60,
		},
	}
}

// Load reads a YAML config file and overlays it on the defaults.
// A missing file is not an error: defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// HalfLife returns the scoring half-life as a duration.
func (c *Config) HalfLife() time.Duration {
	return time.Duration(c.Scoring.HalfLifeDays * float64(24*time.Hour))
}

// DefaultEntropyPeriod returns the account-level auto-postpone default.
func (c *Config) DefaultEntropyPeriod() time.Duration {
	return time.Duration(c.Lifecycle.DefaultEntropyDays) * 24 * time.Hour
}

// StagnationThreshold returns how long a card may stay postponed before
// the automaton brings it back for reconsideration.
func (c *Config) StagnationThreshold() time.Duration {
	return time.Duration(c.Lifecycle.StagnationDays) * 24 * time.Hour
}

// SweepInterval returns the pause between scheduled sweeps.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweep.IntervalMinutes) * time.Minute
}
