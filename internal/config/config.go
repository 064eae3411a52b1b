// Package config loads the planner's TOML settings file.
//
// The file lives at $PLAN_CONFIG if set, otherwise
// $XDG_CONFIG_HOME/plan/config.toml (falling back to ~/.config). A missing
// file is written with defaults on first load.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/baiirun/planner/internal/model"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultIndentWidth    = 2
	DefaultEventMinutes   = 60
	DefaultLogLevel       = "warn"
)

type Config struct {
	// DBPath is the SQLite file. Empty means ~/.plan/plan.db.
	DBPath string `toml:"db_path"`
	// Timezone is an IANA zone name. Empty means the system zone.
	Timezone    string `toml:"timezone"`
	IndentWidth int    `toml:"indent_width"`
	LogLevel    string `toml:"log_level"`
	// LogFile, if set, receives JSON log lines instead of stderr.
	LogFile             string `toml:"log_file"`
	DefaultEventMinutes int    `toml:"default_event_minutes"`
	// DefaultRoutine is the recurrence for routines without a phrase:
	// daily, weekly or monthly.
	DefaultRoutine string `toml:"default_routine"`
}

func Default() Config {
	return Config{
		IndentWidth:         DefaultIndentWidth,
		LogLevel:            DefaultLogLevel,
		DefaultEventMinutes: DefaultEventMinutes,
		DefaultRoutine:      string(model.FrequencyDaily),
	}
}

// ResolveConfigPath returns where the config file is read from.
func ResolveConfigPath() string {
	if p := os.Getenv("PLAN_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfigFileName
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "plan", DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first if
// the file does not exist. Unset keys keep their defaults.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c Config) Validate() error {
	if c.IndentWidth < 1 {
		return fmt.Errorf("indent_width must be at least 1, got %d", c.IndentWidth)
	}
	if c.DefaultEventMinutes < 1 {
		return fmt.Errorf("default_event_minutes must be at least 1, got %d", c.DefaultEventMinutes)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Recurrence(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Recurrence turns DefaultRoutine into a rule.
func (c Config) Recurrence() (model.RecurrenceRule, error) {
	f := model.Frequency(strings.ToLower(strings.TrimSpace(c.DefaultRoutine)))
	if f == "" {
		f = model.FrequencyDaily
	}
	if !f.IsValid() {
		return model.RecurrenceRule{}, fmt.Errorf("default_routine must be daily, weekly or monthly, got %q", c.DefaultRoutine)
	}
	return model.RecurrenceRule{Frequency: f, Interval: 1}, nil
}

func (c Config) EventLength() time.Duration {
	return time.Duration(c.DefaultEventMinutes) * time.Minute
}
