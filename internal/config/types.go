package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config is the daemon configuration. JSON on disk, with YAML accepted and
// coerced through the same strict decoder.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Roster   RosterConfig   `json:"roster"`
	Dispatch DispatchConfig `json:"dispatch"`
	Engine   EngineConfig   `json:"engine"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Sweep    *SweepConfig   `json:"sweep,omitempty"`

	// Announce, when set, is broadcast to every agent once the daemon is up.
	Announce string `json:"announce,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// RosterConfig points at the agent coordinate file.
//
// CoordMin/CoordMax override the default ±10000 bounds; leave both zero to
// use the defaults.
type RosterConfig struct {
	Path     string `json:"path"`
	CoordMin int    `json:"coord_min,omitempty"`
	CoordMax int    `json:"coord_max,omitempty"`
	Watch    bool   `json:"watch"`
}

type DispatchConfig struct {
	DryRun     bool `json:"dry_run"`
	Workers    int  `json:"workers,omitempty"`
	RatePerSec int  `json:"rate_per_sec,omitempty"`
}

type EngineConfig struct {
	HistorySize int `json:"history_size,omitempty"`
}

// StorageConfig enables the delivery audit trail.
//
// BusyTimeout is a Go duration string (e.g. "250ms"); sqlite only.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// SweepConfig schedules periodic roster revalidation.
// Spec is a cron expression (5-field, or 6-field with seconds).
type SweepConfig struct {
	Enabled bool   `json:"enabled"`
	Spec    string `json:"spec,omitempty"`
}

// Validate rejects configs the daemon cannot run on. Called before a
// watched reload is committed, so a bad edit never replaces a good config.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Roster.Path) == "" {
		return errors.New("roster.path is required")
	}
	if c.Roster.CoordMin != 0 || c.Roster.CoordMax != 0 {
		if c.Roster.CoordMin >= c.Roster.CoordMax {
			return fmt.Errorf("roster bounds invalid: min %d >= max %d", c.Roster.CoordMin, c.Roster.CoordMax)
		}
	}
	if c.Dispatch.Workers < 0 || c.Dispatch.RatePerSec < 0 {
		return errors.New("dispatch.workers and dispatch.rate_per_sec must be >= 0")
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	if c.Sweep != nil && c.Sweep.Enabled && strings.TrimSpace(c.Sweep.Spec) == "" {
		return errors.New("sweep.spec is required when sweep is enabled")
	}
	return nil
}
