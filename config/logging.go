package config

import (
	"fmt"
	"strings"
)

// LoggingConfig defines the log level and the optional event journal.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
	// JournalPath enables the event journal when set.
	JournalPath string `json:"journal_path"`
	// JournalDriver is "jsonl" (rotated files) or "sqlite".
	JournalDriver string `json:"journal_driver"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.JournalDriver == "" {
		c.JournalDriver = "jsonl"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 28
	}
}

// Validate checks the level and journal driver names.
func (c LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
	switch c.JournalDriver {
	case "", "jsonl", "sqlite":
		return nil
	default:
		return fmt.Errorf("unknown journal driver %s", c.JournalDriver)
	}
}
