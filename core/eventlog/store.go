package eventlog

import (
	"context"
	"fmt"

	"github.com/kilianp07/stationrisk/core/model"
)

// Journal drivers accepted by OpenStore.
const (
	DriverJSONL  = "jsonl"
	DriverSQLite = "sqlite"
)

// Store is a Journal that can be read back.
type Store interface {
	Journal
	Query(ctx context.Context, q JournalQuery) ([]model.EventLogEntry, error)
}

// StoreConfig selects and sizes a journal backend. Rotation settings only
// apply to the JSONL driver.
type StoreConfig struct {
	Driver     string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// OpenStore opens the journal described by cfg. An empty driver means JSONL.
func OpenStore(cfg StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", DriverJSONL:
		return NewRotatingJournal(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case DriverSQLite:
		return NewSQLiteJournal(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
}
