// Package eventlog keeps the bounded, in-memory history of controller and
// simulator actions.
package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/stationrisk/core/logger"
	"github.com/kilianp07/stationrisk/core/model"
)

// DefaultCapacity is the number of entries retained before eviction.
const DefaultCapacity = 50

// Journal receives a copy of every appended entry.
type Journal interface {
	Append(ctx context.Context, e model.EventLogEntry) error
	Close() error
}

// Option configures a Log.
type Option func(*Log)

// WithCapacity overrides DefaultCapacity. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithJournal mirrors entries to j.
func WithJournal(j Journal) Option { return func(l *Log) { l.journal = j } }

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option { return func(l *Log) { l.now = now } }

// WithHook registers a callback run after every append, outside the lock.
func WithHook(fn func(model.EventLogEntry)) Option { return func(l *Log) { l.hook = fn } }

// WithLogger sets the logger used to report journal failures.
func WithLogger(lg logger.Logger) Option { return func(l *Log) { l.log = lg } }

// Log is a FIFO ring of entries. Append and eviction happen under one lock.
type Log struct {
	mu       sync.Mutex
	entries  []model.EventLogEntry
	capacity int
	journal  Journal
	hook     func(model.EventLogEntry)
	now      func() time.Time
	log      logger.Logger
}

// New returns an empty log.
func New(opts ...Option) *Log {
	l := &Log{capacity: DefaultCapacity, now: time.Now, log: logger.NopLogger{}}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Append records an action and returns the stored entry. The oldest entry
// is dropped when the log is full.
func (l *Log) Append(action model.EventAction, details map[string]string) model.EventLogEntry {
	e := model.EventLogEntry{
		ID:        uuid.NewString(),
		Timestamp: l.now(),
		Action:    action,
		Details:   copyDetails(details),
	}
	l.mu.Lock()
	if len(l.entries) >= l.capacity {
		drop := len(l.entries) - l.capacity + 1
		l.entries = append(l.entries[:0], l.entries[drop:]...)
	}
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	if l.journal != nil {
		if err := l.journal.Append(context.Background(), e); err != nil {
			l.log.Warnf("event journal append failed: %v", err)
		}
	}
	if l.hook != nil {
		h := e
		h.Details = copyDetails(e.Details)
		l.hook(h)
	}
	e.Details = copyDetails(e.Details)
	return e
}

// Entries returns a copy of the log in insertion order.
func (l *Log) Entries() []model.EventLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.EventLogEntry, len(l.entries))
	for i, e := range l.entries {
		e.Details = copyDetails(e.Details)
		out[i] = e
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Capacity returns the retention bound.
func (l *Log) Capacity() int { return l.capacity }

// Close closes the journal, if any.
func (l *Log) Close() error {
	if l.journal == nil {
		return nil
	}
	return l.journal.Close()
}

func copyDetails(d map[string]string) map[string]string {
	out := make(map[string]string, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
