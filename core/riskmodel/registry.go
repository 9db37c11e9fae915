package riskmodel

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kilianp07/stationrisk/core/logger"
)

// ErrNoPath is returned by Reload when no artifact path was ever loaded.
var ErrNoPath = errors.New("no model artifact path configured")

// Registry publishes the current model generation. Readers never block; a
// failed load keeps the previous generation in place.
type Registry struct {
	cur    atomic.Pointer[Models]
	mu     sync.Mutex
	path   string
	log    logger.Logger
	onSwap func(*Models)
}

// NewRegistry returns an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Registry{log: log}
}

// OnSwap registers a callback run after each successful swap.
func (r *Registry) OnSwap(fn func(*Models)) {
	r.mu.Lock()
	r.onSwap = fn
	r.mu.Unlock()
}

// Current returns the active generation, or nil when none is loaded.
func (r *Registry) Current() *Models { return r.cur.Load() }

// Swap installs m and returns the previous generation.
func (r *Registry) Swap(m *Models) *Models {
	old := r.cur.Swap(m)
	r.mu.Lock()
	fn := r.onSwap
	r.mu.Unlock()
	if fn != nil {
		fn(m)
	}
	return old
}

// Load builds the artifact at path and swaps it in. The path is remembered
// for Reload.
func (r *Registry) Load(path string) error {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
	m, err := LoadFile(path)
	if err != nil {
		return err
	}
	r.Swap(m)
	r.log.Infof("risk models loaded from %s (version %q)", path, m.Version)
	return nil
}

// Reload re-reads the last loaded path.
func (r *Registry) Reload() error {
	r.mu.Lock()
	path := r.path
	r.mu.Unlock()
	if path == "" {
		return ErrNoPath
	}
	return r.Load(path)
}

// Watch reloads the artifact whenever its file is written or replaced.
// Events are debounced so an editor's write-rename sequence triggers one
// reload. It blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context, path string, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Watch the directory: atomic replaces swap the inode under a file watch.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warnf("model watch error: %v", err)
		case <-fire:
			fire = nil
			if err := r.Load(path); err != nil {
				r.log.Errorf("model reload failed, keeping previous generation: %v", err)
			}
		}
	}
}
