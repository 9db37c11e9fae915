// Package monitoring routes recoverable engine failures (model errors,
// journal and sink failures, panics in background loops) to an error
// tracker. The process-wide monitor defaults to a no-op.
package monitoring

import (
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor discards everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. Nil is ignored.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

// Current returns the global monitor.
func Current() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags. Nil errors are
// ignored.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	Current().CaptureException(err, tags)
}

// Capture is CaptureException with a single "component" tag.
func Capture(component string, err error) {
	CaptureException(err, map[string]string{"component": component})
}

// Recover captures panics in goroutines. It must be deferred directly.
func Recover() {
	Current().Recover()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	Current().Flush(d)
}

// Captured is one error seen by a RecordingMonitor.
type Captured struct {
	Err  error
	Tags map[string]string
}

// RecordingMonitor keeps captured errors in memory, for tests and for the
// CLI summary.
type RecordingMonitor struct {
	mu     sync.Mutex
	events []Captured
}

func (r *RecordingMonitor) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	r.events = append(r.events, Captured{Err: err, Tags: tags})
	r.mu.Unlock()
}

func (r *RecordingMonitor) Recover()            {}
func (r *RecordingMonitor) Flush(time.Duration) {}

// Events returns a copy of the captured errors.
func (r *RecordingMonitor) Events() []Captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Captured(nil), r.events...)
}
