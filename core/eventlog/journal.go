package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/stationrisk/core/model"
)

// JournalQuery filters entries read back from a journal.
type JournalQuery struct {
	Start  time.Time
	End    time.Time
	Action model.EventAction
}

// RotatingJournal appends entries as JSON lines to a size-rotated file.
// It is an audit trail; the engine never reads it back into state.
type RotatingJournal struct {
	mu   sync.Mutex
	out  *lumberjack.Logger
	path string
}

// NewRotatingJournal opens a journal at path. Sizes are in megabytes, ages
// in days.
func NewRotatingJournal(path string, maxSizeMB, maxBackups, maxAgeDays int) (*RotatingJournal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &RotatingJournal{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		},
		path: path,
	}, nil
}

// Append writes one entry.
func (j *RotatingJournal) Append(_ context.Context, e model.EventLogEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return json.NewEncoder(j.out).Encode(e)
}

// Query scans the current and rotated files. Malformed lines are skipped.
func (j *RotatingJournal) Query(ctx context.Context, q JournalQuery) ([]model.EventLogEntry, error) {
	files, err := filepath.Glob(j.path + "*")
	if err != nil {
		return nil, err
	}
	base := filepath.Base(j.path)
	ext := filepath.Ext(base)
	prefix := base[:len(base)-len(ext)]
	rotated, _ := filepath.Glob(filepath.Join(filepath.Dir(j.path), prefix+"-*"+ext))
	files = append(files, rotated...)

	var res []model.EventLogEntry
	seen := map[string]struct{}{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		file, err := os.Open(f)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			var e model.EventLogEntry
			if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
				continue
			}
			if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
				continue
			}
			if !q.End.IsZero() && e.Timestamp.After(q.End) {
				continue
			}
			if q.Action != "" && e.Action != q.Action {
				continue
			}
			res = append(res, e)
		}
		_ = file.Close()
	}
	sort.SliceStable(res, func(a, b int) bool { return res[a].Timestamp.Before(res[b].Timestamp) })
	return res, nil
}

// Close flushes and closes the current file.
func (j *RotatingJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.out.Close()
}
