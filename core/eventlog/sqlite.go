package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/stationrisk/core/model"
)

// SQLiteJournal persists entries to a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens or creates the database at path and ensures schema.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS event_log (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT,
        ts INTEGER,
        action TEXT,
        entry TEXT
    );
    CREATE INDEX IF NOT EXISTS event_log_ts ON event_log (ts);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteJournal{db: db}, nil
}

// Append writes the entry to the database.
func (s *SQLiteJournal) Append(ctx context.Context, e model.EventLogEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO event_log (id, ts, action, entry) VALUES (?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixNano(), string(e.Action), string(b))
	return err
}

// Query returns entries matching q in timestamp order.
func (s *SQLiteJournal) Query(ctx context.Context, q JournalQuery) ([]model.EventLogEntry, error) {
	var args []any
	query := `SELECT entry FROM event_log WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Action != "" {
		query += ` AND action = ?`
		args = append(args, string(q.Action))
	}
	query += ` ORDER BY ts, seq`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.EventLogEntry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e model.EventLogEntry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteJournal) Close() error { return s.db.Close() }
