package server

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

// EvalLog records one row per dispatch in a SQLite database for the dev
// tooling. It is optional; a nil *EvalLog disables recording.
type EvalLog struct {
	mu sync.Mutex
	db *sql.DB
}

// EvalEntry is one recorded dispatch.
type EvalEntry struct {
	ID         int64
	Timestamp  time.Time
	Path       string
	Verb       string
	Status     int
	DurationMs int64
	Error      string
}

// OpenEvalLog opens (creating if needed) the evaluation log database.
func OpenEvalLog(path string) (*EvalLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating eval log directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening eval log database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to eval log database: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS dispatches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			path TEXT NOT NULL,
			verb TEXT NOT NULL,
			status INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating dispatches table: %w", err)
	}
	return &EvalLog{db: db}, nil
}

// Record inserts one dispatch row. Failures are swallowed; the log must
// never fail a dispatch.
func (l *EvalLog) Record(path, verb string, status int, elapsed time.Duration, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.db.Exec(
		`INSERT INTO dispatches (ts, path, verb, status, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), path, verb, status, elapsed.Milliseconds(), message,
	)
}

// Recent returns the latest n entries, newest first.
func (l *EvalLog) Recent(n int) ([]EvalEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows, err := l.db.Query(
		`SELECT id, ts, path, verb, status, duration_ms, error FROM dispatches ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying eval log: %w", err)
	}
	defer rows.Close()

	var out []EvalEntry
	for rows.Next() {
		var e EvalEntry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Path, &e.Verb, &e.Status, &e.DurationMs, &e.Error); err != nil {
			return nil, fmt.Errorf("scanning eval log row: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (l *EvalLog) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}
