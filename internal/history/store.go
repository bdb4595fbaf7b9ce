package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Record is one completed live-reload session.
type Record struct {
	ID         int64
	StartedAt  time.Time
	EndedAt    time.Time
	Serial     string
	Port       int
	Mode       string
	LogcatMode string
	ExitReason string
}

// Store persists session records in SQLite. Everything here is
// best-effort: callers treat open/save failures as warnings.
type Store struct {
	db *sql.DB
}

// NewStore opens (and migrates) the history database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		serial TEXT NOT NULL,
		port INTEGER NOT NULL,
		mode TEXT NOT NULL,
		logcat_mode TEXT NOT NULL,
		exit_reason TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save appends one finished session.
func (s *Store) Save(rec Record) error {
	query := `INSERT INTO sessions (started_at, ended_at, serial, port, mode, logcat_mode, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, rec.StartedAt, rec.EndedAt, rec.Serial, rec.Port, rec.Mode, rec.LogcatMode, rec.ExitReason)
	return err
}

// Recent returns the most recent sessions, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	query := `SELECT id, started_at, ended_at, serial, port, mode, logcat_mode, exit_reason
		FROM sessions ORDER BY started_at DESC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.EndedAt, &rec.Serial, &rec.Port, &rec.Mode, &rec.LogcatMode, &rec.ExitReason); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}
