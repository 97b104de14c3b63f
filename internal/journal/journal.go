// Package journal keeps a history of build attempts in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/loopctl/internal/controller"
	_ "modernc.org/sqlite"
)

// DefaultLimit is the number of attempts Recent returns when limit <= 0.
const DefaultLimit = 20

// Journal implements controller.Recorder.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	j := &Journal{db: db}
	if err := j.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attempts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT    NOT NULL,
			unit       TEXT    NOT NULL,
			file       TEXT    NOT NULL,
			ok         INTEGER NOT NULL,
			kind       TEXT    NOT NULL DEFAULT '',
			message    TEXT    NOT NULL DEFAULT '',
			line       INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_attempts_unit ON attempts(unit);
	`)
	return err
}

// Record stores a build attempt.
func (j *Journal) Record(ctx context.Context, a controller.Attempt) error {
	if a.Time.IsZero() {
		a.Time = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO attempts (created_at, unit, file, ok, kind, message, line) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Time.UTC().Format(time.RFC3339Nano), string(a.Unit), a.File, a.OK, a.Kind, a.Message, a.Line,
	)
	if err != nil {
		return fmt.Errorf("journal: record attempt: %w", err)
	}
	return nil
}

// Recent returns the latest attempts, newest first. A non-empty unit
// filters by unit.
func (j *Journal) Recent(ctx context.Context, unit controller.Unit, limit int) ([]controller.Attempt, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT created_at, unit, file, ok, kind, message, line FROM attempts`
	args := []any{}
	if unit != "" {
		query += " WHERE unit = ?"
		args = append(args, string(unit))
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query attempts: %w", err)
	}
	defer rows.Close()

	var out []controller.Attempt
	for rows.Next() {
		var (
			a       controller.Attempt
			created string
			unit    string
		)
		if err := rows.Scan(&created, &unit, &a.File, &a.OK, &a.Kind, &a.Message, &a.Line); err != nil {
			return nil, fmt.Errorf("journal: scan attempt: %w", err)
		}
		a.Unit = controller.Unit(unit)
		if a.Time, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("journal: parse time %q: %w", created, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats counts attempts per outcome.
type Stats struct {
	Total  int `json:"total"`
	Failed int `json:"failed"`
}

// Stats returns aggregate counts.
func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END), 0) FROM attempts`,
	).Scan(&s.Total, &s.Failed)
	if err != nil {
		return Stats{}, fmt.Errorf("journal: stats: %w", err)
	}
	return s, nil
}
