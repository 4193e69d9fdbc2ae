// Package catalog records casket runs in a local SQLite database so
// operators can answer "what ran, when, against what" without trawling
// output trees. The catalog is an optional convenience: core operations
// succeed whether or not it is enabled or reachable.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// schema contains the DDL executed on first open. IF NOT EXISTS makes it
// safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    kind        TEXT NOT NULL,
    node        TEXT NOT NULL DEFAULT '',
    target      TEXT NOT NULL,
    files       INTEGER NOT NULL DEFAULT 0,
    blobs       INTEGER NOT NULL DEFAULT 0,
    outcome     TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMP NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0
);
`

// Run is one recorded invocation.
type Run struct {
	ID        int64
	Kind      string // "collect", "merge", "verify", "seal"
	Node      string
	Target    string // bundle dir, pack dir, verified root, or sealed file
	Files     int
	Blobs     int
	Outcome   string // "ok" or the fault kind tag
	Detail    string
	StartedAt time.Time
	Duration  time.Duration
}

// Catalog wraps the runs database. A nil *Catalog is a valid no-op catalog.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens the catalog database at dbPath, enabling WAL mode
// and a busy timeout, and creating the schema if needed.
func Open(ctx context.Context, dbPath string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("catalog: create dir for %s: %w", dbPath, err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: open database: %w", err)
	}

	// One connection: SQLite has a single writer, and one connection keeps
	// PRAGMA state consistent.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("catalog: %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: create schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Record inserts one run. Calling Record on a nil Catalog is a no-op.
func (c *Catalog) Record(ctx context.Context, r Run) error {
	if c == nil {
		return nil
	}
	const q = `
		INSERT INTO runs (kind, node, target, files, blobs, outcome, detail, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := c.db.ExecContext(ctx, q,
		r.Kind, r.Node, r.Target, r.Files, r.Blobs, r.Outcome, r.Detail,
		r.StartedAt.UTC(), r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("catalog: record %s run: %w", r.Kind, err)
	}
	return nil
}

// Recent returns the most recent runs, newest first, up to limit.
func (c *Catalog) Recent(ctx context.Context, limit int) ([]Run, error) {
	if c == nil {
		return nil, nil
	}
	const q = `
		SELECT id, kind, node, target, files, blobs, outcome, detail, started_at, duration_ms
		FROM runs ORDER BY id DESC LIMIT ?`
	rows, err := c.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMs int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.Node, &r.Target, &r.Files, &r.Blobs,
			&r.Outcome, &r.Detail, &r.StartedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("catalog: scan run: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate runs: %w", err)
	}
	return runs, nil
}

// Close closes the database. Calling Close on a nil Catalog is a no-op.
func (c *Catalog) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}
