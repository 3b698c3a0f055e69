// Package archive persists run records to SQLite so lifetime counters
// survive restarts. The archive is optional: when no path is configured
// the orchestrator runs without it and history lives only in memory.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/ashita-ai/koyomi/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	agent            TEXT NOT NULL,
	run_number       INTEGER NOT NULL,
	started_at       TEXT NOT NULL,
	status           TEXT NOT NULL,
	result_summary   TEXT NOT NULL DEFAULT '',
	duration_seconds REAL NOT NULL,
	error            TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_agent ON runs (agent, id DESC);
`

// Archive is an append-only run log backed by SQLite.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and creates, if needed) the archive database at path.
func Open(path string, logger *slog.Logger) (*Archive, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent agent runs.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: apply schema: %w", err)
	}
	return &Archive{db: db, logger: logger}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Record appends one run record for agent. Errors are returned for the
// caller to log; archival failure never fails a run.
func (a *Archive) Record(ctx context.Context, agent string, rec model.RunRecord) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO runs (agent, run_number, started_at, status, result_summary, duration_seconds, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		agent, rec.RunNumber, rec.Timestamp, string(rec.Status), rec.ResultSummary, rec.DurationSeconds, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("archive: record run for %s: %w", agent, err)
	}
	return nil
}

// CountRuns returns the total number of archived runs for agent across
// all process lifetimes.
func (a *Archive) CountRuns(ctx context.Context, agent string) (int64, error) {
	var n int64
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE agent = ?`, agent).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("archive: count runs for %s: %w", agent, err)
	}
	return n, nil
}

// Recent returns up to limit archived records for agent, newest first.
func (a *Archive) Recent(ctx context.Context, agent string, limit int) ([]model.RunRecord, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT run_number, started_at, status, result_summary, duration_seconds, error
		 FROM runs WHERE agent = ? ORDER BY id DESC LIMIT ?`,
		agent, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("archive: query runs for %s: %w", agent, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.RunRecord
	for rows.Next() {
		var rec model.RunRecord
		var status string
		if err := rows.Scan(&rec.RunNumber, &rec.Timestamp, &status, &rec.ResultSummary, &rec.DurationSeconds, &rec.Error); err != nil {
			return nil, fmt.Errorf("archive: scan run for %s: %w", agent, err)
		}
		rec.Status = model.RunStatus(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate runs for %s: %w", agent, err)
	}
	return out, nil
}
