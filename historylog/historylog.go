// Package historylog is the embedded audit log of merge runs: one row per
// `javamerge merge`/`git` invocation and per file merged by `batch`, plus the unresolved
// content/structural conflicts it left behind, queryable via the `history`
// CLI subcommand.
package historylog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	base_ref TEXT NOT NULL,
	left_ref TEXT NOT NULL,
	right_ref TEXT NOT NULL,
	has_conflict INTEGER NOT NULL,
	content_conflicts INTEGER NOT NULL,
	structural_conflicts INTEGER NOT NULL,
	exit_code INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_path ON runs(path);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS conflicts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	kind TEXT NOT NULL,
	role TEXT NOT NULL,
	detail TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conflicts_run_id ON conflicts(run_id);
`

// Log wraps the SQLite-backed merge-run audit log.
type Log struct {
	db *sql.DB
}

// Open opens or creates the audit log database at path, creating its
// parent directory if needed.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("historylog: creating %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("historylog: opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("historylog: applying schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Conflict is one unresolved content or structural conflict left behind by
// a run, recorded for later inspection via `history show`.
type Conflict struct {
	Kind   string // "content" or "structural"
	Role   string
	Detail string
}

// Run is one merge invocation's outcome.
type Run struct {
	ID                  string
	Path                string
	StartedAt           time.Time
	BaseRef             string
	LeftRef             string
	RightRef            string
	HasConflict         bool
	ContentConflicts    int
	StructuralConflicts int
	ExitCode            int
	Conflicts           []Conflict
}

// Record inserts run, assigning a fresh ID if run.ID is empty, and returns
// the ID the row was stored under.
func (l *Log) Record(run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := l.db.Begin()
	if err != nil {
		return "", fmt.Errorf("historylog: starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, path, started_at, base_ref, left_ref, right_ref,
			has_conflict, content_conflicts, structural_conflicts, exit_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Path, run.StartedAt.Unix(), run.BaseRef, run.LeftRef, run.RightRef,
		boolToInt(run.HasConflict), run.ContentConflicts, run.StructuralConflicts, run.ExitCode,
	)
	if err != nil {
		return "", fmt.Errorf("historylog: inserting run: %w", err)
	}

	for _, c := range run.Conflicts {
		_, err := tx.Exec(
			`INSERT INTO conflicts (run_id, kind, role, detail) VALUES (?, ?, ?, ?)`,
			run.ID, c.Kind, c.Role, c.Detail,
		)
		if err != nil {
			return "", fmt.Errorf("historylog: inserting conflict: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("historylog: committing: %w", err)
	}
	return run.ID, nil
}

// Recent returns the limit most recent runs, newest first.
func (l *Log) Recent(limit int) ([]Run, error) {
	rows, err := l.db.Query(
		`SELECT id, path, started_at, base_ref, left_ref, right_ref,
			has_conflict, content_conflicts, structural_conflicts, exit_code
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("historylog: querying recent runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ForPath returns the limit most recent runs for a given file path, newest
// first.
func (l *Log) ForPath(path string, limit int) ([]Run, error) {
	rows, err := l.db.Query(
		`SELECT id, path, started_at, base_ref, left_ref, right_ref,
			has_conflict, content_conflicts, structural_conflicts, exit_code
		 FROM runs WHERE path = ? ORDER BY started_at DESC LIMIT ?`, path, limit)
	if err != nil {
		return nil, fmt.Errorf("historylog: querying runs for %s: %w", path, err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// Conflicts returns the conflicts recorded for a single run.
func (l *Log) Conflicts(runID string) ([]Conflict, error) {
	rows, err := l.db.Query(
		`SELECT kind, role, detail FROM conflicts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("historylog: querying conflicts for %s: %w", runID, err)
	}
	defer rows.Close()

	var conflicts []Conflict
	for rows.Next() {
		var c Conflict
		if err := rows.Scan(&c.Kind, &c.Role, &c.Detail); err != nil {
			return nil, fmt.Errorf("historylog: scanning conflict row: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt int64
		var hasConflict int
		if err := rows.Scan(&r.ID, &r.Path, &startedAt, &r.BaseRef, &r.LeftRef, &r.RightRef,
			&hasConflict, &r.ContentConflicts, &r.StructuralConflicts, &r.ExitCode); err != nil {
			return nil, fmt.Errorf("historylog: scanning run row: %w", err)
		}
		r.StartedAt = time.Unix(startedAt, 0)
		r.HasConflict = hasConflict != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
