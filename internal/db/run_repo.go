package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const runColumns = `id, profile, command, cols, rows, started_at, ended_at, exit_code, last_output`

type RunRepo struct {
	db *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create inserts a new run row. A missing ID and start time are filled in.
func (r *RunRepo) Create(ctx context.Context, run *Run) error {
	if run.ID == "" {
		id, err := NewID()
		if err != nil {
			return err
		}
		run.ID = id
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = nowUTC()
	}
	run.Running = true

	_, err := r.db.ExecContext(ctx, `
INSERT INTO runs (id, profile, command, cols, rows, started_at, last_output)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, run.ID, run.Profile, run.Command, run.Cols, run.Rows, formatTimestamp(run.StartedAt), run.LastOutput)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// Finish marks a run as ended and stores its exit code and final screen.
func (r *RunRepo) Finish(ctx context.Context, id string, exitCode int, lastOutput string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE runs SET ended_at = ?, exit_code = ?, last_output = ?
WHERE id = ?
`, formatTimestamp(nowUTC()), exitCode, lastOutput, id)
	if err != nil {
		return fmt.Errorf("finish run %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %q: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("finish run %q: not found", id)
	}
	return nil
}

func scanRun(scan func(dest ...any) error) (*Run, error) {
	var run Run
	var startedRaw string
	var endedRaw sql.NullString
	var exitCode sql.NullInt64

	if err := scan(&run.ID, &run.Profile, &run.Command, &run.Cols, &run.Rows, &startedRaw, &endedRaw, &exitCode, &run.LastOutput); err != nil {
		return nil, err
	}

	var err error
	run.StartedAt, err = parseTimestamp(startedRaw)
	if err != nil {
		return nil, err
	}
	if endedRaw.Valid {
		run.EndedAt, err = parseTimestamp(endedRaw.String)
		if err != nil {
			return nil, err
		}
		run.ExitCode = int(exitCode.Int64)
	} else {
		run.Running = true
	}
	return &run, nil
}

// Get returns a run by id, or nil when it does not exist.
func (r *RunRepo) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get run %q: %w", id, err)
	}
	return run, nil
}

// Latest returns the most recently started run, or nil when history is empty.
func (r *RunRepo) Latest(ctx context.Context) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A non-positive limit applies
// the default of 50.
func (r *RunRepo) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// PruneOlderThan deletes finished runs that started before cutoff and
// returns the number of deleted rows. Live runs are never pruned.
func (r *RunRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM runs WHERE ended_at IS NOT NULL AND started_at < ?
`, formatTimestamp(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return int(affected), nil
}
