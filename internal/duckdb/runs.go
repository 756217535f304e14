package duckdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunInput is one source file that fed a merge run.
type RunInput struct {
	Source string
	FileFingerprint
}

// Run records one reconciliation run and its inputs.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Output     string
	Table      string
	Rows       int64
	Inputs     []RunInput
}

// RecordRun stores a run and returns its identifier, generating one when
// r.ID is empty.
func (s *Store) RecordRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin run transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO merge_runs (run_id, started_at, finished_at, output, table_name, row_count) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Output, r.Table, r.Rows); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	for _, in := range r.Inputs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO merge_run_inputs (run_id, source, path, size, mod_time) VALUES (?, ?, ?, ?, ?)`,
			r.ID, in.Source, in.Path, in.Size, in.ModTime.UTC()); err != nil {
			return "", fmt.Errorf("insert run input: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return r.ID, nil
}

// ListRuns returns the recorded runs, newest first, with their inputs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, started_at, finished_at, output, table_name, row_count
		FROM merge_runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	byID := make(map[string]int)
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Output, &r.Table, &r.Rows); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		byID[r.ID] = len(runs)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	inputs, err := s.db.QueryContext(ctx, `SELECT run_id, source, path, size, mod_time
		FROM merge_run_inputs ORDER BY run_id, source`)
	if err != nil {
		return nil, fmt.Errorf("query run inputs: %w", err)
	}
	defer inputs.Close()
	for inputs.Next() {
		var id string
		var in RunInput
		if err := inputs.Scan(&id, &in.Source, &in.Path, &in.Size, &in.ModTime); err != nil {
			return nil, fmt.Errorf("scan run input: %w", err)
		}
		if i, ok := byID[id]; ok {
			runs[i].Inputs = append(runs[i].Inputs, in)
		}
	}
	return runs, inputs.Err()
}
