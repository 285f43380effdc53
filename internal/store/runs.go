package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunFailed   = "failed"
)

// Run records one driver invocation.
type Run struct {
	ID          string
	OutputDir   string
	Seed        uint64
	StartIndex  int
	FinishIndex int
	Status      string
}

// NewRunID returns a time-ordered UUIDv7 run id.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// BeginRun inserts a run with status running.
func (s *Store) BeginRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, output_dir, seed, start_index, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.ID, r.OutputDir, int64(r.Seed), r.StartIndex, RunRunning)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun records the last completed condition index and final status.
func (s *Store) FinishRun(ctx context.Context, id string, finishIndex int, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finish_index = ?, status = ? WHERE id = ?`, finishIndex, status, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Runs returns every run in id (start time) order.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, output_dir, seed, start_index, finish_index, status
		FROM runs ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var r Run
		var seed int64
		if err := rows.Scan(&r.ID, &r.OutputDir, &seed, &r.StartIndex, &r.FinishIndex, &r.Status); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Seed = uint64(seed)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// AddSource records that a run produced a configuration at a condition.
func (s *Store) AddSource(ctx context.Context, configID int64, runID string, condIndex int, score float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config_sources (config_id, run_id, cond_index, score)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, configID, runID, condIndex, score)
	if err != nil {
		return fmt.Errorf("add source: %w", err)
	}
	return nil
}

// SourceCount returns how many configurations a run produced.
func (s *Store) SourceCount(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM config_sources WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sources: %w", err)
	}
	return n, nil
}
