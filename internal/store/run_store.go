package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jjenkins/rtharvest/internal/model"
	"github.com/jmoiron/sqlx"
)

// RunStore handles database operations for harvest runs
type RunStore struct {
	db *sqlx.DB
}

// NewRunStore creates a new RunStore
func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// Create records the start of a harvest run
func (s *RunStore) Create(ctx context.Context, run *model.HarvestRun) error {
	query := s.db.Rebind(`
		INSERT INTO harvest_runs (id, document_type, as_of_date, overwrite_text, started_at)
		VALUES (?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.DocumentType,
		run.AsOfDate,
		run.OverwriteText,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create harvest run %s: %w", run.ID, err)
	}
	return nil
}

// Finish stores the final counts and finish time of a harvest run
func (s *RunStore) Finish(ctx context.Context, run *model.HarvestRun) error {
	query := s.db.Rebind(`
		UPDATE harvest_runs
		SET processed = ?, inserted = ?, updated = ?, skipped = ?, errored = ?, finished_at = ?
		WHERE id = ?
	`)

	_, err := s.db.ExecContext(ctx, query,
		run.Processed,
		run.Inserted,
		run.Updated,
		run.Skipped,
		run.Errored,
		run.FinishedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish harvest run %s: %w", run.ID, err)
	}
	return nil
}

// GetByID retrieves a harvest run, or nil when it does not exist
func (s *RunStore) GetByID(ctx context.Context, id string) (*model.HarvestRun, error) {
	query := s.db.Rebind(`
		SELECT id, document_type, as_of_date, overwrite_text, processed, inserted,
		       updated, skipped, errored, started_at, finished_at
		FROM harvest_runs
		WHERE id = ?
	`)

	var run model.HarvestRun
	err := s.db.GetContext(ctx, &run, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get harvest run %s: %w", id, err)
	}
	return &run, nil
}

// ListRecent retrieves the most recent harvest runs, newest first
func (s *RunStore) ListRecent(ctx context.Context, limit int) ([]model.HarvestRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := s.db.Rebind(`
		SELECT id, document_type, as_of_date, overwrite_text, processed, inserted,
		       updated, skipped, errored, started_at, finished_at
		FROM harvest_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`)

	var runs []model.HarvestRun
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list harvest runs: %w", err)
	}
	return runs, nil
}
