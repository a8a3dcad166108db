package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// MetricStore handles database operations for archive metrics
type MetricStore struct {
	db *sqlx.DB
}

// NewMetricStore creates a new MetricStore
func NewMetricStore(db *sqlx.DB) *MetricStore {
	return &MetricStore{db: db}
}

// Store records a set of metric values calculated at the same instant
func (s *MetricStore) Store(ctx context.Context, values map[string]string, calculatedAt time.Time) error {
	query := s.db.Rebind(`
		INSERT INTO metrics (metric_name, metric_value, calculated_at)
		VALUES (?, ?, ?)
	`)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for name, value := range values {
		if _, err := tx.ExecContext(ctx, query, name, value, calculatedAt); err != nil {
			return fmt.Errorf("failed to store metric %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metrics: %w", err)
	}
	return nil
}

// Latest retrieves the most recent value of every metric
func (s *MetricStore) Latest(ctx context.Context) (map[string]string, error) {
	query := `
		SELECT metric_name, metric_value
		FROM metrics
		WHERE id IN (SELECT MAX(id) FROM metrics GROUP BY metric_name)
	`

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics[name] = value
	}
	return metrics, rows.Err()
}
