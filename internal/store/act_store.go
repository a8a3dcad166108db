package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jjenkins/rtharvest/internal/model"
	"github.com/jmoiron/sqlx"
)

const actColumns = `unique_id, full_text_id, title, document_type, text_plain, text_markup,
	publication_date, entry_into_force_date, repeal_date, status, source_url,
	raw_metadata, retrieved_at, last_checked_at`

// ActStore handles database operations for acts
type ActStore struct {
	db *sqlx.DB
}

// NewActStore creates a new ActStore
func NewActStore(db *sqlx.DB) *ActStore {
	return &ActStore{db: db}
}

// GetByUniqueID retrieves an act by its unique id. A missing act is reported
// as nil without an error.
func (s *ActStore) GetByUniqueID(ctx context.Context, uniqueID string) (*model.Act, error) {
	return getAct(ctx, s.db, uniqueID)
}

// ListFilter narrows and orders an act listing.
type ListFilter struct {
	Status model.Status
	SortBy string
	Order  string
	Limit  int
	Offset int
}

// ListSorted retrieves act summaries with custom sorting (excludes the text columns)
func (s *ActStore) ListSorted(ctx context.Context, f ListFilter) ([]model.ActSummary, error) {
	// Whitelist valid sort columns to prevent SQL injection
	validColumns := map[string]string{
		"id":           "unique_id",
		"title":        "title",
		"status":       "status",
		"entry":        "entry_into_force_date",
		"repeal":       "repeal_date",
		"plain_length": "plain_length",
		"checked":      "last_checked_at",
	}

	column, ok := validColumns[f.SortBy]
	if !ok {
		column = "title"
	}

	sortOrder := "ASC"
	if f.Order == "desc" {
		sortOrder = "DESC"
	}

	var (
		where strings.Builder
		args  []any
	)
	if f.Status != "" {
		where.WriteString("WHERE status = ?")
		args = append(args, string(f.Status))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, f.Offset)

	query := fmt.Sprintf(`
		SELECT unique_id, title, document_type, entry_into_force_date, repeal_date, status,
		       COALESCE(LENGTH(text_plain), 0) AS plain_length,
		       COALESCE(LENGTH(text_markup), 0) AS markup_length,
		       last_checked_at
		FROM acts
		%s
		ORDER BY %s %s, unique_id
		LIMIT ? OFFSET ?
	`, where.String(), column, sortOrder)

	var acts []model.ActSummary
	if err := s.db.SelectContext(ctx, &acts, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list acts: %w", err)
	}
	return acts, nil
}

// CountActs returns the total number of acts, optionally restricted to one status
func (s *ActStore) CountActs(ctx context.Context, status model.Status) (int, error) {
	query := "SELECT COUNT(*) FROM acts"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}

	var count int
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count acts: %w", err)
	}
	return count, nil
}

// CountByStatus returns the number of acts per status. Statuses without acts
// are reported as zero.
func (s *ActStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT status, COUNT(*) FROM acts GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count acts by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int, len(model.Statuses))
	for _, st := range model.Statuses {
		counts[st] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

// TextCoverage returns how many acts have plain text and how many have markup
func (s *ActStore) TextCoverage(ctx context.Context) (withPlain, withMarkup int, err error) {
	query := `
		SELECT COUNT(text_plain) AS with_plain, COUNT(text_markup) AS with_markup
		FROM acts
	`
	row := s.db.QueryRowxContext(ctx, query)
	if err := row.Scan(&withPlain, &withMarkup); err != nil {
		return 0, 0, fmt.Errorf("failed to count act texts: %w", err)
	}
	return withPlain, withMarkup, nil
}

// ListMarkupIDs returns the ids of every act with stored markup, in id order.
func (s *ActStore) ListMarkupIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := "SELECT unique_id FROM acts WHERE text_markup IS NOT NULL ORDER BY unique_id"
	if err := s.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list acts with markup: %w", err)
	}
	return ids, nil
}

// Begin opens a write session. Work done through the session becomes durable
// on Checkpoint or Commit.
func (s *ActStore) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Session{db: s.db, tx: tx}, nil
}

// Session is a single-writer batch over the acts table. Each unit of work
// runs inside a savepoint so one failure does not discard the rest of the
// batch.
type Session struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

const savepointName = "act_write"

// Savepoint runs fn inside a savepoint. If fn fails, its writes are rolled
// back and the error is returned; the session stays usable.
func (s *Session) Savepoint(ctx context.Context, fn func() error) error {
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(); err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back savepoint: %w", rbErr))
		}
		if _, relErr := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepointName); relErr != nil {
			return errors.Join(err, fmt.Errorf("failed to release savepoint: %w", relErr))
		}
		return err
	}

	if _, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

// Get retrieves an act inside the session, or nil when it does not exist.
func (s *Session) Get(ctx context.Context, uniqueID string) (*model.Act, error) {
	return getAct(ctx, s.tx, uniqueID)
}

// InsertIfAbsent inserts act unless an act with the same unique id exists.
// It reports whether a row was written.
func (s *Session) InsertIfAbsent(ctx context.Context, act *model.Act) (bool, error) {
	query := s.tx.Rebind(`
		INSERT INTO acts (` + actColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (unique_id) DO NOTHING
	`)

	res, err := s.tx.ExecContext(ctx, query,
		act.UniqueID,
		act.FullTextID,
		act.Title,
		act.DocumentType,
		act.TextPlain,
		act.TextMarkup,
		act.PublicationDate,
		act.EntryIntoForceDate,
		act.RepealDate,
		string(act.Status),
		act.SourceURL,
		act.RawMetadata,
		act.RetrievedAt,
		act.LastCheckedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert act %s: %w", act.UniqueID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows for act %s: %w", act.UniqueID, err)
	}
	return n > 0, nil
}

// UpdateText replaces both text fields of an existing act and stamps
// last_checked_at. No other column is touched.
func (s *Session) UpdateText(ctx context.Context, uniqueID string, plain, markup sql.NullString, checkedAt time.Time) error {
	query := s.tx.Rebind(`
		UPDATE acts
		SET text_plain = ?, text_markup = ?, last_checked_at = ?
		WHERE unique_id = ?
	`)
	return s.execUpdate(ctx, uniqueID, query, plain, markup, checkedAt, uniqueID)
}

// UpdatePlainText replaces text_plain of an existing act and stamps
// last_checked_at.
func (s *Session) UpdatePlainText(ctx context.Context, uniqueID, plain string, checkedAt time.Time) error {
	query := s.tx.Rebind(`
		UPDATE acts
		SET text_plain = ?, last_checked_at = ?
		WHERE unique_id = ?
	`)
	return s.execUpdate(ctx, uniqueID, query, plain, checkedAt, uniqueID)
}

func (s *Session) execUpdate(ctx context.Context, uniqueID, query string, args ...any) error {
	res, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update act %s: %w", uniqueID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for act %s: %w", uniqueID, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to update act %s: not found", uniqueID)
	}
	return nil
}

// Checkpoint commits everything written so far and continues in a new
// transaction.
func (s *Session) Checkpoint(ctx context.Context) error {
	if err := s.Commit(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit makes all session writes durable and ends the session.
func (s *Session) Commit() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards writes since the last checkpoint. It is a no-op after
// Commit.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func getAct(ctx context.Context, q queryer, uniqueID string) (*model.Act, error) {
	query := q.Rebind("SELECT " + actColumns + " FROM acts WHERE unique_id = ?")

	var a model.Act
	err := sqlx.GetContext(ctx, q, &a, query, uniqueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get act %s: %w", uniqueID, err)
	}
	return &a, nil
}
