package service

import (
	"context"
	"fmt"

	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/store"
)

// ReprocessStats tracks a reprocessing pass
type ReprocessStats struct {
	Total   int
	Updated int
	Empty   int
	Failed  int
}

// Reprocessor regenerates text_plain of stored acts from their stored markup
type Reprocessor struct {
	acts            *store.ActStore
	extractor       *Extractor
	clock           clock.Clock
	checkpointEvery int
	log             logger.Logger
}

// NewReprocessor creates a new Reprocessor
func NewReprocessor(acts *store.ActStore, extractor *Extractor, clk clock.Clock, checkpointEvery int, log logger.Logger) *Reprocessor {
	if checkpointEvery < 1 {
		checkpointEvery = DefaultCheckpointEvery
	}
	return &Reprocessor{
		acts:            acts,
		extractor:       extractor,
		clock:           clk,
		checkpointEvery: checkpointEvery,
		log:             log,
	}
}

// Run re-extracts plain text for every act holding markup. Markup that
// yields no text is left alone so existing plain text is not erased.
func (r *Reprocessor) Run(ctx context.Context) (*ReprocessStats, error) {
	dbCtx := context.WithoutCancel(ctx)

	ids, err := r.acts.ListMarkupIDs(dbCtx)
	if err != nil {
		return nil, err
	}

	stats := &ReprocessStats{Total: len(ids)}
	r.log.Info("Reprocessing acts with markup", logger.Int("total", stats.Total))

	sess, err := r.acts.Begin(dbCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to open store session: %w", err)
	}
	defer sess.Rollback()

	processed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		processed++

		err := sess.Savepoint(dbCtx, func() error {
			act, err := sess.Get(dbCtx, id)
			if err != nil {
				return err
			}
			if act == nil || !act.TextMarkup.Valid {
				stats.Empty++
				return nil
			}

			text := r.extractor.Extract(act.TextMarkup.String)
			if text == "" {
				stats.Empty++
				return nil
			}

			checkedAt := r.clock.Now().UTC()
			if checkedAt.Before(act.RetrievedAt) {
				checkedAt = act.RetrievedAt
			}
			if err := sess.UpdatePlainText(dbCtx, id, text, checkedAt); err != nil {
				return err
			}
			stats.Updated++
			return nil
		})
		if err != nil {
			stats.Failed++
			r.log.Error("Failed to reprocess act",
				logger.String("unique_id", id),
				logger.Error(err),
			)
		}

		if processed%r.checkpointEvery == 0 {
			if err := sess.Checkpoint(dbCtx); err != nil {
				return stats, fmt.Errorf("failed to checkpoint after %d acts: %w", processed, err)
			}
			r.log.Info("Reprocess progress", logger.Int("processed", processed), logger.Int("total", stats.Total))
		}
	}

	if err := sess.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit final checkpoint: %w", err)
	}

	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	return stats, nil
}
