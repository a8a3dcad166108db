package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/model"
	"github.com/jjenkins/rtharvest/internal/store"
)

// DefaultCheckpointEvery is the number of candidates processed between commits.
const DefaultCheckpointEvery = 10

// State is the result of reconciling one candidate.
type State string

const (
	StateInserted State = "inserted"
	StateSkipped  State = "skipped"
	StateUpdated  State = "updated"
	StateErrored  State = "errored"
)

// Outcome reports what happened to one candidate.
type Outcome struct {
	UniqueID string
	State    State
	Err      error
}

// RunSummary aggregates the outcomes of a run.
type RunSummary struct {
	Processed int
	Inserted  int
	Updated   int
	Skipped   int
	Errored   int
}

// Add counts o.
func (s *RunSummary) Add(o Outcome) {
	s.Processed++
	switch o.State {
	case StateInserted:
		s.Inserted++
	case StateUpdated:
		s.Updated++
	case StateSkipped:
		s.Skipped++
	case StateErrored:
		s.Errored++
	}
}

// HarvestParams selects what a harvest run fetches. Zero LimitActs and
// MaxPages mean unlimited.
type HarvestParams struct {
	DocumentType  string
	AsOfDate      string
	LimitActs     int
	MaxPages      int
	PageSize      int
	OverwriteText bool
}

// TextResolver fetches the plain and markup text of a candidate.
type TextResolver interface {
	Resolve(ctx context.Context, c model.Candidate) (plain, markup *string)
}

// Harvester reconciles search results into the act store
type Harvester struct {
	paginator       *Paginator
	resolver        TextResolver
	extractor       *Extractor
	acts            *store.ActStore
	runs            *store.RunStore
	metrics         *HarvestMetrics
	clock           clock.Clock
	documentBaseURL string
	checkpointEvery int
	log             logger.Logger
}

// HarvesterOptions holds the optional collaborators of a Harvester.
type HarvesterOptions struct {
	// Runs records each run when set.
	Runs *store.RunStore
	// Metrics counts outcomes when set.
	Metrics         *HarvestMetrics
	DocumentBaseURL string
	CheckpointEvery int
}

// NewHarvester creates a new Harvester
func NewHarvester(paginator *Paginator, resolver TextResolver, extractor *Extractor, acts *store.ActStore, clk clock.Clock, log logger.Logger, opts HarvesterOptions) *Harvester {
	every := opts.CheckpointEvery
	if every < 1 {
		every = DefaultCheckpointEvery
	}
	return &Harvester{
		paginator:       paginator,
		resolver:        resolver,
		extractor:       extractor,
		acts:            acts,
		runs:            opts.Runs,
		metrics:         opts.Metrics,
		clock:           clk,
		documentBaseURL: opts.DocumentBaseURL,
		checkpointEvery: every,
		log:             log,
	}
}

// Run enumerates the acts selected by params and reconciles each one. Work
// is committed every checkpointEvery candidates and once more at the end,
// including when ctx is cancelled; the summary is returned together with
// ctx.Err() in that case. Failing to open or commit the store is fatal.
func (h *Harvester) Run(ctx context.Context, params HarvestParams) (*RunSummary, error) {
	// Store writes must outlive cancellation so the final checkpoint lands.
	dbCtx := context.WithoutCancel(ctx)

	run, err := h.startRun(dbCtx, params)
	if err != nil {
		return nil, err
	}

	sess, err := h.acts.Begin(dbCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to open store session: %w", err)
	}
	defer sess.Rollback()

	summary := &RunSummary{}
	candidates := Limit(h.paginator.Acts(ctx, Query{
		DocumentType: params.DocumentType,
		AsOfDate:     params.AsOfDate,
		PageSize:     params.PageSize,
		MaxPages:     params.MaxPages,
	}), params.LimitActs)

	for c := range candidates {
		if ctx.Err() != nil {
			break
		}

		h.log.Info("Processing act",
			logger.Int("n", summary.Processed+1),
			logger.String("unique_id", c.UniqueID()),
			logger.String("title", c.DisplayTitle()),
		)

		outcome := h.Reconcile(ctx, sess, c, params)
		summary.Add(outcome)
		h.metrics.Observe(outcome)
		h.logOutcome(outcome)

		if summary.Processed%h.checkpointEvery == 0 {
			if err := sess.Checkpoint(dbCtx); err != nil {
				return summary, fmt.Errorf("failed to checkpoint after %d acts: %w", summary.Processed, err)
			}
		}
	}

	if err := sess.Commit(); err != nil {
		return summary, fmt.Errorf("failed to commit final checkpoint: %w", err)
	}

	h.finishRun(dbCtx, run, summary)

	if ctx.Err() != nil {
		h.log.Warn("Harvest interrupted", logger.Int("processed", summary.Processed))
		return summary, ctx.Err()
	}
	return summary, nil
}

// Reconcile brings one candidate into the store inside its own savepoint.
// An absent act is inserted, an existing act is skipped, or its text is
// refreshed when params.OverwriteText is set.
func (h *Harvester) Reconcile(ctx context.Context, sess *store.Session, c model.Candidate, params HarvestParams) Outcome {
	id := c.UniqueID()
	outcome := Outcome{UniqueID: id}
	if id == "" {
		outcome.State = StateErrored
		outcome.Err = errors.New("act has no unique id")
		return outcome
	}

	dbCtx := context.WithoutCancel(ctx)
	err := sess.Savepoint(dbCtx, func() error {
		existing, err := sess.Get(dbCtx, id)
		if err != nil {
			return err
		}

		if existing == nil {
			plain, markup, err := h.resolveTexts(ctx, c)
			if err != nil {
				return err
			}
			act := h.newAct(c, params.DocumentType, plain, markup)
			inserted, err := sess.InsertIfAbsent(dbCtx, act)
			if err != nil {
				return err
			}
			outcome.State = StateSkipped
			if inserted {
				outcome.State = StateInserted
			}
			return nil
		}

		if !params.OverwriteText {
			outcome.State = StateSkipped
			return nil
		}

		plain, markup, err := h.resolveTexts(ctx, c)
		if err != nil {
			return err
		}
		checkedAt := h.clock.Now().UTC()
		if checkedAt.Before(existing.RetrievedAt) {
			checkedAt = existing.RetrievedAt
		}
		if err := sess.UpdateText(dbCtx, id, model.NullText(plain), model.NullText(markup), checkedAt); err != nil {
			return err
		}
		outcome.State = StateUpdated
		return nil
	})
	if err != nil {
		outcome.State = StateErrored
		outcome.Err = err
	}
	return outcome
}

// newAct builds the record to insert. Status is classified on the local
// calendar day; stored timestamps are UTC.
func (h *Harvester) newAct(c model.Candidate, defaultType string, plain, markup *string) *model.Act {
	local := h.clock.Now()
	now := local.UTC()

	docType := c.Kind
	if docType == "" {
		docType = defaultType
	}

	var fullText sql.NullInt64
	if id, ok := c.FullTextIDValue(); ok {
		fullText = sql.NullInt64{Int64: id, Valid: true}
	}

	entry := c.EntryIntoForceDate()
	repeal := c.RepealDate()

	return &model.Act{
		UniqueID:           c.UniqueID(),
		FullTextID:         fullText,
		Title:              c.Title,
		DocumentType:       docType,
		TextPlain:          model.NullText(plain),
		TextMarkup:         model.NullText(markup),
		PublicationDate:    model.NullString(c.Published),
		EntryIntoForceDate: model.NullString(entry),
		RepealDate:         model.NullString(repeal),
		Status:             ClassifyStatus(c.Published, entry, repeal, local),
		SourceURL:          model.NullString(SourceURL(h.documentBaseURL, c)),
		RawMetadata:        string(c.Raw),
		RetrievedAt:        now,
		LastCheckedAt:      now,
	}
}

// resolveTexts fetches both texts. Plain text falls back to the text
// extracted from the markup when no plain rendition could be fetched. A
// cancelled ctx is an error: fetches cut short must not be stored as
// missing text.
func (h *Harvester) resolveTexts(ctx context.Context, c model.Candidate) (plain, markup *string, err error) {
	plain, markup = h.resolver.Resolve(ctx, c)
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("text fetch interrupted: %w", err)
	}
	if plain == nil && markup != nil {
		if text := h.extractor.Extract(*markup); text != "" {
			plain = &text
		}
	}
	return plain, markup, nil
}

func (h *Harvester) logOutcome(o Outcome) {
	switch o.State {
	case StateInserted:
		h.log.Info("Inserted act", logger.String("unique_id", o.UniqueID))
	case StateUpdated:
		h.log.Info("Updated act text", logger.String("unique_id", o.UniqueID))
	case StateSkipped:
		h.log.Info("Skipped act (already exists)", logger.String("unique_id", o.UniqueID))
	case StateErrored:
		h.log.Error("Failed to process act",
			logger.String("unique_id", o.UniqueID),
			logger.Error(o.Err),
		)
	}
}

func (h *Harvester) startRun(ctx context.Context, params HarvestParams) (*model.HarvestRun, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run id: %w", err)
	}

	run := &model.HarvestRun{
		ID:            id.String(),
		DocumentType:  params.DocumentType,
		AsOfDate:      params.AsOfDate,
		OverwriteText: params.OverwriteText,
		StartedAt:     h.clock.Now().UTC(),
	}
	h.log.Info("Starting harvest",
		logger.String("run_id", run.ID),
		logger.String("document_type", params.DocumentType),
		logger.String("as_of", params.AsOfDate),
		logger.Int("limit_acts", params.LimitActs),
		logger.Int("page_limit", params.MaxPages),
		logger.Bool("overwrite_text", params.OverwriteText),
	)

	if h.runs != nil {
		if err := h.runs.Create(ctx, run); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// finishRun records the final counts. Failing to do so does not fail the
// harvest, whose acts are already committed.
func (h *Harvester) finishRun(ctx context.Context, run *model.HarvestRun, summary *RunSummary) {
	finished := h.clock.Now().UTC()
	run.Processed = summary.Processed
	run.Inserted = summary.Inserted
	run.Updated = summary.Updated
	run.Skipped = summary.Skipped
	run.Errored = summary.Errored
	run.FinishedAt = sql.NullTime{Time: finished, Valid: true}

	h.metrics.Finish(summary, finished.Sub(run.StartedAt), finished)

	if h.runs == nil {
		return
	}
	if err := h.runs.Finish(ctx, run); err != nil {
		h.log.Error("Failed to record harvest run",
			logger.String("run_id", run.ID),
			logger.Error(err),
		)
	}
}

// String renders the counts on one line.
func (s *RunSummary) String() string {
	return fmt.Sprintf("processed=%d inserted=%d updated=%d skipped=%d errored=%d",
		s.Processed, s.Inserted, s.Updated, s.Skipped, s.Errored)
}
