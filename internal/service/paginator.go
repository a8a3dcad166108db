package service

import (
	"context"
	"iter"
	"time"

	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/model"
)

// DefaultPageSize is the number of items requested per page.
const DefaultPageSize = 100

// PageFetcher retrieves a single page of search results.
type PageFetcher interface {
	FetchPage(ctx context.Context, q PageQuery) (*Page, error)
}

// Query selects the acts to enumerate. MaxPages of zero means no page limit.
type Query struct {
	DocumentType string
	AsOfDate     string
	PageSize     int
	MaxPages     int
}

// Paginator walks the paginated search API.
type Paginator struct {
	fetcher PageFetcher
	clock   clock.Clock
	delay   time.Duration
	log     logger.Logger
}

// NewPaginator creates a new Paginator that waits delay before every page fetch.
func NewPaginator(fetcher PageFetcher, clk clock.Clock, delay time.Duration, log logger.Logger) *Paginator {
	return &Paginator{
		fetcher: fetcher,
		clock:   clk,
		delay:   delay,
		log:     log,
	}
}

// Acts returns a lazy sequence of every act matching q, in API order. Pages
// are fetched only as the sequence is consumed, and each range over the
// sequence starts again from page 1.
//
// Enumeration ends on a failed fetch, an empty page, a page shorter than the
// page size (after its items are yielded), or once MaxPages pages were
// fetched.
func (p *Paginator) Acts(ctx context.Context, q Query) iter.Seq[model.Candidate] {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return func(yield func(model.Candidate) bool) {
		for page := 1; q.MaxPages <= 0 || page <= q.MaxPages; page++ {
			p.clock.Sleep(p.delay)
			if ctx.Err() != nil {
				return
			}

			result, err := p.fetcher.FetchPage(ctx, PageQuery{
				DocumentType: q.DocumentType,
				AsOfDate:     q.AsOfDate,
				Page:         page,
				PageSize:     pageSize,
			})
			if err != nil {
				p.log.Warn("Stopping pagination after failed fetch",
					logger.Int("page", page),
					logger.Error(err),
				)
				return
			}
			if result.Received == 0 {
				p.log.Debug("Empty page, pagination complete", logger.Int("page", page))
				return
			}

			p.log.Info("Fetched page",
				logger.Int("page", page),
				logger.Int("items", result.Received),
			)
			for _, c := range result.Items {
				if !yield(c) {
					return
				}
			}

			if result.Received < pageSize {
				return
			}
		}
		p.log.Info("Page limit reached", logger.Int("max_pages", q.MaxPages))
	}
}

// FetchAll collects every act of q into a slice.
func (p *Paginator) FetchAll(ctx context.Context, q Query) []model.Candidate {
	var out []model.Candidate
	for c := range p.Acts(ctx, q) {
		out = append(out, c)
	}
	return out
}

// Limit stops seq after n items. A non-positive n leaves seq unbounded.
func Limit[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	if n <= 0 {
		return seq
	}
	return func(yield func(T) bool) {
		count := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}
