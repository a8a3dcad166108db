package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/model"
)

// DocumentFetcher retrieves a document body by location.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, location string) (string, error)
}

// TextStrategy is one named source of plain text for a candidate.
type TextStrategy struct {
	Name     string
	Location func(model.Candidate) string
}

// DefaultPlainStrategies tries the plain text rendition, then the HTML page.
var DefaultPlainStrategies = []TextStrategy{
	{Name: "plain", Location: func(c model.Candidate) string { return c.TextURL }},
	{Name: "html", Location: func(c model.Candidate) string { return c.HTMLURL }},
}

// Resolver fetches the plain and markup text of a candidate.
type Resolver struct {
	fetcher    DocumentFetcher
	clock      clock.Clock
	delay      time.Duration
	baseURL    string
	strategies []TextStrategy
	log        logger.Logger
}

// NewResolver creates a new Resolver using DefaultPlainStrategies. Relative
// locations are resolved against baseURL.
func NewResolver(fetcher DocumentFetcher, clk clock.Clock, delay time.Duration, baseURL string, log logger.Logger) *Resolver {
	return &Resolver{
		fetcher:    fetcher,
		clock:      clk,
		delay:      delay,
		baseURL:    baseURL,
		strategies: DefaultPlainStrategies,
		log:        log,
	}
}

// Resolve returns the plain and markup text of c. Either result is nil when
// no location is known or every known location failed. Each text family
// that issues a request is preceded by the request delay.
func (r *Resolver) Resolve(ctx context.Context, c model.Candidate) (plain, markup *string) {
	plain = r.resolvePlain(ctx, c)
	if ctx.Err() != nil {
		return nil, nil
	}
	return plain, r.resolveMarkup(ctx, c)
}

func (r *Resolver) resolvePlain(ctx context.Context, c model.Candidate) *string {
	var locations []string
	var names []string
	for _, s := range r.strategies {
		if loc := s.Location(c); loc != "" {
			locations = append(locations, loc)
			names = append(names, s.Name)
		}
	}
	if len(locations) == 0 {
		return nil
	}

	r.clock.Sleep(r.delay)
	for i, loc := range locations {
		if ctx.Err() != nil {
			return nil
		}
		if text, ok := r.fetch(ctx, c, names[i], loc); ok {
			return &text
		}
	}
	return nil
}

func (r *Resolver) resolveMarkup(ctx context.Context, c model.Candidate) *string {
	loc := c.MarkupLocation()
	if loc == "" {
		return nil
	}

	r.clock.Sleep(r.delay)
	if text, ok := r.fetch(ctx, c, "markup", loc); ok {
		return &text
	}
	return nil
}

func (r *Resolver) fetch(ctx context.Context, c model.Candidate, strategy, location string) (string, bool) {
	target := ResolveLocation(r.baseURL, location)
	text, err := r.fetcher.FetchDocument(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			return "", false
		}
		r.log.Warn("Document fetch failed",
			logger.String("unique_id", c.UniqueID()),
			logger.String("strategy", strategy),
			logger.String("url", target),
			logger.Error(err),
		)
		return "", false
	}
	return text, true
}

// ResolveLocation turns an API location into an absolute URL. Absolute
// locations are used verbatim; relative ones are resolved against baseURL.
func ResolveLocation(baseURL, location string) string {
	ref, err := url.Parse(location)
	if err != nil {
		return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(location, "/")
	}
	if ref.IsAbs() {
		return location
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(location, "/")
	}
	return base.ResolveReference(ref).String()
}

// SourceURL returns the public page of c: its HTML location when known,
// otherwise the canonical /akt/{id} page.
func SourceURL(baseURL string, c model.Candidate) string {
	if c.HTMLURL != "" {
		return ResolveLocation(baseURL, c.HTMLURL)
	}
	return ResolveLocation(baseURL, "/akt/"+c.UniqueID())
}
