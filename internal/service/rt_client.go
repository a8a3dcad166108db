package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jjenkins/rtharvest/internal/config"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/model"
	"golang.org/x/net/html/charset"
)

const (
	initialBackoff = 2 * time.Second
	acceptJSON     = "application/json"
	acceptDocument = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// PageQuery identifies one page of search results.
type PageQuery struct {
	DocumentType string
	AsOfDate     string
	Page         int
	PageSize     int
}

// Page is one decoded page of search results. Received counts every item
// the API returned, including items that could not be decoded.
type Page struct {
	Number   int
	Items    []model.Candidate
	Received int
}

// RTClient handles communication with the Riigi Teataja API
type RTClient struct {
	client     *http.Client
	cfg        config.APIConfig
	log        logger.Logger
	backoff    time.Duration
	maxRetries int
}

// NewRTClient creates a new Riigi Teataja API client
func NewRTClient(cfg config.APIConfig, log logger.Logger) *RTClient {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RTClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:        cfg,
		log:        log,
		backoff:    initialBackoff,
		maxRetries: maxRetries,
	}
}

// searchResponse represents the API response for a search page
type searchResponse struct {
	Acts []json.RawMessage `json:"oigusaktid"`
}

// FetchPage retrieves one page of acts matching q
func (c *RTClient) FetchPage(ctx context.Context, q PageQuery) (*Page, error) {
	params := url.Values{}
	params.Set("dokument", q.DocumentType)
	if q.AsOfDate != "" {
		params.Set("kehtiv", q.AsOfDate)
	}
	params.Set("leht", strconv.Itoa(q.Page))
	params.Set("limiit", strconv.Itoa(q.PageSize))

	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse API base URL: %w", err)
	}
	u.RawQuery = params.Encode()

	body, err := c.fetchWithRetry(ctx, u.String(), acceptJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", q.Page, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse page %d response: %w", q.Page, err)
	}

	page := &Page{
		Number:   q.Page,
		Items:    make([]model.Candidate, 0, len(resp.Acts)),
		Received: len(resp.Acts),
	}
	for i, raw := range resp.Acts {
		cand, err := model.DecodeCandidate(raw)
		if err != nil {
			c.log.Warn("Skipping undecodable act",
				logger.Int("page", q.Page),
				logger.Int("index", i),
				logger.Error(err),
			)
			continue
		}
		page.Items = append(page.Items, cand)
	}

	return page, nil
}

// FetchDocument retrieves a document body and decodes it to UTF-8 using the
// charset the server declared.
func (c *RTClient) FetchDocument(ctx context.Context, location string) (string, error) {
	body, err := c.fetchWithRetry(ctx, location, acceptDocument)
	if err != nil {
		return "", fmt.Errorf("failed to fetch document %s: %w", location, err)
	}
	return string(body), nil
}

// Delay returns the configured delay between requests
func (c *RTClient) Delay() time.Duration {
	return c.cfg.RequestDelay
}

// statusError is a non-2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// fetchWithRetry performs an HTTP GET with exponential backoff retry.
// Client errors other than 429 are not retried.
func (c *RTClient) fetchWithRetry(ctx context.Context, target, accept string) ([]byte, error) {
	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		body, err := c.get(ctx, target, accept)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Debug("Request failed",
			logger.String("url", target),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *RTClient) get(ctx context.Context, target, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode}
	}

	return io.ReadAll(decodeBody(resp.Body, resp.Header.Get("Content-Type")))
}

// decodeBody converts body to UTF-8 when the Content-Type names a charset.
// Bodies without a declared charset are taken as UTF-8.
func decodeBody(body io.Reader, contentType string) io.Reader {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["charset"] == "" {
		return body
	}
	enc, _ := charset.Lookup(params["charset"])
	if enc == nil {
		return body
	}
	return enc.NewDecoder().Reader(body)
}
