package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jjenkins/rtharvest/internal/config"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/model"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// fakePages serves canned pages. Pages not configured come back empty.
type fakePages struct {
	mu    sync.Mutex
	pages map[int]*Page
	errs  map[int]error
	calls []PageQuery
}

func (f *fakePages) FetchPage(_ context.Context, q PageQuery) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	if err := f.errs[q.Page]; err != nil {
		return nil, err
	}
	if p, ok := f.pages[q.Page]; ok {
		return p, nil
	}
	return &Page{Number: q.Page}, nil
}

func (f *fakePages) pageNumbers() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Page
	}
	return out
}

// pagesOf splits candidates into pages of size n.
func pagesOf(n int, cands ...model.Candidate) map[int]*Page {
	pages := make(map[int]*Page)
	for i := 0; i*n < len(cands); i++ {
		end := min((i+1)*n, len(cands))
		items := cands[i*n : end]
		pages[i+1] = &Page{Number: i + 1, Items: items, Received: len(items)}
	}
	return pages
}

func numbered(from, count int) []model.Candidate {
	out := make([]model.Candidate, count)
	for i := range out {
		out[i] = model.Candidate{GlobalID: model.FlexID(fmt.Sprint(from + i))}
	}
	return out
}

func ids(cands []model.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.UniqueID()
	}
	return out
}

// fakeDocs serves documents by URL and fails for anything unknown.
type fakeDocs struct {
	docs  map[string]string
	calls []string
}

func (f *fakeDocs) FetchDocument(_ context.Context, location string) (string, error) {
	f.calls = append(f.calls, location)
	if text, ok := f.docs[location]; ok {
		return text, nil
	}
	return "", errors.New("unexpected status code: 404")
}

func candidate(t *testing.T, raw string) model.Candidate {
	t.Helper()
	c, err := model.DecodeCandidate(json.RawMessage(raw))
	require.NoError(t, err)
	return c
}

func openTestStore(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := store.Open(context.Background(), config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		Dir:      t.TempDir(),
		Filename: "test.sqlite",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// recordingLogger keeps warning and error messages for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *recordingLogger) Debug(string, ...logger.Field) {}
func (l *recordingLogger) Info(string, ...logger.Field)  {}

func (l *recordingLogger) Warn(msg string, _ ...logger.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...logger.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) With(...logger.Field) logger.Logger { return l }
func (l *recordingLogger) Sync() error                        { return nil }

func (l *recordingLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}
