package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPaginator(f *fakePages) (*Paginator, *clock.Fake) {
	clk := clock.NewFake(epoch)
	return NewPaginator(f, clk, 2*time.Second, logger.NewNop()), clk
}

func TestPaginatorStopsAfterShortPage(t *testing.T) {
	f := &fakePages{pages: pagesOf(100, numbered(1, 237)...)}
	p, clk := newTestPaginator(f)

	got := p.FetchAll(context.Background(), Query{DocumentType: "seadus", PageSize: 100})

	assert.Len(t, got, 237)
	assert.Equal(t, "1", got[0].UniqueID())
	assert.Equal(t, "237", got[236].UniqueID())
	assert.Equal(t, []int{1, 2, 3}, f.pageNumbers())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, clk.Sleeps())
}

func TestPaginatorStopsOnEmptyPage(t *testing.T) {
	f := &fakePages{pages: pagesOf(2, numbered(1, 4)...)}
	p, _ := newTestPaginator(f)

	got := p.FetchAll(context.Background(), Query{PageSize: 2})

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(got))
	assert.Equal(t, []int{1, 2, 3}, f.pageNumbers())
}

func TestPaginatorStopsOnFetchFailure(t *testing.T) {
	f := &fakePages{
		pages: pagesOf(2, numbered(1, 6)...),
		errs:  map[int]error{2: errors.New("unexpected status code: 503")},
	}
	p, clk := newTestPaginator(f)

	got := p.FetchAll(context.Background(), Query{PageSize: 2})

	assert.Equal(t, []string{"1", "2"}, ids(got))
	assert.Equal(t, []int{1, 2}, f.pageNumbers())
	assert.Len(t, clk.Sleeps(), 2)
}

func TestPaginatorFailureOnFirstPage(t *testing.T) {
	f := &fakePages{errs: map[int]error{1: errors.New("connection refused")}}
	p, _ := newTestPaginator(f)

	assert.Empty(t, p.FetchAll(context.Background(), Query{}))
}

func TestPaginatorMaxPages(t *testing.T) {
	f := &fakePages{pages: pagesOf(2, numbered(1, 10)...)}
	p, _ := newTestPaginator(f)

	got := p.FetchAll(context.Background(), Query{PageSize: 2, MaxPages: 2})

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(got))
	assert.Equal(t, []int{1, 2}, f.pageNumbers())
}

func TestPaginatorPassesQuery(t *testing.T) {
	f := &fakePages{}
	p, _ := newTestPaginator(f)

	p.FetchAll(context.Background(), Query{DocumentType: "maarus", AsOfDate: "2024-01-01"})

	require.Len(t, f.calls, 1)
	assert.Equal(t, PageQuery{DocumentType: "maarus", AsOfDate: "2024-01-01", Page: 1, PageSize: DefaultPageSize}, f.calls[0])
}

func TestPaginatorIsRestartable(t *testing.T) {
	f := &fakePages{pages: pagesOf(2, numbered(1, 3)...)}
	p, _ := newTestPaginator(f)
	seq := p.Acts(context.Background(), Query{PageSize: 2})

	var first, second []string
	for c := range seq {
		first = append(first, c.UniqueID())
	}
	for c := range seq {
		second = append(second, c.UniqueID())
	}

	assert.Equal(t, []string{"1", "2", "3"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, []int{1, 2, 1, 2}, f.pageNumbers())
}

func TestPaginatorIsLazy(t *testing.T) {
	f := &fakePages{pages: pagesOf(2, numbered(1, 10)...)}
	p, _ := newTestPaginator(f)

	got := 0
	for range Limit(p.Acts(context.Background(), Query{PageSize: 2}), 3) {
		got++
	}

	assert.Equal(t, 3, got)
	assert.Equal(t, []int{1, 2}, f.pageNumbers())
}

func TestPaginatorStopsWhenCancelled(t *testing.T) {
	f := &fakePages{pages: pagesOf(2, numbered(1, 10)...)}
	p, _ := newTestPaginator(f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	for c := range p.Acts(ctx, Query{PageSize: 2}) {
		got = append(got, c.UniqueID())
		cancel()
	}

	assert.Equal(t, []string{"1", "2"}, got)
	assert.Equal(t, []int{1}, f.pageNumbers())
}

func TestLimit(t *testing.T) {
	seq := func(yield func(int) bool) {
		for i := 1; i <= 5; i++ {
			if !yield(i) {
				return
			}
		}
	}

	collect := func(n int) []int {
		var out []int
		for v := range Limit(seq, n) {
			out = append(out, v)
		}
		return out
	}

	assert.Equal(t, []int{1, 2}, collect(2))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, collect(0))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, collect(9))
}
