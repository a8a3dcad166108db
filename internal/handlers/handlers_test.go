package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/config"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/model"
	"github.com/jjenkins/rtharvest/internal/service"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seededAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	app  *fiber.App
	acts *store.ActStore
	runs *store.RunStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(context.Background(), config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		Dir:      t.TempDir(),
		Filename: "ui.sqlite",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		app:  fiber.New(),
		acts: store.NewActStore(db),
		runs: store.NewRunStore(db),
	}
	Register(f.app, Deps{
		Acts:    f.acts,
		Runs:    f.runs,
		Metrics: service.NewMetricsService(f.acts, store.NewMetricStore(db), clock.NewFake(seededAt)),
		Log:     logger.NewNop(),
	})
	return f
}

func (f *fixture) seed(t *testing.T, acts ...model.Act) {
	t.Helper()
	ctx := context.Background()
	sess, err := f.acts.Begin(ctx)
	require.NoError(t, err)
	for i := range acts {
		acts[i].RetrievedAt = seededAt
		acts[i].LastCheckedAt = seededAt
		_, err := sess.InsertIfAbsent(ctx, &acts[i])
		require.NoError(t, err)
	}
	require.NoError(t, sess.Commit())
}

func (f *fixture) get(t *testing.T, target string, headers ...string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHomeWithoutData(t *testing.T) {
	f := newFixture(t)

	code, body := f.get(t, "/")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, "No acts have been harvested yet")
}

func TestHomeShowsCounts(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		model.Act{UniqueID: "1", Title: "Alpha", Status: model.StatusValid, TextPlain: model.NullString("text")},
		model.Act{UniqueID: "2", Title: "Beta", Status: model.StatusExpired},
	)
	require.NoError(t, f.runs.Create(context.Background(), &model.HarvestRun{
		ID: "run-1", DocumentType: "seadus", AsOfDate: "2024-05-01", StartedAt: seededAt,
	}))

	code, body := f.get(t, "/")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, `<tr><th>Acts</th><td>2</td></tr>`)
	assert.Contains(t, body, `<tr><th>With plain text</th><td>1</td></tr>`)
	assert.Contains(t, body, "Last harvest")
}

func TestActsListing(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		model.Act{UniqueID: "1", Title: "Alpha", Status: model.StatusValid},
		model.Act{UniqueID: "2", Title: "Beta <b>", Status: model.StatusExpired},
	)

	code, body := f.get(t, "/acts")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, "<html")
	assert.Contains(t, body, `<a href="/acts/1">1</a>`)
	assert.Contains(t, body, "Beta &lt;b&gt;")

	code, body = f.get(t, "/acts?status=VALID")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, "Alpha")
	assert.NotContains(t, body, "Beta")
}

func TestActsTableBodyForHTMX(t *testing.T) {
	f := newFixture(t)
	f.seed(t, model.Act{UniqueID: "1", Title: "Alpha", Status: model.StatusValid})

	code, body := f.get(t, "/acts?sort=id&order=desc", "HX-Request", "true")
	assert.Equal(t, fiber.StatusOK, code)
	assert.NotContains(t, body, "<html")
	assert.Contains(t, body, `<tbody id="acts-body">`)
	assert.Contains(t, body, "Alpha")
}

func TestActDetail(t *testing.T) {
	f := newFixture(t)
	f.seed(t, model.Act{
		UniqueID:  "42",
		Title:     "Answer Act",
		Status:    model.StatusPendingValidity,
		TextPlain: model.NullString("§ 1. Everything."),
		SourceURL: model.NullString("https://www.riigiteataja.ee/akt/42"),
	})

	code, body := f.get(t, "/acts/42")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, "Answer Act")
	assert.Contains(t, body, "§ 1. Everything.")
	assert.Contains(t, body, "https://www.riigiteataja.ee/akt/42")

	code, _ = f.get(t, "/acts/missing")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestRuns(t *testing.T) {
	f := newFixture(t)

	_, body := f.get(t, "/runs")
	assert.Contains(t, body, "No harvest runs recorded")

	require.NoError(t, f.runs.Create(context.Background(), &model.HarvestRun{
		ID: "run-1", DocumentType: "määrus", AsOfDate: "2024-05-01", StartedAt: seededAt,
	}))
	code, body := f.get(t, "/runs")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, "määrus")
	assert.Contains(t, body, "running")
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seed(t, model.Act{UniqueID: "1", Title: "Alpha", Status: model.StatusValid})

	code, body := f.get(t, "/metrics")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, `rtharvest_archive_acts{status="VALID"} 1`)
	assert.Contains(t, body, `rtharvest_archive_acts_with_text{field="plain"} 0`)
}
