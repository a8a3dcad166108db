package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/model"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCalculateAndStore(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	acts := store.NewActStore(db)

	seedAct(t, acts, "1", ptr("a"), ptr("<a/>"), epoch)
	seedAct(t, acts, "2", ptr("b"), nil, epoch)
	seedAct(t, acts, "3", nil, nil, epoch)

	m := NewMetricsService(acts, store.NewMetricStore(db), clock.NewFake(epoch))
	stats, err := m.CalculateAndStore(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalActs)
	assert.Equal(t, 2, stats.WithPlain)
	assert.Equal(t, 1, stats.WithMarkup)
	assert.Equal(t, 3, stats.ByStatus[model.StatusUnknown])

	latest, err := m.GetLatestMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", latest[MetricTotalActs])
	assert.Equal(t, "2", latest[MetricWithPlain])
	assert.Equal(t, "1", latest[MetricWithMarkup])
	assert.Equal(t, "0", latest[StatusMetricName(model.StatusValid)])
}

func TestHarvestMetricsTextfile(t *testing.T) {
	m := NewHarvestMetrics()
	m.Observe(Outcome{State: StateInserted})
	m.Observe(Outcome{State: StateInserted})
	m.Observe(Outcome{State: StateSkipped})
	m.Finish(&RunSummary{Processed: 3, Inserted: 2, Skipped: 1}, 90*time.Second, epoch)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ActsTotal.WithLabelValues("inserted")))
	assert.Equal(t, float64(90), testutil.ToFloat64(m.LastRunDuration))

	path := filepath.Join(t.TempDir(), "rtharvest.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `rtharvest_harvest_acts_total{outcome="inserted"} 2`), text)
	assert.True(t, strings.Contains(text, `rtharvest_harvest_last_run_acts{outcome="skipped"} 1`), text)
}

func TestNilHarvestMetricsIsNoop(t *testing.T) {
	var m *HarvestMetrics
	assert.NotPanics(t, func() {
		m.Observe(Outcome{State: StateInserted})
		m.Finish(&RunSummary{}, time.Second, epoch)
	})
}

func TestArchiveCollector(t *testing.T) {
	db := openTestStore(t)
	acts := store.NewActStore(db)
	seedAct(t, acts, "1", ptr("a"), nil, epoch)

	c := NewArchiveCollector(acts, logger.NewNop())

	// One series per status plus plain and markup coverage.
	assert.Equal(t, len(model.Statuses)+2, testutil.CollectAndCount(c))

	expected := `
# HELP rtharvest_archive_acts_with_text Stored acts with a text field present, by field
# TYPE rtharvest_archive_acts_with_text gauge
rtharvest_archive_acts_with_text{field="markup"} 0
rtharvest_archive_acts_with_text{field="plain"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "rtharvest_archive_acts_with_text"))
}
