package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jjenkins/rtharvest/internal/clock"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/model"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "rtharvest"

// Stored metric names.
const (
	MetricTotalActs    = "total_acts"
	MetricWithPlain    = "acts_with_plain_text"
	MetricWithMarkup   = "acts_with_markup"
	metricStatusPrefix = "acts_status_"
)

// ArchiveStats summarises the contents of the act store
type ArchiveStats struct {
	TotalActs  int
	WithPlain  int
	WithMarkup int
	ByStatus   map[model.Status]int
}

// MetricsService calculates and stores archive-wide metrics
type MetricsService struct {
	acts    *store.ActStore
	metrics *store.MetricStore
	clock   clock.Clock
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(acts *store.ActStore, metrics *store.MetricStore, clk clock.Clock) *MetricsService {
	return &MetricsService{acts: acts, metrics: metrics, clock: clk}
}

// Calculate reads the current archive statistics
func (m *MetricsService) Calculate(ctx context.Context) (*ArchiveStats, error) {
	byStatus, err := m.acts.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ArchiveStats{ByStatus: byStatus}
	for _, n := range byStatus {
		stats.TotalActs += n
	}

	stats.WithPlain, stats.WithMarkup, err = m.acts.TextCoverage(ctx)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// CalculateAndStore calculates archive statistics and stores them
func (m *MetricsService) CalculateAndStore(ctx context.Context) (*ArchiveStats, error) {
	stats, err := m.Calculate(ctx)
	if err != nil {
		return nil, err
	}

	values := map[string]string{
		MetricTotalActs:  strconv.Itoa(stats.TotalActs),
		MetricWithPlain:  strconv.Itoa(stats.WithPlain),
		MetricWithMarkup: strconv.Itoa(stats.WithMarkup),
	}
	for status, n := range stats.ByStatus {
		values[StatusMetricName(status)] = strconv.Itoa(n)
	}

	if err := m.metrics.Store(ctx, values, m.clock.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to store archive metrics: %w", err)
	}
	return stats, nil
}

// GetLatestMetrics retrieves the most recently stored archive metrics
func (m *MetricsService) GetLatestMetrics(ctx context.Context) (map[string]string, error) {
	return m.metrics.Latest(ctx)
}

// StatusMetricName is the stored metric name for the act count of status.
func StatusMetricName(status model.Status) string {
	return metricStatusPrefix + string(status)
}

// HarvestMetrics holds the Prometheus metrics of harvest runs. A nil
// *HarvestMetrics records nothing.
type HarvestMetrics struct {
	registry *prometheus.Registry

	ActsTotal       *prometheus.CounterVec
	LastRunActs     *prometheus.GaugeVec
	LastRunDuration prometheus.Gauge
	LastRunFinished prometheus.Gauge
}

// NewHarvestMetrics creates harvest metrics on a dedicated registry.
func NewHarvestMetrics() *HarvestMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &HarvestMetrics{
		registry: reg,
		ActsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "harvest",
				Name:      "acts_total",
				Help:      "Acts processed, by outcome",
			},
			[]string{"outcome"},
		),
		LastRunActs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "harvest",
				Name:      "last_run_acts",
				Help:      "Acts handled by the last harvest run, by outcome",
			},
			[]string{"outcome"},
		),
		LastRunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "harvest",
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last harvest run",
		}),
		LastRunFinished: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "harvest",
			Name:      "last_run_finished_timestamp_seconds",
			Help:      "Unix time the last harvest run finished",
		}),
	}
}

// Observe counts one candidate outcome.
func (m *HarvestMetrics) Observe(o Outcome) {
	if m == nil {
		return
	}
	m.ActsTotal.WithLabelValues(string(o.State)).Inc()
}

// Finish records the totals of a completed run.
func (m *HarvestMetrics) Finish(s *RunSummary, elapsed time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.LastRunActs.WithLabelValues(string(StateInserted)).Set(float64(s.Inserted))
	m.LastRunActs.WithLabelValues(string(StateUpdated)).Set(float64(s.Updated))
	m.LastRunActs.WithLabelValues(string(StateSkipped)).Set(float64(s.Skipped))
	m.LastRunActs.WithLabelValues(string(StateErrored)).Set(float64(s.Errored))
	m.LastRunDuration.Set(elapsed.Seconds())
	m.LastRunFinished.Set(float64(finished.Unix()))
}

// Registry exposes the registry the harvest metrics live on.
func (m *HarvestMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (m *HarvestMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}

// ArchiveCollector exports live act counts by status on every scrape.
type ArchiveCollector struct {
	acts    *store.ActStore
	log     logger.Logger
	timeout time.Duration

	actsDesc  *prometheus.Desc
	textsDesc *prometheus.Desc
}

// NewArchiveCollector creates a collector reading from acts.
func NewArchiveCollector(acts *store.ActStore, log logger.Logger) *ArchiveCollector {
	return &ArchiveCollector{
		acts:    acts,
		log:     log,
		timeout: 5 * time.Second,
		actsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "archive", "acts"),
			"Stored acts, by status",
			[]string{"status"}, nil,
		),
		textsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "archive", "acts_with_text"),
			"Stored acts with a text field present, by field",
			[]string{"field"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *ArchiveCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.actsDesc
	ch <- c.textsDesc
}

// Collect implements prometheus.Collector.
func (c *ArchiveCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts, err := c.acts.CountByStatus(ctx)
	if err != nil {
		c.log.Error("Failed to collect archive metrics", logger.Error(err))
		return
	}
	for _, status := range model.Statuses {
		ch <- prometheus.MustNewConstMetric(c.actsDesc, prometheus.GaugeValue, float64(counts[status]), string(status))
	}

	plain, markup, err := c.acts.TextCoverage(ctx)
	if err != nil {
		c.log.Error("Failed to collect archive metrics", logger.Error(err))
		return
	}
	ch <- prometheus.MustNewConstMetric(c.textsDesc, prometheus.GaugeValue, float64(plain), "plain")
	ch <- prometheus.MustNewConstMetric(c.textsDesc, prometheus.GaugeValue, float64(markup), "markup")
}
