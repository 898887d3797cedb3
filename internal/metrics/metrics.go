package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "market_pulse"

// Recorder holds the run metrics.
type Recorder struct {
	registry *prometheus.Registry

	marketsFetched *prometheus.CounterVec
	marketsSkipped *prometheus.CounterVec
	pages          *prometheus.CounterVec
	truncations    *prometheus.CounterVec
	aggFailures    *prometheus.CounterVec
	rowsWritten    *prometheus.CounterVec
	rowsFailed     *prometheus.CounterVec
	rowsSkipped    *prometheus.CounterVec
	runDuration    prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

// New creates a Recorder on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &Recorder{
		registry:       reg,
		marketsFetched: counter("markets_fetched_total", "Raw markets read from upstream listings", "source"),
		marketsSkipped: counter("markets_skipped_total", "Raw markets dropped during normalization", "source", "reason"),
		pages:          counter("listing_pages_total", "Upstream listing pages requested", "listing"),
		truncations:    counter("listing_truncations_total", "Listings ended early by a fetch error", "listing"),
		aggFailures:    counter("aggregation_failures_total", "Trade tape fetches that failed", "source"),
		rowsWritten:    counter("rows_written_total", "Rows committed to the store", "table"),
		rowsFailed:     counter("rows_failed_total", "Rows in chunks rejected by the store", "table"),
		rowsSkipped:    counter("rows_skipped_total", "Rows skipped for unknown parent markets", "table"),
		runDuration: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		lastSuccess: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Registry returns the registry holding all metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) MarketsFetched(source string, n int) {
	r.marketsFetched.WithLabelValues(source).Add(float64(n))
}

func (r *Recorder) MarketSkipped(source, reason string) {
	r.marketsSkipped.WithLabelValues(source, reason).Inc()
}

// Listing records the pages of one listing and whether it was truncated.
func (r *Recorder) Listing(name string, requests int, truncated bool) {
	r.pages.WithLabelValues(name).Add(float64(requests))
	if truncated {
		r.truncations.WithLabelValues(name).Inc()
	}
}

func (r *Recorder) AggregationFailures(source string, n int) {
	r.aggFailures.WithLabelValues(source).Add(float64(n))
}

// Table records the outcome of writing one table.
func (r *Recorder) Table(table string, written, failed, skipped int) {
	r.rowsWritten.WithLabelValues(table).Add(float64(written))
	r.rowsFailed.WithLabelValues(table).Add(float64(failed))
	r.rowsSkipped.WithLabelValues(table).Add(float64(skipped))
}

// RunFinished records the run duration and completion time.
func (r *Recorder) RunFinished(d time.Duration, at time.Time) {
	r.runDuration.Set(d.Seconds())
	r.lastSuccess.Set(float64(at.Unix()))
}

// Push sends every metric to a Pushgateway, replacing the job's group.
func (r *Recorder) Push(ctx context.Context, url, job string, groupings map[string]string) error {
	p := push.New(url, job).Gatherer(r.registry)
	for k, v := range groupings {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
