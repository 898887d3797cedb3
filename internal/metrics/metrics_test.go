package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.MarketsFetched("kalshi", 120)
	r.MarketsFetched("kalshi", 5)
	r.MarketSkipped("polymarket", "missing_id")
	r.MarketSkipped("polymarket", "missing_id")
	r.Listing("kalshi markets", 3, false)
	r.Listing("kalshi markets", 2, true)
	r.AggregationFailures("kalshi", 4)
	r.Table("market_snapshots", 190, 10, 2)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"fetched", testutil.ToFloat64(r.marketsFetched.WithLabelValues("kalshi")), 125},
		{"skipped", testutil.ToFloat64(r.marketsSkipped.WithLabelValues("polymarket", "missing_id")), 2},
		{"pages", testutil.ToFloat64(r.pages.WithLabelValues("kalshi markets")), 5},
		{"truncations", testutil.ToFloat64(r.truncations.WithLabelValues("kalshi markets")), 1},
		{"agg failures", testutil.ToFloat64(r.aggFailures.WithLabelValues("kalshi")), 4},
		{"written", testutil.ToFloat64(r.rowsWritten.WithLabelValues("market_snapshots")), 190},
		{"failed", testutil.ToFloat64(r.rowsFailed.WithLabelValues("market_snapshots")), 10},
		{"rows skipped", testutil.ToFloat64(r.rowsSkipped.WithLabelValues("market_snapshots")), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestRecorder_RunFinished(t *testing.T) {
	r := New()
	at := time.Unix(1700000000, 0)
	r.RunFinished(1500*time.Millisecond, at)

	if got := testutil.ToFloat64(r.runDuration); got != 1.5 {
		t.Errorf("run duration = %v, want 1.5", got)
	}
	if got := testutil.ToFloat64(r.lastSuccess); got != 1700000000 {
		t.Errorf("last run = %v, want 1700000000", got)
	}
}

func TestRecorder_Registry(t *testing.T) {
	r := New()
	r.MarketsFetched("polymarket", 1)

	const want = `
# HELP market_pulse_markets_fetched_total Raw markets read from upstream listings
# TYPE market_pulse_markets_fetched_total counter
market_pulse_markets_fetched_total{source="polymarket"} 1
`
	if err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(want), "market_pulse_markets_fetched_total"); err != nil {
		t.Error(err)
	}
}

func TestRecorder_Push(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := New()
	r.Table("markets", 3, 0, 0)
	if err := r.Push(context.Background(), server.URL, "market_pulse", map[string]string{"instance": "test"}); err != nil {
		t.Fatalf("Push() error: %v", err)
	}
	if gotPath != "/metrics/job/market_pulse/instance/test" {
		t.Errorf("path = %s", gotPath)
	}
	if !strings.Contains(gotBody, "rows_written_total") {
		t.Error("pushed body is missing rows_written_total")
	}
}

func TestRecorder_PushError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := New().Push(context.Background(), server.URL, "job", nil); err == nil {
		t.Fatal("expected push error")
	}
}
