package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/model"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func entry(ago time.Duration, size, price float64) model.TradeTapeEntry {
	return model.TradeTapeEntry{Timestamp: now.Add(-ago), Size: size, Price: price}
}

func TestCompute_CentsTape(t *testing.T) {
	tape := []model.TradeTapeEntry{
		entry(time.Hour, 10, 45),
		entry(2*time.Hour, 5, 50),
	}

	s := Compute(tape, now)
	if s.ContractVolume != 15 {
		t.Errorf("ContractVolume = %v, want 15", s.ContractVolume)
	}
	if s.DollarVolume != 7.0 {
		t.Errorf("DollarVolume = %v, want 7.0", s.DollarVolume)
	}
	if s.VWAP == nil || *s.VWAP != 0.4667 {
		t.Errorf("VWAP = %v, want 0.4667", s.VWAP)
	}
	if s.Trades != 2 || s.Dropped != 0 {
		t.Errorf("Trades/Dropped = %d/%d, want 2/0", s.Trades, s.Dropped)
	}
}

func TestCompute_Guards(t *testing.T) {
	tests := []struct {
		name     string
		tape     []model.TradeTapeEntry
		contract float64
		dollar   float64
		vwap     *float64
		dropped  int
	}{
		{
			name:     "empty tape",
			tape:     nil,
			contract: 0, dollar: 0, vwap: nil,
		},
		{
			name:     "fraction prices",
			tape:     []model.TradeTapeEntry{entry(time.Minute, 4, 0.25)},
			contract: 4, dollar: 1, vwap: ptr(0.25),
		},
		{
			name:     "outside window ignored",
			tape:     []model.TradeTapeEntry{entry(25*time.Hour, 100, 0.5), entry(23*time.Hour, 2, 0.5)},
			contract: 2, dollar: 1, vwap: ptr(0.5),
		},
		{
			name:     "exactly at cutoff counted",
			tape:     []model.TradeTapeEntry{entry(Window, 1, 0.5)},
			contract: 1, dollar: 0.5, vwap: ptr(0.5),
		},
		{
			name:     "bad entries dropped",
			tape:     []model.TradeTapeEntry{entry(time.Minute, 0, 0.5), entry(time.Minute, -3, 0.5), entry(time.Minute, 1, 250), entry(time.Minute, 1, -0.2)},
			contract: 0, dollar: 0, vwap: nil, dropped: 4,
		},
		{
			name:     "infinite size dropped",
			tape:     []model.TradeTapeEntry{entry(time.Minute, math.Inf(1), 0.5), entry(time.Minute, 2, 0.5)},
			contract: 2, dollar: 1, vwap: ptr(0.5), dropped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.tape, now)
			if s.ContractVolume != tt.contract || s.DollarVolume != tt.dollar {
				t.Errorf("volumes = %v/%v, want %v/%v", s.ContractVolume, s.DollarVolume, tt.contract, tt.dollar)
			}
			if (s.VWAP == nil) != (tt.vwap == nil) || (s.VWAP != nil && *s.VWAP != *tt.vwap) {
				t.Errorf("VWAP = %v, want %v", s.VWAP, tt.vwap)
			}
			if (s.VWAP == nil) != (s.ContractVolume == 0) {
				t.Error("VWAP must be nil iff contract volume is zero")
			}
			if s.ContractVolume < 0 || s.DollarVolume < 0 {
				t.Error("volumes must be non-negative")
			}
			if s.Dropped != tt.dropped {
				t.Errorf("Dropped = %d, want %d", s.Dropped, tt.dropped)
			}
		})
	}
}

type fakeFetcher struct {
	mu    sync.Mutex
	tapes map[string][]model.TradeTapeEntry
	errs  map[string]error
	since []time.Time
}

func (f *fakeFetcher) FetchTradeTape(ctx context.Context, id string, since time.Time) ([]model.TradeTapeEntry, error) {
	f.mu.Lock()
	f.since = append(f.since, since)
	f.mu.Unlock()
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.tapes[id], nil
}

func TestAggregate24h(t *testing.T) {
	f := &fakeFetcher{
		tapes: map[string][]model.TradeTapeEntry{"ok": {entry(time.Hour, 10, 0.45), entry(time.Hour, 5, 0.5)}},
		errs: map[string]error{
			"gone": fmt.Errorf("get trades gone: %w", &api.APIError{StatusCode: 404}),
			"slow": context.DeadlineExceeded,
		},
	}
	a := New(f, WithClock(func() time.Time { return now }), WithTimeout(time.Second))

	s, err := a.Aggregate24h(context.Background(), "ok")
	if err != nil || s.ContractVolume != 15 || s.DollarVolume != 7 {
		t.Errorf("ok = %+v, %v", s, err)
	}
	if len(f.since) != 1 || !f.since[0].Equal(now.Add(-24*time.Hour)) {
		t.Errorf("since = %v, want %v", f.since, now.Add(-24*time.Hour))
	}

	s, err = a.Aggregate24h(context.Background(), "gone")
	if err != nil {
		t.Errorf("not found should not be an error, got %v", err)
	}
	if s.ContractVolume != 0 || s.DollarVolume != 0 || s.VWAP != nil {
		t.Errorf("not found = %+v, want zero", s)
	}

	s, err = a.Aggregate24h(context.Background(), "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if s.ContractVolume != 0 || s.VWAP != nil {
		t.Errorf("failed = %+v, want zero", s)
	}
}

func TestAggregate24hAll(t *testing.T) {
	f := &fakeFetcher{
		tapes: map[string][]model.TradeTapeEntry{
			"a": {entry(time.Hour, 1, 0.5)},
			"b": {entry(time.Hour, 2, 0.5)},
		},
		errs: map[string]error{"c": errors.New("connection reset")},
	}
	a := New(f, WithClock(func() time.Time { return now }))

	res := a.Aggregate24hAll(context.Background(), []string{"a", "b", "c"}, 2)
	if len(res) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(res))
	}
	if res["a"].Value.ContractVolume != 1 || res["b"].Value.ContractVolume != 2 {
		t.Errorf("results = %+v", res)
	}
	if res["c"].Err == nil {
		t.Error("results[c] should carry its error")
	}
	if res["c"].Value.VWAP != nil {
		t.Error("failed market should have zero stats")
	}
}

func TestEstimate(t *testing.T) {
	s := Estimate(ptr(0.4), 1000)
	if !s.Estimated || s.DollarVolume != 400 {
		t.Errorf("Estimate = %+v, want 400 estimated", s)
	}
	if s.VWAP != nil || s.ContractVolume != 0 {
		t.Errorf("estimate must not invent trades: %+v", s)
	}
	if e := Estimate(nil, 1000); e.Estimated {
		t.Error("no price, no estimate")
	}
	if e := Estimate(ptr(0.4), 0); e.Estimated {
		t.Error("no volume, no estimate")
	}
}

func ptr(v float64) *float64 { return &v }
