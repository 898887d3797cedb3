// Package aggregate derives 24h contract volume, dollar volume and VWAP from
// provider trade tapes.
package aggregate

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/normalize"
	"github.com/rickgao/market-pulse/internal/source"
	"github.com/rickgao/market-pulse/internal/taskgroup"
)

// Window is the trailing period the statistics cover.
const Window = 24 * time.Hour

// Stats are the trailing-window trade statistics for one market.
type Stats struct {
	ContractVolume float64
	DollarVolume   float64  // Rounded to cents
	VWAP           *float64 // Rounded to 4 places, nil iff ContractVolume == 0
	Trades         int      // Entries counted
	Dropped        int      // Entries rejected by the unit/size guard
	Estimated      bool     // DollarVolume is last_price x volume, not from trades
}

// TapeFetcher fetches a market's trade tape. source.Adapter implements it.
type TapeFetcher interface {
	FetchTradeTape(ctx context.Context, marketID string, since time.Time) ([]model.TradeTapeEntry, error)
}

// Compute aggregates the entries of tape executed at or after now-Window.
// Prices above 1 are read as cents; entries outside [0, 1] after conversion
// or with a non-positive or infinite size are dropped.
func Compute(tape []model.TradeTapeEntry, now time.Time) Stats {
	cutoff := now.Add(-Window)
	var s Stats
	for _, e := range tape {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		price, ok := normalize.Fraction(e.Price, source.UnitUnknown)
		if !ok || !(e.Size > 0) || math.IsInf(e.Size, 0) {
			s.Dropped++
			continue
		}
		s.Trades++
		s.ContractVolume += e.Size
		s.DollarVolume += e.Size * price
	}
	if s.ContractVolume > 0 {
		vwap := normalize.Round(s.DollarVolume/s.ContractVolume, 4)
		s.VWAP = &vwap
	}
	s.DollarVolume = normalize.Round(s.DollarVolume, 2)
	return s
}

// Aggregator fetches and aggregates trade tapes.
type Aggregator struct {
	fetcher TapeFetcher
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout bounds each market's fetch.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.timeout = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// New creates an Aggregator over fetcher.
func New(fetcher TapeFetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetcher: fetcher,
		timeout: 20 * time.Second,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate24h fetches and aggregates one market's tape. A market the
// provider reports as not found has no trades: zero stats and a nil error.
// Other failures return zero stats with the error.
func (a *Aggregator) Aggregate24h(ctx context.Context, marketID string) (Stats, error) {
	now := a.now()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	tape, err := a.fetcher.FetchTradeTape(ctx, marketID, now.Add(-Window))
	if err != nil {
		if api.IsNotFound(err) {
			return Stats{}, nil
		}
		return Stats{}, err
	}

	s := Compute(tape, now)
	if s.Dropped > 0 {
		a.logger.Debug("dropped trade tape entries", "market_id", marketID, "dropped", s.Dropped)
	}
	return s, nil
}

// Aggregate24hAll aggregates every market with at most concurrency fetches
// in flight. Each market's error is reported alongside its zero stats and
// never affects the others.
func (a *Aggregator) Aggregate24hAll(ctx context.Context, marketIDs []string, concurrency int) map[string]taskgroup.Result[Stats] {
	return taskgroup.Run(ctx, marketIDs, concurrency, a.Aggregate24h)
}

// Estimate approximates dollar volume as lastPrice x volume when no trades
// were observed.
func Estimate(lastPrice *float64, volume float64) Stats {
	if lastPrice == nil || volume <= 0 {
		return Stats{}
	}
	return Stats{
		DollarVolume: normalize.Round(*lastPrice*volume, 2),
		Estimated:    true,
	}
}
