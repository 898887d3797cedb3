package source

import (
	"context"
	"iter"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
)

// Adapter is one upstream provider.
type Adapter interface {
	// Source names the provider.
	Source() model.Source

	// ListEvents returns every event keyed by event key. Pagination failures
	// truncate the listing and are reported in stats.
	ListEvents(ctx context.Context, stats *PageStats) map[string]RawEvent

	// ListMarkets lazily yields all listed markets. Each call restarts from
	// the first page.
	ListMarkets(ctx context.Context, stats *PageStats) iter.Seq[RawMarket]

	// FetchTradeTape returns trades for one market executed at or after since.
	// A market without a tape yields an error satisfying api.IsNotFound.
	FetchTradeTape(ctx context.Context, marketID string, since time.Time) ([]model.TradeTapeEntry, error)
}

// RawEvent is a provider event reduced to what enrichment needs.
type RawEvent struct {
	Key   string
	Title string
	Tags  []string
}

// Unit tells the normalizer how a provider expresses prices.
type Unit int

const (
	// UnitUnknown means the scale is inferred from magnitude.
	UnitUnknown Unit = iota
	// UnitCents is 0..100.
	UnitCents
	// UnitFraction is 0..1.
	UnitFraction
)

// PriceFields holds the price inputs a provider offers for a market. Nil
// fields were absent upstream.
type PriceFields struct {
	YesBid *float64
	NoBid  *float64
	Last   *float64
	Unit   Unit
}

// OutcomeQuote is one named outcome token as listed upstream.
type OutcomeQuote struct {
	Name   string
	Price  float64
	Volume *float64
}

// RawMarket is the capability set every provider market implements.
type RawMarket interface {
	ID() string
	Name() string
	Description() string
	EventKey() string
	Prices() PriceFields
	Outcomes() []OutcomeQuote
	Expiration() *time.Time

	// Status maps the provider status; ok is false when the provider gave
	// none or an unrecognized value.
	Status() (status model.Status, ok bool)

	Tags() []string
	Volume() float64
	Liquidity() *float64
}
