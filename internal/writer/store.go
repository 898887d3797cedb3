package writer

import (
	"context"
	"time"

	"github.com/rickgao/market-pulse/pkg/hashset"
)

// MarketIndex reports the market IDs already present in the markets table.
type MarketIndex interface {
	KnownMarketIDs(ctx context.Context) (hashset.Set[string], error)
}

// PriceHistory looks up the price of the latest stored snapshot of a market
// taken strictly before a given time. A nil price means none exists.
type PriceHistory interface {
	PriceBefore(ctx context.Context, marketID string, before time.Time) (*float64, error)
}

// Store is a sink that can also answer lookups against persisted state.
type Store interface {
	Sink
	MarketIndex
	PriceHistory
}
