package kalshi

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/source"
)

// Getter is the HTTP surface the adapter needs. *api.Client implements it.
type Getter interface {
	// Get retries transient failures and falls back to the secondary host.
	Get(ctx context.Context, path string, query url.Values, result any) error
	// GetOnce makes a single attempt.
	GetOnce(ctx context.Context, path string, query url.Values, result any) error
}

// Options configures an Adapter.
type Options struct {
	PageSize      int // Listing page size (default 200, Kalshi max 1000)
	TradePageSize int // Trades page size (default 1000)
	MaxTradePages int // Cap per market (default 20)
	Logger        *slog.Logger
}

// Adapter implements source.Adapter for Kalshi.
type Adapter struct {
	client Getter
	opts   Options
	logger *slog.Logger
}

var _ source.Adapter = (*Adapter)(nil)

// New creates a Kalshi adapter.
func New(client Getter, opts Options) *Adapter {
	if opts.PageSize <= 0 {
		opts.PageSize = 200
	}
	if opts.TradePageSize <= 0 {
		opts.TradePageSize = 1000
	}
	if opts.MaxTradePages <= 0 {
		opts.MaxTradePages = 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		client: client,
		opts:   opts,
		logger: logger.With("source", model.SourceKalshi),
	}
}

func (a *Adapter) Source() model.Source { return model.SourceKalshi }

// ListEvents fetches open events keyed by event ticker.
func (a *Adapter) ListEvents(ctx context.Context, stats *source.PageStats) map[string]source.RawEvent {
	events := make(map[string]source.RawEvent)
	pager := source.Pager[apiEvent]{
		Name:   "kalshi events",
		Key:    func(e apiEvent) string { return e.EventTicker },
		Logger: a.logger,
		Fetch: func(ctx context.Context, cursor string) (source.Page[apiEvent], error) {
			var resp eventsResponse
			if err := a.client.Get(ctx, "/events", a.listQuery(cursor), &resp); err != nil {
				return source.Page[apiEvent]{}, fmt.Errorf("get events: %w", err)
			}
			return source.DecodeRecords[apiEvent](resp.Events, resp.Cursor), nil
		},
	}

	for e := range source.Paginate(ctx, pager, stats) {
		if e.EventTicker == "" {
			continue
		}
		title := e.Title
		if title == "" {
			title = e.EventTicker
		}
		var tags []string
		if e.Category != "" {
			tags = append(tags, e.Category)
		}
		events[e.EventTicker] = source.RawEvent{Key: e.EventTicker, Title: title, Tags: tags}
	}
	return events
}

// ListMarkets lazily pages through open markets.
func (a *Adapter) ListMarkets(ctx context.Context, stats *source.PageStats) iter.Seq[source.RawMarket] {
	pager := source.Pager[apiMarket]{
		Name:   "kalshi markets",
		Key:    func(m apiMarket) string { return m.Ticker },
		Logger: a.logger,
		Fetch: func(ctx context.Context, cursor string) (source.Page[apiMarket], error) {
			var resp marketsResponse
			if err := a.client.Get(ctx, "/markets", a.listQuery(cursor), &resp); err != nil {
				return source.Page[apiMarket]{}, fmt.Errorf("get markets: %w", err)
			}
			return source.DecodeRecords[apiMarket](resp.Markets, resp.Cursor), nil
		},
	}

	return func(yield func(source.RawMarket) bool) {
		for m := range source.Paginate(ctx, pager, stats) {
			if !yield(Market{m: m}) {
				return
			}
		}
	}
}

// FetchTradeTape returns the trades for ticker executed at or after since.
// Each page is a single attempt; any failed page fails the whole tape.
func (a *Adapter) FetchTradeTape(ctx context.Context, ticker string, since time.Time) ([]model.TradeTapeEntry, error) {
	pager := source.Pager[apiTrade]{
		Name:     "kalshi trades",
		Key:      func(t apiTrade) string { return t.TradeID },
		MaxPages: a.opts.MaxTradePages,
		Logger:   a.logger,
		Fetch: func(ctx context.Context, cursor string) (source.Page[apiTrade], error) {
			query := url.Values{}
			query.Set("ticker", ticker)
			query.Set("min_ts", strconv.FormatInt(since.Unix(), 10))
			query.Set("limit", strconv.Itoa(a.opts.TradePageSize))
			if cursor != "" {
				query.Set("cursor", cursor)
			}
			var resp tradesResponse
			if err := a.client.GetOnce(ctx, "/markets/trades", query, &resp); err != nil {
				return source.Page[apiTrade]{}, fmt.Errorf("get trades %s: %w", ticker, err)
			}
			return source.DecodeRecords[apiTrade](resp.Trades, resp.Cursor), nil
		},
	}

	var stats source.PageStats
	var tape []model.TradeTapeEntry
	for tr := range source.Paginate(ctx, pager, &stats) {
		ts := source.ParseTime(tr.CreatedTime)
		if ts == nil || tr.Count == nil {
			continue
		}
		var price float64
		switch {
		case tr.YesPriceDollars != nil:
			price = tr.YesPriceDollars.Value()
		case tr.YesPrice != nil:
			price = tr.YesPrice.Value() / 100
		default:
			continue
		}
		tape = append(tape, model.TradeTapeEntry{
			Timestamp: *ts,
			Size:      tr.Count.Value(),
			Price:     price,
		})
	}
	if stats.Truncated {
		return nil, stats.Err
	}
	return tape, nil
}

func (a *Adapter) listQuery(cursor string) url.Values {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(a.opts.PageSize))
	query.Set("status", "open")
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	return query
}
