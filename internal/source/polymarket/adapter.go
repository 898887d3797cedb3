package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/source"
)

// Getter is the HTTP surface the adapter needs. *api.Client implements it.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values, result any) error
	GetOnce(ctx context.Context, path string, query url.Values, result any) error
}

// Options configures an Adapter.
type Options struct {
	PageSize      int // Gamma page size (default 500)
	TradePageSize int // Data API page size (default 500)
	MaxTradePages int // Cap per market (default 10)
	Logger        *slog.Logger
}

// Adapter implements source.Adapter for Polymarket.
type Adapter struct {
	gamma  Getter
	data   Getter
	opts   Options
	logger *slog.Logger
}

var _ source.Adapter = (*Adapter)(nil)

// New creates a Polymarket adapter. gamma serves listings and data serves
// trades.
func New(gamma, data Getter, opts Options) *Adapter {
	if opts.PageSize <= 0 {
		opts.PageSize = 500
	}
	if opts.TradePageSize <= 0 {
		opts.TradePageSize = 500
	}
	if opts.MaxTradePages <= 0 {
		opts.MaxTradePages = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		gamma:  gamma,
		data:   data,
		opts:   opts,
		logger: logger.With("source", model.SourcePolymarket),
	}
}

func (a *Adapter) Source() model.Source { return model.SourcePolymarket }

// ListEvents fetches active events keyed by Gamma event ID.
func (a *Adapter) ListEvents(ctx context.Context, stats *source.PageStats) map[string]source.RawEvent {
	pager := source.Pager[gammaEvent]{
		Name:   "polymarket events",
		Key:    func(e gammaEvent) string { return e.ID },
		Logger: a.logger,
		Fetch:  offsetFetch[gammaEvent](a.gamma, "/events", a.opts.PageSize),
	}

	events := make(map[string]source.RawEvent)
	for e := range source.Paginate(ctx, pager, stats) {
		if e.ID == "" {
			continue
		}
		title := e.Title
		if title == "" {
			title = e.Slug
		}
		tags := make([]string, 0, len(e.Tags)+1)
		for _, t := range e.Tags {
			if t.Label != "" {
				tags = append(tags, t.Label)
			}
		}
		if e.Category != "" {
			tags = append(tags, e.Category)
		}
		events[e.ID] = source.RawEvent{Key: e.ID, Title: title, Tags: tags}
	}
	return events
}

// ListMarkets lazily pages through active, unclosed markets.
func (a *Adapter) ListMarkets(ctx context.Context, stats *source.PageStats) iter.Seq[source.RawMarket] {
	pager := source.Pager[gammaMarket]{
		Name:   "polymarket markets",
		Key:    func(m gammaMarket) string { return Market{m: m}.ID() },
		Logger: a.logger,
		Fetch:  offsetFetch[gammaMarket](a.gamma, "/markets", a.opts.PageSize),
	}

	return func(yield func(source.RawMarket) bool) {
		for m := range source.Paginate(ctx, pager, stats) {
			if !yield(Market{m: m}) {
				return
			}
		}
	}
}

// offsetFetch pages a Gamma listing by limit/offset. The server may cap a
// page below limit, so the next offset advances by what was returned and
// only an empty page ends the listing.
func offsetFetch[T any](client Getter, path string, limit int) source.FetchFunc[T] {
	return func(ctx context.Context, cursor string) (source.Page[T], error) {
		offset := 0
		if cursor != "" {
			n, err := strconv.Atoi(cursor)
			if err != nil {
				return source.Page[T]{}, fmt.Errorf("bad offset cursor %q: %w", cursor, err)
			}
			offset = n
		}

		query := url.Values{}
		query.Set("limit", strconv.Itoa(limit))
		query.Set("offset", strconv.Itoa(offset))
		query.Set("active", "true")
		query.Set("closed", "false")

		var raw []json.RawMessage
		if err := client.Get(ctx, path, query, &raw); err != nil {
			return source.Page[T]{}, fmt.Errorf("get %s offset %d: %w", path, offset, err)
		}

		next := ""
		if len(raw) > 0 {
			next = strconv.Itoa(offset + len(raw))
		}
		return source.DecodeRecords[T](raw, next), nil
	}
}

// FetchTradeTape returns trades for conditionID executed at or after since.
// The Data API returns newest first, so paging stops at the first page that
// reaches past since.
func (a *Adapter) FetchTradeTape(ctx context.Context, conditionID string, since time.Time) ([]model.TradeTapeEntry, error) {
	limit := a.opts.TradePageSize
	pager := source.Pager[dataTrade]{
		Name:     "polymarket trades",
		Key:      tradeKey,
		MaxPages: a.opts.MaxTradePages,
		Logger:   a.logger,
		Fetch: func(ctx context.Context, cursor string) (source.Page[dataTrade], error) {
			offset, _ := strconv.Atoi(cursor)
			query := url.Values{}
			query.Set("market", conditionID)
			query.Set("limit", strconv.Itoa(limit))
			query.Set("offset", strconv.Itoa(offset))

			var raw []json.RawMessage
			if err := a.data.GetOnce(ctx, "/trades", query, &raw); err != nil {
				return source.Page[dataTrade]{}, fmt.Errorf("get trades %s: %w", conditionID, err)
			}

			page := source.DecodeRecords[dataTrade](raw, "")
			trades := page.Items
			if len(raw) >= limit && (len(trades) == 0 || trades[len(trades)-1].Timestamp >= since.Unix()) {
				page.Next = strconv.Itoa(offset + len(raw))
			}
			return page, nil
		},
	}

	var stats source.PageStats
	var tape []model.TradeTapeEntry
	for tr := range source.Paginate(ctx, pager, &stats) {
		if tr.Size == nil || tr.Price == nil || tr.Timestamp <= 0 {
			continue
		}
		ts := time.Unix(tr.Timestamp, 0).UTC()
		if ts.Before(since) {
			continue
		}
		tape = append(tape, model.TradeTapeEntry{
			Timestamp: ts,
			Size:      tr.Size.Value(),
			Price:     tr.Price.Value(),
		})
	}
	if stats.Truncated {
		return nil, stats.Err
	}
	return tape, nil
}

func tradeKey(t dataTrade) string {
	if t.TransactionHash == "" {
		return ""
	}
	return strings.Join([]string{
		t.TransactionHash,
		t.Asset,
		t.Side,
		strconv.FormatInt(t.Timestamp, 10),
		strconv.FormatFloat(t.Size.Value(), 'f', -1, 64),
		strconv.FormatFloat(t.Price.Value(), 'f', -1, 64),
	}, "|")
}
