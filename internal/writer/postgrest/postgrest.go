// Package postgrest writes batches through a PostgREST (Supabase) endpoint.
package postgrest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/config"
	"github.com/rickgao/market-pulse/internal/source"
	"github.com/rickgao/market-pulse/internal/writer"
	"github.com/rickgao/market-pulse/pkg/hashset"
)

const (
	restPrefix = "/rest/v1/"

	preferInsert = "return=minimal"
	preferUpsert = "return=minimal,resolution=merge-duplicates"

	indexPageSize = 1000
)

// Client is the subset of api.Client the sink uses.
type Client interface {
	Get(ctx context.Context, path string, query url.Values, result any) error
	Post(ctx context.Context, path string, query url.Values, payload any, header http.Header) ([]byte, error)
}

// Store implements writer.Store over the PostgREST HTTP interface.
type Store struct {
	client Client
	logger *slog.Logger
}

// NewClient builds an api.Client authenticated with the service key.
func NewClient(cfg config.PostgRESTConfig, opts ...api.ClientOption) *api.Client {
	opts = append([]api.ClientOption{
		api.WithHeader("apikey", cfg.ServiceKey),
		api.WithTimeout(cfg.Timeout),
	}, opts...)
	return api.NewClient("postgrest", cfg.URL, cfg.ServiceKey, opts...)
}

// New creates a Store. A nil logger uses slog.Default().
func New(client Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger.With("sink", "postgrest")}
}

// Write posts one batch. Keyed batches are merged on the conflict column.
func (s *Store) Write(ctx context.Context, b writer.Batch) error {
	payload := make([]map[string]any, len(b.Rows))
	for i, r := range b.Rows {
		if len(r) != len(b.Columns) {
			return fmt.Errorf("%s row %d: %d values for %d columns", b.Table, i, len(r), len(b.Columns))
		}
		obj := make(map[string]any, len(b.Columns))
		for j, col := range b.Columns {
			obj[col] = r[j]
		}
		payload[i] = obj
	}

	query := url.Values{}
	header := http.Header{}
	header.Set("Prefer", preferInsert)
	if b.ConflictKey != "" {
		query.Set("on_conflict", b.ConflictKey)
		header.Set("Prefer", preferUpsert)
	}

	if _, err := s.client.Post(ctx, restPrefix+b.Table, query, payload, header); err != nil {
		return fmt.Errorf("post %s: %w", b.Table, err)
	}
	return nil
}

type marketIDRow struct {
	MarketID string `json:"market_id"`
}

// KnownMarketIDs pages through the markets table by offset.
func (s *Store) KnownMarketIDs(ctx context.Context) (hashset.Set[string], error) {
	pager := source.Pager[marketIDRow]{
		Name:   "known markets",
		Key:    func(r marketIDRow) string { return r.MarketID },
		Logger: s.logger,
		Fetch: func(ctx context.Context, cursor string) (source.Page[marketIDRow], error) {
			offset, _ := strconv.Atoi(cursor)
			query := url.Values{}
			query.Set("select", writer.ColumnMarketID)
			query.Set("order", writer.ColumnMarketID+".asc")
			query.Set("limit", strconv.Itoa(indexPageSize))
			query.Set("offset", strconv.Itoa(offset))

			var rows []marketIDRow
			if err := s.client.Get(ctx, restPrefix+writer.Markets.Name, query, &rows); err != nil {
				return source.Page[marketIDRow]{}, err
			}
			// max-rows may cap the page below limit; only an empty page ends it.
			page := source.Page[marketIDRow]{Items: rows}
			if len(rows) > 0 {
				page.Next = strconv.Itoa(offset + len(rows))
			}
			return page, nil
		},
	}

	var stats source.PageStats
	known := hashset.New[string]()
	for r := range source.Paginate(ctx, pager, &stats) {
		known.Set(r.MarketID)
	}
	if stats.Err != nil {
		return known, fmt.Errorf("list known markets: %w", stats.Err)
	}
	return known, nil
}

type priceRow struct {
	Price *float64 `json:"price"`
}

// PriceBefore returns the price of the newest snapshot older than before.
func (s *Store) PriceBefore(ctx context.Context, marketID string, before time.Time) (*float64, error) {
	query := url.Values{}
	query.Set("select", "price")
	query.Set(writer.ColumnMarketID, "eq."+marketID)
	query.Set("timestamp", "lt."+before.UTC().Format(time.RFC3339Nano))
	query.Set("price", "not.is.null")
	query.Set("order", "timestamp.desc")
	query.Set("limit", "1")

	var rows []priceRow
	if err := s.client.Get(ctx, restPrefix+writer.Snapshots.Name, query, &rows); err != nil {
		return nil, fmt.Errorf("price history %s: %w", marketID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].Price, nil
}
