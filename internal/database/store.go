package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/market-pulse/internal/writer"
	"github.com/rickgao/market-pulse/pkg/hashset"
)

// DB is the subset of *pgxpool.Pool used by Store.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements writer.Store on a Postgres connection pool.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store. A nil logger uses slog.Default().
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("sink", "postgres")}
}

// Write sends every row of b in one pgx.Batch.
func (s *Store) Write(ctx context.Context, b writer.Batch) error {
	if len(b.Rows) == 0 {
		return nil
	}

	sql := insertSQL(b.Table, b.Columns, b.ConflictKey)
	batch := &pgx.Batch{}
	for i, r := range b.Rows {
		if len(r) != len(b.Columns) {
			return fmt.Errorf("%s row %d: %d values for %d columns", b.Table, i, len(r), len(b.Columns))
		}
		batch.Queue(sql, r...)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range b.Rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert %s: %w", b.Table, describe(err))
		}
	}
	return nil
}

// insertSQL builds a parameterized INSERT for one row. A conflict key turns
// it into an upsert that overwrites every other column.
func insertSQL(table string, columns []string, conflictKey string) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(pgx.Identifier{table}.Sanitize())
	sb.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(pgx.Identifier{col}.Sanitize())
	}
	sb.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("$" + strconv.Itoa(i+1))
	}
	sb.WriteString(")")

	if conflictKey == "" {
		return sb.String()
	}

	key := pgx.Identifier{conflictKey}.Sanitize()
	sb.WriteString(" ON CONFLICT (" + key + ")")

	var sets []string
	for _, col := range columns {
		if col == conflictKey {
			continue
		}
		id := pgx.Identifier{col}.Sanitize()
		sets = append(sets, id+" = EXCLUDED."+id)
	}
	if len(sets) == 0 {
		sb.WriteString(" DO NOTHING")
		return sb.String()
	}
	sb.WriteString(" DO UPDATE SET ")
	sb.WriteString(strings.Join(sets, ", "))
	return sb.String()
}

// describe adds the server detail of a Postgres error.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s)", err, pgErr.Detail)
	}
	return err
}

const (
	knownMarketsSQL = `SELECT market_id FROM markets`

	priceBeforeSQL = `
		SELECT price FROM market_snapshots
		WHERE market_id = $1 AND "timestamp" < $2 AND price IS NOT NULL
		ORDER BY "timestamp" DESC
		LIMIT 1`
)

// KnownMarketIDs returns every market_id in the markets table.
func (s *Store) KnownMarketIDs(ctx context.Context) (hashset.Set[string], error) {
	rows, err := s.db.Query(ctx, knownMarketsSQL)
	if err != nil {
		return nil, fmt.Errorf("query known markets: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan known markets: %w", err)
	}
	return hashset.FromSlice(ids), nil
}

// PriceBefore returns the price of the newest snapshot older than before.
func (s *Store) PriceBefore(ctx context.Context, marketID string, before time.Time) (*float64, error) {
	var price float64
	err := s.db.QueryRow(ctx, priceBeforeSQL, marketID, before).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("price history %s: %w", marketID, err)
	}
	return &price, nil
}
