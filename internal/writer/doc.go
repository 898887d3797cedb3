// Package writer persists normalized records in foreign-key order.
//
// Tables:
//   - events, markets: upserted on their primary key
//   - market_snapshots, market_outcomes, market_prices: append-only
//
// Rows are written in chunks through a Sink. Two sinks exist: direct
// Postgres (internal/database) and PostgREST (internal/writer/postgrest).
// A failed chunk never aborts later chunks or tables.
package writer
