// Package database provides the direct Postgres store.
//
// Tables (see migrations/001_init.sql):
//   - events, markets: upserted with ON CONFLICT ... DO UPDATE
//   - market_snapshots, market_outcomes, market_prices: append-only inserts
//
// Each batch is sent as one pgx.Batch and commits as a unit.
package database
