// Package model defines the canonical records written by the ingestion pipeline.
//
// All types mirror the tables in migrations/001_init.sql.
//
// Conventions:
//   - Prices: float64 probabilities in [0, 1], rounded to 4 decimals; nil when unknown
//   - Timestamps: time.Time in UTC, one timestamp per run
//   - IDs: provider-scoped strings (Kalshi ticker, Polymarket condition ID)
package model
