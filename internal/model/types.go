package model

import (
	"strings"
	"time"
)

// Source names the upstream provider a record came from.
type Source string

const (
	SourceKalshi     Source = "kalshi"
	SourcePolymarket Source = "polymarket"
)

// Status is the lifecycle state of a market.
type Status string

const (
	StatusTrading   Status = "TRADING"
	StatusClosed    Status = "CLOSED"
	StatusResolved  Status = "RESOLVED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether the status can no longer transition back to trading.
func (s Status) Terminal() bool {
	switch s {
	case StatusClosed, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus maps a canonical status string (any case) to a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusTrading:
		return StatusTrading, true
	case StatusClosed:
		return StatusClosed, true
	case StatusResolved:
		return StatusResolved, true
	case StatusCancelled:
		return StatusCancelled, true
	}
	return "", false
}

// -----------------------------------------------------------------------------
// Relational Types
// -----------------------------------------------------------------------------

// Event groups related markets (e.g., "2024 Presidential Election").
type Event struct {
	EventID string   // Primary key (Kalshi event ticker, Polymarket event ID)
	Title   string   // Display title
	Tags    []string // Lowercase tag set, never nil
	Source  Source
}

// MarketRecord is the slowly-changing description of a market.
type MarketRecord struct {
	MarketID    string // Primary key, stable across runs
	Name        string
	Description string
	EventName   string // Event title, empty when the event is unknown
	EventTicker string // Event key on the provider
	Expiration  *time.Time
	Tags        []string // Lowercase tag set, never nil
	Status      Status
	Source      Source
}

// -----------------------------------------------------------------------------
// Time-Series Types
// -----------------------------------------------------------------------------

// Snapshot is one point-in-time observation of a market.
type Snapshot struct {
	MarketID     string
	Price        *float64 // Implied probability
	YesBid       *float64
	NoBid        *float64
	Volume       float64  // Provider-reported volume
	DollarVolume float64  // 24h dollar volume from the trade tape
	VWAP         *float64 // 24h VWAP, nil when no trades
	Liquidity    *float64
	Expiration   *time.Time
	Timestamp    time.Time
	Source       Source
}

// Outcome is the price of one named outcome token at a point in time.
type Outcome struct {
	MarketID    string
	OutcomeName string
	Price       float64
	Volume      *float64
	Timestamp   time.Time
	Source      Source
}

// PricePoint records a price together with its change over the last 24 hours.
type PricePoint struct {
	MarketID         string
	Price            float64
	Change24h        *float64
	PercentChange24h *float64
	Timestamp        time.Time
	Source           Source
}

// TradeTapeEntry is a single executed trade. Never persisted.
type TradeTapeEntry struct {
	Timestamp time.Time
	Size      float64 // Contracts
	Price     float64 // Probability in [0, 1]
}

// NormalizedMarket bundles everything the pipeline derives for one market.
type NormalizedMarket struct {
	Market   MarketRecord
	Snapshot Snapshot
	Outcomes []Outcome

	// 24h statistics from the trade tape.
	ContractVolume24h float64
	DollarVolume24h   float64
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
