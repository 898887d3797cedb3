package writer

import (
	"slices"

	"github.com/rickgao/market-pulse/internal/model"
)

// Column names shared across tables.
const (
	ColumnEventID  = "event_id"
	ColumnMarketID = "market_id"
)

// Table describes a destination table and its column order.
type Table struct {
	Name    string
	Columns []string
}

// Index returns the position of column, or -1.
func (t Table) Index(column string) int {
	return slices.Index(t.Columns, column)
}

var (
	Events = Table{
		Name:    "events",
		Columns: []string{"event_id", "title", "tags", "source"},
	}
	Markets = Table{
		Name: "markets",
		Columns: []string{
			"market_id", "market_name", "market_description", "event_name",
			"event_ticker", "expiration", "tags", "source", "status",
		},
	}
	Snapshots = Table{
		Name: "market_snapshots",
		Columns: []string{
			"market_id", "price", "yes_bid", "no_bid", "volume", "dollar_volume",
			"vwap", "liquidity", "expiration", "timestamp", "source",
		},
	}
	Outcomes = Table{
		Name:    "market_outcomes",
		Columns: []string{"market_id", "outcome_name", "price", "volume", "timestamp", "source"},
	}
	Prices = Table{
		Name:    "market_prices",
		Columns: []string{"market_id", "price", "change_24h", "percent_change_24h", "timestamp", "source"},
	}
)

// EventRows converts events to rows of the events table.
func EventRows(events []model.Event) []Row {
	rows := make([]Row, 0, len(events))
	for _, e := range events {
		rows = append(rows, Row{e.EventID, e.Title, tags(e.Tags), string(e.Source)})
	}
	return rows
}

// MarketRows converts market records to rows of the markets table.
func MarketRows(markets []model.MarketRecord) []Row {
	rows := make([]Row, 0, len(markets))
	for _, m := range markets {
		rows = append(rows, Row{
			m.MarketID, m.Name, m.Description, m.EventName,
			m.EventTicker, m.Expiration, tags(m.Tags), string(m.Source), string(m.Status),
		})
	}
	return rows
}

// SnapshotRows converts snapshots to rows of the market_snapshots table.
func SnapshotRows(snaps []model.Snapshot) []Row {
	rows := make([]Row, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, Row{
			s.MarketID, s.Price, s.YesBid, s.NoBid, s.Volume, s.DollarVolume,
			s.VWAP, s.Liquidity, s.Expiration, s.Timestamp, string(s.Source),
		})
	}
	return rows
}

// OutcomeRows converts outcomes to rows of the market_outcomes table.
func OutcomeRows(outcomes []model.Outcome) []Row {
	rows := make([]Row, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, Row{o.MarketID, o.OutcomeName, o.Price, o.Volume, o.Timestamp, string(o.Source)})
	}
	return rows
}

// PriceRows converts price points to rows of the market_prices table.
func PriceRows(points []model.PricePoint) []Row {
	rows := make([]Row, 0, len(points))
	for _, p := range points {
		rows = append(rows, Row{p.MarketID, p.Price, p.Change24h, p.PercentChange24h, p.Timestamp, string(p.Source)})
	}
	return rows
}

func tags(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}
