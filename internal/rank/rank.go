// Package rank selects the top-N markets by trading activity.
package rank

import (
	"fmt"
	"slices"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
)

// Metric names the value markets are ranked by.
type Metric string

const (
	// MetricAuto uses 24h dollar volume when positive, else 24h contract
	// volume, else the provider-reported volume.
	MetricAuto           Metric = "auto"
	MetricDollarVolume   Metric = "dollar_volume"
	MetricContractVolume Metric = "contract_volume"
	MetricVolume         Metric = "volume"
)

// ParseMetric validates a configured metric name.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricAuto, MetricDollarVolume, MetricContractVolume, MetricVolume:
		return m, nil
	case "":
		return MetricAuto, nil
	}
	return "", fmt.Errorf("unknown rank metric %q", s)
}

// Value returns the ranking value of m under metric.
func (metric Metric) Value(m model.NormalizedMarket) float64 {
	switch metric {
	case MetricDollarVolume:
		return m.DollarVolume24h
	case MetricContractVolume:
		return m.ContractVolume24h
	case MetricVolume:
		return m.Snapshot.Volume
	}
	switch {
	case m.DollarVolume24h > 0:
		return m.DollarVolume24h
	case m.ContractVolume24h > 0:
		return m.ContractVolume24h
	}
	return m.Snapshot.Volume
}

// SelectTopN returns at most n markets ordered by metric, highest first.
// The sort is stable, so ties keep their input order. Markets with a zero
// value sort last but are not excluded. The input is not modified.
func SelectTopN(markets []model.NormalizedMarket, n int, metric Metric) []model.NormalizedMarket {
	if n <= 0 || len(markets) == 0 {
		return []model.NormalizedMarket{}
	}

	sorted := slices.Clone(markets)
	slices.SortStableFunc(sorted, func(a, b model.NormalizedMarket) int {
		va, vb := metric.Value(a), metric.Value(b)
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		}
		return 0
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Live reports whether a market is open for trading at now: status TRADING
// and an expiration in the future or unknown.
func Live(m model.NormalizedMarket, now time.Time) bool {
	if m.Market.Status != model.StatusTrading {
		return false
	}
	return m.Market.Expiration == nil || m.Market.Expiration.After(now)
}

// FilterLive returns the live markets, preserving order.
func FilterLive(markets []model.NormalizedMarket, now time.Time) []model.NormalizedMarket {
	out := make([]model.NormalizedMarket, 0, len(markets))
	for _, m := range markets {
		if Live(m, now) {
			out = append(out, m)
		}
	}
	return out
}
