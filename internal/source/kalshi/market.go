package kalshi

import (
	"strings"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/source"
)

// Market adapts a Kalshi market listing to source.RawMarket.
type Market struct {
	m apiMarket
}

var _ source.RawMarket = Market{}

func (k Market) ID() string { return k.m.Ticker }

// Name is the market title, falling back to the candidate suffix of the
// ticker ("KXPRES-24-DJT" -> "DJT").
func (k Market) Name() string {
	if k.m.Title != "" {
		return k.m.Title
	}
	if k.m.YesSubTitle != "" {
		return k.m.YesSubTitle
	}
	if i := strings.LastIndex(k.m.Ticker, "-"); i >= 0 {
		return k.m.Ticker[i+1:]
	}
	return k.m.Ticker
}

func (k Market) Description() string {
	if k.m.RulesPrimary != "" {
		return k.m.RulesPrimary
	}
	return k.m.Subtitle
}

func (k Market) EventKey() string { return k.m.EventTicker }

// Prices prefers each dollar-string field and falls back to that field's
// integer cents, so the result is always a fraction.
func (k Market) Prices() source.PriceFields {
	return source.PriceFields{
		YesBid: dollarsOrCents(k.m.YesBidDollars, k.m.YesBid),
		NoBid:  dollarsOrCents(k.m.NoBidDollars, k.m.NoBid),
		Last:   dollarsOrCents(k.m.LastPriceDollars, k.m.LastPrice),
		Unit:   source.UnitFraction,
	}
}

func dollarsOrCents(dollars, cents *source.FlexFloat) *float64 {
	if dollars != nil {
		return dollars.Ptr()
	}
	if cents != nil {
		v := cents.Value() / 100
		return &v
	}
	return nil
}

// Outcomes is empty: Kalshi markets are binary and carry no token list.
func (k Market) Outcomes() []source.OutcomeQuote { return nil }

func (k Market) Expiration() *time.Time {
	if t := source.ParseTime(k.m.CloseTime); t != nil {
		return t
	}
	return source.ParseTime(k.m.ExpirationTime)
}

func (k Market) Status() (model.Status, bool) {
	return mapStatus(k.m.Status)
}

func (k Market) Tags() []string {
	tags := []string{string(model.SourceKalshi)}
	if k.m.Category != "" {
		tags = append(tags, k.m.Category)
	}
	return tags
}

func (k Market) Volume() float64 {
	if k.m.Volume != nil {
		return k.m.Volume.Value()
	}
	return k.m.Volume24h.Value()
}

func (k Market) Liquidity() *float64 { return k.m.OpenInterest.Ptr() }

func mapStatus(s string) (model.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "open", "initialized", "unopened":
		return model.StatusTrading, true
	case "closed", "inactive":
		return model.StatusClosed, true
	case "settled", "determined", "finalized":
		return model.StatusResolved, true
	case "cancelled", "canceled", "voided":
		return model.StatusCancelled, true
	}
	return model.ParseStatus(s)
}
