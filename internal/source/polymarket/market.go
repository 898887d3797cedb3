package polymarket

import (
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/source"
)

// Market adapts a Gamma market listing to source.RawMarket.
type Market struct {
	m gammaMarket
}

var _ source.RawMarket = Market{}

// ID is the condition ID, which the Data API keys trades by. Older listings
// without one fall back to the Gamma numeric ID.
func (p Market) ID() string {
	if p.m.ConditionID != "" {
		return p.m.ConditionID
	}
	return p.m.ID
}

func (p Market) Name() string {
	if p.m.Question != "" {
		return p.m.Question
	}
	return p.m.Slug
}

func (p Market) Description() string { return p.m.Description }

func (p Market) EventKey() string {
	if len(p.m.Events) > 0 {
		return p.m.Events[0].ID
	}
	return ""
}

// Prices exposes the top of book as two-sided quotes: the yes bid is bestBid
// and the no bid is the complement of the yes ask.
func (p Market) Prices() source.PriceFields {
	pf := source.PriceFields{
		Last: p.m.LastTradePrice.Ptr(),
		Unit: source.UnitFraction,
	}
	if p.m.BestBid != nil && p.m.BestAsk != nil && p.m.BestAsk.Value() > 0 {
		pf.YesBid = p.m.BestBid.Ptr()
		pf.NoBid = model.Float(1 - p.m.BestAsk.Value())
	}
	return pf
}

func (p Market) Outcomes() []source.OutcomeQuote {
	n := min(len(p.m.Outcomes), len(p.m.OutcomePrices))
	out := make([]source.OutcomeQuote, 0, n)
	for i := 0; i < n; i++ {
		price, err := strconv.ParseFloat(strings.TrimSpace(p.m.OutcomePrices[i]), 64)
		if err != nil {
			continue
		}
		out = append(out, source.OutcomeQuote{Name: p.m.Outcomes[i], Price: price})
	}
	return out
}

func (p Market) Expiration() *time.Time { return source.ParseTime(p.m.EndDate) }

func (p Market) Status() (model.Status, bool) {
	switch {
	case p.m.Closed != nil && *p.m.Closed:
		return model.StatusClosed, true
	case p.m.Active != nil && *p.m.Active:
		return model.StatusTrading, true
	}
	return "", false
}

func (p Market) Tags() []string {
	tags := []string{string(model.SourcePolymarket)}
	if p.m.Category != "" {
		tags = append(tags, p.m.Category)
	}
	return tags
}

func (p Market) Volume() float64 {
	if p.m.VolumeNum != nil {
		return p.m.VolumeNum.Value()
	}
	return p.m.Volume.Value()
}

func (p Market) Liquidity() *float64 {
	if p.m.LiquidityNum != nil {
		return p.m.LiquidityNum.Ptr()
	}
	return p.m.Liquidity.Ptr()
}
