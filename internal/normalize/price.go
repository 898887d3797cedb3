package normalize

import (
	"math"
	"strings"

	"github.com/rickgao/market-pulse/internal/source"
)

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// Fraction converts a provider price to a probability in [0, 1]. With
// UnitUnknown, values above 1 are read as cents. ok is false when the result
// is not a valid probability.
func Fraction(v float64, unit source.Unit) (p float64, ok bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	switch unit {
	case source.UnitCents:
		v /= 100
	case source.UnitUnknown:
		if v > 1 {
			v /= 100
		}
	}
	if v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}

func fractionPtr(v *float64, unit source.Unit) *float64 {
	if v == nil {
		return nil
	}
	p, ok := Fraction(*v, unit)
	if !ok {
		return nil
	}
	return &p
}

// PriceRule names the rule that produced a price.
type PriceRule string

const (
	RuleQuotes   PriceRule = "quotes"
	RuleLast     PriceRule = "last"
	RuleOutcomes PriceRule = "outcomes"
	RuleNone     PriceRule = "none"
)

// quotes are the resolved price inputs for a market.
type quotes struct {
	price  *float64
	yesBid *float64
	noBid  *float64
	rule   PriceRule
}

func resolvePrice(pf source.PriceFields, outcomes []source.OutcomeQuote) quotes {
	yes := fractionPtr(pf.YesBid, pf.Unit)
	no := fractionPtr(pf.NoBid, pf.Unit)
	q := quotes{yesBid: yes, noBid: no, rule: RuleNone}

	// A book with both bids at zero has no quotes at all.
	if yes != nil && no != nil && !(*yes == 0 && *no == 0) {
		p := Round((*yes+(1-*no))/2, 4)
		q.price, q.rule = &p, RuleQuotes
		return q
	}

	// A last price of exactly zero means the market has not traded.
	if last := fractionPtr(pf.Last, pf.Unit); last != nil && *last > 0 {
		p := Round(*last, 4)
		q.price, q.rule = &p, RuleLast
		return q
	}

	if tok, ok := findToken(outcomes, "yes"); ok {
		if p, ok := Fraction(tok.Price, pf.Unit); ok {
			p = Round(p, 4)
			q.price, q.rule = &p, RuleOutcomes
			return q
		}
	}

	return q
}

func findToken(outcomes []source.OutcomeQuote, name string) (source.OutcomeQuote, bool) {
	for _, o := range outcomes {
		if strings.EqualFold(strings.TrimSpace(o.Name), name) {
			return o, true
		}
	}
	return source.OutcomeQuote{}, false
}
