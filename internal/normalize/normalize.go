package normalize

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/source"
	"github.com/rickgao/market-pulse/pkg/hashset"
)

// SkipReason explains why a raw market produced no record.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipMissingID     SkipReason = "missing_id"
	SkipInvalidVolume SkipReason = "invalid_volume"
	// SkipMalformed marks listing records that failed to decode. The adapter
	// drops them before Normalize sees them and the pipeline counts them under
	// this reason.
	SkipMalformed SkipReason = "malformed"
)

// Result is the outcome of normalizing one raw market. Record is only valid
// when Skip is SkipNone.
type Result struct {
	Record model.NormalizedMarket
	Rule   PriceRule
	Skip   SkipReason
}

// OK reports whether the market was normalized.
func (r Result) OK() bool { return r.Skip == SkipNone }

// Normalize converts raw into unified records stamped with now. events
// enriches the record with its event title and tags; it may be nil.
func Normalize(src model.Source, raw source.RawMarket, events map[string]source.RawEvent, now time.Time) Result {
	id := strings.TrimSpace(raw.ID())
	if id == "" {
		return Result{Skip: SkipMissingID}
	}

	volume := raw.Volume()
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume < 0 {
		return Result{Skip: SkipInvalidVolume}
	}

	name := strings.TrimSpace(raw.Name())
	if name == "" {
		name = id
	}

	eventKey := raw.EventKey()
	ev, hasEvent := events[eventKey]

	var eventTags []string
	eventName := ""
	if hasEvent && eventKey != "" {
		eventName = ev.Title
		eventTags = ev.Tags
	}

	exp := raw.Expiration()
	quoted := resolvePrice(raw.Prices(), raw.Outcomes())

	liquidity := raw.Liquidity()
	if liquidity != nil && (math.IsNaN(*liquidity) || math.IsInf(*liquidity, 0) || *liquidity < 0) {
		liquidity = nil
	}

	rec := model.NormalizedMarket{
		Market: model.MarketRecord{
			MarketID:    id,
			Name:        name,
			Description: raw.Description(),
			EventName:   eventName,
			EventTicker: eventKey,
			Expiration:  exp,
			Tags:        Tags(eventTags, raw.Tags()),
			Status:      resolveStatus(raw, exp, now),
			Source:      src,
		},
		Snapshot: model.Snapshot{
			MarketID:   id,
			Price:      quoted.price,
			YesBid:     quoted.yesBid,
			NoBid:      quoted.noBid,
			Volume:     volume,
			Liquidity:  liquidity,
			Expiration: exp,
			Timestamp:  now,
			Source:     src,
		},
	}
	rec.Outcomes = outcomes(id, src, raw.Outcomes(), raw.Prices().Unit, quoted.price, now)

	return Result{Record: rec, Rule: quoted.rule}
}

// resolveStatus prefers an explicit terminal status; otherwise a market whose
// expiration has passed is CLOSED.
func resolveStatus(raw source.RawMarket, exp *time.Time, now time.Time) model.Status {
	if st, ok := raw.Status(); ok && st.Terminal() {
		return st
	}
	if exp != nil && !exp.After(now) {
		return model.StatusClosed
	}
	return model.StatusTrading
}

// outcomes copies explicit tokens literally and synthesizes the "No"
// complement only when no explicit no token exists. A market with no tokens
// but a price gets a synthesized Yes/No pair.
func outcomes(id string, src model.Source, tokens []source.OutcomeQuote, unit source.Unit, price *float64, now time.Time) []model.Outcome {
	mk := func(name string, p float64, vol *float64) model.Outcome {
		return model.Outcome{
			MarketID:    id,
			OutcomeName: name,
			Price:       Round(p, 4),
			Volume:      vol,
			Timestamp:   now,
			Source:      src,
		}
	}

	var out []model.Outcome
	var yes *float64
	hasNo := false
	for _, q := range tokens {
		name := strings.TrimSpace(q.Name)
		if name == "" {
			continue
		}
		p, ok := Fraction(q.Price, unit)
		if !ok {
			continue
		}
		out = append(out, mk(name, p, q.Volume))
		switch strings.ToLower(name) {
		case "yes":
			yes = &p
		case "no":
			hasNo = true
		}
	}

	if len(out) == 0 {
		if price == nil {
			return nil
		}
		return []model.Outcome{mk("Yes", *price, nil), mk("No", 1-*price, nil)}
	}
	if yes != nil && !hasNo {
		out = append(out, mk("No", 1-*yes, nil))
	}
	return out
}

// Tags merges tag lists into a sorted, lowercase, deduplicated set. The
// result is never nil.
func Tags(lists ...[]string) []string {
	set := hashset.New[string]()
	for _, list := range lists {
		for _, t := range list {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				set.Set(t)
			}
		}
	}
	return hashset.Sorted(set)
}

// Event converts a raw event to its unified record.
func Event(src model.Source, ev source.RawEvent) model.Event {
	return model.Event{
		EventID: ev.Key,
		Title:   ev.Title,
		Tags:    Tags(ev.Tags),
		Source:  src,
	}
}

// Events converts every raw event, ordered by event ID.
func Events(src model.Source, events map[string]source.RawEvent) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Key == "" {
			continue
		}
		out = append(out, Event(src, ev))
	}
	slices.SortFunc(out, func(a, b model.Event) int { return strings.Compare(a.EventID, b.EventID) })
	return out
}
