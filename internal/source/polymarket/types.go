package polymarket

import (
	"bytes"
	"encoding/json"

	"github.com/rickgao/market-pulse/internal/source"
)

type gammaTag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

type gammaEvent struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Slug     string     `json:"slug"`
	Category string     `json:"category"`
	Tags     []gammaTag `json:"tags"`
}

type gammaMarket struct {
	ID          string `json:"id"`
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Category    string `json:"category"`
	EndDate     string `json:"endDate"`
	Active      *bool  `json:"active"`
	Closed      *bool  `json:"closed"`

	// Gamma encodes these as JSON arrays inside a string.
	Outcomes      stringList `json:"outcomes"`
	OutcomePrices stringList `json:"outcomePrices"`

	LastTradePrice *source.FlexFloat `json:"lastTradePrice"`
	BestBid        *source.FlexFloat `json:"bestBid"`
	BestAsk        *source.FlexFloat `json:"bestAsk"`
	VolumeNum      *source.FlexFloat `json:"volumeNum"`
	Volume         *source.FlexFloat `json:"volume"`
	LiquidityNum   *source.FlexFloat `json:"liquidityNum"`
	Liquidity      *source.FlexFloat `json:"liquidity"`

	Events []gammaEvent `json:"events"`
}

// dataTrade from the Data API GET /trades
type dataTrade struct {
	TransactionHash string            `json:"transactionHash"`
	ConditionID     string            `json:"conditionId"`
	Asset           string            `json:"asset"`
	Side            string            `json:"side"`
	Outcome         string            `json:"outcome"`
	Size            *source.FlexFloat `json:"size"`
	Price           *source.FlexFloat `json:"price"`
	Timestamp       int64             `json:"timestamp"` // Unix seconds
}

// stringList decodes either a JSON array of strings or a string containing
// one, e.g. "[\"Yes\", \"No\"]".
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		if inner == "" {
			*l = nil
			return nil
		}
		data = []byte(inner)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		// Numbers appear unquoted in some outcomePrices payloads.
		out = append(out, string(bytes.TrimSpace(r)))
	}
	*l = out
	return nil
}
