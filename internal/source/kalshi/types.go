package kalshi

import (
	"encoding/json"

	"github.com/rickgao/market-pulse/internal/source"
)

// eventsResponse from GET /events
type eventsResponse struct {
	Events []json.RawMessage `json:"events"` // apiEvent
	Cursor string            `json:"cursor"`
}

type apiEvent struct {
	EventTicker  string `json:"event_ticker"`
	SeriesTicker string `json:"series_ticker"`
	Title        string `json:"title"`
	SubTitle     string `json:"sub_title"`
	Category     string `json:"category"`
}

// marketsResponse from GET /markets
type marketsResponse struct {
	Markets []json.RawMessage `json:"markets"` // apiMarket
	Cursor  string            `json:"cursor"`
}

type apiMarket struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	YesSubTitle  string `json:"yes_sub_title"`
	RulesPrimary string `json:"rules_primary"`
	Category     string `json:"category"`
	Status       string `json:"status"`

	// Prices in cents
	YesBid    *source.FlexFloat `json:"yes_bid"`
	NoBid     *source.FlexFloat `json:"no_bid"`
	LastPrice *source.FlexFloat `json:"last_price"`

	// Prices as dollar strings (sub-penny)
	YesBidDollars    *source.FlexFloat `json:"yes_bid_dollars"`
	NoBidDollars     *source.FlexFloat `json:"no_bid_dollars"`
	LastPriceDollars *source.FlexFloat `json:"last_price_dollars"`

	Volume       *source.FlexFloat `json:"volume"`
	Volume24h    *source.FlexFloat `json:"volume_24h"`
	OpenInterest *source.FlexFloat `json:"open_interest"`

	CloseTime      string `json:"close_time"`
	ExpirationTime string `json:"expiration_time"`
}

// tradesResponse from GET /markets/trades
type tradesResponse struct {
	Trades []json.RawMessage `json:"trades"` // apiTrade
	Cursor string            `json:"cursor"`
}

type apiTrade struct {
	TradeID         string            `json:"trade_id"`
	Ticker          string            `json:"ticker"`
	Count           *source.FlexFloat `json:"count"`
	YesPrice        *source.FlexFloat `json:"yes_price"`
	YesPriceDollars *source.FlexFloat `json:"yes_price_dollars"`
	CreatedTime     string            `json:"created_time"`
}
