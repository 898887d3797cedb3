// Package polymarket lists Polymarket events and markets from the Gamma API
// and trades from the Data API, exposing them as source.RawMarket values.
package polymarket
