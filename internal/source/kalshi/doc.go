// Package kalshi lists Kalshi events, markets and trades through the public
// trade API v2 and exposes them as source.RawMarket values.
package kalshi
