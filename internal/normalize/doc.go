// Package normalize turns provider RawMarket values into the unified market,
// snapshot and outcome records.
//
// Price resolution order, first match wins:
//
//  1. two-sided quotes: (yes_bid + (1 - no_bid)) / 2
//  2. the last trade price
//  3. the outcome token named "yes"
//  4. none: the market is still recorded, with a nil price
//
// Values above 1 are read as cents unless the provider states its unit.
package normalize
