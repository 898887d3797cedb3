// Package source defines what the pipeline needs from an upstream prediction
// market provider and the shared pagination loop the provider adapters use.
//
// Each provider lives in its own subpackage (kalshi, polymarket) and exposes
// its raw listings through the RawMarket capability interface, so the
// normalizer never sees provider-specific JSON.
package source
