// Package api provides the HTTP client shared by every upstream provider and
// by the PostgREST sink.
//
// Listing calls go through Get, which retries transient failures (timeouts,
// 5xx, 429) with jittered exponential backoff and, when configured, repeats
// the request once against a fallback host. Per-market calls use GetOnce so a
// slow market never stretches the run.
package api
