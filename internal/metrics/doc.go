// Package metrics records per-run ingestion counters.
//
// Key metrics:
//   - Markets fetched and skipped, by source and skip reason
//   - Rows written, failed and skipped, by table
//   - Listing pages requested and truncations
//   - Aggregation failures and run duration
//
// Metrics live on a private registry and are pushed to a Pushgateway at the
// end of a run, since the ingester exits before any scrape.
package metrics
