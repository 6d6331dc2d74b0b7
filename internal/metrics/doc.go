// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Stream connection state, reconnect attempts and sessions
//   - Inbound frame counts and drops by reason
//   - Subscription registry size
//   - Audit buffer length
//   - Snapshot write results and read model refresh results
//   - Postgres pool stats when the postgres snapshot backend is used
//
// Push-style metrics live on Metrics and are fed by component hooks.
// Counters the components already keep are exported by StatsCollector at
// scrape time.
package metrics
