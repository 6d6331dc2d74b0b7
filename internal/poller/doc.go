// Package poller periodically re-fetches the REST read models.
//
// The stream carries incremental zone and admin updates only. The poller:
//   - Re-runs Refresh on every registered Refresher each interval (default: 30s)
//   - Bounds concurrent refreshes with an errgroup limit
//   - Applies a per-refresh timeout
//   - Logs and counts failures without stopping the loop
package poller
