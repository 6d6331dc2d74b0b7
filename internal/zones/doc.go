// Package zones implements the Cache Synchronizer.
//
// Cache is the shared read cache of zone state, keyed by zone id, with the
// ordered zone list of every seeded gate and the category rate cards.
// Synchronizer binds one gate terminal to the cache: it seeds the gate from
// the request/response API, merges pushed zone updates, persists offline
// snapshots in the background and chooses between live and cached data
// when the terminal reads.
package zones
