// Package models defines the domain types shared across the sync daemon.
//
// Remote-facing types ([Track]) describe liked tracks as fetched from a
// service API. Persisted types ([TrackMapping], [UnmatchedTrack],
// [Collection], [CollectionTrack], [SyncRun]) mirror the SQLite schema owned
// by the repositories package. [SyncStats] aggregates the per-run counters
// recorded in sync_runs.stats_json.
package models
