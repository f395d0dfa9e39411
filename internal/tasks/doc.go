// Package tasks orchestrates liked-tracks reconciliation between
// Spotify and Yandex Music.
//
// # One run
//
// [SyncEngine.Run] executes the phases in order:
//
//  1. Snapshot: fetch both liked-track lists in full. Either listing
//     failing aborts the run, since a partial snapshot would read as mass
//     deletion.
//  2. Cross match: pair unknown tracks by normalized key, then by the
//     relaxed transliteration and fuzzy tiers, and persist the pairs as
//     mappings.
//  3. Additions: like the mapped counterpart of tracks present on one
//     side only; search the catalog for tracks with no mapping at all.
//     Failed searches become unmatched rows retried on later full runs,
//     up to [MaxUnmatchedAttempts].
//  4. Deletions (optional): tracks gone from a library since the
//     membership snapshot of the previous run get their counterpart
//     unliked. Disabled unless propagate_deletions is set.
//  5. Membership: record the reconciled snapshot for the next run.
//
// Every run is persisted as a sync run with its counter stats; per-track
// API failures are folded into the stats, while snapshot and store
// failures mark the run as errored.
package tasks
