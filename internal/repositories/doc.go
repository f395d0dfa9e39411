// Package repositories implements SQLite persistence for the mapping store.
//
// Key implementations:
//   - [MappingRepository] : confirmed cross-service track links; the upsert
//     contract guarantees no two rows ever claim the same non-null
//     spotify_id or yandex_id
//   - [UnmatchedRepository] : tracks with no confirmed counterpart, with a
//     monotonically growing attempt counter
//   - [CollectionRepository] : the tracked likes lists per service and their
//     membership rows, which double as the prior-snapshot record used for
//     deletion detection
//   - [SyncRunRepository] : reconciliation run history with a running →
//     success | error state machine
//
// The reconciliation engine is the sole writer of all four tables; reporting
// collaborators read them through the paginated list methods.
package repositories
