// Package daemon runs the background sync process: the interval
// scheduler that fires reconciliation runs, the lifecycle that merges
// OS signals with remote shutdown requests, and the pid-file plumbing
// that lets the CLI start, stop and inspect a detached daemon.
//
// Sync runs are single-flight. The scheduler owns one mutex around the
// engine; an interval tick or manual trigger that lands while a run is
// in progress is dropped, never queued.
package daemon
