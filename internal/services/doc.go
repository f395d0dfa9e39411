// Package services contains the HTTP clients for the two synchronized
// music services.
//
// Both clients implement [Library], the narrow surface the sync engine
// drives: list the liked-tracks snapshot, like or unlike ids, and search
// the catalog. Spotify authenticates with a stored OAuth refresh token
// via [golang.org/x/oauth2]; Yandex sends a long-lived OAuth token
// header. Both throttle requests with [golang.org/x/time/rate].
//
// ListLiked is all-or-nothing on every implementation. Deletion
// detection compares remote snapshots against stored membership, so a
// truncated snapshot would read as a wave of deletions; a page failure
// therefore fails the whole listing.
package services
