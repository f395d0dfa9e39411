// package services defines interface Library for interacting with the
// liked-tracks HTTP APIs of Spotify and Yandex Music.
package services

import (
	"context"

	"github.com/desertthunder/spondex/internal/models"
)

// Library is the per-service client surface the reconciliation engine
// drives. Implementations are safe for use from a single goroutine; the
// engine never calls a Library concurrently.
type Library interface {
	// Name returns the service this client talks to.
	Name() models.ServiceName

	// ListLiked retrieves the full liked-tracks snapshot, newest first.
	// A partial snapshot is worse than none: implementations return an
	// error unless every page was fetched cleanly, so deletion detection
	// never runs against an incomplete picture of the remote library.
	ListLiked(ctx context.Context) ([]models.Track, error)

	// AddLiked likes the given track ids. Liking an already-liked track
	// is a no-op on both services, so retries are safe.
	AddLiked(ctx context.Context, ids []string) error

	// RemoveLiked unlikes the given track ids. Idempotent like AddLiked.
	RemoveLiked(ctx context.Context, ids []string) error

	// SearchTrack looks up a track by artist and title and returns the
	// top result, or [shared.ErrNotFound] when the service has none.
	SearchTrack(ctx context.Context, artist, title string) (*models.Track, error)
}

// chunk splits ids into batches of at most size, preserving order.
func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for len(ids) > size {
		batches = append(batches, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		batches = append(batches, ids)
	}
	return batches
}
