// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
)

// MockLibrary is a configurable test double for the per-service library
// clients. Zero value behaves as an empty library that accepts every
// mutation.
type MockLibrary struct {
	Service models.ServiceName

	// Liked is the snapshot ListLiked returns.
	Liked []models.Track

	// SearchResults maps "artist|title" to the track SearchTrack returns;
	// absent keys yield [shared.ErrNotFound].
	SearchResults map[string]models.Track

	// ListErr, AddErr, RemoveErr, SearchErr force the corresponding call
	// to fail.
	ListErr   error
	AddErr    error
	RemoveErr error
	SearchErr error

	// Added and Removed accumulate the ids passed to AddLiked and
	// RemoveLiked, in call order.
	Added   []string
	Removed []string
}

func (m *MockLibrary) Name() models.ServiceName {
	if m.Service == "" {
		return models.ServiceSpotify
	}
	return m.Service
}

func (m *MockLibrary) ListLiked(ctx context.Context) ([]models.Track, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]models.Track(nil), m.Liked...), nil
}

func (m *MockLibrary) AddLiked(ctx context.Context, ids []string) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.Added = append(m.Added, ids...)
	return nil
}

func (m *MockLibrary) RemoveLiked(ctx context.Context, ids []string) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.Removed = append(m.Removed, ids...)
	return nil
}

func (m *MockLibrary) SearchTrack(ctx context.Context, artist, title string) (*models.Track, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if track, ok := m.SearchResults[artist+"|"+title]; ok {
		return &track, nil
	}
	return nil, shared.ErrNotFound
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
