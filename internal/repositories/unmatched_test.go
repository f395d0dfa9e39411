package repositories

import (
	"errors"
	"testing"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
)

func TestUnmatchedRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUnmatchedRepository(db)

	t.Run("record starts at one attempt", func(t *testing.T) {
		u, err := repo.Record(models.ServiceSpotify, "sp-100", "Boards of Canada", "Roygbiv")
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if u.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", u.Attempts)
		}
	})

	t.Run("recording again increments attempts", func(t *testing.T) {
		u, err := repo.Record(models.ServiceSpotify, "sp-100", "Boards of Canada", "Roygbiv")
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if u.Attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", u.Attempts)
		}

		count, err := repo.Count()
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected a single row, got %d", count)
		}
	})

	t.Run("same source id on the other service is a distinct row", func(t *testing.T) {
		u, err := repo.Record(models.ServiceYandex, "sp-100", "Boards of Canada", "Roygbiv")
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if u.Attempts != 1 {
			t.Errorf("expected a fresh row with 1 attempt, got %d", u.Attempts)
		}
	})

	t.Run("record rejects an unknown service", func(t *testing.T) {
		_, err := repo.Record("deezer", "x", "a", "b")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("list by service returns stable order", func(t *testing.T) {
		if _, err := repo.Record(models.ServiceSpotify, "sp-200", "Autechre", "Amber"); err != nil {
			t.Fatalf("record failed: %v", err)
		}

		tracks, err := repo.ListByService(models.ServiceSpotify)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 spotify rows, got %d", len(tracks))
		}
		if tracks[0].SourceID != "sp-100" || tracks[1].SourceID != "sp-200" {
			t.Errorf("unexpected order: %s, %s", tracks[0].SourceID, tracks[1].SourceID)
		}
	})

	t.Run("resolve removes the row", func(t *testing.T) {
		if err := repo.Resolve(models.ServiceSpotify, "sp-100"); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if _, err := repo.Find(models.ServiceSpotify, "sp-100"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after resolve, got %v", err)
		}
	})

	t.Run("resolving an absent row is a no-op", func(t *testing.T) {
		if err := repo.Resolve(models.ServiceSpotify, "sp-100"); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("list filters by search term", func(t *testing.T) {
		results, err := repo.List(ListParams{Search: "autechre"})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].SourceID != "sp-200" {
			t.Errorf("unexpected result %q", results[0].SourceID)
		}
	})
}
