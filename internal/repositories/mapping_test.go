package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
)

func TestMappingRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMappingRepository(db)

	t.Run("upsert creates a new mapping", func(t *testing.T) {
		m, err := repo.Upsert(UpsertParams{
			SpotifyID:  "sp-1",
			YandexID:   "ym-1",
			Artist:     "Radiohead",
			Title:      "Karma Police",
			Confidence: 1.0,
		})
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if m.ID == 0 {
			t.Error("expected assigned id")
		}
		if !m.Complete() {
			t.Error("expected both sides populated")
		}
	})

	t.Run("upsert merges into the row owning the spotify id", func(t *testing.T) {
		first, err := repo.Upsert(UpsertParams{SpotifyID: "sp-2", Artist: "Mogwai", Title: "Helicon 1"})
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if first.Complete() {
			t.Fatal("expected a one-sided mapping")
		}

		merged, err := repo.Upsert(UpsertParams{
			SpotifyID: "sp-2",
			YandexID:  "ym-2",
			Artist:    "Mogwai",
			Title:     "Helicon 1",
		})
		if err != nil {
			t.Fatalf("merge upsert failed: %v", err)
		}
		if merged.ID != first.ID {
			t.Errorf("expected merge into row %d, got new row %d", first.ID, merged.ID)
		}
		if merged.YandexID != "ym-2" {
			t.Errorf("expected yandex id filled, got %q", merged.YandexID)
		}

		count, err := repo.Count()
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 mappings, got %d", count)
		}
	})

	t.Run("upsert with a blank side keeps the stored counterpart", func(t *testing.T) {
		kept, err := repo.Upsert(UpsertParams{SpotifyID: "sp-1", Artist: "Radiohead", Title: "Karma Police"})
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if kept.YandexID != "ym-1" {
			t.Errorf("expected stored yandex id preserved, got %q", kept.YandexID)
		}
	})

	t.Run("upsert merges into the row owning the yandex id", func(t *testing.T) {
		first, err := repo.Upsert(UpsertParams{YandexID: "ym-3", Artist: "Кино", Title: "Группа крови"})
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		merged, err := repo.Upsert(UpsertParams{
			SpotifyID:  "sp-3",
			YandexID:   "ym-3",
			Artist:     "Кино",
			Title:      "Группа крови",
			Confidence: 0.9,
		})
		if err != nil {
			t.Fatalf("merge upsert failed: %v", err)
		}
		if merged.ID != first.ID {
			t.Errorf("expected merge into row %d, got new row %d", first.ID, merged.ID)
		}
		if merged.SpotifyID != "sp-3" {
			t.Errorf("expected spotify id filled, got %q", merged.SpotifyID)
		}
		if merged.Confidence != 0.9 {
			t.Errorf("expected confidence updated to 0.9, got %v", merged.Confidence)
		}
	})

	t.Run("upsert rejects a mapping with no service id", func(t *testing.T) {
		_, err := repo.Upsert(UpsertParams{Artist: "Nobody", Title: "Nothing"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("find by service ids", func(t *testing.T) {
		bySp, err := repo.FindBySpotifyID("sp-1")
		if err != nil {
			t.Fatalf("find by spotify id failed: %v", err)
		}
		byYm, err := repo.FindByYandexID("ym-1")
		if err != nil {
			t.Fatalf("find by yandex id failed: %v", err)
		}
		if bySp.ID != byYm.ID {
			t.Errorf("expected the same row, got %d and %d", bySp.ID, byYm.ID)
		}
	})

	t.Run("missing mapping wraps ErrNotFound", func(t *testing.T) {
		_, err := repo.FindBySpotifyID("sp-missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list filters by search term", func(t *testing.T) {
		results, err := repo.List(ListParams{Search: "mogwai"})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].Title != "Helicon 1" {
			t.Errorf("unexpected result %q", results[0].Title)
		}
	})

	t.Run("list paginates", func(t *testing.T) {
		page, err := repo.List(ListParams{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(page) != 1 {
			t.Errorf("expected 1 result on the last page, got %d", len(page))
		}
	})

	t.Run("delete removes a mapping and its membership rows", func(t *testing.T) {
		m, err := repo.FindBySpotifyID("sp-2")
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}

		cols := NewCollectionRepository(db)
		likes, err := cols.EnsureLikes(models.ServiceSpotify)
		if err != nil {
			t.Fatalf("ensure likes failed: %v", err)
		}
		if err := cols.AddTrack(likes.ID, m.ID, time.Now().UTC()); err != nil {
			t.Fatalf("add track failed: %v", err)
		}

		if err := repo.Delete(m.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := repo.Get(m.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		rows, err := cols.ListTracks(likes.ID)
		if err != nil {
			t.Fatalf("list tracks failed: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("expected membership rows gone with the mapping, got %d", len(rows))
		}
	})
}
