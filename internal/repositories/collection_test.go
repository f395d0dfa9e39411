package repositories

import (
	"testing"
	"time"

	"github.com/desertthunder/spondex/internal/models"
)

func TestCollectionRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCollectionRepository(db)
	mappings := NewMappingRepository(db)

	t.Run("ensure likes creates once per service", func(t *testing.T) {
		first, err := repo.EnsureLikes(models.ServiceSpotify)
		if err != nil {
			t.Fatalf("ensure likes failed: %v", err)
		}
		if first.Type != models.CollectionLikes {
			t.Errorf("expected likes collection, got %q", first.Type)
		}

		again, err := repo.EnsureLikes(models.ServiceSpotify)
		if err != nil {
			t.Fatalf("ensure likes failed: %v", err)
		}
		if again.ID != first.ID {
			t.Errorf("expected the existing collection %d, got %d", first.ID, again.ID)
		}
	})

	t.Run("pair links both directions", func(t *testing.T) {
		sp, err := repo.EnsureLikes(models.ServiceSpotify)
		if err != nil {
			t.Fatalf("ensure likes failed: %v", err)
		}
		ym, err := repo.EnsureLikes(models.ServiceYandex)
		if err != nil {
			t.Fatalf("ensure likes failed: %v", err)
		}

		if err := repo.Pair(sp.ID, ym.ID); err != nil {
			t.Fatalf("pair failed: %v", err)
		}

		sp, err = repo.Get(sp.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		ym, err = repo.Get(ym.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if sp.PairedID != ym.ID || ym.PairedID != sp.ID {
			t.Errorf("expected mutual pairing, got paired ids %d and %d", sp.PairedID, ym.PairedID)
		}
	})

	t.Run("membership survives re-adding and excludes removed tracks", func(t *testing.T) {
		col, err := repo.EnsureLikes(models.ServiceSpotify)
		if err != nil {
			t.Fatalf("ensure likes failed: %v", err)
		}

		m1, err := mappings.Upsert(UpsertParams{SpotifyID: "sp-a", YandexID: "ym-a", Artist: "Burial", Title: "Archangel"})
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		m2, err := mappings.Upsert(UpsertParams{SpotifyID: "sp-b", YandexID: "ym-b", Artist: "Burial", Title: "Ghost Hardware"})
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		added := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		for _, id := range []int64{m1.ID, m2.ID} {
			if err := repo.AddTrack(col.ID, id, added); err != nil {
				t.Fatalf("add track failed: %v", err)
			}
		}

		count, err := repo.TrackCount(col.ID)
		if err != nil {
			t.Fatalf("track count failed: %v", err)
		}
		if count != 2 {
			t.Fatalf("expected 2 members, got %d", count)
		}

		if err := repo.MarkRemoved(col.ID, m1.ID); err != nil {
			t.Fatalf("mark removed failed: %v", err)
		}
		tracks, err := repo.ListTracks(col.ID)
		if err != nil {
			t.Fatalf("list tracks failed: %v", err)
		}
		if len(tracks) != 1 || tracks[0].TrackMappingID != m2.ID {
			t.Fatalf("expected only mapping %d to remain, got %d rows", m2.ID, len(tracks))
		}

		// re-adding clears the removal marker
		if err := repo.AddTrack(col.ID, m1.ID, added); err != nil {
			t.Fatalf("re-add failed: %v", err)
		}
		count, err = repo.TrackCount(col.ID)
		if err != nil {
			t.Fatalf("track count failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected removal marker cleared, got %d members", count)
		}
	})

	t.Run("adding the same track twice keeps one row", func(t *testing.T) {
		col, err := repo.EnsureLikes(models.ServiceYandex)
		if err != nil {
			t.Fatalf("ensure likes failed: %v", err)
		}
		m, err := mappings.FindBySpotifyID("sp-a")
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}

		for i := 0; i < 2; i++ {
			if err := repo.AddTrack(col.ID, m.ID, time.Time{}); err != nil {
				t.Fatalf("add track failed: %v", err)
			}
		}

		count, err := repo.TrackCount(col.ID)
		if err != nil {
			t.Fatalf("track count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 member, got %d", count)
		}
	})
}
