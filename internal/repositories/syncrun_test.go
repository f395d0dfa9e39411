package repositories

import (
	"errors"
	"testing"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
)

func TestSyncRunRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSyncRunRepository(db)

	t.Run("start inserts a running run", func(t *testing.T) {
		run, err := repo.Start(models.DirectionBidirectional, models.ModeIncremental)
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if run.Status != models.StatusRunning {
			t.Errorf("expected running status, got %q", run.Status)
		}

		active, err := repo.Active()
		if err != nil {
			t.Fatalf("active failed: %v", err)
		}
		if active == nil || active.ID != run.ID {
			t.Error("expected the started run to be active")
		}
	})

	t.Run("finish records stats and clears the active run", func(t *testing.T) {
		active, err := repo.Active()
		if err != nil {
			t.Fatalf("active failed: %v", err)
		}

		stats := models.SyncStats{CrossMatched: 3, Unmatched: 1}
		run, err := repo.Finish(active.ID, models.StatusSuccess, stats.JSON(), "")
		if err != nil {
			t.Fatalf("finish failed: %v", err)
		}
		if run.FinishedAt == nil {
			t.Error("expected finished_at set")
		}

		parsed, err := models.ParseSyncStats(run.StatsJSON)
		if err != nil {
			t.Fatalf("parse stats failed: %v", err)
		}
		if parsed.CrossMatched != 3 {
			t.Errorf("expected 3 cross matched, got %d", parsed.CrossMatched)
		}

		if active, err = repo.Active(); err != nil {
			t.Fatalf("active failed: %v", err)
		}
		if active != nil {
			t.Error("expected no active run after finish")
		}
	})

	t.Run("finish refuses a second terminal transition", func(t *testing.T) {
		runs, err := repo.List(1)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		_, err = repo.Finish(runs[0].ID, models.StatusError, "", "late failure")
		if !errors.Is(err, shared.ErrStoreConflict) {
			t.Errorf("expected ErrStoreConflict, got %v", err)
		}
	})

	t.Run("finish requires a terminal status", func(t *testing.T) {
		run, err := repo.Start(models.DirectionSpotifyToYandex, models.ModeFull)
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if _, err := repo.Finish(run.ID, models.StatusRunning, "", ""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := repo.Finish(run.ID, models.StatusError, "", "remote unavailable"); err != nil {
			t.Fatalf("finish failed: %v", err)
		}
	})

	t.Run("last successful skips error runs", func(t *testing.T) {
		last, err := repo.LastSuccessful()
		if err != nil {
			t.Fatalf("last successful failed: %v", err)
		}
		if last == nil || last.Status != models.StatusSuccess {
			t.Fatal("expected the earlier successful run")
		}
	})

	t.Run("list returns newest first", func(t *testing.T) {
		runs, err := repo.List(10)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].StartedAt.Before(runs[1].StartedAt) {
			t.Error("expected newest-first ordering")
		}
		if runs[0].ErrorMessage != "remote unavailable" {
			t.Errorf("unexpected error message %q", runs[0].ErrorMessage)
		}
	})
}
