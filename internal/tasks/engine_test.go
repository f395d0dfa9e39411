package tasks

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/repositories"
	"github.com/desertthunder/spondex/internal/shared"
	internaltesting "github.com/desertthunder/spondex/internal/testing"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func newTestEngine(t *testing.T, sp, ym *internaltesting.MockLibrary, cfg shared.SyncConfig) *SyncEngine {
	t.Helper()
	sp.Service = models.ServiceSpotify
	ym.Service = models.ServiceYandex
	return NewSyncEngine(shared.NewLogger(io.Discard), setupTestDB(t), sp, ym, cfg)
}

func mustRun(t *testing.T, e *SyncEngine, mode models.SyncMode, direction models.SyncDirection) (*models.SyncRun, models.SyncStats) {
	t.Helper()
	run, err := e.Run(context.Background(), mode, direction)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if run.Status != models.StatusSuccess {
		t.Fatalf("expected success, got %q (%s)", run.Status, run.ErrorMessage)
	}
	stats, err := models.ParseSyncStats(run.StatsJSON)
	if err != nil {
		t.Fatalf("failed to parse stats: %v", err)
	}
	return run, stats
}

func TestSyncEngineRun(t *testing.T) {
	t.Run("cross matches identical libraries without touching the APIs", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-1", Artist: "Radiohead", Title: "Karma Police", DurationSeconds: 263},
			{SourceID: "sp-2", Artist: "Кино", Title: "Группа крови", DurationSeconds: 283},
		}}
		ym := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "ym-1", Artist: "Radiohead", Title: "Karma Police", DurationSeconds: 263},
			{SourceID: "ym-2", Artist: "Кино", Title: "Группа крови", DurationSeconds: 283},
		}}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		if stats.CrossMatched != 2 {
			t.Errorf("expected 2 cross matches, got %d", stats.CrossMatched)
		}
		if len(sp.Added)+len(ym.Added)+len(sp.Removed)+len(ym.Removed) != 0 {
			t.Error("expected no like mutations for identical libraries")
		}

		m, err := engine.mappings.FindBySpotifyID("sp-1")
		if err != nil {
			t.Fatalf("mapping not stored: %v", err)
		}
		if m.YandexID != "ym-1" || m.Confidence != 1.0 {
			t.Errorf("unexpected mapping %+v", m)
		}
	})

	t.Run("second run over a reconciled state is a no-op", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-1", Artist: "Radiohead", Title: "Karma Police", DurationSeconds: 263},
		}}
		ym := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "ym-1", Artist: "Radiohead", Title: "Karma Police", DurationSeconds: 263},
		}}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)

		if stats != (models.SyncStats{}) {
			t.Errorf("expected all-zero stats on the second run, got %+v", stats)
		}
		count, err := engine.mappings.Count()
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 mapping, got %d", count)
		}
	})

	t.Run("full run rescores a mapping whose metadata drifted", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-1", Artist: "Deep Purple", Title: "Smoke on the Water", DurationSeconds: 340},
		}}
		ym := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "ym-1", Artist: "Deep Purple", Title: "Smoke on the Water", DurationSeconds: 340},
		}}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		m, err := engine.mappings.FindBySpotifyID("sp-1")
		if err != nil {
			t.Fatalf("mapping not stored: %v", err)
		}
		if m.Confidence != 1.0 {
			t.Fatalf("expected exact confidence, got %v", m.Confidence)
		}

		// yandex re-tags the track with a transliterated artist
		ym.Liked = []models.Track{
			{SourceID: "ym-1", Artist: "Дип Перпл", Title: "Smoke on the Water", DurationSeconds: 341},
		}

		// incremental runs leave settled mappings alone
		mustRun(t, engine, models.ModeIncremental, models.DirectionBidirectional)
		m, _ = engine.mappings.FindBySpotifyID("sp-1")
		if m.Confidence != 1.0 {
			t.Errorf("expected incremental run to keep the old score, got %v", m.Confidence)
		}

		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		if stats != (models.SyncStats{}) {
			t.Errorf("expected rescoring to report no new work, got %+v", stats)
		}
		m, err = engine.mappings.FindBySpotifyID("sp-1")
		if err != nil {
			t.Fatalf("mapping lost after rescoring: %v", err)
		}
		if m.YandexID != "ym-1" {
			t.Errorf("expected pairing preserved, got %+v", m)
		}
		if m.Confidence >= 1.0 || m.Confidence < 0.85 {
			t.Errorf("expected a high-band rescore, got %v", m.Confidence)
		}
		count, err := engine.mappings.Count()
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 mapping, got %d", count)
		}
	})

	t.Run("missing counterpart is found via search and liked", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-9", Artist: "Deep Purple", Title: "Smoke on the Water", DurationSeconds: 340},
		}}
		ym := &internaltesting.MockLibrary{SearchResults: map[string]models.Track{
			"Deep Purple|Smoke on the Water": {SourceID: "ym-9", Artist: "Deep Purple", Title: "Smoke on the Water", DurationSeconds: 340},
		}}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		if stats.YandexAdded != 1 {
			t.Errorf("expected 1 yandex add, got %d", stats.YandexAdded)
		}
		if len(ym.Added) != 1 || ym.Added[0] != "ym-9" {
			t.Errorf("expected ym-9 liked, got %v", ym.Added)
		}

		m, err := engine.mappings.FindBySpotifyID("sp-9")
		if err != nil {
			t.Fatalf("mapping not stored: %v", err)
		}
		if !m.Complete() {
			t.Errorf("expected completed mapping, got %+v", m)
		}
	})

	t.Run("search miss records unmatched and full reruns bump attempts", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-5", Artist: "Obscure Artist", Title: "Unreleased Demo"},
		}}
		ym := &internaltesting.MockLibrary{}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		if stats.Unmatched != 1 {
			t.Errorf("expected 1 unmatched, got %d", stats.Unmatched)
		}

		row, err := engine.unmatched.Find(models.ServiceSpotify, "sp-5")
		if err != nil {
			t.Fatalf("unmatched row missing: %v", err)
		}
		if row.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", row.Attempts)
		}

		mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		row, _ = engine.unmatched.Find(models.ServiceSpotify, "sp-5")
		if row.Attempts != 2 {
			t.Errorf("expected 2 attempts after full rerun, got %d", row.Attempts)
		}

		// incremental runs leave pending rows alone
		mustRun(t, engine, models.ModeIncremental, models.DirectionBidirectional)
		row, _ = engine.unmatched.Find(models.ServiceSpotify, "sp-5")
		if row.Attempts != 2 {
			t.Errorf("expected attempts unchanged by incremental run, got %d", row.Attempts)
		}
	})

	t.Run("retries stop at the attempt cap", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-5", Artist: "Obscure Artist", Title: "Unreleased Demo"},
		}}
		ym := &internaltesting.MockLibrary{}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		for i := 0; i < MaxUnmatchedAttempts+2; i++ {
			mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		}

		row, err := engine.unmatched.Find(models.ServiceSpotify, "sp-5")
		if err != nil {
			t.Fatalf("unmatched row missing: %v", err)
		}
		if row.Attempts != MaxUnmatchedAttempts {
			t.Errorf("expected attempts capped at %d, got %d", MaxUnmatchedAttempts, row.Attempts)
		}
	})

	t.Run("retry that finally matches resolves the unmatched row", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-5", Artist: "Obscure Artist", Title: "Unreleased Demo", DurationSeconds: 200},
		}}
		ym := &internaltesting.MockLibrary{}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)

		// the track appears in the yandex catalog later
		ym.SearchResults = map[string]models.Track{
			"Obscure Artist|Unreleased Demo": {SourceID: "ym-5", Artist: "Obscure Artist", Title: "Unreleased Demo", DurationSeconds: 200},
		}
		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)

		if stats.RetriedOK != 1 {
			t.Errorf("expected 1 resolved retry, got %d", stats.RetriedOK)
		}
		if _, err := engine.unmatched.Find(models.ServiceSpotify, "sp-5"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected unmatched row resolved, got %v", err)
		}
	})

	t.Run("direction restricts propagation", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{}
		ym := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "ym-7", Artist: "Кино", Title: "Кукушка"},
		}}
		sp.SearchResults = map[string]models.Track{
			"Кино|Кукушка": {SourceID: "sp-7", Artist: "Кино", Title: "Кукушка"},
		}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionSpotifyToYandex)
		if len(sp.Added) != 0 || stats.SpotifyAdded != 0 {
			t.Errorf("expected no spotify adds for spotify_to_yandex, got %v", sp.Added)
		}

		// the match itself is direction-independent; only the like was held back
		m, err := engine.mappings.FindByYandexID("ym-7")
		if err != nil {
			t.Fatalf("expected mapping stored despite the one-way run: %v", err)
		}
		if !m.Complete() || m.SpotifyID != "sp-7" {
			t.Errorf("unexpected mapping %+v", m)
		}

		_, stats = mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		if len(sp.Added) != 1 || sp.Added[0] != "sp-7" {
			t.Errorf("expected sp-7 liked bidirectionally, got %v", sp.Added)
		}
		if stats.SpotifyAdded != 1 {
			t.Errorf("expected 1 spotify add, got %d", stats.SpotifyAdded)
		}
	})

	t.Run("one-way run still records unmatched on the passive side", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{}
		ym := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "ym-8", Artist: "Мумий Тролль", Title: "Утекай"},
		}}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionSpotifyToYandex)
		if stats.Unmatched != 1 {
			t.Errorf("expected 1 unmatched, got %d", stats.Unmatched)
		}
		if len(sp.Added) != 0 {
			t.Errorf("expected no spotify adds, got %v", sp.Added)
		}

		row, err := engine.unmatched.Find(models.ServiceYandex, "ym-8")
		if err != nil {
			t.Fatalf("unmatched row missing: %v", err)
		}
		if row.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", row.Attempts)
		}

		mustRun(t, engine, models.ModeFull, models.DirectionSpotifyToYandex)
		row, _ = engine.unmatched.Find(models.ServiceYandex, "ym-8")
		if row.Attempts != 2 {
			t.Errorf("expected a full one-way rerun to bump attempts, got %d", row.Attempts)
		}
	})

	t.Run("existing mapping re-likes the counterpart without searching", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-3", Artist: "Burial", Title: "Archangel"},
		}}
		ym := &internaltesting.MockLibrary{}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		seed(t, engine, "sp-3", "ym-3", "Burial", "Archangel")

		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		if len(ym.Added) != 1 || ym.Added[0] != "ym-3" {
			t.Errorf("expected mapped id ym-3 liked, got %v", ym.Added)
		}
		if stats.YandexAdded != 1 || stats.Unmatched != 0 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})

	t.Run("deletion propagates when enabled", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-1", Artist: "Radiohead", Title: "Karma Police"},
		}}
		ym := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "ym-1", Artist: "Radiohead", Title: "Karma Police"},
		}}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{PropagateDeletions: true})

		mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)

		// the user unlikes the track on spotify
		sp.Liked = nil
		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)

		if len(ym.Removed) != 1 || ym.Removed[0] != "ym-1" {
			t.Errorf("expected ym-1 unliked, got %v", ym.Removed)
		}
		if stats.YandexRemoved != 1 {
			t.Errorf("expected 1 yandex removal, got %d", stats.YandexRemoved)
		}

		// the pair is gone from the store, not just the remote library
		if _, err := engine.mappings.FindBySpotifyID("sp-1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected mapping deleted with the like, got %v", err)
		}
		count, err := engine.mappings.Count()
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected empty mapping store, got %d rows", count)
		}
	})

	t.Run("deletion branch is skipped when disabled", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-1", Artist: "Radiohead", Title: "Karma Police"},
		}}
		ym := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "ym-1", Artist: "Radiohead", Title: "Karma Police"},
		}}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)

		sp.Liked = nil
		_, stats := mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)

		if len(ym.Removed) != 0 || stats.YandexRemoved != 0 {
			t.Errorf("expected no removals, got %v", ym.Removed)
		}
		if _, err := engine.mappings.FindBySpotifyID("sp-1"); err != nil {
			t.Errorf("expected mapping untouched, got %v", err)
		}
	})

	t.Run("snapshot failure marks the run errored", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{ListErr: errors.New("spotify is down")}
		ym := &internaltesting.MockLibrary{}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		run, err := engine.Run(context.Background(), models.ModeFull, models.DirectionBidirectional)
		if err == nil {
			t.Fatal("expected run to fail")
		}
		if run.Status != models.StatusError {
			t.Errorf("expected error status, got %q", run.Status)
		}
		if run.ErrorMessage == "" {
			t.Error("expected error message recorded")
		}
		if run.FinishedAt == nil {
			t.Error("expected finished_at set on the errored run")
		}
	})

	t.Run("per-track api failure folds into stats", func(t *testing.T) {
		sp := &internaltesting.MockLibrary{Liked: []models.Track{
			{SourceID: "sp-3", Artist: "Burial", Title: "Archangel"},
		}}
		ym := &internaltesting.MockLibrary{AddErr: errors.New("quota exceeded")}
		ym.SearchResults = map[string]models.Track{
			"Burial|Archangel": {SourceID: "ym-3", Artist: "Burial", Title: "Archangel"},
		}
		engine := newTestEngine(t, sp, ym, shared.SyncConfig{})

		run, stats := mustRun(t, engine, models.ModeFull, models.DirectionBidirectional)
		if run.Status != models.StatusSuccess {
			t.Errorf("expected success despite per-track failure, got %q", run.Status)
		}
		if stats.Errors == 0 {
			t.Error("expected failure counted in stats")
		}
		if stats.YandexAdded != 0 {
			t.Errorf("expected no adds, got %d", stats.YandexAdded)
		}
	})
}

// seed inserts a completed mapping directly into the store.
func seed(t *testing.T, e *SyncEngine, spID, ymID, artist, title string) {
	t.Helper()
	_, err := e.mappings.Upsert(repositories.UpsertParams{
		SpotifyID: spID,
		YandexID:  ymID,
		Artist:    artist,
		Title:     title,
	})
	if err != nil {
		t.Fatalf("failed to seed mapping: %v", err)
	}
}
