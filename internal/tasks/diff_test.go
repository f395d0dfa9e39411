package tasks

import (
	"testing"

	"github.com/desertthunder/spondex/internal/match"
	"github.com/desertthunder/spondex/internal/models"
)

func TestCrossMatch(t *testing.T) {
	t.Run("pairs tracks with equal normalized keys", func(t *testing.T) {
		sp := []models.Track{
			{SourceID: "sp-1", Artist: "Radiohead", Title: "Karma Police"},
			{SourceID: "sp-2", Artist: "Mogwai", Title: "Helicon 1"},
		}
		ym := []models.Track{
			{SourceID: "ym-1", Artist: "Radiohead", Title: "Karma Police (Remastered)"},
			{SourceID: "ym-2", Artist: "Nobody", Title: "Else"},
		}

		result := CrossMatch(sp, ym)
		if len(result.Pairs) != 1 {
			t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
		}
		pair := result.Pairs[0]
		if pair.Spotify.SourceID != "sp-1" || pair.Yandex.SourceID != "ym-1" {
			t.Errorf("unexpected pair %s/%s", pair.Spotify.SourceID, pair.Yandex.SourceID)
		}
		if pair.Confidence.Tier != match.TierExact {
			t.Errorf("expected exact tier, got %v", pair.Confidence.Tier)
		}
		if len(result.SpotifyOnly) != 1 || result.SpotifyOnly[0].SourceID != "sp-2" {
			t.Errorf("unexpected spotify leftovers %v", result.SpotifyOnly)
		}
		if len(result.YandexOnly) != 1 || result.YandexOnly[0].SourceID != "ym-2" {
			t.Errorf("unexpected yandex leftovers %v", result.YandexOnly)
		}
	})

	t.Run("pairs transliterated artist names", func(t *testing.T) {
		sp := []models.Track{{SourceID: "sp-1", Artist: "Deep Purple", Title: "Smoke on the Water", DurationSeconds: 340}}
		ym := []models.Track{{SourceID: "ym-1", Artist: "Дип Перпл", Title: "Smoke on the Water", DurationSeconds: 340}}

		result := CrossMatch(sp, ym)
		if len(result.Pairs) != 1 {
			t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
		}
		conf := result.Pairs[0].Confidence
		if conf.Tier != match.TierTransliterated {
			t.Errorf("expected transliterated tier, got %v", conf.Tier)
		}
		if conf.Bucket() != match.BucketHigh {
			t.Errorf("expected high bucket, got %v", conf.Bucket())
		}
	})

	t.Run("rejects fuzzy pairs with diverging durations", func(t *testing.T) {
		sp := []models.Track{{SourceID: "sp-1", Artist: "The National", Title: "Fake Empire", DurationSeconds: 180}}
		ym := []models.Track{{SourceID: "ym-1", Artist: "The National", Title: "Fake Empire Reprise", DurationSeconds: 290}}

		result := CrossMatch(sp, ym)
		if len(result.Pairs) != 0 {
			t.Fatalf("expected no pairs, got %d", len(result.Pairs))
		}
	})

	t.Run("duplicate keys pair at most once", func(t *testing.T) {
		sp := []models.Track{
			{SourceID: "sp-1", Artist: "Aphex Twin", Title: "Rhubarb"},
			{SourceID: "sp-2", Artist: "Aphex Twin", Title: "Rhubarb"},
		}
		ym := []models.Track{{SourceID: "ym-1", Artist: "Aphex Twin", Title: "Rhubarb"}}

		result := CrossMatch(sp, ym)
		if len(result.Pairs) != 1 {
			t.Fatalf("expected 1 pair, got %d", len(result.Pairs))
		}
		if len(result.SpotifyOnly) != 1 {
			t.Errorf("expected 1 leftover, got %d", len(result.SpotifyOnly))
		}
	})

	t.Run("empty snapshots yield empty result", func(t *testing.T) {
		result := CrossMatch(nil, nil)
		if len(result.Pairs)+len(result.SpotifyOnly)+len(result.YandexOnly) != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})
}
