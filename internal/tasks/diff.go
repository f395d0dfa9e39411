package tasks

import (
	"github.com/desertthunder/spondex/internal/match"
	"github.com/desertthunder/spondex/internal/models"
)

// MatchPair is a spotify/yandex track pair the engine decided refer to
// the same recording.
type MatchPair struct {
	Spotify    models.Track
	Yandex     models.Track
	Confidence match.Confidence
}

// CrossMatchResult partitions two liked-track snapshots into confirmed
// pairs and the per-side leftovers.
type CrossMatchResult struct {
	Pairs       []MatchPair
	SpotifyOnly []models.Track
	YandexOnly  []models.Track
}

// CrossMatch pairs tracks whose normalized artist/title keys are equal,
// then runs the relaxed tiers over the leftovers. The bulk key pass costs
// one map build per snapshot; the tier pass is quadratic but only over
// what the key pass could not settle, which after the first sync is a
// handful of tracks.
func CrossMatch(spotify, yandex []models.Track) CrossMatchResult {
	var result CrossMatchResult

	ymByKey := make(map[string]int, len(yandex))
	ymTaken := make([]bool, len(yandex))
	for i, t := range yandex {
		key := match.Key(t.Artist, t.Title)
		if _, dup := ymByKey[key]; !dup {
			ymByKey[key] = i
		}
	}

	var spLeft []models.Track
	for _, sp := range spotify {
		i, ok := ymByKey[match.Key(sp.Artist, sp.Title)]
		if ok && !ymTaken[i] {
			ymTaken[i] = true
			result.Pairs = append(result.Pairs, MatchPair{
				Spotify:    sp,
				Yandex:     yandex[i],
				Confidence: match.Confidence{Tier: match.TierExact, Score: 1.0},
			})
			continue
		}
		spLeft = append(spLeft, sp)
	}

	var ymLeft []models.Track
	for i, ym := range yandex {
		if !ymTaken[i] {
			ymLeft = append(ymLeft, ym)
		}
	}

	// relaxed tiers over the leftovers
	for _, sp := range spLeft {
		best, conf, ok := match.Best(candidate(sp), candidates(ymLeft))
		if !ok {
			result.SpotifyOnly = append(result.SpotifyOnly, sp)
			continue
		}

		var paired bool
		for i, ym := range ymLeft {
			if ym.SourceID == best.ID {
				result.Pairs = append(result.Pairs, MatchPair{Spotify: sp, Yandex: ym, Confidence: conf})
				ymLeft = append(ymLeft[:i], ymLeft[i+1:]...)
				paired = true
				break
			}
		}
		if !paired {
			result.SpotifyOnly = append(result.SpotifyOnly, sp)
		}
	}
	result.YandexOnly = ymLeft

	return result
}

func candidate(t models.Track) match.Candidate {
	return match.Candidate{
		ID:              t.SourceID,
		Artist:          t.Artist,
		Title:           t.Title,
		DurationSeconds: t.DurationSeconds,
	}
}

func candidates(tracks []models.Track) []match.Candidate {
	out := make([]match.Candidate, len(tracks))
	for i, t := range tracks {
		out[i] = candidate(t)
	}
	return out
}
