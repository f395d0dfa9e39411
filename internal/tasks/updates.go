package tasks

import (
	"context"
	"errors"

	"github.com/desertthunder/spondex/internal/match"
	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/repositories"
	"github.com/desertthunder/spondex/internal/shared"
)

// crossMatchNew pairs snapshot tracks and persists the confirmed pairs.
// Full runs re-derive the whole pairing from scratch so metadata drift
// on either side gets rescored; incremental runs only consider tracks
// the store does not know yet. Tracks whose mapping exists but is
// missing a side go through matching again so the upsert can complete
// the row.
func (e *SyncEngine) crossMatchNew(ctx context.Context, state *syncState) error {
	matchSp, matchYm := state.spTracks, state.ymTracks
	if state.mode == models.ModeIncremental {
		matchSp = filterUnpaired(state.spTracks, state.sideMapping(models.ServiceSpotify))
		matchYm = filterUnpaired(state.ymTracks, state.sideMapping(models.ServiceYandex))
	}

	result := CrossMatch(matchSp, matchYm)

	for _, pair := range result.Pairs {
		if err := ctx.Err(); err != nil {
			return err
		}

		spKnown := state.mapBySp[pair.Spotify.SourceID]
		ymKnown := state.mapByYm[pair.Yandex.SourceID]
		rescored := (spKnown != nil && spKnown.Complete()) || (ymKnown != nil && ymKnown.Complete())

		m, err := e.mappings.Upsert(repositories.UpsertParams{
			SpotifyID:  pair.Spotify.SourceID,
			YandexID:   pair.Yandex.SourceID,
			Artist:     pair.Spotify.Artist,
			Title:      pair.Spotify.Title,
			Confidence: pair.Confidence.Score,
		})
		if err != nil {
			e.fail(state, "failed to store cross match",
				"spotify", pair.Spotify.SourceID, "yandex", pair.Yandex.SourceID, "error", err)
			continue
		}
		state.remember(m)
		if rescored {
			// an already-complete pair was re-derived; the upsert
			// refreshed its confidence, nothing new happened
			continue
		}
		state.stats.CrossMatched++

		e.resolveUnmatched(state, models.ServiceSpotify, pair.Spotify.SourceID)
		e.resolveUnmatched(state, models.ServiceYandex, pair.Yandex.SourceID)
	}

	// already-mapped leftovers have their counterpart elsewhere in the
	// store; only genuinely unknown tracks go to the search pass
	state.soloSp = filterUnpaired(result.SpotifyOnly, state.sideMapping(models.ServiceSpotify))
	state.soloYm = filterUnpaired(result.YandexOnly, state.sideMapping(models.ServiceYandex))
	return nil
}

// filterUnpaired keeps the tracks without a completed mapping.
func filterUnpaired(tracks []models.Track, mapOf func(string) *models.TrackMapping) []models.Track {
	var out []models.Track
	for _, t := range tracks {
		if m := mapOf(t.SourceID); m == nil || !m.Complete() {
			out = append(out, t)
		}
	}
	return out
}

// resolveUnmatched clears a pending unmatched row once its track gained
// a counterpart, crediting the retry counter when one existed.
func (e *SyncEngine) resolveUnmatched(state *syncState, service models.ServiceName, sourceID string) {
	if _, err := e.unmatched.Find(service, sourceID); err != nil {
		return
	}
	if err := e.unmatched.Resolve(service, sourceID); err != nil {
		e.logger.Warn("failed to resolve unmatched row", "service", service, "id", sourceID, "error", err)
		return
	}
	state.stats.RetriedOK++
}

// propagateAdditions pushes liked tracks to the service that lacks them:
// through the mapped counterpart id when a mapping exists, through
// catalog search otherwise.
func (e *SyncEngine) propagateAdditions(ctx context.Context, state *syncState) error {
	if state.direction.ToYandex() {
		if err := e.addMappedLikes(ctx, state, models.ServiceSpotify); err != nil {
			return err
		}
	}
	if state.direction.ToSpotify() {
		if err := e.addMappedLikes(ctx, state, models.ServiceYandex); err != nil {
			return err
		}
	}

	// the search pass runs for both sides no matter the direction so
	// mappings and unmatched bookkeeping stay current; only the like
	// creation respects it
	if err := e.searchAndLink(ctx, state, models.ServiceSpotify, state.soloSp, state.direction.ToYandex()); err != nil {
		return err
	}
	return e.searchAndLink(ctx, state, models.ServiceYandex, state.soloYm, state.direction.ToSpotify())
}

// addMappedLikes likes the mapped counterpart of every src-side track
// the other service is missing. Tracks whose mapping already sat in the
// other membership are deletion candidates, not additions, and are
// skipped here.
func (e *SyncEngine) addMappedLikes(ctx context.Context, state *syncState, src models.ServiceName) error {
	tracks, mapOf := state.spTracks, state.sideMapping(models.ServiceSpotify)
	target, targetByID, targetMembers := e.yandex, state.ymByID, state.ymMembers
	if src == models.ServiceYandex {
		tracks, mapOf = state.ymTracks, state.sideMapping(models.ServiceYandex)
		target, targetByID, targetMembers = e.spotify, state.spByID, state.spMembers
	}

	for _, t := range tracks {
		if err := ctx.Err(); err != nil {
			return err
		}

		m := mapOf(t.SourceID)
		if m == nil || !m.Complete() {
			continue
		}
		counterpart := m.YandexID
		if src == models.ServiceYandex {
			counterpart = m.SpotifyID
		}
		if _, liked := targetByID[counterpart]; liked {
			continue
		}
		if targetMembers[m.ID] {
			continue
		}

		if err := target.AddLiked(ctx, []string{counterpart}); err != nil {
			e.fail(state, "failed to propagate like", "service", target.Name(), "id", counterpart, "error", err)
			continue
		}
		targetByID[counterpart] = models.Track{SourceID: counterpart, Artist: m.Artist, Title: m.Title}
		state.countAdded(target.Name())
	}
	return nil
}

// searchAndLink looks up counterparts for tracks no snapshot pass could
// pair. A hit completes the mapping and, when propagate is set, likes
// the found track; a miss records (or bumps) the unmatched row. Retries
// of known unmatched rows only happen in full runs and stop at
// [MaxUnmatchedAttempts].
func (e *SyncEngine) searchAndLink(ctx context.Context, state *syncState, src models.ServiceName, tracks []models.Track, propagate bool) error {
	target := e.yandex
	if src == models.ServiceYandex {
		target = e.spotify
	}

	for _, t := range tracks {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := e.unmatched.Find(src, t.SourceID)
		known := err == nil
		if known && row.Attempts >= MaxUnmatchedAttempts {
			continue
		}
		if known && state.mode == models.ModeIncremental {
			continue
		}

		found, err := target.SearchTrack(ctx, t.Artist, t.Title)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			e.fail(state, "search failed", "service", target.Name(), "artist", t.Artist, "title", t.Title, "error", err)
			continue
		}

		if err == nil {
			conf := match.Score(candidate(t), candidate(*found))
			if conf.Matched() {
				if err := e.linkFound(ctx, state, src, t, *found, conf, known, propagate); err != nil {
					e.fail(state, "failed to link search result",
						"service", target.Name(), "id", found.SourceID, "error", err)
				}
				continue
			}
		}

		if _, err := e.unmatched.Record(src, t.SourceID, t.Artist, t.Title); err != nil {
			e.fail(state, "failed to record unmatched track", "service", src, "id", t.SourceID, "error", err)
			continue
		}
		state.stats.Unmatched++
	}
	return nil
}

// linkFound persists the completed mapping for a search hit and, when
// the direction allows propagating to the target service, likes it there.
func (e *SyncEngine) linkFound(ctx context.Context, state *syncState, src models.ServiceName, source, found models.Track, conf match.Confidence, retried, propagate bool) error {
	target := e.yandex
	params := repositories.UpsertParams{
		SpotifyID:  source.SourceID,
		YandexID:   found.SourceID,
		Artist:     source.Artist,
		Title:      source.Title,
		Confidence: conf.Score,
	}
	if src == models.ServiceYandex {
		target = e.spotify
		params.SpotifyID, params.YandexID = found.SourceID, source.SourceID
	}

	if propagate {
		if err := target.AddLiked(ctx, []string{found.SourceID}); err != nil {
			return err
		}
	}

	m, err := e.mappings.Upsert(params)
	if err != nil {
		return err
	}
	state.remember(m)

	if propagate {
		if src == models.ServiceYandex {
			state.spByID[found.SourceID] = found
		} else {
			state.ymByID[found.SourceID] = found
		}
		state.countAdded(target.Name())
	}

	if retried {
		e.resolveUnmatched(state, src, source.SourceID)
	}
	return nil
}

// applyDeletions unlikes the counterpart of every track that left a
// remote library since the previous run. Only tracks recorded in the
// prior-snapshot membership count as deletions; a track never synced
// before is an addition candidate instead.
func (e *SyncEngine) applyDeletions(ctx context.Context, state *syncState) error {
	if state.direction.ToYandex() {
		if err := e.removeVanished(ctx, state, models.ServiceSpotify); err != nil {
			return err
		}
	}
	if state.direction.ToSpotify() {
		if err := e.removeVanished(ctx, state, models.ServiceYandex); err != nil {
			return err
		}
	}
	return nil
}

// removeVanished handles tracks unliked on src: the counterpart like is
// removed on the other service, both membership rows are closed, and
// the mapping row itself is deleted. A failed counterpart unlike keeps
// the mapping so the next run retries the whole removal.
func (e *SyncEngine) removeVanished(ctx context.Context, state *syncState, src models.ServiceName) error {
	members, srcByID, srcCol := state.spMembers, state.spByID, state.spCol
	target, targetByID, targetCol := e.yandex, state.ymByID, state.ymCol
	if src == models.ServiceYandex {
		members, srcByID, srcCol = state.ymMembers, state.ymByID, state.ymCol
		target, targetByID, targetCol = e.spotify, state.spByID, state.spCol
	}

	for id := range members {
		if err := ctx.Err(); err != nil {
			return err
		}

		m := state.mapByID[id]
		if m == nil {
			continue
		}
		srcID, counterpart := m.SpotifyID, m.YandexID
		if src == models.ServiceYandex {
			srcID, counterpart = m.YandexID, m.SpotifyID
		}
		if srcID == "" {
			continue
		}
		if _, liked := srcByID[srcID]; liked {
			continue
		}

		if counterpart != "" {
			if _, stillLiked := targetByID[counterpart]; stillLiked {
				if err := target.RemoveLiked(ctx, []string{counterpart}); err != nil {
					e.fail(state, "failed to propagate unlike", "service", target.Name(), "id", counterpart, "error", err)
					continue
				}
				delete(targetByID, counterpart)
				state.countRemoved(target.Name())
				if err := e.collections.MarkRemoved(targetCol.ID, m.ID); err != nil {
					e.logger.Warn("failed to close membership row", "collection", targetCol.ID, "mapping", m.ID, "error", err)
				}
			}
		}

		if err := e.collections.MarkRemoved(srcCol.ID, m.ID); err != nil {
			e.logger.Warn("failed to close membership row", "collection", srcCol.ID, "mapping", m.ID, "error", err)
		}

		if err := e.mappings.Delete(m.ID); err != nil {
			e.fail(state, "failed to delete mapping", "mapping", m.ID, "error", err)
			continue
		}
		state.forget(m)
	}
	return nil
}

// refreshMembership records the reconciled snapshot so the next run can
// tell deletions from additions.
func (e *SyncEngine) refreshMembership(state *syncState) error {
	for id, t := range state.spByID {
		if m := state.mapBySp[id]; m != nil {
			if err := e.collections.AddTrack(state.spCol.ID, m.ID, t.AddedAt); err != nil {
				return err
			}
		}
	}
	for id, t := range state.ymByID {
		if m := state.mapByYm[id]; m != nil {
			if err := e.collections.AddTrack(state.ymCol.ID, m.ID, t.AddedAt); err != nil {
				return err
			}
		}
	}
	return nil
}

// sideMapping returns a lookup from source id to mapping for one side.
func (s *syncState) sideMapping(service models.ServiceName) func(string) *models.TrackMapping {
	if service == models.ServiceYandex {
		return func(id string) *models.TrackMapping { return s.mapByYm[id] }
	}
	return func(id string) *models.TrackMapping { return s.mapBySp[id] }
}

func (s *syncState) countAdded(service models.ServiceName) {
	if service == models.ServiceSpotify {
		s.stats.SpotifyAdded++
		return
	}
	s.stats.YandexAdded++
}

func (s *syncState) countRemoved(service models.ServiceName) {
	if service == models.ServiceSpotify {
		s.stats.SpotifyRemoved++
		return
	}
	s.stats.YandexRemoved++
}
