package tasks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/repositories"
	"github.com/desertthunder/spondex/internal/services"
	"github.com/desertthunder/spondex/internal/shared"
)

// MaxUnmatchedAttempts caps how many runs keep searching for a
// counterpart before an unmatched track is parked.
const MaxUnmatchedAttempts = 5

// SyncEngine reconciles the liked tracks of both services against the
// mapping store. One engine drives one database; Run is not reentrant;
// the scheduler serializes callers.
type SyncEngine struct {
	logger *log.Logger

	spotify services.Library
	yandex  services.Library

	mappings    *repositories.MappingRepository
	unmatched   *repositories.UnmatchedRepository
	collections *repositories.CollectionRepository
	runs        *repositories.SyncRunRepository

	propagateDeletions bool
}

// NewSyncEngine creates a SyncEngine over the given clients and database.
func NewSyncEngine(logger *log.Logger, db *sql.DB, spotify, yandex services.Library, cfg shared.SyncConfig) *SyncEngine {
	return &SyncEngine{
		logger:             logger,
		spotify:            spotify,
		yandex:             yandex,
		mappings:           repositories.NewMappingRepository(db),
		unmatched:          repositories.NewUnmatchedRepository(db),
		collections:        repositories.NewCollectionRepository(db),
		runs:               repositories.NewSyncRunRepository(db),
		propagateDeletions: cfg.PropagateDeletions,
	}
}

// Runs exposes the run history repository for status reporting.
func (e *SyncEngine) Runs() *repositories.SyncRunRepository { return e.runs }

// syncState carries everything one run needs between phases.
type syncState struct {
	mode      models.SyncMode
	direction models.SyncDirection
	stats     models.SyncStats

	spTracks []models.Track
	ymTracks []models.Track
	spByID   map[string]models.Track
	ymByID   map[string]models.Track

	spCol *models.Collection
	ymCol *models.Collection

	// mapping store indexes, updated as the run creates mappings
	mapBySp map[string]*models.TrackMapping
	mapByYm map[string]*models.TrackMapping
	mapByID map[int64]*models.TrackMapping

	// prior-snapshot membership, keyed by mapping id
	spMembers map[int64]bool
	ymMembers map[int64]bool

	// snapshot tracks left without a counterpart after cross matching
	soloSp []models.Track
	soloYm []models.Track
}

// Run executes one reconciliation and records it as a sync run. Remote
// snapshot or store failures abort the run with an error status;
// per-track API failures are folded into the stats and logged.
func (e *SyncEngine) Run(ctx context.Context, mode models.SyncMode, direction models.SyncDirection) (*models.SyncRun, error) {
	run, err := e.runs.Start(direction, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to start sync run: %w", err)
	}
	e.logger.Info("sync run started", "run", run.ID, "mode", mode, "direction", direction)

	state, err := e.reconcile(ctx, mode, direction)
	if err != nil {
		if finished, ferr := e.runs.Finish(run.ID, models.StatusError, "", err.Error()); ferr == nil {
			run = finished
		} else {
			e.logger.Error("failed to record run failure", "run", run.ID, "error", ferr)
		}
		e.logger.Error("sync run failed", "run", run.ID, "error", err)
		return run, err
	}

	finished, err := e.runs.Finish(run.ID, models.StatusSuccess, state.stats.JSON(), "")
	if err != nil {
		return run, fmt.Errorf("failed to finish sync run: %w", err)
	}
	e.logger.Info("sync run finished",
		"run", finished.ID,
		"cross_matched", state.stats.CrossMatched,
		"sp_added", state.stats.SpotifyAdded,
		"ym_added", state.stats.YandexAdded,
		"unmatched", state.stats.Unmatched,
		"errors", state.stats.Errors,
	)
	return finished, nil
}

func (e *SyncEngine) reconcile(ctx context.Context, mode models.SyncMode, direction models.SyncDirection) (*syncState, error) {
	state := &syncState{mode: mode, direction: direction}

	if err := e.fetchSnapshots(ctx, state); err != nil {
		return nil, err
	}
	if err := e.loadCollections(state); err != nil {
		return nil, err
	}
	if err := e.loadMappings(state); err != nil {
		return nil, err
	}
	if err := e.crossMatchNew(ctx, state); err != nil {
		return nil, err
	}
	if err := e.propagateAdditions(ctx, state); err != nil {
		return nil, err
	}
	if e.propagateDeletions {
		if err := e.applyDeletions(ctx, state); err != nil {
			return nil, err
		}
	}
	if err := e.refreshMembership(state); err != nil {
		return nil, err
	}
	return state, nil
}

// fetchSnapshots pulls both liked-track snapshots. Either listing
// failing is systemic: the run aborts rather than reconcile against a
// partial picture.
func (e *SyncEngine) fetchSnapshots(ctx context.Context, state *syncState) error {
	var err error
	if state.spTracks, err = e.spotify.ListLiked(ctx); err != nil {
		return fmt.Errorf("spotify snapshot failed: %w", err)
	}
	if state.ymTracks, err = e.yandex.ListLiked(ctx); err != nil {
		return fmt.Errorf("yandex snapshot failed: %w", err)
	}

	state.spByID = make(map[string]models.Track, len(state.spTracks))
	for _, t := range state.spTracks {
		state.spByID[t.SourceID] = t
	}
	state.ymByID = make(map[string]models.Track, len(state.ymTracks))
	for _, t := range state.ymTracks {
		state.ymByID[t.SourceID] = t
	}

	e.logger.Debug("snapshots fetched", "spotify", len(state.spTracks), "yandex", len(state.ymTracks))
	return nil
}

// loadCollections ensures both likes collections exist, pairs them, and
// loads the prior-snapshot membership.
func (e *SyncEngine) loadCollections(state *syncState) error {
	var err error
	if state.spCol, err = e.collections.EnsureLikes(models.ServiceSpotify); err != nil {
		return err
	}
	if state.ymCol, err = e.collections.EnsureLikes(models.ServiceYandex); err != nil {
		return err
	}
	if state.spCol.PairedID == 0 {
		if err := e.collections.Pair(state.spCol.ID, state.ymCol.ID); err != nil {
			return err
		}
	}

	state.spMembers, err = e.memberSet(state.spCol.ID)
	if err != nil {
		return err
	}
	state.ymMembers, err = e.memberSet(state.ymCol.ID)
	return err
}

func (e *SyncEngine) memberSet(collectionID int64) (map[int64]bool, error) {
	rows, err := e.collections.ListTracks(collectionID)
	if err != nil {
		return nil, err
	}
	members := make(map[int64]bool, len(rows))
	for _, row := range rows {
		members[row.TrackMappingID] = true
	}
	return members, nil
}

// loadMappings indexes the whole mapping store by both service ids.
func (e *SyncEngine) loadMappings(state *syncState) error {
	all, err := e.mappings.All()
	if err != nil {
		return err
	}

	state.mapBySp = make(map[string]*models.TrackMapping, len(all))
	state.mapByYm = make(map[string]*models.TrackMapping, len(all))
	state.mapByID = make(map[int64]*models.TrackMapping, len(all))
	for _, m := range all {
		state.remember(m)
	}
	return nil
}

// remember updates the run's mapping indexes after an upsert.
func (s *syncState) remember(m *models.TrackMapping) {
	s.mapByID[m.ID] = m
	if m.SpotifyID != "" {
		s.mapBySp[m.SpotifyID] = m
	}
	if m.YandexID != "" {
		s.mapByYm[m.YandexID] = m
	}
}

// forget drops a deleted mapping from the run's indexes so later phases
// cannot resurrect it.
func (s *syncState) forget(m *models.TrackMapping) {
	delete(s.mapByID, m.ID)
	if m.SpotifyID != "" {
		delete(s.mapBySp, m.SpotifyID)
	}
	if m.YandexID != "" {
		delete(s.mapByYm, m.YandexID)
	}
	delete(s.spMembers, m.ID)
	delete(s.ymMembers, m.ID)
}

// fail folds a per-track failure into the run stats.
func (e *SyncEngine) fail(state *syncState, msg string, kv ...any) {
	state.stats.Errors++
	e.logger.Warn(msg, kv...)
}
