package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
)

// SyncRunRepository persists [models.SyncRun] history.
//
// Runs transition running → success | error exactly once; [SyncRunRepository.Finish]
// refuses to touch a run that already reached a terminal status.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Start inserts a run in the running state and returns it.
func (r *SyncRunRepository) Start(direction models.SyncDirection, mode models.SyncMode) (*models.SyncRun, error) {
	run := models.SyncRun{
		ID:        shared.GenerateID(),
		StartedAt: time.Now().UTC(),
		Direction: direction,
		Mode:      mode,
		Status:    models.StatusRunning,
	}
	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_runs (id, started_at, direction, mode, status)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, run.ID, run.StartedAt, run.Direction, run.Mode, run.Status); err != nil {
		return nil, fmt.Errorf("failed to insert sync run: %w", err)
	}
	return &run, nil
}

// Finish moves a running run to a terminal status with its stats or error
// message. Finishing an already-terminal run is a conflict.
func (r *SyncRunRepository) Finish(id string, status models.SyncStatus, statsJSON, errorMessage string) (*models.SyncRun, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: finish requires a terminal status, got %q", shared.ErrInvalidInput, status)
	}

	query := `
		UPDATE sync_runs
		SET finished_at = ?, status = ?, stats_json = ?, error_message = ?
		WHERE id = ? AND status = 'running'
		RETURNING id, started_at, finished_at, direction, mode, status, stats_json, error_message
	`

	run, err := scanSyncRun(r.db.QueryRow(query, time.Now().UTC(), status, nullable(statsJSON), nullable(errorMessage), id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: run %s is not running", shared.ErrStoreConflict, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finish sync run: %w", err)
	}
	return run, nil
}

// Get retrieves a run by id.
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, direction, mode, status, stats_json, error_message
		FROM sync_runs
		WHERE id = ?
	`
	run, err := scanSyncRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: sync run %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync run: %w", err)
	}
	return run, nil
}

// Active returns the currently running run, or nil when idle.
func (r *SyncRunRepository) Active() (*models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, direction, mode, status, stats_json, error_message
		FROM sync_runs
		WHERE status = 'running'
		ORDER BY started_at DESC
		LIMIT 1
	`
	run, err := scanSyncRun(r.db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active run: %w", err)
	}
	return run, nil
}

// LastSuccessful returns the most recent successful run, or nil when none.
func (r *SyncRunRepository) LastSuccessful() (*models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, direction, mode, status, stats_json, error_message
		FROM sync_runs
		WHERE status = 'success'
		ORDER BY started_at DESC
		LIMIT 1
	`
	run, err := scanSyncRun(r.db.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last successful run: %w", err)
	}
	return run, nil
}

// List retrieves run history, newest first.
func (r *SyncRunRepository) List(limit int) ([]*models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, started_at, finished_at, direction, mode, status, stats_json, error_message
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

func scanSyncRun(s scanner) (*models.SyncRun, error) {
	var (
		run        models.SyncRun
		finishedAt sql.NullTime
		statsJSON  sql.NullString
		errMessage sql.NullString
	)

	err := s.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Direction, &run.Mode, &run.Status, &statsJSON, &errMessage)
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	run.StatsJSON = statsJSON.String
	run.ErrorMessage = errMessage.String
	return &run, nil
}
