package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
)

// UnmatchedRepository persists [models.UnmatchedTrack] rows.
//
// Rows are unique per (source_service, source_id); recording an existing row
// bumps its attempt counter. Rows leave the table only by promotion to a
// mapping ([UnmatchedRepository.Resolve]), never silently.
type UnmatchedRepository struct {
	db *sql.DB
}

// NewUnmatchedRepository creates a new UnmatchedRepository with the given database connection
func NewUnmatchedRepository(db *sql.DB) *UnmatchedRepository {
	return &UnmatchedRepository{db: db}
}

// Record inserts an unmatched track with attempts = 1, or increments
// attempts and refreshes last_attempt_at when the row already exists.
func (r *UnmatchedRepository) Record(service models.ServiceName, sourceID, artist, title string) (*models.UnmatchedTrack, error) {
	if !service.Valid() {
		return nil, fmt.Errorf("%w: unknown service %q", shared.ErrInvalidInput, service)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO unmatched_tracks (source_service, source_id, artist, title, attempts, last_attempt_at, created_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (source_service, source_id) DO UPDATE SET
			attempts = unmatched_tracks.attempts + 1,
			last_attempt_at = excluded.last_attempt_at
		RETURNING id, source_service, source_id, artist, title, attempts, last_attempt_at, created_at
	`

	track, err := scanUnmatched(r.db.QueryRow(query, service, sourceID, artist, title, now, now))
	if err != nil {
		return nil, fmt.Errorf("failed to record unmatched track: %w", err)
	}
	return track, nil
}

// Resolve deletes an unmatched row after its track has been promoted to a
// mapping. Resolving an absent row is a no-op.
func (r *UnmatchedRepository) Resolve(service models.ServiceName, sourceID string) error {
	_, err := r.db.Exec(
		"DELETE FROM unmatched_tracks WHERE source_service = ? AND source_id = ?",
		service, sourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve unmatched track: %w", err)
	}
	return nil
}

// Find retrieves the unmatched row for one source track, if present.
func (r *UnmatchedRepository) Find(service models.ServiceName, sourceID string) (*models.UnmatchedTrack, error) {
	query := `
		SELECT id, source_service, source_id, artist, title, attempts, last_attempt_at, created_at
		FROM unmatched_tracks
		WHERE source_service = ? AND source_id = ?
	`

	track, err := scanUnmatched(r.db.QueryRow(query, service, sourceID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: unmatched %s/%s", shared.ErrNotFound, service, sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched track: %w", err)
	}
	return track, nil
}

// ListByService retrieves all unmatched rows originating from one service,
// ordered by id for reproducible retry order.
func (r *UnmatchedRepository) ListByService(service models.ServiceName) ([]*models.UnmatchedTrack, error) {
	query := `
		SELECT id, source_service, source_id, artist, title, attempts, last_attempt_at, created_at
		FROM unmatched_tracks
		WHERE source_service = ?
		ORDER BY id
	`
	return r.queryMany(query, service)
}

// List retrieves unmatched rows with pagination and optional text search.
func (r *UnmatchedRepository) List(p ListParams) ([]*models.UnmatchedTrack, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}

	query := `
		SELECT id, source_service, source_id, artist, title, attempts, last_attempt_at, created_at
		FROM unmatched_tracks
	`
	args := []any{}
	if p.Search != "" {
		query += " WHERE artist LIKE ? OR title LIKE ?"
		needle := "%" + p.Search + "%"
		args = append(args, needle, needle)
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset)

	return r.queryMany(query, args...)
}

// Count returns the number of unmatched rows.
func (r *UnmatchedRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM unmatched_tracks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unmatched tracks: %w", err)
	}
	return n, nil
}

func (r *UnmatchedRepository) queryMany(query string, args ...any) ([]*models.UnmatchedTrack, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.UnmatchedTrack
	for rows.Next() {
		track, err := scanUnmatched(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

func scanUnmatched(s scanner) (*models.UnmatchedTrack, error) {
	var u models.UnmatchedTrack
	err := s.Scan(&u.ID, &u.SourceService, &u.SourceID, &u.Artist, &u.Title, &u.Attempts, &u.LastAttemptAt, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
