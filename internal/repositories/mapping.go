package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
)

// MappingRepository persists [models.TrackMapping] rows.
//
// Uniqueness of non-null spotify_id / yandex_id is enforced here, by the
// table constraints and the conflict-merging upsert, not by callers.
type MappingRepository struct {
	db *sql.DB
}

// NewMappingRepository creates a new MappingRepository with the given database connection
func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// UpsertParams identifies the mapping to create or merge. Empty id strings
// mean "side unknown"; at least one side must be set.
type UpsertParams struct {
	SpotifyID  string
	YandexID   string
	Artist     string
	Title      string
	Confidence float64
}

// Upsert inserts a mapping or merges into the existing row owning either
// service id. A conflicting row keeps its other-side id unless the incoming
// value fills a blank (COALESCE semantics mirroring the unique constraints).
func (r *MappingRepository) Upsert(p UpsertParams) (*models.TrackMapping, error) {
	if p.SpotifyID == "" && p.YandexID == "" {
		return nil, fmt.Errorf("%w: upsert requires at least one service id", shared.ErrInvalidInput)
	}
	if p.Confidence == 0 {
		p.Confidence = 1.0
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO track_mappings (spotify_id, yandex_id, artist, title, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (spotify_id) DO UPDATE SET
			yandex_id = COALESCE(excluded.yandex_id, track_mappings.yandex_id),
			artist = excluded.artist,
			title = excluded.title,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
		ON CONFLICT (yandex_id) DO UPDATE SET
			spotify_id = COALESCE(excluded.spotify_id, track_mappings.spotify_id),
			artist = excluded.artist,
			title = excluded.title,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
		RETURNING id, spotify_id, yandex_id, artist, title, confidence, created_at, updated_at
	`

	row := r.db.QueryRow(query,
		nullable(p.SpotifyID), nullable(p.YandexID), p.Artist, p.Title, p.Confidence, now, now)

	mapping, err := scanMapping(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert mapping: %w", err)
	}
	return mapping, nil
}

// FindBySpotifyID retrieves the mapping owning the given spotify_id.
func (r *MappingRepository) FindBySpotifyID(spotifyID string) (*models.TrackMapping, error) {
	return r.findBy("spotify_id", spotifyID)
}

// FindByYandexID retrieves the mapping owning the given yandex_id.
func (r *MappingRepository) FindByYandexID(yandexID string) (*models.TrackMapping, error) {
	return r.findBy("yandex_id", yandexID)
}

// Get retrieves a mapping by primary key.
func (r *MappingRepository) Get(id int64) (*models.TrackMapping, error) {
	return r.findBy("id", id)
}

func (r *MappingRepository) findBy(column string, value any) (*models.TrackMapping, error) {
	query := fmt.Sprintf(`
		SELECT id, spotify_id, yandex_id, artist, title, confidence, created_at, updated_at
		FROM track_mappings
		WHERE %s = ?
	`, column)

	mapping, err := scanMapping(r.db.QueryRow(query, value))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: mapping %s=%v", shared.ErrNotFound, column, value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query mapping: %w", err)
	}
	return mapping, nil
}

// ListParams paginates and optionally filters list queries.
type ListParams struct {
	Limit  int
	Offset int
	Search string // matched against artist and title
}

// List retrieves mappings ordered by id with pagination and an optional
// artist/title search.
func (r *MappingRepository) List(p ListParams) ([]*models.TrackMapping, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}

	query := `
		SELECT id, spotify_id, yandex_id, artist, title, confidence, created_at, updated_at
		FROM track_mappings
	`
	args := []any{}
	if p.Search != "" {
		query += " WHERE artist LIKE ? OR title LIKE ?"
		needle := "%" + p.Search + "%"
		args = append(args, needle, needle)
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, p.Limit, p.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*models.TrackMapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return mappings, nil
}

// All retrieves every mapping; the engine loads the full set at run start.
func (r *MappingRepository) All() ([]*models.TrackMapping, error) {
	return r.List(ListParams{Limit: 1 << 30})
}

// Count returns the number of persisted mappings.
func (r *MappingRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM track_mappings").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count mappings: %w", err)
	}
	return n, nil
}

// Delete removes a mapping; its membership rows cascade with it. Only
// the deletion-propagation branch calls this.
func (r *MappingRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM track_mappings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: mapping %d", shared.ErrNotFound, id)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(s scanner) (*models.TrackMapping, error) {
	var (
		m         models.TrackMapping
		spotifyID sql.NullString
		yandexID  sql.NullString
	)

	err := s.Scan(&m.ID, &spotifyID, &yandexID, &m.Artist, &m.Title, &m.Confidence, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m.SpotifyID = spotifyID.String
	m.YandexID = yandexID.String
	return &m, nil
}

// nullable converts empty strings to NULL so the partial unique constraints
// ignore unset sides.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
