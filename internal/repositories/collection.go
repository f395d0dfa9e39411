package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
)

// CollectionRepository persists tracked collections and their membership
// rows. Membership is the prior-snapshot record: a mapping present in the
// table but absent from the current remote snapshot is a deletion candidate.
type CollectionRepository struct {
	db *sql.DB
}

// NewCollectionRepository creates a new CollectionRepository with the given database connection
func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// EnsureLikes returns the likes collection for a service, creating it when
// missing. The schema allows at most one likes collection per service.
func (r *CollectionRepository) EnsureLikes(service models.ServiceName) (*models.Collection, error) {
	col, err := r.findLikes(service)
	if err == nil {
		return col, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find likes collection: %w", err)
	}

	query := `
		INSERT INTO collections (service, collection_type, title, created_at)
		VALUES (?, 'likes', 'Liked Songs', ?)
		RETURNING id, service, collection_type, remote_id, title, paired_id, created_at
	`
	col, err = scanCollection(r.db.QueryRow(query, service, time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("failed to create likes collection: %w", err)
	}
	return col, nil
}

func (r *CollectionRepository) findLikes(service models.ServiceName) (*models.Collection, error) {
	query := `
		SELECT id, service, collection_type, remote_id, title, paired_id, created_at
		FROM collections
		WHERE service = ? AND collection_type = 'likes'
	`
	return scanCollection(r.db.QueryRow(query, service))
}

// Pair links two collections as counterparts of each other.
func (r *CollectionRepository) Pair(idA, idB int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE collections SET paired_id = ? WHERE id = ?", idB, idA); err != nil {
		return fmt.Errorf("failed to pair collection %d: %w", idA, err)
	}
	if _, err := tx.Exec("UPDATE collections SET paired_id = ? WHERE id = ?", idA, idB); err != nil {
		return fmt.Errorf("failed to pair collection %d: %w", idB, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pairing: %w", err)
	}
	return nil
}

// AddTrack records a mapping's membership in a collection, clearing any
// prior removal marker. Idempotent per (collection, mapping).
func (r *CollectionRepository) AddTrack(collectionID, mappingID int64, addedAt time.Time) error {
	now := time.Now().UTC()
	if addedAt.IsZero() {
		addedAt = now
	}

	query := `
		INSERT INTO collection_tracks (collection_id, track_mapping_id, added_at, synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection_id, track_mapping_id) DO UPDATE SET
			synced_at = excluded.synced_at,
			removed_at = NULL
	`
	if _, err := r.db.Exec(query, collectionID, mappingID, addedAt, now); err != nil {
		return fmt.Errorf("failed to add track to collection: %w", err)
	}
	return nil
}

// MarkRemoved stamps a membership row as gone from the remote snapshot.
func (r *CollectionRepository) MarkRemoved(collectionID, mappingID int64) error {
	query := "UPDATE collection_tracks SET removed_at = ? WHERE collection_id = ? AND track_mapping_id = ?"
	if _, err := r.db.Exec(query, time.Now().UTC(), collectionID, mappingID); err != nil {
		return fmt.Errorf("failed to mark track removed: %w", err)
	}
	return nil
}

// ListTracks retrieves the active membership rows for a collection.
func (r *CollectionRepository) ListTracks(collectionID int64) ([]*models.CollectionTrack, error) {
	query := `
		SELECT collection_id, track_mapping_id, added_at, synced_at, removed_at
		FROM collection_tracks
		WHERE collection_id = ? AND removed_at IS NULL
		ORDER BY track_mapping_id
	`

	rows, err := r.db.Query(query, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.CollectionTrack
	for rows.Next() {
		var (
			ct        models.CollectionTrack
			addedAt   sql.NullTime
			syncedAt  sql.NullTime
			removedAt sql.NullTime
		)
		if err := rows.Scan(&ct.CollectionID, &ct.TrackMappingID, &addedAt, &syncedAt, &removedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection track: %w", err)
		}
		ct.AddedAt = addedAt.Time
		ct.SyncedAt = syncedAt.Time
		if removedAt.Valid {
			ct.RemovedAt = &removedAt.Time
		}
		tracks = append(tracks, &ct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// TrackCount returns the number of active membership rows for a collection.
func (r *CollectionRepository) TrackCount(collectionID int64) (int, error) {
	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM collection_tracks WHERE collection_id = ? AND removed_at IS NULL",
		collectionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection tracks: %w", err)
	}
	return n, nil
}

// Get retrieves a collection by primary key.
func (r *CollectionRepository) Get(id int64) (*models.Collection, error) {
	query := `
		SELECT id, service, collection_type, remote_id, title, paired_id, created_at
		FROM collections
		WHERE id = ?
	`
	col, err := scanCollection(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: collection %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	return col, nil
}

func scanCollection(s scanner) (*models.Collection, error) {
	var (
		c        models.Collection
		remoteID sql.NullString
		pairedID sql.NullInt64
	)
	err := s.Scan(&c.ID, &c.Service, &c.Type, &remoteID, &c.Title, &pairedID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.RemoteID = remoteID.String
	c.PairedID = pairedID.Int64
	return &c, nil
}
