package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ServiceName identifies one of the two synchronized music services.
type ServiceName string

const (
	ServiceSpotify ServiceName = "spotify"
	ServiceYandex  ServiceName = "yandex"
)

// Other returns the opposite service.
func (s ServiceName) Other() ServiceName {
	if s == ServiceSpotify {
		return ServiceYandex
	}
	return ServiceSpotify
}

// Valid reports whether s is a known service name.
func (s ServiceName) Valid() bool {
	return s == ServiceSpotify || s == ServiceYandex
}

// SyncMode selects how much of both libraries a run re-evaluates.
type SyncMode string

const (
	ModeFull        SyncMode = "full"
	ModeIncremental SyncMode = "incremental"
)

// Valid reports whether m is a known sync mode.
func (m SyncMode) Valid() bool { return m == ModeFull || m == ModeIncremental }

// SyncDirection restricts which way additions propagate.
type SyncDirection string

const (
	DirectionSpotifyToYandex SyncDirection = "spotify_to_yandex"
	DirectionYandexToSpotify SyncDirection = "yandex_to_spotify"
	DirectionBidirectional   SyncDirection = "bidirectional"
)

// Valid reports whether d is a known sync direction.
func (d SyncDirection) Valid() bool {
	switch d {
	case DirectionSpotifyToYandex, DirectionYandexToSpotify, DirectionBidirectional:
		return true
	}
	return false
}

// ToYandex reports whether additions may propagate from Spotify to Yandex.
func (d SyncDirection) ToYandex() bool {
	return d == DirectionBidirectional || d == DirectionSpotifyToYandex
}

// ToSpotify reports whether additions may propagate from Yandex to Spotify.
func (d SyncDirection) ToSpotify() bool {
	return d == DirectionBidirectional || d == DirectionYandexToSpotify
}

// SyncStatus is the lifecycle state of a [SyncRun].
// Transitions: running → success | error; both terminal.
type SyncStatus string

const (
	StatusRunning SyncStatus = "running"
	StatusSuccess SyncStatus = "success"
	StatusError   SyncStatus = "error"
)

// Terminal reports whether the status allows no further transition.
func (s SyncStatus) Terminal() bool { return s == StatusSuccess || s == StatusError }

// CollectionType distinguishes the tracked likes list from ordinary playlists.
type CollectionType string

const (
	CollectionLikes    CollectionType = "likes"
	CollectionPlaylist CollectionType = "playlist"
)

// Track is a liked track as fetched from a remote service API.
type Track struct {
	SourceID        string // platform-specific track ID
	Artist          string // raw artist name from the API
	Title           string // raw track title from the API
	DurationSeconds int    // 0 when the service did not report a duration
	AddedAt         time.Time
}

// Validate checks that the track carries the fields matching requires.
func (t Track) Validate() error {
	if t.SourceID == "" {
		return fmt.Errorf("track missing source id")
	}
	if t.Artist == "" && t.Title == "" {
		return fmt.Errorf("track %s has neither artist nor title", t.SourceID)
	}
	return nil
}

// TrackMapping is a confirmed link between one track on each service.
//
// At most one mapping owns a given non-null SpotifyID or YandexID; a mapping
// may hold only one side while the counterpart is pending creation, but a
// completed reconciliation run never leaves it that way.
type TrackMapping struct {
	ID         int64
	SpotifyID  string // empty when the Spotify side is pending
	YandexID   string // empty when the Yandex side is pending
	Artist     string
	Title      string
	Confidence float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks mapping invariants before persistence.
func (m TrackMapping) Validate() error {
	if m.SpotifyID == "" && m.YandexID == "" {
		return fmt.Errorf("mapping must reference at least one service id")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", m.Confidence)
	}
	return nil
}

// Complete reports whether both sides of the mapping are populated.
func (m TrackMapping) Complete() bool { return m.SpotifyID != "" && m.YandexID != "" }

// UnmatchedTrack is a liked track with no confirmed counterpart on the other
// service. Unique per (SourceService, SourceID); Attempts only grows.
type UnmatchedTrack struct {
	ID            int64
	SourceService ServiceName
	SourceID      string
	Artist        string
	Title         string
	Attempts      int
	LastAttemptAt time.Time
	CreatedAt     time.Time
}

// Validate checks unmatched-track invariants before persistence.
func (u UnmatchedTrack) Validate() error {
	if !u.SourceService.Valid() {
		return fmt.Errorf("unknown source service %q", u.SourceService)
	}
	if u.SourceID == "" {
		return fmt.Errorf("unmatched track missing source id")
	}
	if u.Attempts < 0 {
		return fmt.Errorf("attempts must be non-negative")
	}
	return nil
}

// Collection is a tracked likes list or playlist on one service.
type Collection struct {
	ID         int64
	Service    ServiceName
	Type       CollectionType
	RemoteID   string
	Title      string
	PairedID   int64 // id of the counterpart collection on the other service, 0 when unpaired
	TrackCount int   // derived, not stored
	CreatedAt  time.Time
}

// CollectionTrack records a mapping's membership in a collection.
// RemovedAt marks the track as gone from the remote snapshot without
// discarding the membership history.
type CollectionTrack struct {
	CollectionID   int64
	TrackMappingID int64
	AddedAt        time.Time
	SyncedAt       time.Time
	RemovedAt      *time.Time
}

// SyncStats aggregates the counters recorded for one reconciliation run.
type SyncStats struct {
	SpotifyAdded   int `json:"sp_added"`
	YandexAdded    int `json:"ym_added"`
	SpotifyRemoved int `json:"sp_removed"`
	YandexRemoved  int `json:"ym_removed"`
	CrossMatched   int `json:"cross_matched"`
	Unmatched      int `json:"unmatched"`
	RetriedOK      int `json:"retried_ok"`
	Errors         int `json:"errors"`
}

// JSON serializes the stats for the sync_runs.stats_json column.
func (s SyncStats) JSON() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseSyncStats deserializes a stats_json column value.
func ParseSyncStats(raw string) (SyncStats, error) {
	var s SyncStats
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("failed to parse sync stats: %w", err)
	}
	return s, nil
}

// SyncRun is the record of one reconciliation execution.
type SyncRun struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Direction    SyncDirection
	Mode         SyncMode
	Status       SyncStatus
	StatsJSON    string
	ErrorMessage string
}

// Validate checks sync-run invariants before persistence.
func (r SyncRun) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("sync run missing id")
	}
	if !r.Direction.Valid() {
		return fmt.Errorf("unknown direction %q", r.Direction)
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", r.Mode)
	}
	if r.Status.Terminal() && r.FinishedAt == nil {
		return fmt.Errorf("terminal run %s missing finished_at", r.ID)
	}
	return nil
}
