// Yandex Music API implementation of [Library]
//
// Talks to the public api.music.yandex.net endpoints with a long-lived
// OAuth token. Responses arrive wrapped in a {"result": ...} envelope.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/shared"
	"golang.org/x/time/rate"
)

const (
	yandexBaseURL = "https://api.music.yandex.net"

	// Track detail lookups are batched; the API tolerates large batches
	// but 100 keeps URLs short.
	yandexBatchSize = 100

	yandexRateLimit = 4
)

// YandexArtist represents an artist on a track object.
type YandexArtist struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// YandexTrack represents a Yandex Music track.
type YandexTrack struct {
	ID         json.Number    `json:"id"`
	Title      string         `json:"title"`
	Artists    []YandexArtist `json:"artists"`
	DurationMS int            `json:"durationMs"`
	Available  bool           `json:"available"`
}

// yandexLikeRef is one entry of the likes library: a track id plus the
// timestamp it was liked, without title or artist details.
type yandexLikeRef struct {
	ID        json.Number `json:"id"`
	AlbumID   json.Number `json:"albumId"`
	Timestamp string      `json:"timestamp"`
}

// YandexService implements [Library] for the Yandex Music API.
type YandexService struct {
	token      string
	userID     string
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewYandexService creates a Yandex Music client from the configured
// credentials.
func NewYandexService(cfg shared.YandexConfig) (*YandexService, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: yandex token", shared.ErrMissingCredentials)
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("%w: yandex user_id", shared.ErrMissingCredentials)
	}

	return &YandexService{
		token:      cfg.Token,
		userID:     cfg.UserID,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(yandexRateLimit), 1),
		baseURL:    yandexBaseURL,
	}, nil
}

// Name returns the service name.
func (y *YandexService) Name() models.ServiceName {
	return models.ServiceYandex
}

func (y *YandexService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+y.token)

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: yandex returned status %d", shared.ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("yandex API error: status %d", resp.StatusCode)
	}

	if result != nil {
		envelope := struct {
			Result any `json:"result"`
		}{Result: result}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// likedRefs retrieves the likes library, which carries ids and timestamps
// only.
func (y *YandexService) likedRefs(ctx context.Context) ([]yandexLikeRef, error) {
	endpoint := fmt.Sprintf("/users/%s/likes/tracks", y.userID)

	var result struct {
		Library struct {
			Tracks []yandexLikeRef `json:"tracks"`
		} `json:"library"`
	}
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to list likes library: %w", err)
	}
	return result.Library.Tracks, nil
}

// Tracks resolves full track objects for the given ids.
func (y *YandexService) Tracks(ctx context.Context, ids []string) ([]YandexTrack, error) {
	var tracks []YandexTrack
	for _, batch := range chunk(ids, yandexBatchSize) {
		endpoint := "/tracks?track-ids=" + url.QueryEscape(strings.Join(batch, ","))

		var result []YandexTrack
		if err := y.doRequest(ctx, http.MethodPost, endpoint, &result); err != nil {
			return nil, fmt.Errorf("failed to resolve %d tracks: %w", len(batch), err)
		}
		tracks = append(tracks, result...)
	}
	return tracks, nil
}

// ListLiked fetches the likes library and resolves every referenced
// track. A failed detail batch aborts the whole listing.
func (y *YandexService) ListLiked(ctx context.Context) ([]models.Track, error) {
	refs, err := y.likedRefs(ctx)
	if err != nil {
		return nil, err
	}

	likedAt := make(map[string]time.Time, len(refs))
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id := ref.ID.String()
		ids = append(ids, id)
		if ts, err := time.Parse(time.RFC3339, ref.Timestamp); err == nil {
			likedAt[id] = ts
		}
	}

	resolved, err := y.Tracks(ctx, ids)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(resolved))
	for _, yt := range resolved {
		track := yandexTrackToModel(yt)
		track.AddedAt = likedAt[track.SourceID]
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// AddLiked likes the given track ids.
func (y *YandexService) AddLiked(ctx context.Context, ids []string) error {
	return y.mutateLiked(ctx, "add-multiple", ids)
}

// RemoveLiked removes likes for the given track ids.
func (y *YandexService) RemoveLiked(ctx context.Context, ids []string) error {
	return y.mutateLiked(ctx, "remove", ids)
}

func (y *YandexService) mutateLiked(ctx context.Context, action string, ids []string) error {
	for _, batch := range chunk(ids, yandexBatchSize) {
		endpoint := fmt.Sprintf("/users/%s/likes/tracks/%s?track-ids=%s",
			y.userID, action, url.QueryEscape(strings.Join(batch, ",")))
		if err := y.doRequest(ctx, http.MethodPost, endpoint, nil); err != nil {
			return fmt.Errorf("failed to %s %d likes: %w", action, len(batch), err)
		}
	}
	return nil
}

// SearchTrack searches the catalog and returns the top track result.
func (y *YandexService) SearchTrack(ctx context.Context, artist, title string) (*models.Track, error) {
	text := url.QueryEscape(strings.TrimSpace(artist + " " + title))
	endpoint := fmt.Sprintf("/search?text=%s&type=track&page=0", text)

	var result struct {
		Tracks struct {
			Results []YandexTrack `json:"results"`
		} `json:"tracks"`
	}
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &result); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(result.Tracks.Results) == 0 {
		return nil, fmt.Errorf("%w: no yandex result for %q by %q", shared.ErrNotFound, title, artist)
	}

	track := yandexTrackToModel(result.Tracks.Results[0])
	return &track, nil
}

func yandexTrackToModel(t YandexTrack) models.Track {
	track := models.Track{
		SourceID:        t.ID.String(),
		Title:           t.Title,
		DurationSeconds: t.DurationMS / 1000,
	}
	if len(t.Artists) > 0 {
		names := make([]string, len(t.Artists))
		for i, a := range t.Artists {
			names[i] = a.Name
		}
		track.Artist = strings.Join(names, ", ")
	}
	return track
}
