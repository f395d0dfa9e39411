// Spotify API implementation of [Library]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
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
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify caps saved-tracks pages and like/unlike batches at 50 ids.
	spotifyPageLimit = 50

	// Requests per second against the Web API. Spotify enforces a rolling
	// 30-second window; 6 rps stays comfortably inside it.
	spotifyRateLimit = 6
)

// SpotifyArtist represents an artist on a track object.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

// SpotifyService implements [Library] for the Spotify Web API. Uses
// [oauth2] with a stored refresh token so the daemon never needs an
// interactive login after setup.
type SpotifyService struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewSpotifyService creates a Spotify client from the configured
// credentials. The refresh token comes from `spondex setup`.
func NewSpotifyService(ctx context.Context, cfg shared.SpotifyConfig) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}
	if cfg.RefreshToken == "" {
		return nil, fmt.Errorf("%w: spotify refresh_token (run setup)", shared.ErrMissingCredentials)
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: spotifyTokenURL},
	}
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}

	return &SpotifyService{
		httpClient: conf.Client(ctx, token),
		limiter:    rate.NewLimiter(rate.Limit(spotifyRateLimit), 1),
		baseURL:    spotifyBaseURL,
	}, nil
}

// Name returns the service name.
func (s *SpotifyService) Name() models.ServiceName {
	return models.ServiceSpotify
}

// doRequest performs a rate-limited, authenticated request against the Web API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: spotify returned status %d", shared.ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("spotify API error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// SavedTracks retrieves one page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	if limit <= 0 || limit > spotifyPageLimit {
		limit = spotifyPageLimit
	}

	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListLiked walks the saved-tracks pages until the API reports no next
// page. Any page failure aborts the whole listing.
func (s *SpotifyService) ListLiked(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0

	for {
		page, err := s.SavedTracks(ctx, spotifyPageLimit, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list liked tracks at offset %d: %w", offset, err)
		}

		for _, item := range page.Items {
			tracks = append(tracks, savedTrackToModel(item))
		}

		if page.Next == nil {
			return tracks, nil
		}
		offset += spotifyPageLimit
	}
}

// AddLiked saves tracks to the user's library in batches.
func (s *SpotifyService) AddLiked(ctx context.Context, ids []string) error {
	return s.mutateLiked(ctx, http.MethodPut, ids)
}

// RemoveLiked removes tracks from the user's library in batches.
func (s *SpotifyService) RemoveLiked(ctx context.Context, ids []string) error {
	return s.mutateLiked(ctx, http.MethodDelete, ids)
}

func (s *SpotifyService) mutateLiked(ctx context.Context, method string, ids []string) error {
	for _, batch := range chunk(ids, spotifyPageLimit) {
		endpoint := "/me/tracks?ids=" + url.QueryEscape(strings.Join(batch, ","))
		if err := s.doRequest(ctx, method, endpoint, nil); err != nil {
			return fmt.Errorf("failed to update %d liked tracks: %w", len(batch), err)
		}
	}
	return nil
}

// SearchTrack searches the catalog and returns the top track result.
func (s *SpotifyService) SearchTrack(ctx context.Context, artist, title string) (*models.Track, error) {
	q := url.QueryEscape(strings.TrimSpace(artist + " " + title))
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=1", q)

	var response struct {
		Tracks struct {
			Items []SpotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(response.Tracks.Items) == 0 {
		return nil, fmt.Errorf("%w: no spotify result for %q by %q", shared.ErrNotFound, title, artist)
	}

	track := trackToModel(response.Tracks.Items[0])
	return &track, nil
}

func savedTrackToModel(item SpotifySavedTrack) models.Track {
	track := trackToModel(item.Track)
	if added, err := time.Parse(time.RFC3339, item.AddedAt); err == nil {
		track.AddedAt = added
	}
	return track
}

func trackToModel(t SpotifyTrack) models.Track {
	track := models.Track{
		SourceID:        t.ID,
		Title:           t.Name,
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
