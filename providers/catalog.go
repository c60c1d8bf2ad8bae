package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Track is the catalog's view of one song.
type Track struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	PreviewURL string   `json:"preview_url"`
	CoverURL   string   `json:"cover_url"`
	DurationMS int      `json:"duration_ms"`
}

// ArtistLine joins the track's artists the way they are displayed and
// matched ("A, B").
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Catalog is the external music catalog collaborator.
type Catalog interface {
	// PlaylistTracks returns up to limit tracks from a playlist.
	PlaylistTracks(ctx context.Context, playlistID string, limit int) ([]Track, error)
	// TrackYear returns the release year of a track, or 0 when unknown.
	TrackYear(ctx context.Context, trackID string) (int, error)
	// SearchTracks runs a free-text track search.
	SearchTracks(ctx context.Context, query string, limit int) ([]Track, error)
}

// CatalogError wraps upstream catalog failures.
type CatalogError struct {
	Op  string
	Err error
}

func (e *CatalogError) Error() string { return fmt.Sprintf("catalog %s: %v", e.Op, e.Err) }
func (e *CatalogError) Unwrap() error { return e.Err }

const deezerBaseURL = "https://api.deezer.com"

// DeezerCatalog implements Catalog against the public Deezer API, caching
// responses through the injected Cache.
type DeezerCatalog struct {
	baseURL string
	http    *http.Client
	cache   Cache
}

func NewDeezerCatalog(cache Cache) *DeezerCatalog {
	return &DeezerCatalog{
		baseURL: deezerBaseURL,
		http:    &http.Client{Timeout: 8 * time.Second},
		cache:   cache,
	}
}

// NewDeezerCatalogWithBase is used by tests to point the client at a stub
// server.
func NewDeezerCatalogWithBase(baseURL string, cache Cache) *DeezerCatalog {
	c := NewDeezerCatalog(cache)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type deezerTrack struct {
	ID       json.Number `json:"id"`
	Title    string      `json:"title"`
	Preview  string      `json:"preview"`
	Duration int         `json:"duration"`
	Artist   struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		CoverMedium string `json:"cover_medium"`
		ReleaseDate string `json:"release_date"`
	} `json:"album"`
}

type deezerList struct {
	Data []deezerTrack `json:"data"`
}

func (c *DeezerCatalog) PlaylistTracks(ctx context.Context, playlistID string, limit int) ([]Track, error) {
	endpoint := fmt.Sprintf("/playlist/%s/tracks?limit=%d", url.PathEscape(playlistID), limit)
	return c.fetchTrackList(ctx, "playlist_tracks", endpoint)
}

func (c *DeezerCatalog) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	endpoint := fmt.Sprintf("/search?q=%s&limit=%d", url.QueryEscape(query), limit)
	return c.fetchTrackList(ctx, "search_tracks", endpoint)
}

func (c *DeezerCatalog) TrackYear(ctx context.Context, trackID string) (int, error) {
	cacheKey := "deezer:year:" + trackID
	if cached, ok := c.cache.Get(ctx, cacheKey); ok {
		year, _ := strconv.Atoi(cached)
		return year, nil
	}

	body, err := c.get(ctx, "/track/"+url.PathEscape(trackID))
	if err != nil {
		return 0, &CatalogError{Op: "track_year", Err: err}
	}

	var track deezerTrack
	if err := json.Unmarshal(body, &track); err != nil {
		return 0, &CatalogError{Op: "track_year", Err: err}
	}

	year := parseReleaseYear(track.Album.ReleaseDate)
	c.cache.Set(ctx, cacheKey, strconv.Itoa(year), ttlFor(year != 0))
	return year, nil
}

func (c *DeezerCatalog) fetchTrackList(ctx context.Context, op, endpoint string) ([]Track, error) {
	cacheKey := "deezer:" + endpoint
	if cached, ok := c.cache.Get(ctx, cacheKey); ok {
		var tracks []Track
		if err := json.Unmarshal([]byte(cached), &tracks); err == nil {
			return tracks, nil
		}
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, &CatalogError{Op: op, Err: err}
	}

	var list deezerList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, &CatalogError{Op: op, Err: err}
	}

	tracks := make([]Track, 0, len(list.Data))
	for _, dt := range list.Data {
		if dt.Title == "" || dt.Artist.Name == "" {
			continue
		}
		tracks = append(tracks, Track{
			ID:         dt.ID.String(),
			Title:      dt.Title,
			Artists:    []string{dt.Artist.Name},
			PreviewURL: dt.Preview,
			CoverURL:   dt.Album.CoverMedium,
			DurationMS: dt.Duration * 1000,
		})
	}

	if data, err := json.Marshal(tracks); err == nil {
		c.cache.Set(ctx, cacheKey, string(data), ttlFor(len(tracks) > 0))
	}
	return tracks, nil
}

func (c *DeezerCatalog) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Deezer reports errors inside a 200 body.
	var apiErr struct {
		Error *struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil {
		log.Printf("deezer error %d on %s: %s", apiErr.Error.Code, endpoint, apiErr.Error.Message)
		return nil, fmt.Errorf("deezer error %d: %s", apiErr.Error.Code, apiErr.Error.Message)
	}

	return body, nil
}

func parseReleaseYear(releaseDate string) int {
	if len(releaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(releaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

func ttlFor(positive bool) time.Duration {
	if positive {
		return CacheTTL
	}
	return NegativeCacheTTL
}
