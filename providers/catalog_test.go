package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playlistBody = `{"data":[
	{"id":101,"title":"First Song","preview":"https://cdn/p1.mp3","duration":212,
		"artist":{"name":"Artist One"},
		"album":{"cover_medium":"https://cdn/c1.jpg","release_date":"1999-06-01"}},
	{"id":102,"title":"","preview":"https://cdn/p2.mp3","duration":180,
		"artist":{"name":"Artist Two"},"album":{}},
	{"id":103,"title":"Third Song","preview":"","duration":195,
		"artist":{"name":"Artist Three"},"album":{}}
]}`

func TestDeezerPlaylistTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/playlist/777/tracks")
		w.Write([]byte(playlistBody))
	}))
	defer server.Close()

	c := NewDeezerCatalogWithBase(server.URL, NoopCache{})

	tracks, err := c.PlaylistTracks(context.Background(), "777", 50)
	require.NoError(t, err)

	// The untitled entry is dropped; a missing preview is kept as-is and
	// filtered later by the generator.
	require.Len(t, tracks, 2)
	assert.Equal(t, "101", tracks[0].ID)
	assert.Equal(t, "First Song", tracks[0].Title)
	assert.Equal(t, "Artist One", tracks[0].ArtistLine())
	assert.Equal(t, 212_000, tracks[0].DurationMS)
	assert.Empty(t, tracks[1].PreviewURL)
}

func TestDeezerInBodyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"type":"DataException","message":"no data","code":800}}`))
	}))
	defer server.Close()

	c := NewDeezerCatalogWithBase(server.URL, NoopCache{})

	_, err := c.PlaylistTracks(context.Background(), "777", 50)
	var catalogErr *CatalogError
	require.ErrorAs(t, err, &catalogErr)
	assert.Equal(t, "playlist_tracks", catalogErr.Op)
}

func TestDeezerTrackYear(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":101,"title":"First Song","artist":{"name":"Artist One"},
			"album":{"release_date":"1984-10-22"}}`))
	}))
	defer server.Close()

	c := NewDeezerCatalogWithBase(server.URL, NoopCache{})

	year, err := c.TrackYear(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, 1984, year)
}

func TestDeezerTrackYearUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":101,"title":"First Song","artist":{"name":"Artist One"},"album":{}}`))
	}))
	defer server.Close()

	c := NewDeezerCatalogWithBase(server.URL, NoopCache{})

	year, err := c.TrackYear(context.Background(), "101")
	require.NoError(t, err)
	assert.Zero(t, year)
}

func TestParseReleaseYear(t *testing.T) {
	assert.Equal(t, 2003, parseReleaseYear("2003-01-05"))
	assert.Equal(t, 1967, parseReleaseYear("1967"))
	assert.Zero(t, parseReleaseYear(""))
	assert.Zero(t, parseReleaseYear("n/a"))
}
