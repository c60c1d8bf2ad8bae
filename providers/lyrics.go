package providers

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/benoftheworld/instant-music/models"
)

// LyricsProvider is the external lyrics collaborator. Both lookups return
// their zero value (not an error) when no lyrics exist for the track.
type LyricsProvider interface {
	Lyrics(ctx context.Context, artist, title string) (string, error)
	SyncedLyrics(ctx context.Context, artist, title string) ([]models.LyricLine, error)
}

const (
	lrclibBaseURL    = "https://lrclib.net"
	lyricsOvhBaseURL = "https://api.lyrics.ovh"

	// Shorter lyrics are almost always an error page or a stub.
	minLyricsLength = 50

	negativeMarker = "__NONE__"
)

// LRCLibLyrics implements LyricsProvider against LRCLib, falling back to
// lyrics.ovh for plain text when LRCLib has nothing.
type LRCLibLyrics struct {
	lrclibBase string
	ovhBase    string
	http       *http.Client
	cache      Cache
}

func NewLRCLibLyrics(cache Cache) *LRCLibLyrics {
	return &LRCLibLyrics{
		lrclibBase: lrclibBaseURL,
		ovhBase:    lyricsOvhBaseURL,
		http:       &http.Client{Timeout: 8 * time.Second},
		cache:      cache,
	}
}

// NewLRCLibLyricsWithBase is used by tests to point the client at stub
// servers.
func NewLRCLibLyricsWithBase(lrclibBase, ovhBase string, cache Cache) *LRCLibLyrics {
	l := NewLRCLibLyrics(cache)
	l.lrclibBase = strings.TrimRight(lrclibBase, "/")
	l.ovhBase = strings.TrimRight(ovhBase, "/")
	return l
}

type lrclibResponse struct {
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

func (l *LRCLibLyrics) Lyrics(ctx context.Context, artist, title string) (string, error) {
	cacheKey := "lyrics:" + cacheHash(artist, title)
	if cached, ok := l.cache.Get(ctx, cacheKey); ok {
		if cached == negativeMarker {
			return "", nil
		}
		return cached, nil
	}

	artistClean, titleClean := cleanArtistTitle(artist, title)

	if data, err := l.lrclibGet(ctx, artistClean, titleClean); err == nil && data != nil {
		if len(data.PlainLyrics) >= minLyricsLength {
			l.cache.Set(ctx, cacheKey, data.PlainLyrics, CacheTTL)
			return data.PlainLyrics, nil
		}
	}

	// Fallback: lyrics.ovh
	endpoint := fmt.Sprintf("%s/v1/%s/%s", l.ovhBase, url.PathEscape(artistClean), url.PathEscape(titleClean))
	body, err := l.get(ctx, endpoint)
	if err == nil {
		var ovh struct {
			Lyrics string `json:"lyrics"`
		}
		if json.Unmarshal(body, &ovh) == nil && len(ovh.Lyrics) >= minLyricsLength {
			l.cache.Set(ctx, cacheKey, ovh.Lyrics, CacheTTL)
			return ovh.Lyrics, nil
		}
	}

	l.cache.Set(ctx, cacheKey, negativeMarker, NegativeCacheTTL)
	return "", nil
}

func (l *LRCLibLyrics) SyncedLyrics(ctx context.Context, artist, title string) ([]models.LyricLine, error) {
	cacheKey := "synced:" + cacheHash(artist, title)
	if cached, ok := l.cache.Get(ctx, cacheKey); ok {
		if cached == negativeMarker {
			return nil, nil
		}
		var lines []models.LyricLine
		if err := json.Unmarshal([]byte(cached), &lines); err == nil {
			return lines, nil
		}
	}

	artistClean, titleClean := cleanArtistTitle(artist, title)

	data, err := l.lrclibGet(ctx, artistClean, titleClean)
	if err == nil && data != nil && data.SyncedLyrics != "" {
		lines := ParseLRC(data.SyncedLyrics)
		if len(lines) > 0 {
			if encoded, err := json.Marshal(lines); err == nil {
				l.cache.Set(ctx, cacheKey, string(encoded), CacheTTL)
			}
			return lines, nil
		}
	}

	l.cache.Set(ctx, cacheKey, negativeMarker, NegativeCacheTTL)
	return nil, nil
}

func (l *LRCLibLyrics) lrclibGet(ctx context.Context, artist, title string) (*lrclibResponse, error) {
	endpoint := fmt.Sprintf("%s/api/get?artist_name=%s&track_name=%s",
		l.lrclibBase, url.QueryEscape(artist), url.QueryEscape(title))

	body, err := l.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var data lrclibResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (l *LRCLibLyrics) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var parenSuffixRe = regexp.MustCompile(`\s*\(.*?\)\s*`)

// cleanArtistTitle strips parenthesised suffixes ("Song (Remastered)") for
// cleaner API queries.
func cleanArtistTitle(artist, title string) (string, string) {
	return strings.TrimSpace(parenSuffixRe.ReplaceAllString(artist, " ")),
		strings.TrimSpace(parenSuffixRe.ReplaceAllString(title, " "))
}

func cacheHash(artist, title string) string {
	sum := md5.Sum([]byte(strings.ToLower(artist + "|" + title)))
	return fmt.Sprintf("%x", sum)
}

var lrcLineRe = regexp.MustCompile(`^\[(\d{1,2}):(\d{2})(?:\.(\d{1,3}))?\]\s*(.*)$`)

// ParseLRC parses LRC-formatted synced lyrics into timed lines sorted by
// timestamp. Empty text lines are kept; they mark instrumental breaks.
func ParseLRC(lrcText string) []models.LyricLine {
	var lines []models.LyricLine
	for _, raw := range strings.Split(lrcText, "\n") {
		m := lrcLineRe.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			continue
		}
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])

		fraction := m[3]
		ms := 0
		if fraction != "" {
			v, _ := strconv.Atoi(fraction)
			// Normalise centiseconds to milliseconds.
			if len(fraction) == 2 {
				v *= 10
			}
			ms = v
		}

		lines = append(lines, models.LyricLine{
			TimeMS: minutes*60_000 + seconds*1000 + ms,
			Text:   strings.TrimSpace(m[4]),
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].TimeMS < lines[j].TimeMS })
	return lines
}
