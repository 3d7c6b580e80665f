// Package artwork resolves album art references and loads them onto
// display surfaces.
package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Lookup fetches album artwork URLs from the iTunes Search API
// and caches results to avoid repeated lookups for the same album.
type Lookup struct {
	mu       sync.Mutex
	cache    map[string]string
	client   *http.Client
	endpoint string
}

// NewLookup returns a Lookup using the public iTunes Search endpoint
func NewLookup() *Lookup {
	return &Lookup{
		cache:    make(map[string]string),
		client:   newRetryClient(3*time.Second, zerolog.Nop()).StandardClient(),
		endpoint: "https://itunes.apple.com/search",
	}
}

type itunesResponse struct {
	Results []itunesResult `json:"results"`
}

type itunesResult struct {
	ArtworkURL100 string `json:"artworkUrl100"`
}

// Lookup returns an artwork URL for the given artist and album.
// Returns empty string on any failure; callers treat artwork as optional.
// Failures are cached too, so a missing album costs one request.
func (a *Lookup) Lookup(ctx context.Context, artist, album string) string {
	if artist == "" && album == "" {
		return ""
	}

	key := artist + "|" + album
	a.mu.Lock()
	if u, ok := a.cache[key]; ok {
		a.mu.Unlock()
		return u
	}
	a.mu.Unlock()

	// Album search misses singles and some compilations; the song entity
	// usually carries the same artwork.
	artURL := a.fetch(ctx, artist, album, "album")
	if artURL == "" {
		artURL = a.fetch(ctx, artist, album, "song")
	}

	if ctx.Err() == nil {
		a.mu.Lock()
		a.cache[key] = artURL
		a.mu.Unlock()
	}

	return artURL
}

func (a *Lookup) fetch(ctx context.Context, artist, album, entity string) string {
	query := url.Values{
		"term":   {strings.TrimSpace(artist + " " + album)},
		"entity": {entity},
		"limit":  {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", a.endpoint, query.Encode()), nil)
	if err != nil {
		return ""
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var result itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ""
	}
	if len(result.Results) == 0 || result.Results[0].ArtworkURL100 == "" {
		return ""
	}

	// Upscale from 100x100 to 600x600 for better quality
	return strings.Replace(result.Results[0].ArtworkURL100, "100x100bb", "600x600bb", 1)
}
