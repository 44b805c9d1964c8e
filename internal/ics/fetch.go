package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "lunacal/internal/log"
)

// Feed is a single subscribed ICS feed. A feed always contributes
// events; when Reminders is set its VTODO components are surfaced as
// reminders too.
type Feed struct {
	// ID is the internal identifier used for selection and logging.
	ID string
	// URL is the ICS endpoint.
	URL string
	// Name is the human-friendly source title.
	Name string
	// Reminders marks the feed as also carrying reminder items.
	Reminders bool
}

// FetchResult contains the outcome of fetching a single feed.
type FetchResult struct {
	Feed      Feed
	Body      []byte // ICS payload (either freshly fetched or from cache)
	FromCache bool   // true if the cached body was reused (304 or network failure)
}

// feedState is the conditional-request metadata persisted next to a
// feed's cached body.
type feedState struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Fetcher fetches ICS feeds with HTTP caching (ETag / Last-Modified)
// backed by a disk cache, so an unreachable feed degrades to its last
// known body instead of an empty agenda.
type Fetcher struct {
	client *http.Client
	dir    string
}

// NewFetcher creates a feed Fetcher. dir holds the cached bodies and
// their metadata, one file pair per URL, e.g.
// "/var/lib/lunacal/feed-cache".
func NewFetcher(dir string) *Fetcher {
	if dir == "" {
		// Caller should set this explicitly; fall back to a relative
		// dir so development runs work without root permissions.
		dir = "./var/feed-cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		dir: dir,
	}
}

// FetchOne fetches a single feed, honoring ETag and Last-Modified.
func (f *Fetcher) FetchOne(ctx context.Context, feed Feed) (FetchResult, error) {
	if feed.URL == "" {
		return FetchResult{}, errors.New("feed URL is empty")
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return FetchResult{}, err
	}

	key := cacheKey(feed.URL)
	state, cachedBody := f.readCached(key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if state.ETag != "" {
		req.Header.Set("If-None-Match", state.ETag)
	}
	if state.LastModified != "" {
		req.Header.Set("If-Modified-Since", state.LastModified)
	}

	appLog.Debug("feed fetch start", "id", feed.ID, "url", redactURL(feed.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch network error, using cached body", err, "id", feed.ID, "url", redactURL(feed.URL))
			return FetchResult{Feed: feed, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}
		f.writeCached(feed, key, feedState{
			URL:          feed.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			FetchedAt:    time.Now().UTC(),
		}, body)
		appLog.Info("feed fetch success", "id", feed.ID, "url", redactURL(feed.URL), "status", resp.StatusCode, "from_cache", false)
		return FetchResult{Feed: feed, Body: body, FromCache: false}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Debug("feed not modified; using cache", "id", feed.ID, "url", redactURL(feed.URL))
		return FetchResult{Feed: feed, Body: cachedBody, FromCache: true}, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch non-OK, using cached body", errors.New(resp.Status), "id", feed.ID, "url", redactURL(feed.URL), "status", resp.StatusCode)
			return FetchResult{Feed: feed, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, errors.New(resp.Status)
	}
}

// cacheKey derives the cache file basename for a URL.
func cacheKey(u string) string {
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:8])
}

func (f *Fetcher) bodyPath(key string) string {
	return filepath.Join(f.dir, key+".ics")
}

func (f *Fetcher) statePath(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// readCached loads whatever survives of a feed's cached state. A
// missing or corrupt metadata file only disables conditional requests;
// the body is still usable as a network-failure fallback.
func (f *Fetcher) readCached(key string) (feedState, []byte) {
	var state feedState
	if data, err := os.ReadFile(f.statePath(key)); err == nil {
		if err := json.Unmarshal(data, &state); err != nil {
			state = feedState{}
		}
	}
	body, err := os.ReadFile(f.bodyPath(key))
	if err != nil {
		return state, nil
	}
	return state, body
}

// writeCached persists a fresh body and its metadata, body first so
// the metadata never describes a missing body. Failures are logged;
// the fetch already succeeded.
func (f *Fetcher) writeCached(feed Feed, key string, state feedState, body []byte) {
	if err := os.WriteFile(f.bodyPath(key), body, 0o600); err != nil {
		appLog.Error("feed cache save failed", err, "id", feed.ID, "url", redactURL(feed.URL))
		return
	}
	data, err := json.Marshal(&state)
	if err == nil {
		err = os.WriteFile(f.statePath(key), data, 0o600)
	}
	if err != nil {
		appLog.Error("feed cache save failed", err, "id", feed.ID, "url", redactURL(feed.URL))
	}
}

// redactURL trims a feed URL down to scheme and host for logging.
// Private feed URLs commonly embed access tokens in path or query.
func redactURL(raw string) string {
	const redactedSuffix = "/...(redacted)"
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + redactedSuffix
}
