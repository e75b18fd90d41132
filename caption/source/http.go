package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/capvox/capvox/caption"
)

// DefaultBaseURL is the public timedtext endpoint.
const DefaultBaseURL = "https://www.youtube.com/api/timedtext"

// PayloadCache stores fetched track payloads across sessions. Satisfied
// by internal/cache.Disk.
type PayloadCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// HTTPSource fetches caption tracks from a timedtext-style HTTP
// endpoint: a track list per video and a json3 payload per track.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cache   PayloadCache
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) { s.client = client }
}

// WithCache attaches a payload cache.
func WithCache(cache PayloadCache) HTTPOption {
	return func(s *HTTPSource) { s.cache = cache }
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(limit rate.Limit, burst int) HTTPOption {
	return func(s *HTTPSource) { s.limiter = rate.NewLimiter(limit, burst) }
}

// NewHTTPSource creates a source against the given timedtext base URL.
// Requests are rate limited to stay polite toward the caption service.
func NewHTTPSource(baseURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// trackList mirrors the track-listing response.
type trackList struct {
	Tracks []struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
		BaseURL      string `json:"baseUrl"`
	} `json:"captionTracks"`
}

// ListTracks returns the caption tracks offered for a video.
func (s *HTTPSource) ListTracks(ctx context.Context, videoID string) ([]Track, error) {
	u := fmt.Sprintf("%s/list?v=%s", s.baseURL, url.QueryEscape(videoID))
	body, err := s.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("list caption tracks: %w", err)
	}

	var list trackList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode track list: %w", err)
	}
	if len(list.Tracks) == 0 {
		return nil, ErrCaptionsUnavailable
	}

	tracks := make([]Track, 0, len(list.Tracks))
	for _, t := range list.Tracks {
		tracks = append(tracks, Track{
			Lang: t.LanguageCode,
			Name: t.Name,
			URL:  t.BaseURL + "&fmt=json3",
		})
	}
	return tracks, nil
}

// FetchTrack downloads and parses a track payload, consulting the
// cache first when one is attached.
func (s *HTTPSource) FetchTrack(ctx context.Context, track Track) ([]caption.Segment, error) {
	key := cacheKey(track)

	if s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			log.Debug("caption track served from cache", "lang", track.Lang)
			return caption.ParseJSON3(bytes.NewReader(data))
		}
	}

	body, err := s.get(ctx, track.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch caption track %s: %w", track.Lang, err)
	}

	segments, err := caption.ParseJSON3(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse caption track %s: %w", track.Lang, err)
	}

	if s.cache != nil {
		if err := s.cache.Put(key, body); err != nil {
			// Cache write failures never block playback.
			log.Warn("unable to cache caption track", "lang", track.Lang, "err", err)
		}
	}
	return segments, nil
}

func (s *HTTPSource) get(ctx context.Context, u string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCaptionsUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func cacheKey(track Track) string {
	return track.Lang + "|" + track.URL
}
