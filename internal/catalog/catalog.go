// Package catalog resolves track identifiers to playable track descriptors.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/tessro/cadence/internal/core"
	cadenceerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/logger"
)

// Client provides resilient catalog lookups: bounded HTTP retries, a
// circuit breaker so a dead catalog fails fast, and a request rate limit.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	log     *slog.Logger
}

// Options configures catalog client resilience knobs.
type Options struct {
	RequestsPerSec float64
	Burst          int
}

// New creates a catalog client for the given base URL.
func New(baseURL string, opts Options, log *slog.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = nil

	settings := gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 10
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}
}

// trackResponse is the catalog wire format for a track descriptor.
type trackResponse struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	AlbumID    string   `json:"album_id"`
	CoverURL   string   `json:"cover_url"`
	DurationMS int      `json:"duration_ms"`
	PreviewURL string   `json:"preview_url"`
}

// ResolveTrack resolves an identifier to a playable track descriptor.
// Returns ErrTrackNotFound when the catalog has no such id.
func (c *Client) ResolveTrack(ctx context.Context, id string) (*core.Track, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchTrack(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*trackResponse)
	track := &core.Track{
		ID:         resp.ID,
		URI:        resp.URI,
		Title:      resp.Title,
		Artists:    resp.Artists,
		Album:      resp.Album,
		AlbumID:    resp.AlbumID,
		CoverURL:   resp.CoverURL,
		Duration:   time.Duration(resp.DurationMS) * time.Millisecond,
		PreviewURL: resp.PreviewURL,
	}

	c.log.Debug("resolved track", "id", track.ID, "title", track.Title, "preview", track.HasPreview())
	return track, nil
}

func (c *Client) fetchTrack(ctx context.Context, id string) (*trackResponse, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/tracks/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", cadenceerrors.ErrTrackNotFound, id)
	default:
		return nil, fmt.Errorf("catalog returned %d: %s", resp.StatusCode, string(body))
	}

	var tr trackResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &tr, nil
}
