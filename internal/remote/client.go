package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	cadenceerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/logger"
)

// Client is a thin, single-attempt client for the device-based playback
// API. Each call makes exactly one HTTP request and maps the status code
// onto the failure taxonomy; retry and transfer orchestration live in the
// Adapter so the policy is applied uniformly.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a device API client.
func NewClient(baseURL string, log *slog.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// TransferPlayback makes the given device session the active target for
// subsequent commands.
func (c *Client) TransferPlayback(ctx context.Context, token, deviceID string) error {
	body := map[string]interface{}{
		"device_ids": []string{deviceID},
		"play":       false,
	}
	return c.request(ctx, token, http.MethodPut, "/v1/me/player", body, nil)
}

// playOptions configures a play request.
type playOptions struct {
	URI        string `json:"uri,omitempty"`
	PositionMS int    `json:"position_ms,omitempty"`
}

// Play starts playback of the given URI, or resumes current playback when
// uri is empty. The API requires a JSON body even for resume.
func (c *Client) Play(ctx context.Context, token, deviceID, uri string, position time.Duration) error {
	path := buildURL("/v1/me/player/play", map[string]string{"device_id": deviceID})
	opts := &playOptions{URI: uri, PositionMS: int(position.Milliseconds())}
	return c.request(ctx, token, http.MethodPut, path, opts, nil)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context, token, deviceID string) error {
	path := buildURL("/v1/me/player/pause", map[string]string{"device_id": deviceID})
	return c.request(ctx, token, http.MethodPut, path, nil, nil)
}

// Seek seeks to a position in the current track.
func (c *Client) Seek(ctx context.Context, token, deviceID string, position time.Duration) error {
	path := buildURL("/v1/me/player/seek", map[string]string{
		"position_ms": strconv.FormatInt(position.Milliseconds(), 10),
		"device_id":   deviceID,
	})
	return c.request(ctx, token, http.MethodPut, path, nil, nil)
}

// SetVolume sets the playback volume (0-100).
func (c *Client) SetVolume(ctx context.Context, token, deviceID string, percent int) error {
	path := buildURL("/v1/me/player/volume", map[string]string{
		"volume_percent": strconv.Itoa(percent),
		"device_id":      deviceID,
	})
	return c.request(ctx, token, http.MethodPut, path, nil, nil)
}

// PlayerState is the provider's view of current playback, used by the
// position poller.
type PlayerState struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMS int    `json:"progress_ms"`
	DeviceID   string `json:"device_id"`
	Item       *struct {
		URI        string `json:"uri"`
		DurationMS int    `json:"duration_ms"`
	} `json:"item"`
}

// GetPlayerState fetches the provider's current playback state. A 204
// means nothing is playing and returns (nil, nil).
func (c *Client) GetPlayerState(ctx context.Context, token string) (*PlayerState, error) {
	var state PlayerState
	found, err := c.get(ctx, token, "/v1/me/player", &state)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &state, nil
}

// RegisterDevice registers a new device session and returns its id.
func (c *Client) RegisterDevice(ctx context.Context, token, name string) (string, error) {
	var resp struct {
		DeviceID string `json:"device_id"`
	}
	body := map[string]string{"name": name}
	if err := c.request(ctx, token, http.MethodPost, "/v1/me/devices", body, &resp); err != nil {
		return "", err
	}
	if resp.DeviceID == "" {
		return "", fmt.Errorf("%w: provider returned no device id", cadenceerrors.ErrDeviceUnavailable)
	}
	return resp.DeviceID, nil
}

func (c *Client) request(ctx context.Context, token, method, path string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = strings.NewReader(string(jsonBody))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", cadenceerrors.ErrTransient, err)
	}
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	c.log.Debug("device api", "method", method, "path", path, "status", resp.StatusCode)

	if err := cadenceerrors.Classify(resp.StatusCode); err != nil {
		return err
	}
	if readErr != nil {
		return fmt.Errorf("failed to read response: %w", readErr)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// get fetches a resource; found is false when the provider answered 204.
func (c *Client) get(ctx context.Context, token, path string, result interface{}) (found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", cadenceerrors.ErrTransient, err)
	}
	respBody, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if err := cadenceerrors.Classify(resp.StatusCode); err != nil {
		return false, err
	}
	if readErr != nil {
		return false, fmt.Errorf("failed to read response: %w", readErr)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return false, fmt.Errorf("failed to parse response: %w", err)
	}
	return true, nil
}

// buildURL builds a URL with query parameters, skipping empty values.
func buildURL(path string, params map[string]string) string {
	u, _ := url.Parse(path)
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
