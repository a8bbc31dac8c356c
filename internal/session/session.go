// Package session talks to the user/session service: bearer credentials
// and subscription tier.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	cadenceerrors "github.com/tessro/cadence/internal/errors"
	"github.com/tessro/cadence/internal/logger"
)

// Tier is the subscription tier reported by the session service.
type Tier string

const (
	// TierFull allows full-fidelity remote playback.
	TierFull Tier = "full"
	// TierLimited restricts the session to preview-clip playback.
	TierLimited Tier = "limited"
)

// Token holds a bearer credential and its expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"-"`
}

// IsExpired returns true if the token has expired or will expire within
// the buffer. Tokens are treated as expired 60 seconds early so a command
// never dispatches with a credential about to lapse mid-flight.
func (t *Token) IsExpired() bool {
	return time.Now().Add(60 * time.Second).After(t.ExpiresAt)
}

// Client fetches credentials and subscription info from the session service.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	log     *slog.Logger

	mu    sync.Mutex
	token *Token
}

// New creates a session client for the given base URL.
func New(baseURL string, log *slog.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		log:     log,
	}
}

// AccessToken returns a valid bearer credential, fetching a fresh one from
// the session service whenever the cached token has expired. Safe to call
// repeatedly; every command refreshes through here.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && !c.token.IsExpired() {
		return c.token.AccessToken, nil
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	return token.AccessToken, nil
}

// Invalidate drops the cached token so the next AccessToken call fetches a
// fresh one. Called after the device API reports a credential as expired.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

func (c *Client) fetchToken(ctx context.Context) (*Token, error) {
	var token Token
	if err := c.get(ctx, "/v1/session/token", &token); err != nil {
		return nil, fmt.Errorf("%w: %v", cadenceerrors.ErrAuthFailure, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", cadenceerrors.ErrAuthFailure)
	}
	token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	c.log.Debug("refreshed access token", "expires_in", token.ExpiresIn)
	return &token, nil
}

// SubscriptionTier reports whether the session allows full remote playback.
// Unknown tier values map to limited.
func (c *Client) SubscriptionTier(ctx context.Context) (Tier, error) {
	var resp struct {
		Tier string `json:"tier"`
	}
	if err := c.get(ctx, "/v1/session/me", &resp); err != nil {
		return "", err
	}

	if Tier(resp.Tier) == TierFull {
		return TierFull, nil
	}
	return TierLimited, nil
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session service returned %d: %s", resp.StatusCode, string(body))
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
