// Package client talks to a hosted kroger-relay instance on behalf of a
// CLI or conversational agent that cannot hold the confidential Kroger
// client secret. It drives the polling leg of the login flow: generate a
// session id, send the user's browser through /authorize, then poll
// /tokenUser until the tokens arrive.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	relay "github.com/blanxlait/kroger-relay"
)

// DefaultBaseURL is the hosted relay.
const DefaultBaseURL = "https://auth.krocli.dev"

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewSessionID returns a fresh 32-character hex correlation handle,
// satisfying the relay's 16-64 hex chars contract.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AuthorizeURL builds the URL the user's browser must visit to start the
// login.
func (c *Client) AuthorizeURL(sessionID, scope, source string) string {
	q := url.Values{"session_id": {sessionID}}
	if scope != "" {
		q.Set("scope", scope)
	}
	if source != "" {
		q.Set("source", source)
	}
	return c.BaseURL + "/authorize?" + q.Encode()
}

// PollTokens asks the relay for delivered tokens once. pending is true
// while the browser leg has not finished; that is the expected state, not
// an error. A successful poll consumes the session server-side, so the
// tokens must be kept.
func (c *Client) PollTokens(ctx context.Context, sessionID string) (tokens *relay.TokenSet, pending bool, err error) {
	endpoint := c.BaseURL + "/tokenUser?" + url.Values{"session_id": {sessionID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("polling relay: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil, true, nil
	case http.StatusOK:
		var ts relay.TokenSet
		if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
			return nil, false, fmt.Errorf("decoding token response: %w", err)
		}
		return &ts, false, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("relay returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// WaitForTokens polls until the tokens arrive or ctx is done.
func (c *Client) WaitForTokens(ctx context.Context, sessionID string, interval time.Duration) (*relay.TokenSet, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		tokens, pending, err := c.PollTokens(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !pending {
			return tokens, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Refresh exchanges a refresh token through the relay's refresh proxy.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*relay.TokenSet, error) {
	form := url.Values{"refresh_token": {refreshToken}}
	return c.postToken(ctx, "/tokenRefresh", form)
}

// ClientToken obtains an app-level token through the client-credential
// proxy. It needs no user login.
func (c *Client) ClientToken(ctx context.Context) (*relay.TokenSet, error) {
	return c.postToken(ctx, "/tokenClient", url.Values{})
}

func (c *Client) postToken(ctx context.Context, path string, form url.Values) (*relay.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("relay returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var ts relay.TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	return &ts, nil
}
