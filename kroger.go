package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/blanxlait/kroger-relay/errors"
)

// Production Kroger OAuth2 endpoints. Overridable through configuration so
// tests can point the client at a local server.
const (
	DefaultAuthorizeURL = "https://api.kroger.com/v1/connect/oauth2/authorize"
	DefaultTokenURL     = "https://api.kroger.com/v1/connect/oauth2/token"
)

// KrogerClient talks to the Kroger OAuth2 endpoints on behalf of the relay.
// It is the only component that ever sees the confidential client secret;
// the secret is never logged and never returned to callers.
type KrogerClient struct {
	clientID     string
	clientSecret string
	authorizeURL string
	tokenURL     string
	redirectURL  string
	httpClient   *http.Client
}

func NewKrogerClient(clientID, clientSecret, authorizeURL, tokenURL, redirectURL string) *KrogerClient {
	if authorizeURL == "" {
		authorizeURL = DefaultAuthorizeURL
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &KrogerClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		authorizeURL: authorizeURL,
		tokenURL:     tokenURL,
		redirectURL:  redirectURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthCodeURL builds the provider authorization URL the browser is
// redirected to: client_id, the fixed redirect URI, response_type=code,
// the normalized scope and the CSRF state.
func (k *KrogerClient) AuthCodeURL(state, scope string) string {
	cfg := oauth2.Config{
		ClientID:    k.clientID,
		RedirectURL: k.redirectURL,
		Scopes:      strings.Fields(scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:  k.authorizeURL,
			TokenURL: k.tokenURL,
		},
	}
	return cfg.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens using the
// authorization_code grant. A non-2xx provider response comes back as
// *errors.UpstreamError carrying the raw body for server-side logging.
func (k *KrogerClient) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {k.redirectURL},
	}
	body, err := k.postToken(ctx, form)
	if err != nil {
		return nil, err
	}
	var tokens TokenSet
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	return &tokens, nil
}

// ClientCredentials performs a client_credentials grant and returns the raw
// provider JSON so the proxy endpoint can relay it verbatim.
func (k *KrogerClient) ClientCredentials(ctx context.Context, scope string) (json.RawMessage, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	if scope != "" {
		form.Set("scope", scope)
	}
	return k.postToken(ctx, form)
}

// Refresh performs a refresh_token grant, again relaying the raw JSON.
func (k *KrogerClient) Refresh(ctx context.Context, refreshToken string) (json.RawMessage, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return k.postToken(ctx, form)
}

func (k *KrogerClient) postToken(ctx context.Context, form url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(k.clientID, k.clientSecret)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &errors.UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
