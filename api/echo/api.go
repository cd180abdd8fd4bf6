package echoapi

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	relay "github.com/blanxlait/kroger-relay"
	"github.com/blanxlait/kroger-relay/errors"
	"github.com/blanxlait/kroger-relay/internal/metrics"
)

// TokenProxy is the slice of the provider client used by the authorize
// redirect and the pass-through token endpoints.
type TokenProxy interface {
	AuthCodeURL(state, scope string) string
	ClientCredentials(ctx context.Context, scope string) (json.RawMessage, error)
	Refresh(ctx context.Context, refreshToken string) (json.RawMessage, error)
}

// RelayAPI holds the relay's HTTP surface dependencies.
type RelayAPI struct {
	service *relay.RelayService
	limiter *relay.RateLimiter
	proxy   TokenProxy
	limits  relay.Limits
}

func NewRelayAPI(service *relay.RelayService, limiter *relay.RateLimiter, proxy TokenProxy, limits relay.Limits) *RelayAPI {
	return &RelayAPI{
		service: service,
		limiter: limiter,
		proxy:   proxy,
		limits:  limits,
	}
}

// RegisterRoutes registers the relay routes. Method enforcement is the
// router's job: a mismatched method on a known path yields 405.
func (a *RelayAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/authorize", a.AuthorizeHandler)
	e.GET("/callback", a.CallbackHandler)
	e.GET("/tokenUser", a.TokenUserHandler)
	e.POST("/tokenClient", a.TokenClientHandler)
	e.POST("/tokenRefresh", a.TokenRefreshHandler)
}

// AuthorizeHandler initiates the browser leg: it validates the correlation
// handle, applies the rate limit, creates a session bound to a fresh CSRF
// state and redirects to the Kroger authorization URL.
func (a *RelayAPI) AuthorizeHandler(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, errors.NewErrorResponse("session_id is required"))
	}
	if !relay.ValidSessionID(sessionID) {
		return c.JSON(http.StatusBadRequest, errors.NewErrorResponse("session_id must be a hex string 16-64 chars"))
	}

	allowed, err := a.limiter.Allow(c.Request().Context(), clientIP(c), "authorize", a.limits.AuthorizeMax, a.limits.AuthorizeWindowMin)
	if err != nil {
		log.Error().Err(err).Msg("Rate limit check failed")
		return c.JSON(http.StatusInternalServerError, errors.NewErrorResponse("internal error"))
	}
	if !allowed {
		metrics.RateLimitDeniedTotal.Inc()
		return c.JSON(http.StatusTooManyRequests, errors.NewErrorResponse("Rate limit exceeded"))
	}

	source := relay.ParseSource(c.QueryParam("source"))
	state, scope, err := a.service.BeginAuthorization(c.Request().Context(), sessionID, c.QueryParam("scope"), source)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create login session")
		return c.JSON(http.StatusInternalServerError, errors.NewErrorResponse("internal error"))
	}
	metrics.SessionsCreatedTotal.Inc()

	return c.Redirect(http.StatusFound, a.proxy.AuthCodeURL(state, scope))
}

// CallbackHandler receives the provider redirect. It is browser-facing, so
// every outcome renders an HTML page rather than JSON.
func (a *RelayAPI) CallbackHandler(c echo.Context) error {
	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return renderErrorPage(c, http.StatusBadRequest, "Error", "Missing code or state parameter.")
	}

	source, err := a.service.CompleteCallback(c.Request().Context(), code, state)
	switch {
	case err == nil:
		metrics.CallbacksCompletedTotal.Inc()
		return renderSuccessPage(c, source)
	case stderrors.Is(err, errors.ErrSessionNotFound):
		return renderErrorPage(c, http.StatusBadRequest, "Error", "Invalid or expired session.")
	case stderrors.Is(err, errors.ErrSessionExpired):
		return renderErrorPage(c, http.StatusBadRequest, "Session Expired", "Your login session has expired. Please try again.")
	}

	var upstream *errors.UpstreamError
	if stderrors.As(err, &upstream) {
		metrics.UpstreamErrorsTotal.Inc()
		log.Error().Int("status", upstream.StatusCode).Str("body", upstream.Body).Msg("Kroger token exchange failed")
		return renderErrorPage(c, http.StatusBadGateway, "Error", "Failed to complete login with Kroger. Please try again.")
	}

	log.Error().Err(err).Msg("Callback failed")
	return renderErrorPage(c, http.StatusInternalServerError, "Error", "An unexpected error occurred. Please try again.")
}

// TokenUserHandler is the polling endpoint. 202 pending is the expected
// steady state while the user is still in the browser; once tokens are
// delivered the session is gone and the handler reports pending again.
func (a *RelayAPI) TokenUserHandler(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, errors.NewErrorResponse("session_id is required"))
	}

	tokens, found, err := a.service.ClaimTokens(c.Request().Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Msg("Token claim failed")
		return c.JSON(http.StatusInternalServerError, errors.NewErrorResponse("internal error"))
	}
	if !found {
		return c.JSON(http.StatusAccepted, map[string]string{"status": "pending"})
	}
	metrics.TokensDeliveredTotal.Inc()
	return c.JSON(http.StatusOK, tokens)
}

// TokenClientHandler proxies a client_credentials grant. The provider JSON
// is relayed verbatim on success.
func (a *RelayAPI) TokenClientHandler(c echo.Context) error {
	allowed, err := a.limiter.Allow(c.Request().Context(), clientIP(c), "tokenClient", a.limits.TokenMax, a.limits.TokenWindowMin)
	if err != nil {
		log.Error().Err(err).Msg("Rate limit check failed")
		return c.JSON(http.StatusInternalServerError, errors.NewErrorResponse("internal error"))
	}
	if !allowed {
		metrics.RateLimitDeniedTotal.Inc()
		return c.JSON(http.StatusTooManyRequests, errors.NewErrorResponse("Rate limit exceeded"))
	}

	scope := c.FormValue("scope")
	if scope == "" {
		scope = "product.compact"
	} else {
		scope = relay.ValidateScope(scope)
	}

	raw, err := a.proxy.ClientCredentials(c.Request().Context(), scope)
	if err != nil {
		return a.relayUpstreamError(c, err, "Failed to obtain client token")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// TokenRefreshHandler proxies a refresh_token grant.
func (a *RelayAPI) TokenRefreshHandler(c echo.Context) error {
	allowed, err := a.limiter.Allow(c.Request().Context(), clientIP(c), "tokenRefresh", a.limits.TokenMax, a.limits.TokenWindowMin)
	if err != nil {
		log.Error().Err(err).Msg("Rate limit check failed")
		return c.JSON(http.StatusInternalServerError, errors.NewErrorResponse("internal error"))
	}
	if !allowed {
		metrics.RateLimitDeniedTotal.Inc()
		return c.JSON(http.StatusTooManyRequests, errors.NewErrorResponse("Rate limit exceeded"))
	}

	var req struct {
		RefreshToken string `json:"refresh_token" form:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewErrorResponse("invalid request body"))
	}
	if req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, errors.NewErrorResponse("refresh_token is required"))
	}

	raw, err := a.proxy.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return a.relayUpstreamError(c, err, "Failed to refresh token")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (a *RelayAPI) relayUpstreamError(c echo.Context, err error, msg string) error {
	var upstream *errors.UpstreamError
	if stderrors.As(err, &upstream) {
		metrics.UpstreamErrorsTotal.Inc()
		log.Error().Int("status", upstream.StatusCode).Str("body", upstream.Body).Msg("Kroger token endpoint error")
		return c.JSON(http.StatusBadGateway, errors.NewErrorResponse(msg))
	}
	log.Error().Err(err).Msg("Token endpoint call failed")
	return c.JSON(http.StatusInternalServerError, errors.NewErrorResponse("internal error"))
}

func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}
