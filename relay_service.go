package relay

import (
	"context"
	stderrors "errors"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blanxlait/kroger-relay/errors"
)

// SessionTTL bounds how long the browser leg may take before the session is
// considered stale and purged.
const SessionTTL = 5 * time.Minute

var sessionIDPattern = regexp.MustCompile(`^[0-9a-f]{16,64}$`)

// ValidSessionID reports whether a client-supplied correlation handle is
// safe to use: lowercase hex, 16-64 characters. Shorter identifiers carry
// too little entropy to correlate on.
func ValidSessionID(sessionID string) bool {
	return sessionIDPattern.MatchString(sessionID)
}

// TokenExchanger is the slice of the provider client the state machine
// needs: trading an authorization code for tokens.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*TokenSet, error)
}

// RelayService drives each session through
// Created -> Completed -> Consumed(deleted), with the alternate terminal
// Created -> Expired(deleted). All state lives in the session repository;
// the service itself is stateless and safe for concurrent use.
type RelayService struct {
	sessions  SessionRepository
	exchanger TokenExchanger
	ttl       time.Duration
	now       func() time.Time
}

func NewRelayService(sessions SessionRepository, exchanger TokenExchanger, ttl time.Duration) *RelayService {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &RelayService{
		sessions:  sessions,
		exchanger: exchanger,
		ttl:       ttl,
		now:       time.Now,
	}
}

// BeginAuthorization normalizes the requested scope and registers a new
// session. It returns the generated CSRF state and the scope that will be
// forwarded to the provider.
func (s *RelayService) BeginAuthorization(ctx context.Context, sessionID, scope string, source Source) (state, normalizedScope string, err error) {
	normalizedScope = ValidateScope(scope)
	state, err = s.sessions.Create(ctx, sessionID, source, normalizedScope)
	if err != nil {
		return "", "", err
	}
	log.Info().
		Str("session_id", sessionID).
		Str("source", string(source)).
		Str("scope", normalizedScope).
		Msg("Login session created")
	return state, normalizedScope, nil
}

// CompleteCallback validates the CSRF state binding, enforces the session
// TTL and exchanges the authorization code. On success the session is
// marked completed; the tokens stay in the store until the client polls
// them. The returned Source selects the confirmation-page copy.
//
// Error classification: errors.ErrSessionNotFound (no session for state),
// errors.ErrSessionExpired (TTL exceeded, session purged),
// *errors.UpstreamError (provider rejected the exchange), anything else is
// internal. No token field is written unless the full exchange succeeded.
//
// Two near-simultaneous callbacks for one state can both pass the
// existence and TTL checks and both reach the exchange; whichever update
// lands last wins. Known race, matching the store's single-document
// atomicity.
func (s *RelayService) CompleteCallback(ctx context.Context, code, state string) (Source, error) {
	session, err := s.sessions.GetByState(ctx, state)
	if err != nil {
		return SourceUnknown, err
	}

	if s.now().Sub(session.CreatedAt) > s.ttl {
		// Expired sessions are purged eagerly; the user restarts the flow.
		if delErr := s.sessions.Delete(ctx, state); delErr != nil && !stderrors.Is(delErr, errors.ErrSessionNotFound) {
			log.Warn().Err(delErr).Msg("Failed to delete expired session")
		}
		log.Info().Str("session_id", session.SessionID).Msg("Login session expired")
		return session.Source, errors.ErrSessionExpired
	}

	tokens, err := s.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return session.Source, err
	}

	if err := s.sessions.MarkCompleted(ctx, state, tokens); err != nil {
		return session.Source, err
	}
	log.Info().
		Str("session_id", session.SessionID).
		Str("source", string(session.Source)).
		Msg("Login session completed")
	return session.Source, nil
}

// ClaimTokens hands the stored tokens to the polling client. The session
// document is deleted after its data is read and before the tokens are
// returned, so delivery is at most once. found is false while the browser
// leg has not completed, or once the session was already consumed - the
// expected pending state, not an error.
func (s *RelayService) ClaimTokens(ctx context.Context, sessionID string) (tokens *TokenSet, found bool, err error) {
	session, err := s.sessions.FindCompletedBySessionID(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, errors.ErrSessionNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	tokens = &TokenSet{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		TokenType:    session.TokenType,
	}
	if err := s.sessions.Delete(ctx, session.State); err != nil {
		return nil, false, err
	}
	log.Info().Str("session_id", sessionID).Msg("Tokens delivered and session consumed")
	return tokens, true, nil
}
