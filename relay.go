package relay

import (
	"context"
	"time"
)

// Source identifies the kind of client that initiated a login session.
// It only selects the copy shown on the post-login confirmation page.
type Source string

const (
	SourceCLI     Source = "cli"
	SourceAgent   Source = "agent"
	SourceUnknown Source = "unknown"
)

// ParseSource maps the free-form source query parameter onto the closed set.
func ParseSource(s string) Source {
	switch s {
	case "cli":
		return SourceCLI
	case "agent":
		return SourceAgent
	default:
		return SourceUnknown
	}
}

// Session bridges the browser leg and the polling leg of a login. It is
// keyed by the CSRF state token; the polling client looks it up by
// SessionID instead and never learns State.
type Session struct {
	State        string    `bson:"_id" json:"state"`
	SessionID    string    `bson:"session_id" json:"session_id"`
	Source       Source    `bson:"source" json:"source"`
	Scope        string    `bson:"scope" json:"scope"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	AccessToken  string    `bson:"access_token,omitempty" json:"access_token,omitempty"`
	RefreshToken string    `bson:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	TokenType    string    `bson:"token_type,omitempty" json:"token_type,omitempty"`
	ExpiresIn    int       `bson:"expires_in,omitempty" json:"expires_in,omitempty"`
	Completed    bool      `bson:"completed,omitempty" json:"completed,omitempty"`
}

// TokenSet is the payload obtained from the provider's token endpoint and
// delivered to the polling client at most once.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// SessionRepository persists relay sessions in the document store.
type SessionRepository interface {
	// Create generates a fresh unpredictable state token, persists the
	// session with created_at set to now and returns the state. Entropy is
	// relied upon for key uniqueness; there is no retry loop.
	Create(ctx context.Context, sessionID string, source Source, scope string) (state string, err error)
	GetByState(ctx context.Context, state string) (*Session, error)
	// MarkCompleted writes the token fields and completed=true as a partial
	// update. It returns errors.ErrSessionNotFound if the document vanished
	// underneath, e.g. through a concurrent deletion.
	MarkCompleted(ctx context.Context, state string, tokens *TokenSet) error
	Delete(ctx context.Context, state string) error
	// FindCompletedBySessionID runs an equality query on session_id limited
	// to one completed result. The polling endpoint uses it because the
	// client never learns the state key.
	FindCompletedBySessionID(ctx context.Context, sessionID string) (*Session, error)
}

// RateLimitRecord counts requests for one (identifier, action) pair inside
// the current fixed window.
type RateLimitRecord struct {
	Key         string    `bson:"_id"`
	Count       int       `bson:"count"`
	WindowStart time.Time `bson:"window_start"`
}

// RateLimitStore persists rate-limit windows in the document store. Get
// returns (nil, nil) when no record exists for the key.
type RateLimitStore interface {
	Get(ctx context.Context, key string) (*RateLimitRecord, error)
	Put(ctx context.Context, rec *RateLimitRecord) error
}
