package mongodb

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	relay "github.com/blanxlait/kroger-relay"
	"github.com/blanxlait/kroger-relay/errors"
)

// abandonedSessionTTL is a safety net behind the eager purge in the
// callback path: sessions that are never claimed (user closed the tab,
// client stopped polling) get cleaned up by a Mongo TTL index instead of
// accumulating forever.
const abandonedSessionTTL = 24 * time.Hour

// SessionRepositoryMongo implements relay.SessionRepository using MongoDB.
type SessionRepositoryMongo struct {
	collection *mongo.Collection
}

// NewSessionRepositoryMongo creates the repository and ensures the indexes
// the polling query and the TTL cleanup rely on.
func NewSessionRepositoryMongo(ctx context.Context, db *mongo.Database) (relay.SessionRepository, error) {
	repo := &SessionRepositoryMongo{
		collection: db.Collection(SessionsCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(abandonedSessionTTL.Seconds())),
		},
	}
	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for sessions collection (might already exist)")
	}

	return repo, nil
}

// Create generates a fresh state token and persists the session. State is
// 16 random bytes hex-encoded; collision avoidance relies on entropy, there
// is no uniqueness retry loop.
func (r *SessionRepositoryMongo) Create(ctx context.Context, sessionID string, source relay.Source, scope string) (string, error) {
	state, err := newStateToken()
	if err != nil {
		return "", err
	}
	session := &relay.Session{
		State:     state,
		SessionID: sessionID,
		Source:    source,
		Scope:     scope,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Error storing session in MongoDB")
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	log.Debug().Str("session_id", sessionID).Msg("Session stored")
	return state, nil
}

func (r *SessionRepositoryMongo) GetByState(ctx context.Context, state string) (*relay.Session, error) {
	var session relay.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": state}).Decode(&session)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.ErrSessionNotFound
		}
		log.Error().Err(err).Msg("Error getting session by state from MongoDB")
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}
	return &session, nil
}

// MarkCompleted writes the token fields and completed=true as a partial
// update. errors.ErrSessionNotFound when the document vanished underneath,
// e.g. through a concurrent deletion; the caller surfaces that, it is not
// retried here.
func (r *SessionRepositoryMongo) MarkCompleted(ctx context.Context, state string, tokens *relay.TokenSet) error {
	update := bson.M{"$set": bson.M{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
		"token_type":    tokens.TokenType,
		"completed":     true,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": state}, update)
	if err != nil {
		log.Error().Err(err).Msg("Error marking session completed in MongoDB")
		return fmt.Errorf("failed to mark session completed: %w", err)
	}
	if result.MatchedCount == 0 {
		return errors.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepositoryMongo) Delete(ctx context.Context, state string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": state})
	if err != nil {
		log.Error().Err(err).Msg("Error deleting session from MongoDB")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return errors.ErrSessionNotFound
	}
	return nil
}

// FindCompletedBySessionID runs the polling-side equality query: session_id
// match, completed sessions only, one result.
func (r *SessionRepositoryMongo) FindCompletedBySessionID(ctx context.Context, sessionID string) (*relay.Session, error) {
	filter := bson.M{"session_id": sessionID, "completed": true}
	var session relay.Session
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.ErrSessionNotFound
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("Error querying session by session_id from MongoDB")
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &session, nil
}

func newStateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var _ relay.SessionRepository = (*SessionRepositoryMongo)(nil)
