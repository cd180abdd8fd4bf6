package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	relay "github.com/blanxlait/kroger-relay"
)

// RateLimitRepositoryMongo implements relay.RateLimitStore using MongoDB.
// Each record is a single document; the limiter's read-then-write sequence
// on top of it is intentionally not compare-and-swap.
type RateLimitRepositoryMongo struct {
	collection *mongo.Collection
}

func NewRateLimitRepositoryMongo(db *mongo.Database) relay.RateLimitStore {
	return &RateLimitRepositoryMongo{
		collection: db.Collection(RateLimitsCollection),
	}
}

// Get returns (nil, nil) when no record exists for the key.
func (r *RateLimitRepositoryMongo) Get(ctx context.Context, key string) (*relay.RateLimitRecord, error) {
	var rec relay.RateLimitRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		log.Error().Err(err).Str("key", key).Msg("Error reading rate limit record from MongoDB")
		return nil, fmt.Errorf("failed to read rate limit record: %w", err)
	}
	return &rec, nil
}

// Put upserts the record, replacing the whole document. Create, reset and
// increment are all single-document writes.
func (r *RateLimitRepositoryMongo) Put(ctx context.Context, rec *relay.RateLimitRecord) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": rec.Key}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		log.Error().Err(err).Str("key", rec.Key).Msg("Error writing rate limit record to MongoDB")
		return fmt.Errorf("failed to write rate limit record: %w", err)
	}
	return nil
}

var _ relay.RateLimitStore = (*RateLimitRepositoryMongo)(nil)
