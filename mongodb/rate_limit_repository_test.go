package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relay "github.com/blanxlait/kroger-relay"
)

func TestRateLimitRepositoryRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	store := NewRateLimitRepositoryMongo(db)

	// Absent key reads back as (nil, nil), not an error.
	rec, err := store.Get(ctx, "1.2.3.4:authorize")
	require.NoError(t, err)
	assert.Nil(t, rec)

	windowStart := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Put(ctx, &relay.RateLimitRecord{
		Key:         "1.2.3.4:authorize",
		Count:       1,
		WindowStart: windowStart,
	}))

	rec, err = store.Get(ctx, "1.2.3.4:authorize")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "1.2.3.4:authorize", rec.Key)
	assert.Equal(t, 1, rec.Count)
	assert.WithinDuration(t, windowStart, rec.WindowStart, time.Second)

	// Put on an existing key replaces the document.
	require.NoError(t, store.Put(ctx, &relay.RateLimitRecord{
		Key:         "1.2.3.4:authorize",
		Count:       4,
		WindowStart: windowStart,
	}))
	rec, err = store.Get(ctx, "1.2.3.4:authorize")
	require.NoError(t, err)
	assert.Equal(t, 4, rec.Count)
}

func TestRateLimitRepositoryWithLimiter(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	limiter := relay.NewRateLimiter(NewRateLimitRepositoryMongo(db))

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "5.6.7.8", "tokenClient", 3, 60)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "5.6.7.8", "tokenClient", 3, 60)
	require.NoError(t, err)
	assert.False(t, ok)
}
