package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateLimitStore struct {
	records map[string]*RateLimitRecord
	getErr  error
	putErr  error
	puts    int
}

func newFakeRateLimitStore() *fakeRateLimitStore {
	return &fakeRateLimitStore{records: make(map[string]*RateLimitRecord)}
}

func (s *fakeRateLimitStore) Get(_ context.Context, key string) (*RateLimitRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeRateLimitStore) Put(_ context.Context, rec *RateLimitRecord) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	cp := *rec
	s.records[rec.Key] = &cp
	return nil
}

func TestRateLimiterAllowWithinBudget(t *testing.T) {
	store := newFakeRateLimitStore()
	limiter := NewRateLimiter(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := limiter.Allow(ctx, "1.2.3.4", "authorize", 5, 60)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be admitted", i+1)
	}

	ok, err := limiter.Allow(ctx, "1.2.3.4", "authorize", 5, 60)
	require.NoError(t, err)
	assert.False(t, ok, "sixth request should be denied")

	rec := store.records["1.2.3.4:authorize"]
	require.NotNil(t, rec)
	assert.Equal(t, 5, rec.Count, "denied request must not increment the counter")
}

func TestRateLimiterWindowReset(t *testing.T) {
	store := newFakeRateLimitStore()
	limiter := NewRateLimiter(store)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "client-a", "tokenRefresh", 3, 60)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "client-a", "tokenRefresh", 3, 60)
	require.NoError(t, err)
	require.False(t, ok)

	// Just short of the window boundary: still denied.
	limiter.now = func() time.Time { return base.Add(60*time.Minute - time.Second) }
	ok, err = limiter.Allow(ctx, "client-a", "tokenRefresh", 3, 60)
	require.NoError(t, err)
	assert.False(t, ok)

	// At the boundary the window restarts with a fresh count.
	limiter.now = func() time.Time { return base.Add(60 * time.Minute) }
	ok, err = limiter.Allow(ctx, "client-a", "tokenRefresh", 3, 60)
	require.NoError(t, err)
	assert.True(t, ok)

	rec := store.records["client-a:tokenRefresh"]
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Count)
	assert.True(t, rec.WindowStart.Equal(base.Add(60*time.Minute)))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	store := newFakeRateLimitStore()
	limiter := NewRateLimiter(store)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "1.2.3.4", "authorize", 1, 60)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Allow(ctx, "1.2.3.4", "authorize", 1, 60)
	require.NoError(t, err)
	assert.False(t, ok)

	// Same identifier, different action.
	ok, err = limiter.Allow(ctx, "1.2.3.4", "tokenClient", 1, 60)
	require.NoError(t, err)
	assert.True(t, ok)

	// Same action, different identifier.
	ok, err = limiter.Allow(ctx, "5.6.7.8", "authorize", 1, 60)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterStoreErrorsPropagate(t *testing.T) {
	store := newFakeRateLimitStore()
	limiter := NewRateLimiter(store)
	ctx := context.Background()

	store.getErr = errors.New("connection reset")
	ok, err := limiter.Allow(ctx, "1.2.3.4", "authorize", 5, 60)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "rate limit lookup")

	store.getErr = nil
	store.putErr = errors.New("write concern failed")
	ok, err = limiter.Allow(ctx, "1.2.3.4", "authorize", 5, 60)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "rate limit reset")
}
