package mongodb

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	relay "github.com/blanxlait/kroger-relay"
	"github.com/blanxlait/kroger-relay/errors"
)

// testDB connects to the Mongo instance named by TEST_MONGO_URI and hands
// back an isolated database per test. Tests are skipped when the variable is
// unset so the suite stays runnable without infrastructure.
func testDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set, skipping MongoDB integration test")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("MongoDB at %s not reachable: %v", uri, err)
	}

	db := client.Database(fmt.Sprintf("kroger_relay_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	repo, err := NewSessionRepositoryMongo(ctx, db)
	require.NoError(t, err)

	state, err := repo.Create(ctx, "aabbccddeeff0011", relay.SourceCLI, "product.compact")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), state)

	session, err := repo.GetByState(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "aabbccddeeff0011", session.SessionID)
	assert.Equal(t, relay.SourceCLI, session.Source)
	assert.Equal(t, "product.compact", session.Scope)
	assert.False(t, session.Completed)
	assert.WithinDuration(t, time.Now().UTC(), session.CreatedAt, 10*time.Second)

	// Not completed yet: invisible to the polling query.
	_, err = repo.FindCompletedBySessionID(ctx, "aabbccddeeff0011")
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)

	tokens := &relay.TokenSet{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresIn:    1800,
		TokenType:    "bearer",
	}
	require.NoError(t, repo.MarkCompleted(ctx, state, tokens))

	found, err := repo.FindCompletedBySessionID(ctx, "aabbccddeeff0011")
	require.NoError(t, err)
	assert.True(t, found.Completed)
	assert.Equal(t, "at-1", found.AccessToken)
	assert.Equal(t, "rt-1", found.RefreshToken)
	assert.Equal(t, 1800, found.ExpiresIn)
	assert.Equal(t, state, found.State)

	require.NoError(t, repo.Delete(ctx, state))
	_, err = repo.GetByState(ctx, state)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestSessionRepositoryNotFoundCases(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	repo, err := NewSessionRepositoryMongo(ctx, db)
	require.NoError(t, err)

	_, err = repo.GetByState(ctx, "ffffffffffffffffffffffffffffffff")
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)

	err = repo.MarkCompleted(ctx, "ffffffffffffffffffffffffffffffff", &relay.TokenSet{AccessToken: "x"})
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)

	err = repo.Delete(ctx, "ffffffffffffffffffffffffffffffff")
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestSessionRepositoryStatesAreUnique(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	repo, err := NewSessionRepositoryMongo(ctx, db)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		state, err := repo.Create(ctx, "aabbccddeeff0011", relay.SourceAgent, "profile.compact")
		require.NoError(t, err)
		assert.False(t, seen[state], "state %s generated twice", state)
		seen[state] = true
	}
}
