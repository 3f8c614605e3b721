package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client), srv
}

func TestClaimFirstCallerWins(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := Key("bulk", "42", "client-key")

	cached, claimed, err := store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
	require.Nil(t, cached)
}

func TestClaimWhileInFlight(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := Key("bulk", "42", "client-key")

	_, claimed, err := store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	// Same key before the first caller stored its response.
	_, _, err = store.Claim(ctx, key, time.Minute)
	require.ErrorIs(t, err, ErrInFlight)
}

func TestClaimReplaysCompletedResponse(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := Key("bulk", "42", "client-key")

	_, claimed, err := store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, store.Complete(ctx, key, []byte(`{"success":2}`)))

	cached, claimed, err := store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	require.False(t, claimed)
	require.JSONEq(t, `{"success":2}`, string(cached))
}

func TestClaimAfterExpiryExecutesAgain(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()
	key := Key("bulk", "42", "client-key")

	_, claimed, err := store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, store.Complete(ctx, key, []byte(`{}`)))

	srv.FastForward(2 * time.Minute)

	_, claimed, err = store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestReleaseAllowsRetry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := Key("bulk", "42", "client-key")

	_, claimed, err := store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, store.Release(ctx, key))

	_, claimed, err = store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestNilStoreAlwaysClaims(t *testing.T) {
	var store *Store

	cached, claimed, err := store.Claim(context.Background(), "any", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)
	require.Nil(t, cached)
	require.NoError(t, store.Complete(context.Background(), "any", nil))
}
