package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) *SlidingWindow {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSlidingWindow(client)
}

func TestSlidingWindowAllowsUnderLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "bulk:caller-1", 3, time.Hour)
		require.NoError(t, err)
		require.True(t, result.Allowed, "request %d should be allowed", i+1)
	}
}

func TestSlidingWindowDeniesOverLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "bulk:caller-1", 3, time.Hour)
		require.NoError(t, err)
	}

	result, err := limiter.Allow(ctx, "bulk:caller-1", 3, time.Hour)
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, 0, result.Remaining)
	require.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "bulk:caller-1", 3, time.Hour)
		require.NoError(t, err)
	}

	result, err := limiter.Allow(ctx, "bulk:caller-2", 3, time.Hour)
	require.NoError(t, err)
	require.True(t, result.Allowed)
}

func TestSlidingWindowNilLimiterFailsOpen(t *testing.T) {
	var limiter *SlidingWindow

	result, err := limiter.Allow(context.Background(), "any", 1, time.Hour)
	require.NoError(t, err)
	require.True(t, result.Allowed)
}

func TestSlidingWindowRejectsBadArgs(t *testing.T) {
	limiter := newTestLimiter(t)

	_, err := limiter.Allow(context.Background(), "", 3, time.Hour)
	require.Error(t, err)

	_, err = limiter.Allow(context.Background(), "key", 0, time.Hour)
	require.Error(t, err)
}
