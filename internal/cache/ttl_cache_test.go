package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCacheGetSet(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	value, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, value)

	_, ok = c.Get("missing")
	require.False(t, ok)
}

func TestTTLCacheExpiry(t *testing.T) {
	impl := &ttlCache[string, int]{
		entries:    make(map[string]entry[int]),
		maxEntries: 10,
		now:        time.Now,
	}

	impl.Set("a", 1, time.Minute)

	// Move the clock past the entry expiry.
	impl.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, ok := impl.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, impl.Len())
}

func TestTTLCacheBoundEviction(t *testing.T) {
	c := NewBoundedTTLCache[int, string](3)

	c.Set(1, "a", time.Minute)
	c.Set(2, "b", 2*time.Minute)
	c.Set(3, "c", 3*time.Minute)
	require.Equal(t, 3, c.Len())

	// Cache is full and nothing has expired, so the soonest-to-expire
	// entry (key 1) is evicted.
	c.Set(4, "d", 4*time.Minute)
	require.Equal(t, 3, c.Len())

	_, ok := c.Get(1)
	require.False(t, ok)
	_, ok = c.Get(4)
	require.True(t, ok)
}

func TestTTLCacheZeroTTLIgnored(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, 0)
	require.Equal(t, 0, c.Len())
}
