package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))

	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "eligibility:1:90210:a", "x", 0))
	require.NoError(t, c.Set(ctx, "eligibility:1:90210:b", "y", 0))
	require.NoError(t, c.Set(ctx, "zones:1:90210", "z", 0))

	require.NoError(t, c.DeletePattern(ctx, "eligibility:1:90210:*"))

	_, err := c.Get(ctx, "eligibility:1:90210:a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "zones:1:90210")
	assert.NoError(t, err)
}

func TestMemoryCache_IncrAndGetInt(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := c.Incr(ctx, "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	val, err := c.GetInt(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, 3, val)

	_, err = c.GetInt(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_IncrKeepsExistingTTL(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, err := c.Incr(ctx, "k", 20*time.Millisecond)
	require.NoError(t, err)
	_, err = c.Incr(ctx, "k", time.Hour)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	_, err = c.GetInt(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss, "TTL from first increment must survive later increments")
}

func TestNullCache(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	n, err := c.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "null cache reports count 1 so daily caps never trip")

	assert.False(t, c.Healthy(ctx))
}
