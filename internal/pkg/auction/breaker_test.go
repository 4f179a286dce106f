package auction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/internal/pkg/cache"
)

func breakerBuyer() *models.Buyer {
	return &models.Buyer{ID: 7, MaxConsecutiveFailures: 3, CooldownSeconds: 300}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(cache.NewMemoryCache())
	ctx := context.Background()
	buyer := breakerBuyer()

	b.OnFailure(ctx, buyer)
	b.OnFailure(ctx, buyer)
	assert.True(t, b.Allow(ctx, buyer))
	assert.Equal(t, BreakerClosed, b.State(ctx, buyer))

	b.OnFailure(ctx, buyer)
	assert.False(t, b.Allow(ctx, buyer))
	assert.Equal(t, BreakerOpen, b.State(ctx, buyer))
}

func TestBreaker_SuccessResetsFailureStreak(t *testing.T) {
	b := NewBreaker(cache.NewMemoryCache())
	ctx := context.Background()
	buyer := breakerBuyer()

	b.OnFailure(ctx, buyer)
	b.OnFailure(ctx, buyer)
	b.OnSuccess(ctx, buyer)
	b.OnSuccess(ctx, buyer)

	// The streak broke before the threshold, so two more failures are fine.
	b.OnFailure(ctx, buyer)
	b.OnFailure(ctx, buyer)
	assert.True(t, b.Allow(ctx, buyer))
}

func TestBreaker_HalfOpenClosesAfterSuccesses(t *testing.T) {
	c := cache.NewMemoryCache()
	b := NewBreaker(c)
	ctx := context.Background()
	buyer := breakerBuyer()

	for i := 0; i < 3; i++ {
		b.OnFailure(ctx, buyer)
	}
	assert.Equal(t, BreakerOpen, b.State(ctx, buyer))

	// Expire the open marker as the cooldown would.
	assert.NoError(t, c.Delete(ctx, "cb:open:7"))
	assert.Equal(t, BreakerHalfOpen, b.State(ctx, buyer))
	assert.True(t, b.Allow(ctx, buyer))

	b.OnSuccess(ctx, buyer)
	assert.Equal(t, BreakerHalfOpen, b.State(ctx, buyer))
	b.OnSuccess(ctx, buyer)
	assert.Equal(t, BreakerClosed, b.State(ctx, buyer))
}

func TestBreaker_DefaultFailureThreshold(t *testing.T) {
	b := NewBreaker(cache.NewMemoryCache())
	ctx := context.Background()
	buyer := &models.Buyer{ID: 8, CooldownSeconds: 60} // threshold unset

	b.OnFailure(ctx, buyer)
	b.OnFailure(ctx, buyer)
	assert.True(t, b.Allow(ctx, buyer))
	b.OnFailure(ctx, buyer)
	assert.False(t, b.Allow(ctx, buyer))
}

func TestBreaker_CacheOutageFailsOpen(t *testing.T) {
	b := NewBreaker(cache.NewNullCache())
	ctx := context.Background()
	buyer := breakerBuyer()

	for i := 0; i < 10; i++ {
		b.OnFailure(ctx, buyer)
	}
	// With no usable cache the breaker never takes a buyer out of rotation.
	assert.True(t, b.Allow(ctx, buyer))
}
