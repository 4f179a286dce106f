package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/internal/pkg/cache"
)

// Circuit breaker states.
const (
	BreakerClosed   = "CLOSED"
	BreakerOpen     = "OPEN"
	BreakerHalfOpen = "HALF_OPEN"

	defaultSuccessThreshold = 2
)

// Breaker is a per-buyer circuit breaker. Counters live in the cache so they
// are shared and atomic across concurrent auctions touching the same buyer.
// Consecutive failures within the buyer's cooldown window open the circuit;
// the open marker expires after the cooldown, which moves the breaker to
// half-open, and enough consecutive successes close it again.
type Breaker struct {
	cache            cache.Cache
	successThreshold int
}

func NewBreaker(c cache.Cache) *Breaker {
	return &Breaker{cache: c, successThreshold: defaultSuccessThreshold}
}

func failureKey(buyerID uint) string { return fmt.Sprintf("cb:failures:%d", buyerID) }
func successKey(buyerID uint) string { return fmt.Sprintf("cb:successes:%d", buyerID) }
func openKey(buyerID uint) string    { return fmt.Sprintf("cb:open:%d", buyerID) }
func halfKey(buyerID uint) string    { return fmt.Sprintf("cb:halfopen:%d", buyerID) }

// Allow reports whether the buyer may receive requests right now.
func (b *Breaker) Allow(ctx context.Context, buyer *models.Buyer) bool {
	_, err := b.cache.Get(ctx, openKey(buyer.ID))
	if err == nil {
		return false
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// Cache trouble must not take buyers out of rotation.
		log.Warnf("[Breaker] State read failed for buyer %d: %v", buyer.ID, err)
	}
	return true
}

// State returns the current breaker state for reporting.
func (b *Breaker) State(ctx context.Context, buyer *models.Buyer) string {
	if _, err := b.cache.Get(ctx, openKey(buyer.ID)); err == nil {
		return BreakerOpen
	}
	if _, err := b.cache.Get(ctx, halfKey(buyer.ID)); err == nil {
		return BreakerHalfOpen
	}
	return BreakerClosed
}

// OnFailure records one failed attempt. Reaching the buyer's failure
// threshold opens the circuit for the buyer's cooldown period.
func (b *Breaker) OnFailure(ctx context.Context, buyer *models.Buyer) {
	cooldown := time.Duration(buyer.CooldownSeconds) * time.Second
	if err := b.cache.Delete(ctx, successKey(buyer.ID)); err != nil {
		log.Warnf("[Breaker] Failed to reset success counter for buyer %d: %v", buyer.ID, err)
	}

	failures, err := b.cache.Incr(ctx, failureKey(buyer.ID), cooldown)
	if err != nil {
		log.Warnf("[Breaker] Failed to count failure for buyer %d: %v", buyer.ID, err)
		return
	}

	threshold := buyer.MaxConsecutiveFailures
	if threshold <= 0 {
		threshold = 3
	}
	if failures >= int64(threshold) {
		log.Warnf("[Breaker] Opening circuit for buyer %d after %d consecutive failures (cooldown %s)", buyer.ID, failures, cooldown)
		if err := b.cache.Set(ctx, openKey(buyer.ID), "1", cooldown); err != nil {
			log.Errorf("[Breaker] Failed to open circuit for buyer %d: %v", buyer.ID, err)
		}
		// When the open marker expires the breaker is half-open until enough
		// successes close it.
		if err := b.cache.Set(ctx, halfKey(buyer.ID), "1", 2*cooldown); err != nil {
			log.Warnf("[Breaker] Failed to mark half-open for buyer %d: %v", buyer.ID, err)
		}
	}
}

// OnSuccess records one successful attempt and closes the circuit once the
// success threshold is met.
func (b *Breaker) OnSuccess(ctx context.Context, buyer *models.Buyer) {
	successes, err := b.cache.Incr(ctx, successKey(buyer.ID), time.Duration(buyer.CooldownSeconds)*time.Second)
	if err != nil {
		log.Warnf("[Breaker] Failed to count success for buyer %d: %v", buyer.ID, err)
		return
	}
	if successes >= int64(b.successThreshold) {
		for _, key := range []string{failureKey(buyer.ID), successKey(buyer.ID), halfKey(buyer.ID)} {
			if err := b.cache.Delete(ctx, key); err != nil {
				log.Warnf("[Breaker] Failed to clear %s: %v", key, err)
			}
		}
	}
}
