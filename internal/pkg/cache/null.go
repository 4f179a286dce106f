package cache

import (
	"context"
	"time"
)

// NullCache treats every operation as a miss. It keeps the core functional
// when no cache substrate is available at all: callers simply recompute.
type NullCache struct{}

func NewNullCache() *NullCache {
	return &NullCache{}
}

func (NullCache) Get(context.Context, string) (string, error) {
	return "", ErrCacheMiss
}

func (NullCache) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (NullCache) Delete(context.Context, string) error {
	return nil
}

func (NullCache) DeletePattern(context.Context, string) error {
	return nil
}

// Incr on a NullCache always reports 1 so daily caps never trip spuriously.
func (NullCache) Incr(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func (NullCache) GetInt(context.Context, string) (int, error) {
	return 0, ErrCacheMiss
}

func (NullCache) Healthy(context.Context) bool {
	return false
}
