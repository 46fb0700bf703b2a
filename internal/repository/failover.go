package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mealboard/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverPayloadCache uses primary until it errors, then serves from
// fallback and probes primary again once a minute.
type FailoverPayloadCache struct {
	primary  domain.PayloadCache
	fallback domain.PayloadCache
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverPayloadCache(primary, fallback domain.PayloadCache, logger *zerolog.Logger) *FailoverPayloadCache {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverPayloadCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverPayloadCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary payload cache failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverPayloadCache) shouldProbe() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > time.Minute {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverPayloadCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !r.isDown.Load() {
		payload, ok, err := r.primary.Get(ctx, key)
		if err == nil {
			return payload, ok, nil
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		payload, ok, err := r.primary.Get(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			r.logger.Info().Msg("Primary payload cache recovered")
			return payload, ok, nil
		}
	}

	return r.fallback.Get(ctx, key)
}

func (r *FailoverPayloadCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if !r.isDown.Load() {
		err := r.primary.Set(ctx, key, payload, ttl)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Set(ctx, key, payload, ttl)
}

func (r *FailoverPayloadCache) Delete(ctx context.Context, key string) error {
	// Both sides may hold the key after a failover.
	fallbackErr := r.fallback.Delete(ctx, key)
	if !r.isDown.Load() {
		if err := r.primary.Delete(ctx, key); err != nil {
			r.markDown(err)
		}
	}
	return fallbackErr
}
