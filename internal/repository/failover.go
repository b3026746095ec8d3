package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"roomreserve/internal/domain"
)

const recoveryInterval = time.Minute

// FailoverStateRepository uses primary until it errors, then serves from fallback
// and retries primary once per recoveryInterval.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos
	now       func() time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	return r.now().Sub(last) > recoveryInterval
}

func (r *FailoverStateRepository) markDown(op string, err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("Primary state repository failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverStateRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary state repository recovered")
	}
}

func failover[T any](r *FailoverStateRepository, op string, call func(domain.StateRepository) (T, error)) (T, error) {
	if r.usePrimary() {
		res, err := call(r.primary)
		if err == nil {
			r.markUp()
			return res, nil
		}
		r.markDown(op, err)
	}
	return call(r.fallback)
}

func (r *FailoverStateRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return failover(r, "acquire", func(s domain.StateRepository) (bool, error) {
		return s.Acquire(ctx, key, ttl)
	})
}

// Release clears the key in fallback as well, since it may have been acquired there.
func (r *FailoverStateRepository) Release(ctx context.Context, key string) error {
	_ = r.fallback.Release(ctx, key)
	_, err := failover(r, "release", func(s domain.StateRepository) (struct{}, error) {
		return struct{}{}, s.Release(ctx, key)
	})
	return err
}

func (r *FailoverStateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	return failover(r, "get", func(s domain.StateRepository) ([]byte, error) {
		return s.Get(ctx, key)
	})
}

func (r *FailoverStateRepository) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	_, err := failover(r, "set", func(s domain.StateRepository) (struct{}, error) {
		return struct{}{}, s.Set(ctx, key, data, ttl)
	})
	return err
}

// Delete always clears fallback as well, so entries left from an earlier outage
// are not served during the next one.
func (r *FailoverStateRepository) Delete(ctx context.Context, keys ...string) error {
	_ = r.fallback.Delete(ctx, keys...)
	_, err := failover(r, "delete", func(s domain.StateRepository) (struct{}, error) {
		return struct{}{}, s.Delete(ctx, keys...)
	})
	return err
}
