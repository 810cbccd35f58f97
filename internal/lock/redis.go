package lock

import (
	"context"
	"errors"
	"time"

	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/logger"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const redisRetryInterval = 100 * time.Millisecond

// RedisLocker serializes holders of the same key across processes. Locks
// expire after ttl so a crashed holder cannot block a job forever.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *logger.Logger
}

func NewRedisLocker(rdb redis.UniversalClient, ttl, wait time.Duration, logger *logger.Logger) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		wait:   wait,
		logger: logger,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lock, error) {
	obtainCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		obtainCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	held, err := l.client.Obtain(obtainCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(redisRetryInterval),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Obtain reports an elapsed wait as the context error of obtainCtx
		if errors.Is(err, redislock.ErrNotObtained) || obtainCtx.Err() != nil {
			return nil, errLockBusy(key, l.wait)
		}
		return nil, ierr.WithError(err).
			WithHint("Lock service unavailable").
			Mark(ierr.ErrStoreUnavailable)
	}
	return &redisLock{lock: held, logger: l.logger}, nil
}

type redisLock struct {
	lock   *redislock.Lock
	logger *logger.Logger
}

func (r *redisLock) Release(ctx context.Context) error {
	// release even when the caller's context is already cancelled
	err := r.lock.Release(context.WithoutCancel(ctx))
	if errors.Is(err, redislock.ErrLockNotHeld) {
		r.logger.Warnw("lock expired before release", "key", r.lock.Key())
		return nil
	}
	return err
}
