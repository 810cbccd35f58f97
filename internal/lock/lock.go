package lock

import (
	"context"
	"time"

	"github.com/adforge/adforge/internal/config"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/redis"
	"github.com/adforge/adforge/internal/types"
)

// Locker hands out mutually exclusive locks keyed by name
type Locker interface {
	// Acquire blocks until the lock for key is held. It gives up with an
	// ErrInvalidOperation error once the configured wait elapses and returns
	// the context error when ctx is done first.
	Acquire(ctx context.Context, key string) (Lock, error)
}

// Lock is a held lock. Release is safe to call more than once.
type Lock interface {
	Release(ctx context.Context) error
}

// JobKey is the lock key guarding dispatch of one content job
func JobKey(jobID string) string {
	return "adforge:job:" + jobID
}

// NewLocker builds the locker selected by dispatch.lock_backend
func NewLocker(cfg *config.Configuration, log *logger.Logger) (Locker, error) {
	switch cfg.Dispatch.LockBackend {
	case types.LockBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		client, err := redis.NewClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return NewRedisLocker(client, cfg.Dispatch.LockTTL, cfg.Dispatch.LockWait, log), nil
	default:
		return NewMemoryLocker(cfg.Dispatch.LockWait), nil
	}
}

func errLockBusy(key string, wait time.Duration) error {
	return ierr.NewError("lock not obtained").
		WithHint("Another operation on this job is in progress, please retry").
		WithReportableDetails(map[string]any{
			"key":  key,
			"wait": wait.String(),
		}).
		Mark(ierr.ErrInvalidOperation)
}
