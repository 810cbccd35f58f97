package redis

import (
	"context"
	"time"

	"github.com/adforge/adforge/internal/config"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/logger"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

const (
	defaultAddress    = "localhost:6379"
	defaultPoolSize   = 100
	connectMaxElapsed = 30 * time.Second
)

// NewClient connects to redis, retrying the initial ping with exponential backoff
func NewClient(ctx context.Context, cfg *config.Configuration, logger *logger.Logger) (*redis.Client, error) {
	addr := cfg.Redis.Address
	if addr == "" {
		addr = defaultAddress
		logger.Warnw("redis address not set, using default", "address", addr)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: defaultPoolSize,
	})

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectMaxElapsed

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnw("failed to connect to redis",
				"address", addr,
				"attempt", attempt,
				"error", err,
			)
			return err
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		_ = client.Close()
		return nil, ierr.WithError(err).
			WithHint("Redis is unavailable").
			WithReportableDetails(map[string]any{
				"address":  addr,
				"attempts": attempt,
			}).
			Mark(ierr.ErrStoreUnavailable)
	}

	logger.Infow("connected to redis", "address", addr, "attempts", attempt)
	return client, nil
}
