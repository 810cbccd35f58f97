package postgres

import (
	"context"

	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/logger"
	sentryService "github.com/adforge/adforge/internal/sentry"
)

// IClient is the transaction boundary services depend on
type IClient interface {
	// WithTx runs fn inside a transaction carried by the context passed to fn.
	// Nested calls become savepoints of the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ IClient = (*DB)(nil)

// NewClient returns the transaction client used by services,
// instrumented with Sentry spans when Sentry is enabled
func NewClient(cfg *config.Configuration, db *DB, sentry *sentryService.Service, logger *logger.Logger) IClient {
	if cfg.Sentry.Enabled {
		return NewSentryClient(db, sentry, logger)
	}
	return db
}
