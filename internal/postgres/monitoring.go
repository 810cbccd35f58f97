package postgres

import (
	"context"

	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/logger"
	sentryService "github.com/adforge/adforge/internal/sentry"
	"github.com/getsentry/sentry-go"
)

// SentryClient records every top level transaction as a Sentry span so a slow
// charge or claim shows up inside the request trace
type SentryClient struct {
	client IClient
	sentry *sentryService.Service
	logger *logger.Logger
}

func NewSentryClient(client IClient, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return &SentryClient{
		client: client,
		sentry: sentry,
		logger: logger,
	}
}

func (c *SentryClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	// savepoints stay inside the span of the outer transaction
	if _, nested := GetTx(ctx); nested {
		return c.client.WithTx(ctx, fn)
	}

	span, spanCtx := c.sentry.StartDBSpan(ctx, "postgres.transaction", map[string]interface{}{
		"operation": "transaction",
	})
	if span == nil {
		return c.client.WithTx(ctx, fn)
	}
	defer span.Finish()

	err := c.client.WithTx(spanCtx, fn)
	span.Status = txSpanStatus(err)
	return err
}

func txSpanStatus(err error) sentry.SpanStatus {
	switch {
	case err == nil:
		return sentry.SpanStatusOK
	case ierr.IsStoreUnavailable(err):
		return sentry.SpanStatusUnavailable
	case ierr.IsInsufficientFunds(err), ierr.IsAlreadyExists(err), ierr.IsAlreadyOwned(err):
		return sentry.SpanStatusFailedPrecondition
	default:
		return sentry.SpanStatusInternalError
	}
}
