package testutil

import (
	"context"
	"sync/atomic"

	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

// MockPostgresClient is a mock implementation of postgres client for testing.
// It runs the callback without a transaction, so store writes are never
// rolled back.
type MockPostgresClient struct {
	logger *logger.Logger
	txs    atomic.Int64
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function without a real transaction. AfterCommit
// callbacks run only when fn succeeds, as they would after a real commit.
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	c.txs.Add(1)
	return postgres.TrackCommit(ctx, fn)
}

// TxCount returns how many transactions were started
func (c *MockPostgresClient) TxCount() int64 {
	return c.txs.Load()
}
