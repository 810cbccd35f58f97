package ledger

import (
	"context"

	"github.com/adforge/adforge/internal/types"
)

// Repository defines the persistence contract of the credit ledger.
// Entries are only ever appended.
type Repository interface {
	// Append writes e and returns the organization balance after it.
	// The balance check, the idempotency check and the insert happen as one
	// atomic step per organization. When requireNonNegative is set and the
	// resulting balance would be negative nothing is written and an
	// ErrInsufficientFunds error is returned. When e carries an idempotency key
	// that is already recorded nothing is written and an ErrAlreadyExists error
	// is returned. e.ID, e.BalanceAfter and e.CreatedAt are filled on success.
	Append(ctx context.Context, e *Entry, requireNonNegative bool) (int64, error)

	// GetBalance returns the sum of all entry deltas of the organization
	GetBalance(ctx context.Context, orgID string) (int64, error)

	GetByIdempotencyKey(ctx context.Context, orgID, key string) (*Entry, error)
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, filter *types.LedgerEntryFilter) ([]*Entry, error)
	Count(ctx context.Context, filter *types.LedgerEntryFilter) (int, error)
}
