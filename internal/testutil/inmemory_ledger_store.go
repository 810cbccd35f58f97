package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/adforge/adforge/internal/domain/ledger"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
	"github.com/samber/lo"
)

// InMemoryLedgerStore implements ledger.Repository. One mutex covers the
// idempotency check, the balance check and the append, like the advisory lock
// of the postgres repository.
type InMemoryLedgerStore struct {
	mu      sync.RWMutex
	entries []*ledger.Entry
	// FailAppends makes the next n appends fail with ErrStoreUnavailable
	FailAppends int
}

var _ ledger.Repository = (*InMemoryLedgerStore)(nil)

func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{}
}

func (s *InMemoryLedgerStore) Append(ctx context.Context, e *ledger.Entry, requireNonNegative bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppends > 0 {
		s.FailAppends--
		return 0, ierr.NewError("connection reset").
			WithHint("Ledger is temporarily unavailable").
			Mark(ierr.ErrStoreUnavailable)
	}

	if key := e.Key(); key != "" {
		for _, existing := range s.entries {
			if existing.OrgID == e.OrgID && existing.Key() == key {
				return 0, ierr.NewError("idempotency key already used").
					WithHint("Ledger entry already recorded").
					Mark(ierr.ErrAlreadyExists)
			}
		}
	}

	balance := s.balance(e.OrgID) + e.Delta
	if requireNonNegative && balance < 0 {
		return 0, ierr.NewError("insufficient credits").
			WithHint("Insufficient credits").
			WithReportableDetails(map[string]any{
				"org_id":  e.OrgID,
				"balance": balance - e.Delta,
				"amount":  e.Amount(),
			}).
			Mark(ierr.ErrInsufficientFunds)
	}

	e.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER_ENTRY)
	e.BalanceAfter = balance
	e.CreatedAt = time.Now().UTC()

	stored := *e
	s.entries = append(s.entries, &stored)
	return balance, nil
}

func (s *InMemoryLedgerStore) GetBalance(ctx context.Context, orgID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance(orgID), nil
}

func (s *InMemoryLedgerStore) balance(orgID string) int64 {
	var sum int64
	for _, e := range s.entries {
		if e.OrgID == orgID {
			sum += e.Delta
		}
	}
	return sum
}

func (s *InMemoryLedgerStore) GetByIdempotencyKey(ctx context.Context, orgID, key string) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.OrgID == orgID && e.Key() == key {
			c := *e
			return &c, nil
		}
	}
	return nil, ierr.NewError("ledger entry not found").
		WithHint("Resource not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryLedgerStore) Get(ctx context.Context, id string) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			c := *e
			return &c, nil
		}
	}
	return nil, ierr.NewError("ledger entry not found").
		WithHint("Resource not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryLedgerStore) List(ctx context.Context, filter *types.LedgerEntryFilter) ([]*ledger.Entry, error) {
	matched := lo.Reverse(s.Entries(filter.OrgID))

	if filter.Offset >= len(matched) {
		return []*ledger.Entry{}, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], nil
}

func (s *InMemoryLedgerStore) Count(ctx context.Context, filter *types.LedgerEntryFilter) (int, error) {
	return len(s.Entries(filter.OrgID)), nil
}

// Entries returns copies of the entries of orgID in append order
func (s *InMemoryLedgerStore) Entries(orgID string) []*ledger.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Entry
	for _, e := range s.entries {
		if e.OrgID == orgID {
			c := *e
			out = append(out, &c)
		}
	}
	return out
}

// Clear removes all entries
func (s *InMemoryLedgerStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.FailAppends = 0
}
