package service

import (
	"context"
	"time"

	"github.com/adforge/adforge/internal/api/dto"
	"github.com/adforge/adforge/internal/cache"
	"github.com/adforge/adforge/internal/domain/events"
	"github.com/adforge/adforge/internal/domain/ledger"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/postgres"
	"github.com/adforge/adforge/internal/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
)

// LedgerService is the only writer of ledger entries
type LedgerService interface {
	// Credit adds req.Amount credits and returns the balance after the entry.
	// A repeated idempotency key returns the balance recorded by the first call
	// without writing.
	Credit(ctx context.Context, req *dto.CreditRequest) (int64, error)

	// Debit consumes req.Amount credits and returns the balance after the entry.
	// It fails with ErrInsufficientFunds when the balance would become negative.
	// A repeated idempotency key returns the balance recorded by the first call.
	Debit(ctx context.Context, req *dto.DebitRequest) (int64, error)

	// Balance returns the current credit balance of the organization
	Balance(ctx context.Context, orgID string) (int64, error)

	// TopUp credits the organization on behalf of its owner
	TopUp(ctx context.Context, orgID string, req *dto.TopUpRequest) (int64, error)

	// Refund returns the credits of a debit entry exactly once
	Refund(ctx context.Context, chargeEntryID string) (int64, error)

	// ListEntries returns the entry history of an organization, newest first
	ListEntries(ctx context.Context, filter *types.LedgerEntryFilter) (*dto.ListLedgerEntriesResponse, error)
}

type ledgerService struct {
	ServiceParams
	ownership OwnershipService
}

func NewLedgerService(params ServiceParams) LedgerService {
	return &ledgerService{
		ServiceParams: params,
		ownership:     NewOwnershipService(params),
	}
}

func (s *ledgerService) Credit(ctx context.Context, req *dto.CreditRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	entry := &ledger.Entry{
		OrgID:          req.OrgID,
		Delta:          req.Amount,
		Reason:         lo.Ternary(req.Reason != "", req.Reason, types.LedgerReasonTopUp),
		IdempotencyKey: lo.EmptyableToPtr(req.IdempotencyKey),
		CreatedBy:      types.GetUserID(ctx),
	}
	return s.append(ctx, entry, false)
}

func (s *ledgerService) Debit(ctx context.Context, req *dto.DebitRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	entry := &ledger.Entry{
		OrgID:          req.OrgID,
		Delta:          -req.Amount,
		Reason:         lo.Ternary(req.Reason != "", req.Reason, types.LedgerReasonJobCharge),
		RelatedJobID:   lo.EmptyableToPtr(req.JobID),
		IdempotencyKey: lo.EmptyableToPtr(req.IdempotencyKey),
		CreatedBy:      types.GetUserID(ctx),
	}
	return s.append(ctx, entry, true)
}

// cachedBalance is a balance together with the version counter read before
// the balance was loaded
type cachedBalance struct {
	Balance int64
	Version int64
}

func (s *ledgerService) Balance(ctx context.Context, orgID string) (int64, error) {
	if _, inTx := postgres.GetTx(ctx); inTx {
		return s.LedgerRepo.GetBalance(ctx, orgID)
	}

	key := cache.BalanceKey(orgID)
	version := s.balanceVersion(ctx, orgID)
	if cached, found := s.Cache.Get(ctx, key); found {
		if entry, ok := cached.(cachedBalance); ok && entry.Version == version {
			return entry.Balance, nil
		}
	}

	balance, err := s.LedgerRepo.GetBalance(ctx, orgID)
	if err != nil {
		return 0, err
	}
	s.Cache.Set(ctx, key, cachedBalance{Balance: balance, Version: version}, 0)
	return balance, nil
}

func (s *ledgerService) balanceVersion(ctx context.Context, orgID string) int64 {
	cached, _ := s.Cache.Get(ctx, cache.BalanceVersionKey(orgID))
	version, _ := cached.(int64)
	return version
}

func (s *ledgerService) TopUp(ctx context.Context, orgID string, req *dto.TopUpRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	userID := types.GetUserID(ctx)
	isOwner, err := s.ownership.IsOwner(ctx, orgID, userID)
	if err != nil {
		return 0, err
	}
	if !isOwner {
		return 0, ierr.NewError("only the owner can add credits").
			WithHint("Only the organization owner can add credits").
			WithReportableDetails(map[string]any{
				"org_id": orgID,
			}).
			Mark(ierr.ErrPermissionDenied)
	}

	return s.Credit(ctx, req.ToCreditRequest(orgID))
}

func (s *ledgerService) Refund(ctx context.Context, chargeEntryID string) (int64, error) {
	charge, err := s.LedgerRepo.Get(ctx, chargeEntryID)
	if err != nil {
		return 0, err
	}
	if !charge.IsDebit() {
		return 0, ierr.NewError("entry is not a debit").
			WithHint("Only charges can be refunded").
			WithReportableDetails(map[string]any{
				"entry_id": chargeEntryID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	entry := &ledger.Entry{
		OrgID:          charge.OrgID,
		Delta:          charge.Amount(),
		Reason:         types.LedgerReasonRefund,
		RelatedJobID:   charge.RelatedJobID,
		IdempotencyKey: lo.ToPtr(types.RefundIdempotencyKey(charge.ID)),
		CreatedBy:      types.GetUserID(ctx),
	}
	return s.append(ctx, entry, false)
}

func (s *ledgerService) ListEntries(ctx context.Context, filter *types.LedgerEntryFilter) (*dto.ListLedgerEntriesResponse, error) {
	if filter == nil {
		return nil, ierr.NewError("filter is required").
			WithHint("Organization ID is required").
			Mark(ierr.ErrValidation)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	entries, err := s.LedgerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.LedgerRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(entries, func(e *ledger.Entry, _ int) *dto.LedgerEntryResponse {
		return dto.FromLedgerEntry(e)
	})
	response := types.NewListResponse(items, count, filter.Limit, filter.Offset)
	return &response, nil
}

// append writes entry and resolves idempotent replays into the balance stored
// with the first entry of the key. Transient store failures are retried only
// for keyed entries, where a retry can never apply the movement twice.
func (s *ledgerService) append(ctx context.Context, entry *ledger.Entry, requireNonNegative bool) (int64, error) {
	if err := entry.Validate(); err != nil {
		return 0, err
	}

	if key := entry.Key(); key != "" {
		if existing, err := s.LedgerRepo.GetByIdempotencyKey(ctx, entry.OrgID, key); err == nil {
			return s.replay(existing, entry), nil
		} else if !ierr.IsNotFound(err) {
			return 0, err
		}
	}

	op := func() (int64, error) {
		balance, err := s.LedgerRepo.Append(ctx, entry, requireNonNegative)
		if err == nil {
			return balance, nil
		}
		if ierr.IsAlreadyExists(err) && entry.Key() != "" {
			existing, getErr := s.LedgerRepo.GetByIdempotencyKey(ctx, entry.OrgID, entry.Key())
			if getErr != nil {
				return 0, getErr
			}
			return s.replay(existing, entry), nil
		}
		if ierr.IsStoreUnavailable(err) && entry.Key() != "" {
			return 0, err
		}
		return 0, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	balance, err := backoff.RetryWithData(op, backoff.WithContext(b, ctx))
	if err != nil {
		if ierr.IsInsufficientFunds(err) {
			s.Logger.Infow("debit rejected",
				"org_id", entry.OrgID,
				"amount", entry.Amount(),
				"reason", entry.Reason,
			)
		}
		return 0, err
	}

	written := entry.ID != ""
	postgres.AfterCommit(ctx, func(ctx context.Context) {
		s.Cache.Incr(ctx, cache.BalanceVersionKey(entry.OrgID))
		s.Cache.Delete(ctx, cache.BalanceKey(entry.OrgID))
		if written {
			s.publish(ctx, entry)
		}
	})
	return balance, nil
}

func (s *ledgerService) replay(existing, requested *ledger.Entry) int64 {
	if existing.Delta != requested.Delta {
		s.Logger.Warnw("idempotency key reused with a different amount",
			"org_id", existing.OrgID,
			"idempotency_key", existing.Key(),
			"stored_delta", existing.Delta,
			"requested_delta", requested.Delta,
		)
	}
	s.Logger.Debugw("idempotent ledger replay",
		"org_id", existing.OrgID,
		"entry_id", existing.ID,
	)
	return existing.BalanceAfter
}

func (s *ledgerService) publish(ctx context.Context, entry *ledger.Entry) {
	name := lo.Ternary(entry.IsDebit(), events.EventLedgerDebit, events.EventLedgerCredit)
	event, err := events.NewEvent(ctx, name, entry.OrgID, dto.FromLedgerEntry(entry))
	if err != nil {
		s.Logger.Errorw("failed to build ledger event", "error", err)
		return
	}
	if err := s.EventPublisher.Publish(ctx, event); err != nil {
		s.Logger.Errorf("failed to publish %s event: %v", event.EventName, err)
	}
}
