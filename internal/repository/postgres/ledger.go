package postgres

import (
	"context"
	"time"

	"github.com/adforge/adforge/internal/domain/ledger"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/postgres"
	"github.com/adforge/adforge/internal/types"
)

type ledgerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewLedgerRepository creates a new instance of the ledger repository
func NewLedgerRepository(db *postgres.DB, logger *logger.Logger) ledger.Repository {
	return &ledgerRepository{
		db:     db,
		logger: logger,
	}
}

// Append serializes writers of one organization on a transaction scoped advisory
// lock, so the idempotency check, the balance check and the insert observe the
// same state. When called inside an outer transaction the lock is held until that
// transaction ends.
func (r *ledgerRepository) Append(ctx context.Context, e *ledger.Entry, requireNonNegative bool) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	var balance int64
	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)

		if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, e.OrgID); err != nil {
			return postgres.WrapError(err, "failed to lock organization ledger")
		}

		if key := e.Key(); key != "" {
			var count int
			if err := q.GetContext(ctx, &count, `
				SELECT COUNT(*) FROM ledger_entries
				WHERE org_id = $1 AND idempotency_key = $2`, e.OrgID, key); err != nil {
				return postgres.WrapError(err, "failed to check idempotency key")
			}
			if count > 0 {
				return ierr.NewError("idempotency key already used").
					WithHint("This request has already been processed").
					WithReportableDetails(map[string]any{
						"org_id":          e.OrgID,
						"idempotency_key": key,
					}).
					Mark(ierr.ErrAlreadyExists)
			}
		}

		var current int64
		if err := q.GetContext(ctx, &current, `
			SELECT COALESCE(SUM(delta), 0) FROM ledger_entries
			WHERE org_id = $1`, e.OrgID); err != nil {
			return postgres.WrapError(err, "failed to read balance")
		}

		next := current + e.Delta
		if requireNonNegative && next < 0 {
			return insufficientFunds(e, current)
		}

		if e.ID == "" {
			e.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER_ENTRY)
		}
		e.BalanceAfter = next
		e.CreatedAt = time.Now().UTC()

		if _, err := q.NamedExecContext(ctx, `
			INSERT INTO ledger_entries (
				id, org_id, delta, reason, related_job_id, idempotency_key,
				balance_after, created_by, created_at
			) VALUES (
				:id, :org_id, :delta, :reason, :related_job_id, :idempotency_key,
				:balance_after, :created_by, :created_at
			)`, e); err != nil {
			return postgres.WrapError(err, "failed to insert ledger entry")
		}

		balance = next
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debugw("appended ledger entry",
		"entry_id", e.ID,
		"org_id", e.OrgID,
		"delta", e.Delta,
		"balance_after", balance,
	)
	return balance, nil
}

func (r *ledgerRepository) GetBalance(ctx context.Context, orgID string) (int64, error) {
	var balance int64
	err := r.db.GetQuerier(ctx).GetContext(ctx, &balance, `
		SELECT COALESCE(SUM(delta), 0) FROM ledger_entries
		WHERE org_id = $1`, orgID)
	if err != nil {
		return 0, postgres.WrapError(err, "failed to read balance")
	}
	return balance, nil
}

func (r *ledgerRepository) GetByIdempotencyKey(ctx context.Context, orgID, key string) (*ledger.Entry, error) {
	var e ledger.Entry
	err := r.db.GetQuerier(ctx).GetContext(ctx, &e, `
		SELECT * FROM ledger_entries
		WHERE org_id = $1 AND idempotency_key = $2`, orgID, key)
	if err != nil {
		return nil, postgres.WrapError(err, "failed to get ledger entry by idempotency key")
	}
	return &e, nil
}

func (r *ledgerRepository) Get(ctx context.Context, id string) (*ledger.Entry, error) {
	var e ledger.Entry
	err := r.db.GetQuerier(ctx).GetContext(ctx, &e, `
		SELECT * FROM ledger_entries
		WHERE id = $1`, id)
	if err != nil {
		return nil, postgres.WrapError(err, "failed to get ledger entry")
	}
	return &e, nil
}

func (r *ledgerRepository) List(ctx context.Context, filter *types.LedgerEntryFilter) ([]*ledger.Entry, error) {
	entries := make([]*ledger.Entry, 0, filter.Limit)
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries
		WHERE org_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, filter.OrgID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, postgres.WrapError(err, "failed to list ledger entries")
	}
	return entries, nil
}

func (r *ledgerRepository) Count(ctx context.Context, filter *types.LedgerEntryFilter) (int, error) {
	var count int
	err := r.db.GetQuerier(ctx).GetContext(ctx, &count, `
		SELECT COUNT(*) FROM ledger_entries
		WHERE org_id = $1`, filter.OrgID)
	if err != nil {
		return 0, postgres.WrapError(err, "failed to count ledger entries")
	}
	return count, nil
}

func insufficientFunds(e *ledger.Entry, balance int64) error {
	return ierr.NewError("insufficient credits").
		WithHint("Insufficient credits").
		WithReportableDetails(map[string]any{
			"org_id":    e.OrgID,
			"balance":   balance,
			"requested": e.Amount(),
		}).
		Mark(ierr.ErrInsufficientFunds)
}
