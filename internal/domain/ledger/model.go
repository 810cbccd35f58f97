package ledger

import (
	"time"

	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/samber/lo"
)

// Entry is one immutable movement of credits for an organization.
// Credits carry a positive Delta and debits a negative one.
type Entry struct {
	ID             string    `db:"id" json:"id"`
	OrgID          string    `db:"org_id" json:"org_id"`
	Delta          int64     `db:"delta" json:"delta"`
	Reason         string    `db:"reason" json:"reason"`
	RelatedJobID   *string   `db:"related_job_id" json:"related_job_id,omitempty"`
	IdempotencyKey *string   `db:"idempotency_key" json:"idempotency_key,omitempty"`
	BalanceAfter   int64     `db:"balance_after" json:"balance_after"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

func (e *Entry) TableName() string {
	return "ledger_entries"
}

func (e *Entry) Validate() error {
	if e.OrgID == "" {
		return ierr.NewError("org_id is required").
			WithHint("Organization ID is required").
			Mark(ierr.ErrValidation)
	}
	if e.Delta == 0 {
		return ierr.NewError("delta must not be zero").
			WithHint("Amount must be a positive number of credits").
			WithReportableDetails(map[string]any{
				"org_id": e.OrgID,
			}).
			Mark(ierr.ErrValidation)
	}
	if e.IdempotencyKey != nil && *e.IdempotencyKey == "" {
		e.IdempotencyKey = nil
	}
	return nil
}

// IsDebit reports whether the entry reduces the balance
func (e *Entry) IsDebit() bool {
	return e.Delta < 0
}

// Amount is the absolute number of credits moved by the entry
func (e *Entry) Amount() int64 {
	if e.Delta < 0 {
		return -e.Delta
	}
	return e.Delta
}

// Key returns the idempotency key or an empty string
func (e *Entry) Key() string {
	return lo.FromPtr(e.IdempotencyKey)
}
