package dto

import (
	"time"

	"github.com/adforge/adforge/internal/domain/ledger"
	"github.com/adforge/adforge/internal/types"
	"github.com/adforge/adforge/internal/validator"
)

// CreditRequest adds credits to an organization
type CreditRequest struct {
	OrgID          string `json:"-" validate:"required"`
	Amount         int64  `json:"amount" validate:"gt=0"`
	Reason         string `json:"reason,omitempty" validate:"omitempty,max=255"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=255"`
}

func (r *CreditRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// DebitRequest consumes credits of an organization, optionally on behalf of a job
type DebitRequest struct {
	OrgID          string `json:"-" validate:"required"`
	Amount         int64  `json:"amount" validate:"gt=0"`
	Reason         string `json:"reason,omitempty" validate:"omitempty,max=255"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=255"`
	JobID          string `json:"job_id,omitempty"`
}

func (r *DebitRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// TopUpRequest is the owner initiated credit of the add_credits call
type TopUpRequest struct {
	Amount         int64  `json:"amount" validate:"gt=0"`
	Reason         string `json:"reason,omitempty" validate:"omitempty,max=255"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=255"`
}

func (r *TopUpRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ToCreditRequest binds the top-up to an organization
func (r *TopUpRequest) ToCreditRequest(orgID string) *CreditRequest {
	reason := r.Reason
	if reason == "" {
		reason = types.LedgerReasonTopUp
	}
	return &CreditRequest{
		OrgID:          orgID,
		Amount:         r.Amount,
		Reason:         reason,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// BalanceResponse carries the balance of an organization after an operation
type BalanceResponse struct {
	OK         bool   `json:"ok"`
	OrgID      string `json:"org_id"`
	NewBalance int64  `json:"new_balance"`
}

// CreditBalanceResponse is the get_org_credit_balance result
type CreditBalanceResponse struct {
	OK      bool   `json:"ok"`
	OrgID   string `json:"org_id"`
	Balance int64  `json:"balance"`
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID             string    `json:"id"`
	OrgID          string    `json:"org_id"`
	Delta          int64     `json:"delta"`
	Reason         string    `json:"reason"`
	RelatedJobID   *string   `json:"related_job_id,omitempty"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty"`
	BalanceAfter   int64     `json:"balance_after"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func FromLedgerEntry(e *ledger.Entry) *LedgerEntryResponse {
	return &LedgerEntryResponse{
		ID:             e.ID,
		OrgID:          e.OrgID,
		Delta:          e.Delta,
		Reason:         e.Reason,
		RelatedJobID:   e.RelatedJobID,
		IdempotencyKey: e.IdempotencyKey,
		BalanceAfter:   e.BalanceAfter,
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
	}
}

// ListLedgerEntriesResponse is a page of ledger entries, newest first
type ListLedgerEntriesResponse = types.ListResponse[*LedgerEntryResponse]
