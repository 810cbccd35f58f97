package types

import (
	"time"

	ierr "github.com/adforge/adforge/internal/errors"
)

const (
	FILTER_DEFAULT_LIMIT = 50
	FILTER_MAX_LIMIT     = 1000
)

// LedgerEntryFilter selects a page of an organization's ledger history, newest first
type LedgerEntryFilter struct {
	OrgID  string `json:"org_id" form:"-"`
	Limit  int    `json:"limit" form:"limit"`
	Offset int    `json:"offset" form:"offset"`
}

func NewLedgerEntryFilter(orgID string) *LedgerEntryFilter {
	return &LedgerEntryFilter{
		OrgID: orgID,
		Limit: FILTER_DEFAULT_LIMIT,
	}
}

func (f *LedgerEntryFilter) Validate() error {
	if f.OrgID == "" {
		return ierr.NewError("org_id is required").
			WithHint("Organization ID is required").
			Mark(ierr.ErrValidation)
	}
	if f.Limit == 0 {
		f.Limit = FILTER_DEFAULT_LIMIT
	}
	if f.Limit < 0 || f.Limit > FILTER_MAX_LIMIT {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 1 and %d", FILTER_MAX_LIMIT).
			Mark(ierr.ErrValidation)
	}
	if f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// JobFilter selects jobs for background reconciliation
type JobFilter struct {
	Statuses         []JobStatus
	DispatchedBefore *time.Time
	Limit            int
}
