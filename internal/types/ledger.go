package types

import (
	"fmt"
)

// Reasons written by the system itself. User supplied reasons are free text.
const (
	LedgerReasonSeed      = "seed"
	LedgerReasonTopUp     = "topup"
	LedgerReasonJobCharge = "job_charge"
	LedgerReasonRefund    = "refund"
)

// JobChargeIdempotencyKey is the key used to debit a job launch attempt
func JobChargeIdempotencyKey(jobID string, attempt int) string {
	return fmt.Sprintf("job:%s:attempt:%d", jobID, attempt)
}

// JobCallerChargeIdempotencyKey scopes a caller supplied charge key to the job
// so the same key can never resolve to the charge of another job
func JobCallerChargeIdempotencyKey(jobID, key string) string {
	return fmt.Sprintf("job:%s:key:%s", jobID, key)
}

// RefundIdempotencyKey is the key used to reverse a debit entry exactly once
func RefundIdempotencyKey(entryID string) string {
	return fmt.Sprintf("refund:%s", entryID)
}

// SeedIdempotencyKey is the key used to grant the initial credits of an organization
func SeedIdempotencyKey(orgID string) string {
	return fmt.Sprintf("seed:%s", orgID)
}
