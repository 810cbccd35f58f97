package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/adforge/adforge/internal/types"
)

// Event names emitted by the accounting and dispatch core
const (
	EventJobQueued     = "job.queued"
	EventJobRunning    = "job.running"
	EventJobCompleted  = "job.completed"
	EventJobFailed     = "job.failed"
	EventJobRefunded   = "job.refunded"
	EventLedgerCredit  = "ledger.credited"
	EventLedgerDebit   = "ledger.debited"
	EventOrgCreated    = "organization.created"
	EventOwnerClaimed  = "organization.owner_claimed"
	jobEventNamePrefix = "job."
)

// Event is a fact about the domain published for downstream consumers
type Event struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_name"`
	OrgID     string          `json:"org_id"`
	UserID    string          `json:"user_id,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent builds an event carrying payload, stamped with the actor of ctx
func NewEvent(ctx context.Context, name, orgID string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EVENT),
		EventName: name,
		OrgID:     orgID,
		UserID:    types.GetUserID(ctx),
		RequestID: types.GetRequestID(ctx),
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// IsJobEvent reports whether the event concerns a content job
func (e *Event) IsJobEvent() bool {
	return strings.HasPrefix(e.EventName, jobEventNamePrefix)
}
