package dto

import (
	"context"
	"strings"
	"time"

	"github.com/adforge/adforge/internal/domain/job"
	"github.com/adforge/adforge/internal/types"
	"github.com/adforge/adforge/internal/validator"
	"github.com/samber/lo"
)

// CreateJobRequest creates a draft content job
type CreateJobRequest struct {
	OrgID         string             `json:"org_id" validate:"required"`
	ProjectID     string             `json:"project_id" validate:"required"`
	JobType       types.JobType      `json:"job_type" validate:"required"`
	Provider      types.ProviderName `json:"provider,omitempty"`
	InputMediaURL string             `json:"input_media_url,omitempty" validate:"omitempty,url"`
	PromptText    string             `json:"prompt_text,omitempty"`
}

func (r *CreateJobRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.JobType.Validate(); err != nil {
		return err
	}
	if r.Provider != "" {
		return r.Provider.Validate()
	}
	return nil
}

// ToContentJob builds the draft job. An empty provider is resolved to defaultProvider.
func (r *CreateJobRequest) ToContentJob(ctx context.Context, defaultProvider types.ProviderName) *job.ContentJob {
	now := time.Now().UTC()
	return &job.ContentJob{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONTENT_JOB),
		OrgID:         r.OrgID,
		ProjectID:     r.ProjectID,
		JobType:       r.JobType,
		Provider:      lo.Ternary(r.Provider != "", r.Provider, defaultProvider),
		InputMediaURL: lo.EmptyableToPtr(strings.TrimSpace(r.InputMediaURL)),
		PromptText:    lo.EmptyableToPtr(strings.TrimSpace(r.PromptText)),
		Status:        types.JobStatusDraft,
		CreatedBy:     types.GetUserID(ctx),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// LaunchAndChargeRequest is the optional body of the launch-and-charge route
type LaunchAndChargeRequest struct {
	Amount         int64  `json:"amount" validate:"gt=0"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=255"`
}

func (r *LaunchAndChargeRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// LaunchJobResponse is returned by both launch routes
type LaunchJobResponse struct {
	OK             bool            `json:"ok"`
	JobID          string          `json:"job_id"`
	Status         types.JobStatus `json:"status"`
	ProviderJobID  *string         `json:"provider_job_id"`
	OutputMediaURL *string         `json:"output_media_url"`
	ErrorMessage   *string         `json:"error,omitempty"`
	ChargeEntryID  *string         `json:"charge_entry_id,omitempty"`
	Refunded       bool            `json:"refunded,omitempty"`
}

func NewLaunchJobResponse(j *job.ContentJob) *LaunchJobResponse {
	return &LaunchJobResponse{
		OK:             j.Status != types.JobStatusFailed,
		JobID:          j.ID,
		Status:         j.Status,
		ProviderJobID:  j.ProviderJobID,
		OutputMediaURL: j.OutputMediaURL,
		ErrorMessage:   j.ErrorMessage,
		ChargeEntryID:  j.ChargeEntryID,
	}
}

// JobResponse represents a content job in API responses
type JobResponse struct {
	*job.ContentJob
}

func FromContentJob(j *job.ContentJob) *JobResponse {
	return &JobResponse{ContentJob: j}
}
