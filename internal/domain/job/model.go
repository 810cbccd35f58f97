package job

import (
	"strings"
	"time"

	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
)

// ContentJob is one request for AI generated ad content
type ContentJob struct {
	ID             string             `db:"id" json:"id"`
	OrgID          string             `db:"org_id" json:"org_id"`
	ProjectID      string             `db:"project_id" json:"project_id"`
	JobType        types.JobType      `db:"job_type" json:"job_type"`
	Provider       types.ProviderName `db:"provider" json:"provider"`
	InputMediaURL  *string            `db:"input_media_url" json:"input_media_url,omitempty"`
	PromptText     *string            `db:"prompt_text" json:"prompt_text,omitempty"`
	Status         types.JobStatus    `db:"status" json:"status"`
	ProviderJobID  *string            `db:"provider_job_id" json:"provider_job_id"`
	OutputMediaURL *string            `db:"output_media_url" json:"output_media_url"`
	ErrorMessage   *string            `db:"error_message" json:"error_message,omitempty"`
	ChargeEntryID  *string            `db:"charge_entry_id" json:"charge_entry_id,omitempty"`
	Attempts       int                `db:"attempts" json:"attempts"`
	DispatchedAt   *time.Time         `db:"dispatched_at" json:"dispatched_at,omitempty"`
	CreatedBy      string             `db:"created_by" json:"created_by"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}

func (j *ContentJob) TableName() string {
	return "content_jobs"
}

func (j *ContentJob) Validate() error {
	if j.OrgID == "" || j.ProjectID == "" {
		return ierr.NewError("org_id and project_id are required").
			WithHint("Job must belong to an organization and a project").
			Mark(ierr.ErrValidation)
	}
	if err := j.JobType.Validate(); err != nil {
		return err
	}
	if err := j.Provider.Validate(); err != nil {
		return err
	}
	return j.Status.Validate()
}

// Prompt returns the trimmed prompt text
func (j *ContentJob) Prompt() string {
	if j.PromptText == nil {
		return ""
	}
	return strings.TrimSpace(*j.PromptText)
}

// InputURL returns the trimmed input media reference
func (j *ContentJob) InputURL() string {
	if j.InputMediaURL == nil {
		return ""
	}
	return strings.TrimSpace(*j.InputMediaURL)
}

// IsReadyForDispatch reports whether both inputs a provider needs are present
func (j *ContentJob) IsReadyForDispatch() bool {
	return j.Prompt() != "" && j.InputURL() != ""
}
