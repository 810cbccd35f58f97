package types

import (
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/samber/lo"
)

// JobStatus is the lifecycle state of a content job
type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

func (s JobStatus) Validate() error {
	allowedValues := []string{
		string(JobStatusDraft),
		string(JobStatusQueued),
		string(JobStatusRunning),
		string(JobStatusCompleted),
		string(JobStatusFailed),
	}
	if !lo.Contains(allowedValues, string(s)) {
		return ierr.NewError("invalid job status").
			WithHint("Invalid job status").
			WithReportableDetails(map[string]any{
				"allowed": allowedValues,
				"status":  s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal reports whether no further transition is allowed out of the status
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted
}

// IsInFlight reports whether a provider request for the job may still be outstanding
func (s JobStatus) IsInFlight() bool {
	return s == JobStatusRunning
}

// JobType is the kind of media a job produces
type JobType string

const (
	JobTypeImage JobType = "image"
	JobTypeVideo JobType = "video"
)

func (t JobType) Validate() error {
	allowedValues := []string{
		string(JobTypeImage),
		string(JobTypeVideo),
	}
	if !lo.Contains(allowedValues, string(t)) {
		return ierr.NewError("invalid job type").
			WithHint("Invalid job type").
			WithReportableDetails(map[string]any{
				"allowed":  allowedValues,
				"job_type": t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ProviderName identifies a generation provider variant
type ProviderName string

const (
	ProviderVeo3   ProviderName = "veo3"
	ProviderStatic ProviderName = "static"
)

func (p ProviderName) Validate() error {
	allowedValues := []string{
		string(ProviderVeo3),
		string(ProviderStatic),
	}
	if !lo.Contains(allowedValues, string(p)) {
		return ierr.NewError("invalid provider").
			WithHint("Unsupported generation provider").
			WithReportableDetails(map[string]any{
				"allowed":  allowedValues,
				"provider": p,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
