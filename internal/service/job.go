package service

import (
	"context"

	"github.com/adforge/adforge/internal/api/dto"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
)

// JobService creates and reads content jobs. Dispatch lives in DispatchService.
type JobService interface {
	// CreateJob stores a draft job for the caller in one of their organizations
	CreateJob(ctx context.Context, req *dto.CreateJobRequest) (*dto.JobResponse, error)

	// GetJob returns a job visible to the caller
	GetJob(ctx context.Context, id string) (*dto.JobResponse, error)
}

type jobService struct {
	ServiceParams
}

func NewJobService(params ServiceParams) JobService {
	return &jobService{
		ServiceParams: params,
	}
}

func (s *jobService) CreateJob(ctx context.Context, req *dto.CreateJobRequest) (*dto.JobResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := requireMember(ctx, s.OrgRepo, req.OrgID, types.GetUserID(ctx)); err != nil {
		return nil, err
	}

	j := req.ToContentJob(ctx, s.Config.Provider.Default)
	if _, err := s.Providers.Get(j.Provider); err != nil {
		return nil, err
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}

	if err := s.JobRepo.Create(ctx, j); err != nil {
		return nil, err
	}

	s.Logger.Infow("content job created",
		"job_id", j.ID,
		"org_id", j.OrgID,
		"job_type", j.JobType,
		"provider", j.Provider,
	)
	return dto.FromContentJob(j), nil
}

func (s *jobService) GetJob(ctx context.Context, id string) (*dto.JobResponse, error) {
	j, err := s.JobRepo.Get(ctx, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("Job not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}

	if _, err := requireMember(ctx, s.OrgRepo, j.OrgID, types.GetUserID(ctx)); err != nil {
		return nil, err
	}
	return dto.FromContentJob(j), nil
}
