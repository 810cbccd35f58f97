package testutil

import (
	"context"
	"time"

	"github.com/adforge/adforge/internal/domain/job"
	"github.com/adforge/adforge/internal/types"
	"github.com/samber/lo"
)

// InMemoryJobStore implements job.Repository
type InMemoryJobStore struct {
	*InMemoryStore[*job.ContentJob]
}

var _ job.Repository = (*InMemoryJobStore)(nil)

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		InMemoryStore: NewInMemoryStore[*job.ContentJob](),
	}
}

func (s *InMemoryJobStore) Create(ctx context.Context, j *job.ContentJob) error {
	c := *j
	return s.InMemoryStore.Create(ctx, j.ID, &c)
}

func (s *InMemoryJobStore) Get(ctx context.Context, id string) (*job.ContentJob, error) {
	j, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := *j
	return &c, nil
}

func (s *InMemoryJobStore) Update(ctx context.Context, j *job.ContentJob) error {
	j.UpdatedAt = time.Now().UTC()
	c := *j
	return s.InMemoryStore.Update(ctx, j.ID, &c)
}

func (s *InMemoryJobStore) List(ctx context.Context, filter *types.JobFilter) ([]*job.ContentJob, error) {
	jobs := s.InMemoryStore.List(ctx,
		func(_ context.Context, j *job.ContentJob) bool {
			if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, j.Status) {
				return false
			}
			if filter.DispatchedBefore != nil && (j.DispatchedAt == nil || !j.DispatchedAt.Before(*filter.DispatchedBefore)) {
				return false
			}
			return true
		},
		func(a, b *job.ContentJob) bool {
			return lo.FromPtr(a.DispatchedAt).Before(lo.FromPtr(b.DispatchedAt))
		},
	)

	if filter.Limit > 0 && len(jobs) > filter.Limit {
		jobs = jobs[:filter.Limit]
	}
	return lo.Map(jobs, func(j *job.ContentJob, _ int) *job.ContentJob {
		c := *j
		return &c
	}), nil
}
