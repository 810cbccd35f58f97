package job

import (
	"context"

	"github.com/adforge/adforge/internal/types"
)

// Repository defines the interface for content job persistence operations
type Repository interface {
	Create(ctx context.Context, j *ContentJob) error
	Get(ctx context.Context, id string) (*ContentJob, error)
	// Update persists the mutable dispatch fields of j and bumps UpdatedAt
	Update(ctx context.Context, j *ContentJob) error
	// List returns jobs matching the filter ordered by dispatch time, oldest first
	List(ctx context.Context, filter *types.JobFilter) ([]*ContentJob, error)
}
