package organization

import (
	"context"
)

// Repository defines the interface for organization persistence operations
type Repository interface {
	Create(ctx context.Context, org *Organization) error
	Get(ctx context.Context, id string) (*Organization, error)

	// ClaimOwner sets the owner only while none is recorded and reports whether
	// this call was the one that set it. Exactly one concurrent caller wins.
	ClaimOwner(ctx context.Context, orgID, userID string) (bool, error)

	// Membership operations
	AddMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, orgID, userID string) (*Member, error)
	// GetOrgForUser returns the earliest organization the user joined
	GetOrgForUser(ctx context.Context, userID string) (*Organization, error)
}
