package organization

import (
	"time"

	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
)

// Organization groups users, projects and the credit balance they share
type Organization struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   *string   `db:"owner_id" json:"owner_id,omitempty"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (o *Organization) TableName() string {
	return "organizations"
}

func (o *Organization) Validate() error {
	if o.Name == "" {
		return ierr.NewError("name is required").
			WithHint("Organization name is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// HasOwner reports whether the organization has been claimed
func (o *Organization) HasOwner() bool {
	return o.OwnerID != nil && *o.OwnerID != ""
}

// Member links a user to an organization
type Member struct {
	ID        string           `db:"id" json:"id"`
	OrgID     string           `db:"org_id" json:"org_id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Role      types.MemberRole `db:"role" json:"role"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

func (m *Member) TableName() string {
	return "members"
}
