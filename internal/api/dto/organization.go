package dto

import (
	"time"

	"github.com/adforge/adforge/internal/domain/organization"
	"github.com/adforge/adforge/internal/validator"
)

// CreateOrganizationRequest is the create_org_and_join call
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (r *CreateOrganizationRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   *string   `json:"owner_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func FromOrganization(o *organization.Organization) *OrganizationResponse {
	return &OrganizationResponse{
		ID:        o.ID,
		Name:      o.Name,
		OwnerID:   o.OwnerID,
		CreatedBy: o.CreatedBy,
		CreatedAt: o.CreatedAt,
	}
}

// OwnerResponse reports the owner of an organization, null while unclaimed
type OwnerResponse struct {
	OK      bool    `json:"ok"`
	OrgID   string  `json:"org_id"`
	OwnerID *string `json:"owner_id"`
}
