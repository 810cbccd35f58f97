package service

import (
	"context"

	"github.com/adforge/adforge/internal/cache"
	"github.com/adforge/adforge/internal/domain/events"
	"github.com/adforge/adforge/internal/domain/organization"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/samber/lo"
)

// OwnershipService arbitrates the single owner of an organization
type OwnershipService interface {
	// GetOwner returns the owner of the organization or nil while unclaimed
	GetOwner(ctx context.Context, orgID string) (*string, error)

	// Claim makes requester the owner if the organization has none.
	// Of any number of concurrent claims exactly one succeeds, the others
	// receive an ErrAlreadyOwned error. The requester must be a member.
	Claim(ctx context.Context, orgID, requester string) error

	// IsOwner reports whether userID owns the organization
	IsOwner(ctx context.Context, orgID, userID string) (bool, error)
}

type ownershipService struct {
	ServiceParams
}

func NewOwnershipService(params ServiceParams) OwnershipService {
	return &ownershipService{
		ServiceParams: params,
	}
}

func (s *ownershipService) GetOwner(ctx context.Context, orgID string) (*string, error) {
	key := cache.OwnerKey(orgID)
	if cached, found := s.Cache.Get(ctx, key); found {
		if ownerID, ok := cached.(string); ok {
			return &ownerID, nil
		}
	}

	org, err := s.OrgRepo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !org.HasOwner() {
		return nil, nil
	}

	// an owner never changes once set so it is safe to keep
	s.Cache.Set(ctx, key, *org.OwnerID, 0)
	return org.OwnerID, nil
}

func (s *ownershipService) IsOwner(ctx context.Context, orgID, userID string) (bool, error) {
	ownerID, err := s.GetOwner(ctx, orgID)
	if err != nil {
		return false, err
	}
	return userID != "" && lo.FromPtr(ownerID) == userID, nil
}

func (s *ownershipService) Claim(ctx context.Context, orgID, requester string) error {
	if requester == "" {
		return ierr.NewError("missing requester").
			WithHint("Unauthorized").
			Mark(ierr.ErrUnauthorized)
	}

	if _, err := s.OrgRepo.Get(ctx, orgID); err != nil {
		return err
	}

	if _, err := requireMember(ctx, s.OrgRepo, orgID, requester); err != nil {
		return err
	}

	won, err := s.OrgRepo.ClaimOwner(ctx, orgID, requester)
	if err != nil {
		return err
	}
	if !won {
		return ierr.NewError("organization already has an owner").
			WithHint("Organization already has an owner").
			WithReportableDetails(map[string]any{
				"org_id": orgID,
			}).
			Mark(ierr.ErrAlreadyOwned)
	}

	s.Logger.Infow("organization ownership claimed",
		"org_id", orgID,
		"owner_id", requester,
	)
	s.publish(ctx, orgID, requester)
	return nil
}

func (s *ownershipService) publish(ctx context.Context, orgID, ownerID string) {
	event, err := events.NewEvent(ctx, events.EventOwnerClaimed, orgID, map[string]string{
		"org_id":   orgID,
		"owner_id": ownerID,
	})
	if err != nil {
		s.Logger.Errorw("failed to build ownership event", "error", err)
		return
	}
	if err := s.EventPublisher.Publish(ctx, event); err != nil {
		s.Logger.Errorf("failed to publish %s event: %v", event.EventName, err)
	}
}

// requireMember fails with ErrPermissionDenied unless userID belongs to the organization
func requireMember(ctx context.Context, repo organization.Repository, orgID, userID string) (*organization.Member, error) {
	if userID == "" {
		return nil, ierr.NewError("missing user").
			WithHint("Unauthorized").
			Mark(ierr.ErrUnauthorized)
	}
	m, err := repo.GetMember(ctx, orgID, userID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.NewError("user is not a member").
				WithHint("Forbidden").
				WithReportableDetails(map[string]any{
					"org_id": orgID,
				}).
				Mark(ierr.ErrPermissionDenied)
		}
		return nil, err
	}
	return m, nil
}
