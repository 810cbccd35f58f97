package service

import (
	"context"
	"strings"
	"time"

	"github.com/adforge/adforge/internal/api/dto"
	"github.com/adforge/adforge/internal/domain/events"
	"github.com/adforge/adforge/internal/domain/organization"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
	"github.com/samber/lo"
)

// OrganizationService manages organizations and their membership
type OrganizationService interface {
	// CreateAndJoin creates an organization owned by the caller, makes the
	// caller its first member and grants the configured seed credits
	CreateAndJoin(ctx context.Context, req *dto.CreateOrganizationRequest) (*dto.OrganizationResponse, error)

	// GetMyOrg returns the earliest organization the caller joined
	GetMyOrg(ctx context.Context) (*dto.OrganizationResponse, error)

	// RequireMember fails with ErrPermissionDenied unless the caller belongs to the organization
	RequireMember(ctx context.Context, orgID string) (*organization.Member, error)
}

type organizationService struct {
	ServiceParams
	ledger LedgerService
}

func NewOrganizationService(params ServiceParams, ledger LedgerService) OrganizationService {
	return &organizationService{
		ServiceParams: params,
		ledger:        ledger,
	}
}

func (s *organizationService) CreateAndJoin(ctx context.Context, req *dto.CreateOrganizationRequest) (*dto.OrganizationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	userID := types.GetUserID(ctx)
	if userID == "" {
		return nil, ierr.NewError("missing user").
			WithHint("Unauthorized").
			Mark(ierr.ErrUnauthorized)
	}

	now := time.Now().UTC()
	org := &organization.Organization{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORGANIZATION),
		Name:      strings.TrimSpace(req.Name),
		OwnerID:   lo.ToPtr(userID),
		CreatedBy: userID,
		CreatedAt: now,
	}
	if err := org.Validate(); err != nil {
		return nil, err
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.OrgRepo.Create(ctx, org); err != nil {
			return err
		}

		if err := s.OrgRepo.AddMember(ctx, &organization.Member{
			ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MEMBER),
			OrgID:     org.ID,
			UserID:    userID,
			Role:      types.MemberRoleOwner,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if seed := s.Config.Ledger.SeedCredits; seed > 0 {
			if _, err := s.ledger.Credit(ctx, &dto.CreditRequest{
				OrgID:          org.ID,
				Amount:         seed,
				Reason:         types.LedgerReasonSeed,
				IdempotencyKey: types.SeedIdempotencyKey(org.ID),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("organization created",
		"org_id", org.ID,
		"owner_id", userID,
		"seed_credits", s.Config.Ledger.SeedCredits,
	)

	event, err := events.NewEvent(ctx, events.EventOrgCreated, org.ID, dto.FromOrganization(org))
	if err == nil {
		err = s.EventPublisher.Publish(ctx, event)
	}
	if err != nil {
		s.Logger.Errorw("failed to publish organization event", "org_id", org.ID, "error", err)
	}

	return dto.FromOrganization(org), nil
}

func (s *organizationService) GetMyOrg(ctx context.Context) (*dto.OrganizationResponse, error) {
	userID := types.GetUserID(ctx)
	if userID == "" {
		return nil, ierr.NewError("missing user").
			WithHint("Unauthorized").
			Mark(ierr.ErrUnauthorized)
	}

	org, err := s.OrgRepo.GetOrgForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.FromOrganization(org), nil
}

func (s *organizationService) RequireMember(ctx context.Context, orgID string) (*organization.Member, error) {
	if _, err := s.OrgRepo.Get(ctx, orgID); err != nil {
		return nil, err
	}
	return requireMember(ctx, s.OrgRepo, orgID, types.GetUserID(ctx))
}
