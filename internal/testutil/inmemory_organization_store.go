package testutil

import (
	"context"
	"time"

	"github.com/adforge/adforge/internal/domain/organization"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/types"
)

// InMemoryOrganizationStore implements organization.Repository
type InMemoryOrganizationStore struct {
	orgs    *InMemoryStore[*organization.Organization]
	members *InMemoryStore[*organization.Member]
}

var _ organization.Repository = (*InMemoryOrganizationStore)(nil)

func NewInMemoryOrganizationStore() *InMemoryOrganizationStore {
	return &InMemoryOrganizationStore{
		orgs:    NewInMemoryStore[*organization.Organization](),
		members: NewInMemoryStore[*organization.Member](),
	}
}

func memberKey(orgID, userID string) string {
	return orgID + "/" + userID
}

func (s *InMemoryOrganizationStore) Create(ctx context.Context, org *organization.Organization) error {
	c := *org
	return s.orgs.Create(ctx, org.ID, &c)
}

func (s *InMemoryOrganizationStore) Get(ctx context.Context, id string) (*organization.Organization, error) {
	org, err := s.orgs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := *org
	return &c, nil
}

func (s *InMemoryOrganizationStore) ClaimOwner(ctx context.Context, orgID, userID string) (bool, error) {
	return s.orgs.Mutate(ctx, orgID, func(org *organization.Organization) (*organization.Organization, bool) {
		if org.HasOwner() {
			return org, false
		}
		c := *org
		c.OwnerID = &userID
		return &c, true
	})
}

func (s *InMemoryOrganizationStore) AddMember(ctx context.Context, m *organization.Member) error {
	c := *m
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return s.members.Create(ctx, memberKey(m.OrgID, m.UserID), &c)
}

func (s *InMemoryOrganizationStore) GetMember(ctx context.Context, orgID, userID string) (*organization.Member, error) {
	m, err := s.members.Get(ctx, memberKey(orgID, userID))
	if err != nil {
		return nil, err
	}
	c := *m
	return &c, nil
}

func (s *InMemoryOrganizationStore) GetOrgForUser(ctx context.Context, userID string) (*organization.Organization, error) {
	memberships := s.members.List(ctx,
		func(_ context.Context, m *organization.Member) bool { return m.UserID == userID },
		func(a, b *organization.Member) bool { return a.CreatedAt.Before(b.CreatedAt) },
	)
	if len(memberships) == 0 {
		return nil, ierr.NewError("user has no organization").
			WithHint("Organization not found").
			Mark(ierr.ErrNotFound)
	}
	return s.Get(ctx, memberships[0].OrgID)
}

// SeedOrg stores an organization with the given members and no owner
func (s *InMemoryOrganizationStore) SeedOrg(ctx context.Context, orgID string, userIDs ...string) *organization.Organization {
	org := &organization.Organization{
		ID:        orgID,
		Name:      "Acme " + orgID,
		CreatedBy: types.DefaultUserID,
		CreatedAt: time.Now().UTC(),
	}
	_ = s.Create(ctx, org)
	for _, userID := range userIDs {
		_ = s.AddMember(ctx, &organization.Member{
			ID:     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MEMBER),
			OrgID:  orgID,
			UserID: userID,
			Role:   types.MemberRoleMember,
		})
	}
	return org
}

// Clear removes all organizations and members
func (s *InMemoryOrganizationStore) Clear() {
	s.orgs.Clear()
	s.members.Clear()
}
