package postgres

import (
	"context"
	"time"

	"github.com/adforge/adforge/internal/domain/organization"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/postgres"
)

type organizationRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewOrganizationRepository creates a new instance of the organization repository
func NewOrganizationRepository(db *postgres.DB, logger *logger.Logger) organization.Repository {
	return &organizationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *organizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, `
		INSERT INTO organizations (id, name, owner_id, created_by, created_at)
		VALUES (:id, :name, :owner_id, :created_by, :created_at)`, org)
	if err != nil {
		return postgres.WrapError(err, "failed to create organization")
	}
	return nil
}

func (r *organizationRepository) Get(ctx context.Context, id string) (*organization.Organization, error) {
	var org organization.Organization
	err := r.db.GetQuerier(ctx).GetContext(ctx, &org, `
		SELECT * FROM organizations
		WHERE id = $1`, id)
	if err != nil {
		return nil, postgres.WrapError(err, "failed to get organization")
	}
	return &org, nil
}

// ClaimOwner is a conditional update. Postgres row locking guarantees that of
// any number of concurrent callers exactly one sees a row affected.
func (r *organizationRepository) ClaimOwner(ctx context.Context, orgID, userID string) (bool, error) {
	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		UPDATE organizations
		SET owner_id = $2
		WHERE id = $1 AND owner_id IS NULL`, orgID, userID)
	if err != nil {
		return false, postgres.WrapError(err, "failed to claim organization")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, postgres.WrapError(err, "failed to read claim result")
	}
	if rows == 1 {
		return true, nil
	}

	// distinguish a lost race from a missing organization
	if _, err := r.Get(ctx, orgID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *organizationRepository) AddMember(ctx context.Context, m *organization.Member) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, `
		INSERT INTO members (id, org_id, user_id, role, created_at)
		VALUES (:id, :org_id, :user_id, :role, :created_at)`, m)
	if err != nil {
		return postgres.WrapError(err, "failed to add member")
	}
	return nil
}

func (r *organizationRepository) GetMember(ctx context.Context, orgID, userID string) (*organization.Member, error) {
	var m organization.Member
	err := r.db.GetQuerier(ctx).GetContext(ctx, &m, `
		SELECT * FROM members
		WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return nil, postgres.WrapError(err, "failed to get member")
	}
	return &m, nil
}

func (r *organizationRepository) GetOrgForUser(ctx context.Context, userID string) (*organization.Organization, error) {
	var org organization.Organization
	err := r.db.GetQuerier(ctx).GetContext(ctx, &org, `
		SELECT o.* FROM organizations o
		JOIN members m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY m.created_at ASC
		LIMIT 1`, userID)
	if err != nil {
		return nil, postgres.WrapError(err, "failed to get organization for user")
	}
	return &org, nil
}
