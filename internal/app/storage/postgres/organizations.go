package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
)

const organizationColumns = `id, name, owner_id, description, avatar_url, created_at, updated_at`

// --- OrganizationStore ------------------------------------------------------

func (s *Store) CreateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO app_organizations (`+organizationColumns+`)
		VALUES (:id, :name, :owner_id, :description, :avatar_url, :created_at, :updated_at)
	`, org)
	if err != nil {
		return organization.Organization{}, mapError(err)
	}
	return org, nil
}

func (s *Store) UpdateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	existing, err := s.GetOrganization(ctx, org.ID)
	if err != nil {
		return organization.Organization{}, err
	}
	org.CreatedAt = existing.CreatedAt
	org.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE app_organizations
		SET name = :name, owner_id = :owner_id, description = :description, avatar_url = :avatar_url, updated_at = :updated_at
		WHERE id = :id
	`, org)
	if err != nil {
		return organization.Organization{}, mapError(err)
	}
	if err := expectAffected(res); err != nil {
		return organization.Organization{}, err
	}
	return org, nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (organization.Organization, error) {
	var org organization.Organization
	if err := s.db.GetContext(ctx, &org, `SELECT `+organizationColumns+` FROM app_organizations WHERE id = $1`, id); err != nil {
		return organization.Organization{}, mapError(err)
	}
	return org, nil
}

func (s *Store) GetOrganizationByName(ctx context.Context, name string) (organization.Organization, error) {
	var org organization.Organization
	if err := s.db.GetContext(ctx, &org, `SELECT `+organizationColumns+` FROM app_organizations WHERE lower(name) = lower($1)`, name); err != nil {
		return organization.Organization{}, mapError(err)
	}
	return org, nil
}

// ListOrganizations returns the organizations with the given ids, or every
// organization when ids is nil.
func (s *Store) ListOrganizations(ctx context.Context, ids []string) ([]organization.Organization, error) {
	var (
		out []organization.Organization
		err error
	)
	if ids == nil {
		err = s.db.SelectContext(ctx, &out, `SELECT `+organizationColumns+` FROM app_organizations ORDER BY name`)
	} else {
		err = s.db.SelectContext(ctx, &out, `SELECT `+organizationColumns+` FROM app_organizations WHERE id = ANY($1) ORDER BY name`, pq.Array(ids))
	}
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) DeleteOrganization(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_organizations WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res)
}

// --- MembershipStore --------------------------------------------------------

const membershipColumns = `id, organization_id, user_id, email, can_edit, can_manage, can_deploy, invite_code, accepted_at, created_at, updated_at`

func (s *Store) CreateMembership(ctx context.Context, m organization.Membership) (organization.Membership, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO app_memberships (`+membershipColumns+`)
		VALUES (:id, :organization_id, :user_id, :email, :can_edit, :can_manage, :can_deploy, :invite_code, :accepted_at, :created_at, :updated_at)
	`, m)
	if err != nil {
		return organization.Membership{}, mapError(err)
	}
	return m, nil
}

func (s *Store) UpdateMembership(ctx context.Context, m organization.Membership) (organization.Membership, error) {
	existing, err := s.GetMembership(ctx, m.ID)
	if err != nil {
		return organization.Membership{}, err
	}
	m.OrganizationID = existing.OrganizationID
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE app_memberships
		SET user_id = :user_id, email = :email, can_edit = :can_edit, can_manage = :can_manage, can_deploy = :can_deploy,
		    invite_code = :invite_code, accepted_at = :accepted_at, updated_at = :updated_at
		WHERE id = :id
	`, m)
	if err != nil {
		return organization.Membership{}, mapError(err)
	}
	if err := expectAffected(res); err != nil {
		return organization.Membership{}, err
	}
	return m, nil
}

func (s *Store) GetMembership(ctx context.Context, id string) (organization.Membership, error) {
	return s.getMembership(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetMembershipByInviteCode(ctx context.Context, code string) (organization.Membership, error) {
	return s.getMembership(ctx, `WHERE invite_code <> '' AND invite_code = $1`, code)
}

func (s *Store) GetMembershipByEmail(ctx context.Context, organizationID, email string) (organization.Membership, error) {
	return s.getMembership(ctx, `WHERE organization_id = $1 AND lower(email) = lower($2)`, organizationID, email)
}

func (s *Store) GetMembershipForUser(ctx context.Context, organizationID, userID string) (organization.Membership, error) {
	return s.getMembership(ctx, `WHERE organization_id = $1 AND user_id = $2`, organizationID, userID)
}

func (s *Store) getMembership(ctx context.Context, where string, args ...interface{}) (organization.Membership, error) {
	var m organization.Membership
	if err := s.db.GetContext(ctx, &m, `SELECT `+membershipColumns+` FROM app_memberships `+where, args...); err != nil {
		return organization.Membership{}, mapError(err)
	}
	return m, nil
}

func (s *Store) ListMembershipsByOrganization(ctx context.Context, organizationID string) ([]organization.Membership, error) {
	var out []organization.Membership
	err := s.db.SelectContext(ctx, &out, `SELECT `+membershipColumns+` FROM app_memberships WHERE organization_id = $1 ORDER BY email`, organizationID)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) ListMembershipsByUser(ctx context.Context, userID string) ([]organization.Membership, error) {
	var out []organization.Membership
	err := s.db.SelectContext(ctx, &out, `SELECT `+membershipColumns+` FROM app_memberships WHERE user_id = $1 ORDER BY email`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) DeleteMembership(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_memberships WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res)
}
