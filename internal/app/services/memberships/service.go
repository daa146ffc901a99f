package memberships

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/services/users"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

const inviteTTL = 7 * 24 * time.Hour

// InviteClaims is the payload of an invite code.
type InviteClaims struct {
	Email          string `json:"email"`
	IsNewUser      bool   `json:"isNewUser"`
	OrganizationID string `json:"organizationId"`
	jwt.RegisteredClaims
}

// Service manages organization memberships and the invite flow.
type Service struct {
	store  storage.MembershipStore
	orgs   storage.OrganizationStore
	users  storage.UserStore
	secret []byte
	now    func() time.Time
	log    *logger.Logger
}

// New constructs a membership service. secret signs invite codes.
func New(store storage.MembershipStore, orgs storage.OrganizationStore, userStore storage.UserStore, secret []byte, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("memberships")
	}
	return &Service{
		store:  store,
		orgs:   orgs,
		users:  userStore,
		secret: secret,
		now:    time.Now,
		log:    log,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// EncodeInviteCode signs an invite for email into organizationID.
func (s *Service) EncodeInviteCode(email string, isNewUser bool, organizationID string) (string, error) {
	now := s.now().UTC()
	claims := InviteClaims{
		Email:          users.NormalizeEmail(email),
		IsNewUser:      isNewUser,
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(inviteTTL)),
		},
	}
	code, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperrors.Internal("failed to sign invite code", err)
	}
	return code, nil
}

// DecodeInviteCode verifies an invite code and returns its claims.
func (s *Service) DecodeInviteCode(code string) (InviteClaims, error) {
	claims := InviteClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(code), &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return InviteClaims{}, apperrors.BadRequest(apperrors.MsgInvalidInviteCode)
	}
	return claims, nil
}

// Invite creates a pending membership for email. The inviter needs canManage.
func (s *Service) Invite(ctx context.Context, organizationID, inviterID, email string, caps organization.Capabilities) (organization.Membership, error) {
	if err := s.Authorize(ctx, inviterID, organizationID, organization.CapabilityManage); err != nil {
		return organization.Membership{}, err
	}
	email = users.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return organization.Membership{}, apperrors.BadRequest("A valid email is required")
	}

	if _, err := s.store.GetMembershipByEmail(ctx, organizationID, email); err == nil {
		return organization.Membership{}, apperrors.BadRequest("Member already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return organization.Membership{}, apperrors.Internal("failed to look up membership", err)
	}

	isNewUser := false
	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		isNewUser = true
	case err != nil:
		return organization.Membership{}, apperrors.Internal("failed to look up user by email", err)
	default:
		if _, err := s.store.GetMembershipForUser(ctx, organizationID, existing.ID); err == nil {
			return organization.Membership{}, apperrors.BadRequest("Member already exists")
		}
	}

	code, err := s.EncodeInviteCode(email, isNewUser, organizationID)
	if err != nil {
		return organization.Membership{}, err
	}
	m, err := s.store.CreateMembership(ctx, organization.Membership{
		OrganizationID: organizationID,
		Email:          email,
		CanEdit:        caps.CanEdit,
		CanManage:      caps.CanManage,
		CanDeploy:      caps.CanDeploy,
		InviteCode:     code,
	})
	if errors.Is(err, storage.ErrConflict) {
		return organization.Membership{}, apperrors.BadRequest("Member already exists")
	}
	if err != nil {
		return organization.Membership{}, apperrors.InternalFor("create", "membership", organizationID, err)
	}
	s.log.WithField("membership_id", m.ID).
		WithField("organization_id", organizationID).
		WithField("new_user", isNewUser).
		Info("member invited")
	return m, nil
}

// pendingForUser resolves an invite code to its pending membership after
// checking the code, the membership and the user all agree on the email.
func (s *Service) pendingForUser(ctx context.Context, code, userID string) (organization.Membership, string, error) {
	claims, err := s.DecodeInviteCode(code)
	if err != nil {
		return organization.Membership{}, "", err
	}
	m, err := s.store.GetMembershipByInviteCode(ctx, strings.TrimSpace(code))
	if errors.Is(err, storage.ErrNotFound) {
		return organization.Membership{}, "", apperrors.BadRequest(apperrors.MsgInvalidInviteCode)
	}
	if err != nil {
		return organization.Membership{}, "", apperrors.Internal("failed to look up invite", err)
	}
	if m.Status() != organization.StatusPending {
		return organization.Membership{}, "", apperrors.BadRequest("Invite has already been accepted")
	}
	if !strings.EqualFold(claims.Email, m.Email) {
		return organization.Membership{}, "", apperrors.BadRequest(apperrors.MsgInviteEmailMismatch)
	}
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return organization.Membership{}, "", apperrors.NotFound("user", userID)
	}
	if err != nil {
		return organization.Membership{}, "", apperrors.InternalFor("get", "user", userID, err)
	}
	if !strings.EqualFold(u.Email, claims.Email) {
		return organization.Membership{}, "", apperrors.BadRequest(apperrors.MsgInviteEmailMismatch)
	}
	return m, u.ID, nil
}

// Accept moves a pending invite to accepted for userID.
func (s *Service) Accept(ctx context.Context, code, userID string) (organization.Membership, error) {
	m, uid, err := s.pendingForUser(ctx, code, userID)
	if err != nil {
		return organization.Membership{}, err
	}
	now := s.now().UTC()
	m.UserID = &uid
	m.AcceptedAt = &now
	updated, err := s.store.UpdateMembership(ctx, m)
	if err != nil {
		return organization.Membership{}, apperrors.InternalFor("update", "membership", m.ID, err)
	}
	s.log.WithField("membership_id", m.ID).WithField("user_id", uid).Info("invite accepted")
	return updated, nil
}

// Decline removes a pending invite.
func (s *Service) Decline(ctx context.Context, code, userID string) error {
	m, uid, err := s.pendingForUser(ctx, code, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMembership(ctx, m.ID); err != nil {
		return apperrors.InternalFor("delete", "membership", m.ID, err)
	}
	s.log.WithField("membership_id", m.ID).WithField("user_id", uid).Info("invite declined")
	return nil
}

// Get returns a membership by id.
func (s *Service) Get(ctx context.Context, id string) (organization.Membership, error) {
	m, err := s.store.GetMembership(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return organization.Membership{}, apperrors.NotFound("membership", id)
	}
	if err != nil {
		return organization.Membership{}, apperrors.InternalFor("get", "membership", id, err)
	}
	return m, nil
}

// UpdateCapabilities replaces the flags of a membership. The organization
// owner's membership always keeps every capability.
func (s *Service) UpdateCapabilities(ctx context.Context, actorID, membershipID string, caps organization.Capabilities) (organization.Membership, error) {
	m, err := s.Get(ctx, membershipID)
	if err != nil {
		return organization.Membership{}, err
	}
	if err := s.Authorize(ctx, actorID, m.OrganizationID, organization.CapabilityManage); err != nil {
		return organization.Membership{}, err
	}
	if owner, err := s.isOwner(ctx, m); err != nil {
		return organization.Membership{}, err
	} else if owner {
		return organization.Membership{}, apperrors.BadRequest("Owner capabilities cannot be changed")
	}

	m.CanEdit, m.CanManage, m.CanDeploy = caps.CanEdit, caps.CanManage, caps.CanDeploy
	updated, err := s.store.UpdateMembership(ctx, m)
	if err != nil {
		return organization.Membership{}, apperrors.InternalFor("update", "membership", m.ID, err)
	}
	s.log.WithField("membership_id", m.ID).Info("membership capabilities updated")
	return updated, nil
}

// Remove deletes a membership. Members may leave on their own; removing
// someone else needs canManage. The owner cannot be removed.
func (s *Service) Remove(ctx context.Context, actorID, membershipID string) error {
	m, err := s.Get(ctx, membershipID)
	if err != nil {
		return err
	}
	self := m.UserID != nil && *m.UserID == actorID
	if !self {
		if err := s.Authorize(ctx, actorID, m.OrganizationID, organization.CapabilityManage); err != nil {
			return err
		}
	}
	if owner, err := s.isOwner(ctx, m); err != nil {
		return err
	} else if owner {
		return apperrors.BadRequest("The organization owner cannot be removed")
	}
	if err := s.store.DeleteMembership(ctx, m.ID); err != nil {
		return apperrors.InternalFor("delete", "membership", m.ID, err)
	}
	s.log.WithField("membership_id", m.ID).WithField("actor_id", actorID).Info("membership removed")
	return nil
}

// ListByOrganization returns every membership of an organization, pending
// invites included.
func (s *Service) ListByOrganization(ctx context.Context, organizationID string) ([]organization.Membership, error) {
	out, err := s.store.ListMembershipsByOrganization(ctx, organizationID)
	if err != nil {
		return nil, apperrors.Internal("failed to list memberships", err)
	}
	return out, nil
}

// ListByUser returns the memberships held by a user.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]organization.Membership, error) {
	out, err := s.store.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list memberships", err)
	}
	return out, nil
}

// Authorize succeeds when userID owns the organization or holds an accepted
// membership granting capability.
func (s *Service) Authorize(ctx context.Context, userID, organizationID string, capability organization.Capability) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.Forbidden("")
	}
	org, err := s.orgs.GetOrganization(ctx, organizationID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NotFound("organization", organizationID)
	}
	if err != nil {
		return apperrors.InternalFor("get", "organization", organizationID, err)
	}
	if org.OwnerID == userID {
		return nil
	}
	m, err := s.store.GetMembershipForUser(ctx, organizationID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Forbidden("")
	}
	if err != nil {
		return apperrors.Internal("failed to look up membership", err)
	}
	if !m.Has(capability) {
		s.log.WithField("user_id", userID).
			WithField("organization_id", organizationID).
			WithField("capability", capability).
			Warn("capability denied")
		return apperrors.Forbidden("")
	}
	return nil
}

// IsMember reports whether userID holds an accepted membership.
func (s *Service) IsMember(ctx context.Context, userID, organizationID string) (bool, error) {
	m, err := s.store.GetMembershipForUser(ctx, organizationID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Internal("failed to look up membership", err)
	}
	return m.Status() == organization.StatusAccepted, nil
}

// AddOwner gives userID an accepted membership with every capability,
// upgrading an existing one.
func (s *Service) AddOwner(ctx context.Context, organizationID, userID, email string) (organization.Membership, error) {
	now := s.now().UTC()
	caps := organization.AllCapabilities()

	m, err := s.store.GetMembershipForUser(ctx, organizationID, userID)
	switch {
	case err == nil:
		m.CanEdit, m.CanManage, m.CanDeploy = caps.CanEdit, caps.CanManage, caps.CanDeploy
		if m.AcceptedAt == nil {
			m.AcceptedAt = &now
		}
		updated, err := s.store.UpdateMembership(ctx, m)
		if err != nil {
			return organization.Membership{}, apperrors.InternalFor("update", "membership", m.ID, err)
		}
		return updated, nil
	case !errors.Is(err, storage.ErrNotFound):
		return organization.Membership{}, apperrors.Internal("failed to look up membership", err)
	}

	uid := userID
	m, err = s.store.CreateMembership(ctx, organization.Membership{
		OrganizationID: organizationID,
		UserID:         &uid,
		Email:          users.NormalizeEmail(email),
		CanEdit:        caps.CanEdit,
		CanManage:      caps.CanManage,
		CanDeploy:      caps.CanDeploy,
		AcceptedAt:     &now,
	})
	if err != nil {
		return organization.Membership{}, apperrors.InternalFor("create", "membership", organizationID, err)
	}
	return m, nil
}

func (s *Service) isOwner(ctx context.Context, m organization.Membership) (bool, error) {
	if m.UserID == nil {
		return false, nil
	}
	org, err := s.orgs.GetOrganization(ctx, m.OrganizationID)
	if err != nil {
		return false, apperrors.InternalFor("get", "organization", m.OrganizationID, err)
	}
	return org.OwnerID == *m.UserID, nil
}
