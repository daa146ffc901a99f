package organizations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/services/memberships"
	"github.com/R3E-Network/nft_platform/internal/app/services/stats"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Service manages organizations.
type Service struct {
	store       storage.OrganizationStore
	collections storage.CollectionStore
	users       storage.UserStore
	members     *memberships.Service
	stats       *stats.Engine
	log         *logger.Logger
}

// New constructs an organization service.
func New(store storage.OrganizationStore, collections storage.CollectionStore, userStore storage.UserStore, members *memberships.Service, engine *stats.Engine, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("organizations")
	}
	return &Service{
		store:       store,
		collections: collections,
		users:       userStore,
		members:     members,
		stats:       engine,
		log:         log,
	}
}

// CreateInput holds the fields of a new organization.
type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatarUrl"`
}

// UpdateInput is a partial update; nil fields are unchanged.
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	AvatarURL   *string `json:"avatarUrl"`
}

// Create registers an organization owned by ownerID, who also receives an
// accepted membership with every capability.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (organization.Organization, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return organization.Organization{}, apperrors.BadRequest("Organization name is required")
	}
	owner, err := s.users.GetUser(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return organization.Organization{}, apperrors.NotFound("user", ownerID)
	}
	if err != nil {
		return organization.Organization{}, apperrors.InternalFor("get", "user", ownerID, err)
	}
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return organization.Organization{}, err
	}

	org, err := s.store.CreateOrganization(ctx, organization.Organization{
		Name:        name,
		OwnerID:     owner.ID,
		Description: strings.TrimSpace(in.Description),
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
	})
	if errors.Is(err, storage.ErrConflict) {
		return organization.Organization{}, apperrors.BadRequest(apperrors.MsgOrganizationNameExists)
	}
	if err != nil {
		return organization.Organization{}, apperrors.Internal("failed to create organization", err)
	}
	if _, err := s.members.AddOwner(ctx, org.ID, owner.ID, owner.Email); err != nil {
		return organization.Organization{}, err
	}
	s.log.WithField("organization_id", org.ID).WithField("owner_id", owner.ID).Info("organization created")
	return org, nil
}

// Get returns an organization by id.
func (s *Service) Get(ctx context.Context, id string) (organization.Organization, error) {
	org, err := s.store.GetOrganization(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return organization.Organization{}, apperrors.NotFound("organization", id)
	}
	if err != nil {
		return organization.Organization{}, apperrors.InternalFor("get", "organization", id, err)
	}
	return org, nil
}

// ListForUser returns the organizations where userID holds an accepted
// membership.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]organization.Organization, error) {
	ms, err := s.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		if m.Status() == organization.StatusAccepted {
			ids = append(ids, m.OrganizationID)
		}
	}
	if len(ids) == 0 {
		return []organization.Organization{}, nil
	}
	out, err := s.store.ListOrganizations(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("failed to list organizations", err)
	}
	return out, nil
}

// Update applies a partial update. Requires canManage.
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (organization.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return organization.Organization{}, err
	}
	if err := s.members.Authorize(ctx, actorID, id, organization.CapabilityManage); err != nil {
		return organization.Organization{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return organization.Organization{}, apperrors.BadRequest("Organization name is required")
		}
		if !strings.EqualFold(name, org.Name) {
			if err := s.ensureNameFree(ctx, name, org.ID); err != nil {
				return organization.Organization{}, err
			}
		}
		org.Name = name
	}
	if in.Description != nil {
		org.Description = strings.TrimSpace(*in.Description)
	}
	if in.AvatarURL != nil {
		org.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}

	updated, err := s.store.UpdateOrganization(ctx, org)
	if errors.Is(err, storage.ErrConflict) {
		return organization.Organization{}, apperrors.BadRequest(apperrors.MsgOrganizationNameExists)
	}
	if err != nil {
		return organization.Organization{}, apperrors.InternalFor("update", "organization", id, err)
	}
	s.log.WithField("organization_id", id).Info("organization updated")
	return updated, nil
}

// TransferOwnership hands the organization to another accepted member. Only
// the current owner may do this.
func (s *Service) TransferOwnership(ctx context.Context, actorID, id, newOwnerID string) (organization.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return organization.Organization{}, err
	}
	if org.OwnerID != actorID {
		return organization.Organization{}, apperrors.Forbidden("Only the owner can transfer the organization")
	}
	if newOwnerID == org.OwnerID {
		return org, nil
	}
	member, err := s.members.IsMember(ctx, newOwnerID, id)
	if err != nil {
		return organization.Organization{}, err
	}
	if !member {
		return organization.Organization{}, apperrors.BadRequest("New owner must be a member of the organization")
	}
	newOwner, err := s.users.GetUser(ctx, newOwnerID)
	if err != nil {
		return organization.Organization{}, apperrors.InternalFor("get", "user", newOwnerID, err)
	}
	if _, err := s.members.AddOwner(ctx, id, newOwner.ID, newOwner.Email); err != nil {
		return organization.Organization{}, err
	}

	org.OwnerID = newOwner.ID
	updated, err := s.store.UpdateOrganization(ctx, org)
	if err != nil {
		return organization.Organization{}, apperrors.InternalFor("update", "organization", id, err)
	}
	s.log.WithField("organization_id", id).
		WithField("previous_owner_id", actorID).
		WithField("owner_id", newOwner.ID).
		Info("organization ownership transferred")
	return updated, nil
}

// Delete removes an organization. Memberships, draft collections and their
// tiers go with the organization row through the store's cascade.
// Organizations with published collections cannot be deleted.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	org, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if org.OwnerID != actorID {
		return apperrors.Forbidden("Only the owner can delete the organization")
	}
	cols, err := s.collections.ListCollections(ctx, storage.CollectionFilter{OrganizationID: id})
	if err != nil {
		return apperrors.Internal("failed to list collections", err)
	}
	for _, c := range cols {
		if c.Published() {
			return apperrors.BadRequest("Organization has published collections and cannot be deleted")
		}
	}
	if err := s.store.DeleteOrganization(ctx, id); err != nil {
		return apperrors.InternalFor("delete", "organization", id, err)
	}
	s.log.WithField("organization_id", id).Info("organization deleted")
	return nil
}

func (s *Service) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.store.GetOrganizationByName(ctx, name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return apperrors.Internal("failed to look up organization by name", err)
	case existing.ID != selfID:
		return apperrors.BadRequest(apperrors.MsgOrganizationNameExists)
	}
	return nil
}

// now is the clock the rolling stats windows end at.
func (s *Service) now() time.Time { return s.stats.Now() }
