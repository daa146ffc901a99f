package collections

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/R3E-Network/nft_platform/internal/app/domain/collection"
	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/services/memberships"
	"github.com/R3E-Network/nft_platform/internal/app/services/stats"
	"github.com/R3E-Network/nft_platform/internal/app/services/wallets"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Service manages collections and exposes their sales statistics.
type Service struct {
	store   storage.CollectionStore
	orgs    storage.OrganizationStore
	members *memberships.Service
	stats   *stats.Engine
	now     func() time.Time
	log     *logger.Logger
}

// New constructs a collection service.
func New(store storage.CollectionStore, orgs storage.OrganizationStore, members *memberships.Service, engine *stats.Engine, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("collections")
	}
	return &Service{
		store:   store,
		orgs:    orgs,
		members: members,
		stats:   engine,
		now:     time.Now,
		log:     log,
	}
}

// WithClock overrides the time source used by the sale window checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SaleWindow is a pair of epoch second timestamps.
type SaleWindow struct {
	BeginSaleAt int64 `json:"beginSaleAt"`
	EndSaleAt   int64 `json:"endSaleAt"`
}

// CreateInput holds the fields of a new collection.
type CreateInput struct {
	OrganizationID string          `json:"organizationId"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Kind           collection.Kind `json:"kind"`
	ChainID        int64           `json:"chainId"`
	SaleWindow
}

// UpdateInput is a partial update; nil fields are unchanged.
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ChainID     *int64  `json:"chainId"`
	BeginSaleAt *int64  `json:"beginSaleAt"`
	EndSaleAt   *int64  `json:"endSaleAt"`
}

// Precheck validates a sale window before creation. The start may equal
// the current second but not precede it.
func (s *Service) Precheck(w SaleWindow) error {
	if w.EndSaleAt <= w.BeginSaleAt {
		return apperrors.BadRequest(apperrors.MsgEndBeforeStart)
	}
	if w.BeginSaleAt < s.now().Unix() {
		return apperrors.BadRequest(apperrors.MsgStartInPast)
	}
	return nil
}

// Create registers a draft collection. Requires canEdit on the organization.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (collection.Collection, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return collection.Collection{}, apperrors.BadRequest("Collection name is required")
	}
	kind, err := normalizeKind(in.Kind)
	if err != nil {
		return collection.Collection{}, err
	}
	if err := s.Precheck(in.SaleWindow); err != nil {
		return collection.Collection{}, err
	}
	if err := s.members.Authorize(ctx, actorID, in.OrganizationID, organization.CapabilityEdit); err != nil {
		return collection.Collection{}, err
	}

	creator := actorID
	c, err := s.store.CreateCollection(ctx, collection.Collection{
		OrganizationID: in.OrganizationID,
		CreatorID:      &creator,
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		Kind:           kind,
		ChainID:        in.ChainID,
		BeginSaleAt:    in.BeginSaleAt,
		EndSaleAt:      in.EndSaleAt,
	})
	if err != nil {
		return collection.Collection{}, apperrors.InternalFor("create", "collection", in.OrganizationID, err)
	}
	s.log.WithField("collection_id", c.ID).
		WithField("organization_id", c.OrganizationID).
		Info("collection created")
	return c, nil
}

// Get returns a collection by id.
func (s *Service) Get(ctx context.Context, id string) (collection.Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return collection.Collection{}, apperrors.NotFound("collection", id)
	}
	if err != nil {
		return collection.Collection{}, apperrors.InternalFor("get", "collection", id, err)
	}
	return c, nil
}

// GetByAddress looks a published collection up by contract address.
func (s *Service) GetByAddress(ctx context.Context, address string) (collection.Collection, error) {
	c, err := s.store.GetCollectionByAddress(ctx, strings.TrimSpace(address))
	if errors.Is(err, storage.ErrNotFound) {
		return collection.Collection{}, apperrors.NotFound("collection", address)
	}
	if err != nil {
		return collection.Collection{}, apperrors.InternalFor("get", "collection", address, err)
	}
	return c, nil
}

// List returns collections matching filter.
func (s *Service) List(ctx context.Context, filter storage.CollectionFilter) ([]collection.Collection, error) {
	out, err := s.store.ListCollections(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal("failed to list collections", err)
	}
	return out, nil
}

// Update applies a partial update. A changed sale window must stay ordered;
// it is not required to be in the future.
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (collection.Collection, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return collection.Collection{}, err
	}
	if err := s.members.Authorize(ctx, actorID, c.OrganizationID, organization.CapabilityEdit); err != nil {
		return collection.Collection{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return collection.Collection{}, apperrors.BadRequest("Collection name is required")
		}
		c.Name = name
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.ChainID != nil {
		c.ChainID = *in.ChainID
	}
	if in.BeginSaleAt != nil {
		c.BeginSaleAt = *in.BeginSaleAt
	}
	if in.EndSaleAt != nil {
		c.EndSaleAt = *in.EndSaleAt
	}
	if c.EndSaleAt <= c.BeginSaleAt {
		return collection.Collection{}, apperrors.BadRequest(apperrors.MsgEndBeforeStart)
	}

	updated, err := s.store.UpdateCollection(ctx, c)
	if err != nil {
		return collection.Collection{}, apperrors.InternalFor("update", "collection", id, err)
	}
	s.log.WithField("collection_id", id).Info("collection updated")
	return updated, nil
}

// Publish records the deployed contract address and leaves draft state.
// Requires canDeploy.
func (s *Service) Publish(ctx context.Context, actorID, id, address string) (collection.Collection, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return collection.Collection{}, err
	}
	if err := s.members.Authorize(ctx, actorID, c.OrganizationID, organization.CapabilityDeploy); err != nil {
		return collection.Collection{}, err
	}
	if c.Published() {
		return collection.Collection{}, apperrors.BadRequest("Collection is already published")
	}
	normalized, err := wallets.NormalizeAddress(address)
	if err != nil {
		return collection.Collection{}, apperrors.BadRequest("Invalid contract address")
	}

	now := s.now().UTC()
	c.Address = normalized
	c.PublishedAt = &now
	updated, err := s.store.UpdateCollection(ctx, c)
	if errors.Is(err, storage.ErrConflict) {
		return collection.Collection{}, apperrors.BadRequest("Contract address is already used by another collection")
	}
	if err != nil {
		return collection.Collection{}, apperrors.InternalFor("update", "collection", id, err)
	}
	s.log.WithField("collection_id", id).WithField("address", normalized).Info("collection published")
	return updated, nil
}

// Delete removes a draft collection and its tiers.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.members.Authorize(ctx, actorID, c.OrganizationID, organization.CapabilityEdit); err != nil {
		return err
	}
	if c.Published() {
		return apperrors.BadRequest(apperrors.MsgCollectionPublished)
	}
	if err := s.store.DeleteCollection(ctx, id); err != nil {
		return apperrors.InternalFor("delete", "collection", id, err)
	}
	s.log.WithField("collection_id", id).Info("collection deleted")
	return nil
}

func normalizeKind(k collection.Kind) (collection.Kind, error) {
	switch collection.Kind(strings.ToLower(strings.TrimSpace(string(k)))) {
	case "", collection.KindEdition:
		return collection.KindEdition, nil
	case collection.KindTiered:
		return collection.KindTiered, nil
	case collection.KindDynamic:
		return collection.KindDynamic, nil
	}
	return "", apperrors.BadRequestf("Unknown collection kind %q", k)
}
