package tiers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/nft_platform/internal/app/domain/collection"
	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/services/memberships"
	"github.com/R3E-Network/nft_platform/internal/app/services/stats"
	"github.com/R3E-Network/nft_platform/internal/app/services/wallets"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Service manages collection tiers.
type Service struct {
	store       storage.TierStore
	collections storage.CollectionStore
	members     *memberships.Service
	stats       *stats.Engine
	log         *logger.Logger
}

// New constructs a tier service.
func New(store storage.TierStore, collections storage.CollectionStore, members *memberships.Service, engine *stats.Engine, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tiers")
	}
	return &Service{
		store:       store,
		collections: collections,
		members:     members,
		stats:       engine,
		log:         log,
	}
}

// CreateInput holds the fields of a new tier. Price is an integer amount in
// payment token base units.
type CreateInput struct {
	CollectionID        string          `json:"collectionId"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	TierID              int64           `json:"tierId"`
	Price               string          `json:"price"`
	PaymentTokenAddress string          `json:"paymentTokenAddress"`
	TotalMints          int64           `json:"totalMints"`
	ImageURL            string          `json:"imageUrl"`
	Metadata            json.RawMessage `json:"metadata,omitempty"`
}

// UpdateInput is a partial update; nil fields are unchanged.
type UpdateInput struct {
	Name                *string          `json:"name"`
	Description         *string          `json:"description"`
	Price               *string          `json:"price"`
	PaymentTokenAddress *string          `json:"paymentTokenAddress"`
	TotalMints          *int64           `json:"totalMints"`
	ImageURL            *string          `json:"imageUrl"`
	Metadata            *json.RawMessage `json:"metadata"`
}

// Create adds a tier to a collection. Requires canEdit.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (collection.Tier, error) {
	c, err := s.collection(ctx, in.CollectionID)
	if err != nil {
		return collection.Tier{}, err
	}
	if err := s.members.Authorize(ctx, actorID, c.OrganizationID, organization.CapabilityEdit); err != nil {
		return collection.Tier{}, err
	}

	t := collection.Tier{
		CollectionID: c.ID,
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		TierID:       in.TierID,
		TotalMints:   in.TotalMints,
		ImageURL:     strings.TrimSpace(in.ImageURL),
	}
	if t.Name == "" {
		return collection.Tier{}, apperrors.BadRequest("Tier name is required")
	}
	if t.TierID < 0 || t.TotalMints < 0 {
		return collection.Tier{}, apperrors.BadRequest("tierId and totalMints must not be negative")
	}
	if t.Price, err = normalizePrice(in.Price); err != nil {
		return collection.Tier{}, err
	}
	if t.PaymentTokenAddress, err = normalizeToken(in.PaymentTokenAddress); err != nil {
		return collection.Tier{}, err
	}
	if _, err := ParseMetadata(in.Metadata); err != nil {
		return collection.Tier{}, err
	}
	t.Metadata = in.Metadata

	existing, err := s.store.ListTiers(ctx, c.ID)
	if err != nil {
		return collection.Tier{}, apperrors.Internal("failed to list tiers", err)
	}
	for _, other := range existing {
		if other.TierID == t.TierID {
			return collection.Tier{}, apperrors.BadRequestf("Tier %d already exists in this collection", t.TierID)
		}
	}

	created, err := s.store.CreateTier(ctx, t)
	if err != nil {
		return collection.Tier{}, apperrors.InternalFor("create", "tier", c.ID, err)
	}
	s.log.WithField("tier_id", created.ID).WithField("collection_id", c.ID).Info("tier created")
	return created, nil
}

// Get returns a tier by id.
func (s *Service) Get(ctx context.Context, id string) (collection.Tier, error) {
	t, err := s.store.GetTier(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return collection.Tier{}, apperrors.NotFound("tier", id)
	}
	if err != nil {
		return collection.Tier{}, apperrors.InternalFor("get", "tier", id, err)
	}
	return t, nil
}

// ListByCollection returns the tiers of a collection ordered by tier id.
func (s *Service) ListByCollection(ctx context.Context, collectionID string) ([]collection.Tier, error) {
	if _, err := s.collection(ctx, collectionID); err != nil {
		return nil, err
	}
	out, err := s.store.ListTiers(ctx, collectionID)
	if err != nil {
		return nil, apperrors.Internal("failed to list tiers", err)
	}
	return out, nil
}

// Update applies a partial update. Requires canEdit.
func (s *Service) Update(ctx context.Context, actorID, id string, in UpdateInput) (collection.Tier, error) {
	t, c, err := s.tierWithCollection(ctx, id)
	if err != nil {
		return collection.Tier{}, err
	}
	if err := s.members.Authorize(ctx, actorID, c.OrganizationID, organization.CapabilityEdit); err != nil {
		return collection.Tier{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return collection.Tier{}, apperrors.BadRequest("Tier name is required")
		}
		t.Name = name
	}
	if in.Description != nil {
		t.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if t.Price, err = normalizePrice(*in.Price); err != nil {
			return collection.Tier{}, err
		}
	}
	if in.PaymentTokenAddress != nil {
		if t.PaymentTokenAddress, err = normalizeToken(*in.PaymentTokenAddress); err != nil {
			return collection.Tier{}, err
		}
	}
	if in.TotalMints != nil {
		if *in.TotalMints < 0 {
			return collection.Tier{}, apperrors.BadRequest("tierId and totalMints must not be negative")
		}
		t.TotalMints = *in.TotalMints
	}
	if in.ImageURL != nil {
		t.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.Metadata != nil {
		if _, err := ParseMetadata(*in.Metadata); err != nil {
			return collection.Tier{}, err
		}
		t.Metadata = *in.Metadata
	}

	updated, err := s.store.UpdateTier(ctx, t)
	if err != nil {
		return collection.Tier{}, apperrors.InternalFor("update", "tier", id, err)
	}
	s.log.WithField("tier_id", id).Info("tier updated")
	return updated, nil
}

// Delete removes a tier of an unpublished collection. Requires canEdit.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	_, c, err := s.tierWithCollection(ctx, id)
	if err != nil {
		return err
	}
	if err := s.members.Authorize(ctx, actorID, c.OrganizationID, organization.CapabilityEdit); err != nil {
		return err
	}
	if c.Published() {
		return apperrors.BadRequest("Tiers of a published collection cannot be deleted")
	}
	if err := s.store.DeleteTier(ctx, id); err != nil {
		return apperrors.InternalFor("delete", "tier", id, err)
	}
	s.log.WithField("tier_id", id).Info("tier deleted")
	return nil
}

// Profit sums the mint revenue of the tier per payment token. Nil means
// nothing was minted or the collection is not deployed yet.
func (s *Service) Profit(ctx context.Context, id string) (*stats.Earnings, error) {
	t, c, err := s.tierWithCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.stats.Earnings(ctx, tierScope(c, t), stats.Window{})
}

// HolderCount counts current owners of tokens minted from the tier.
func (s *Service) HolderCount(ctx context.Context, id string) (int, error) {
	t, c, err := s.tierWithCollection(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.stats.HolderCount(ctx, tierScope(c, t))
}

func (s *Service) Holders(ctx context.Context, id string, page stats.Page) (stats.HolderConnection, error) {
	t, c, err := s.tierWithCollection(ctx, id)
	if err != nil {
		return stats.HolderConnection{}, err
	}
	return s.stats.Holders(ctx, tierScope(c, t), page)
}

// Evaluate checks the tier's metadata conditions against doc.
func (s *Service) Evaluate(ctx context.Context, id string, doc json.RawMessage) (bool, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	m, err := ParseMetadata(t.Metadata)
	if err != nil {
		return false, err
	}
	var v interface{}
	if err := json.Unmarshal(doc, &v); err != nil {
		return false, apperrors.BadRequest("Invalid JSON document")
	}
	return EvaluateConditions(ctx, m, v)
}

func (s *Service) collection(ctx context.Context, id string) (collection.Collection, error) {
	c, err := s.collections.GetCollection(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return collection.Collection{}, apperrors.NotFound("collection", id)
	}
	if err != nil {
		return collection.Collection{}, apperrors.InternalFor("get", "collection", id, err)
	}
	return c, nil
}

func (s *Service) tierWithCollection(ctx context.Context, id string) (collection.Tier, collection.Collection, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return collection.Tier{}, collection.Collection{}, err
	}
	c, err := s.collection(ctx, t.CollectionID)
	if err != nil {
		return collection.Tier{}, collection.Collection{}, err
	}
	return t, c, nil
}

func tierScope(c collection.Collection, t collection.Tier) stats.Scope {
	tierID := t.TierID
	return stats.Scope{TokenAddresses: []string{c.Address}, TierID: &tierID}
}

func normalizePrice(price string) (string, error) {
	price = strings.TrimSpace(price)
	if price == "" {
		return "0", nil
	}
	d, err := decimal.NewFromString(price)
	if err != nil || d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return "", apperrors.BadRequest("Price must be a non-negative integer amount")
	}
	return d.String(), nil
}

func normalizeToken(address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", nil
	}
	normalized, err := wallets.NormalizeAddress(address)
	if err != nil {
		return "", apperrors.BadRequest("Invalid payment token address")
	}
	return normalized, nil
}
