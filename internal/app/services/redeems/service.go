package redeems

import (
	"context"
	"errors"
	"strings"

	"github.com/R3E-Network/nft_platform/internal/app/domain/collection"
	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/domain/redeem"
	"github.com/R3E-Network/nft_platform/internal/app/services/memberships"
	"github.com/R3E-Network/nft_platform/internal/app/services/users"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Service manages requests to redeem the physical item behind a token.
type Service struct {
	store       storage.RedeemStore
	collections storage.CollectionStore
	chain       storage.ChainStore
	wallets     storage.WalletStore
	members     *memberships.Service
	log         *logger.Logger
}

// New constructs a redeem service.
func New(store storage.RedeemStore, collections storage.CollectionStore, chainStore storage.ChainStore, walletStore storage.WalletStore, members *memberships.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("redeems")
	}
	return &Service{
		store:       store,
		collections: collections,
		chain:       chainStore,
		wallets:     walletStore,
		members:     members,
		log:         log,
	}
}

// CreateInput carries the token being redeemed and the shipping contact.
type CreateInput struct {
	CollectionID  string `json:"collectionId"`
	TokenID       string `json:"tokenId"`
	WalletAddress string `json:"walletAddress"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Address       string `json:"address"`
}

// Create opens a redemption. The wallet must belong to userID and currently
// hold the token, and a token can have only one open request.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (redeem.Request, error) {
	tokenID := strings.TrimSpace(in.TokenID)
	if tokenID == "" {
		return redeem.Request{}, apperrors.BadRequest("tokenId is required")
	}
	c, err := s.collection(ctx, in.CollectionID)
	if err != nil {
		return redeem.Request{}, err
	}
	if !c.Published() || c.Address == "" {
		return redeem.Request{}, apperrors.BadRequest("Collection is not published")
	}

	w, err := s.wallets.GetWalletByAddress(ctx, strings.TrimSpace(in.WalletAddress))
	if errors.Is(err, storage.ErrNotFound) || (err == nil && (w.OwnerID == nil || *w.OwnerID != userID)) {
		return redeem.Request{}, apperrors.Forbidden("Wallet is not bound to this user")
	}
	if err != nil {
		return redeem.Request{}, apperrors.Internal("failed to look up wallet", err)
	}

	asset, err := s.chain.GetAsset(ctx, c.Address, tokenID)
	if errors.Is(err, storage.ErrNotFound) {
		return redeem.Request{}, apperrors.NotFound("asset", tokenID)
	}
	if err != nil {
		return redeem.Request{}, apperrors.InternalFor("get", "asset", tokenID, err)
	}
	if !strings.EqualFold(asset.Owner, w.Address) {
		return redeem.Request{}, apperrors.Forbidden("Wallet does not own this token")
	}

	existing, err := s.store.ListRedeemsByToken(ctx, c.ID, tokenID)
	if err != nil {
		return redeem.Request{}, apperrors.Internal("failed to list redeems", err)
	}
	for _, r := range existing {
		if r.Open() {
			return redeem.Request{}, apperrors.BadRequest("Token has already been redeemed")
		}
	}

	r, err := s.store.CreateRedeem(ctx, redeem.Request{
		CollectionID:  c.ID,
		TokenID:       tokenID,
		WalletAddress: strings.ToLower(w.Address),
		UserID:        userID,
		Email:         users.NormalizeEmail(in.Email),
		Name:          strings.TrimSpace(in.Name),
		Address:       strings.TrimSpace(in.Address),
		Status:        redeem.StatusPending,
	})
	if err != nil {
		return redeem.Request{}, apperrors.InternalFor("create", "redeem", c.ID, err)
	}
	s.log.WithField("redeem_id", r.ID).
		WithField("collection_id", c.ID).
		WithField("token_id", tokenID).
		Info("redeem requested")
	return r, nil
}

// Get returns a redemption request by id.
func (s *Service) Get(ctx context.Context, id string) (redeem.Request, error) {
	r, err := s.store.GetRedeem(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return redeem.Request{}, apperrors.NotFound("redeem", id)
	}
	if err != nil {
		return redeem.Request{}, apperrors.InternalFor("get", "redeem", id, err)
	}
	return r, nil
}

// GetFor returns a request visible to actorID: its requester or a manager
// of the collection's organization.
func (s *Service) GetFor(ctx context.Context, actorID, id string) (redeem.Request, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return redeem.Request{}, err
	}
	if r.UserID != actorID {
		if err := s.authorizeManage(ctx, actorID, r.CollectionID); err != nil {
			return redeem.Request{}, err
		}
	}
	return r, nil
}

// Complete marks a pending request fulfilled. Requires canManage.
func (s *Service) Complete(ctx context.Context, actorID, id string) (redeem.Request, error) {
	r, err := s.pending(ctx, id)
	if err != nil {
		return redeem.Request{}, err
	}
	if err := s.authorizeManage(ctx, actorID, r.CollectionID); err != nil {
		return redeem.Request{}, err
	}
	return s.transition(ctx, r, redeem.StatusCompleted)
}

// Cancel withdraws a pending request. The requester or a manager may cancel.
func (s *Service) Cancel(ctx context.Context, actorID, id string) (redeem.Request, error) {
	r, err := s.pending(ctx, id)
	if err != nil {
		return redeem.Request{}, err
	}
	if r.UserID != actorID {
		if err := s.authorizeManage(ctx, actorID, r.CollectionID); err != nil {
			return redeem.Request{}, err
		}
	}
	return s.transition(ctx, r, redeem.StatusCanceled)
}

// ListByCollection returns every request for a collection. Requires canManage.
func (s *Service) ListByCollection(ctx context.Context, actorID, collectionID string) ([]redeem.Request, error) {
	if err := s.authorizeManage(ctx, actorID, collectionID); err != nil {
		return nil, err
	}
	out, err := s.store.ListRedeemsByCollection(ctx, collectionID)
	if err != nil {
		return nil, apperrors.Internal("failed to list redeems", err)
	}
	return out, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]redeem.Request, error) {
	out, err := s.store.ListRedeemsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list redeems", err)
	}
	return out, nil
}

func (s *Service) pending(ctx context.Context, id string) (redeem.Request, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return redeem.Request{}, err
	}
	if r.Status != redeem.StatusPending {
		return redeem.Request{}, apperrors.BadRequestf("Redeem request is already %s", r.Status)
	}
	return r, nil
}

func (s *Service) transition(ctx context.Context, r redeem.Request, status redeem.Status) (redeem.Request, error) {
	r.Status = status
	updated, err := s.store.UpdateRedeem(ctx, r)
	if err != nil {
		return redeem.Request{}, apperrors.InternalFor("update", "redeem", r.ID, err)
	}
	s.log.WithField("redeem_id", r.ID).WithField("status", status).Info("redeem status changed")
	return updated, nil
}

func (s *Service) authorizeManage(ctx context.Context, actorID, collectionID string) error {
	c, err := s.collection(ctx, collectionID)
	if err != nil {
		return err
	}
	return s.members.Authorize(ctx, actorID, c.OrganizationID, organization.CapabilityManage)
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
