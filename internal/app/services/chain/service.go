// Package chain exposes the read-only mirror of on-chain state maintained by
// the indexer.
package chain

import (
	"context"
	"errors"
	"strings"

	domain "github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Service reads coins, sale contracts, mint transactions and ownership.
type Service struct {
	store storage.ChainStore
	log   *logger.Logger
}

// New constructs a chain read service.
func New(store storage.ChainStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("chain")
	}
	return &Service{store: store, log: log}
}

// GetCoin looks up a payment token. A zero chainID matches any chain.
func (s *Service) GetCoin(ctx context.Context, chainID int64, address string) (domain.Coin, error) {
	address = strings.TrimSpace(address)
	c, err := s.store.GetCoin(ctx, chainID, address)
	if err != nil {
		return domain.Coin{}, lookupErr(err, "coin", address)
	}
	return c, nil
}

func (s *Service) ListCoins(ctx context.Context) ([]domain.Coin, error) {
	out, err := s.store.ListCoins(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to list coins", err)
	}
	return out, nil
}

func (s *Service) GetMintSaleContract(ctx context.Context, address string) (domain.MintSaleContract, error) {
	address = strings.TrimSpace(address)
	c, err := s.store.GetMintSaleContract(ctx, address)
	if err != nil {
		return domain.MintSaleContract{}, lookupErr(err, "mint sale contract", address)
	}
	return c, nil
}

func (s *Service) ListMintSaleContracts(ctx context.Context, collectionID string) ([]domain.MintSaleContract, error) {
	out, err := s.store.ListMintSaleContracts(ctx, collectionID)
	if err != nil {
		return nil, apperrors.Internal("failed to list mint sale contracts", err)
	}
	return out, nil
}

// ListTransactions returns mint transactions matching filter, oldest first.
// An empty filter is rejected to avoid scanning the whole mirror.
func (s *Service) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.MintSaleTransaction, error) {
	if len(filter.TokenAddresses) == 0 && strings.TrimSpace(filter.Recipient) == "" {
		return nil, apperrors.BadRequest("A token address or recipient is required")
	}
	out, err := s.store.ListMintSaleTransactions(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal("failed to list mint transactions", err)
	}
	return out, nil
}

func (s *Service) GetAsset(ctx context.Context, tokenAddress, tokenID string) (domain.Asset721, error) {
	a, err := s.store.GetAsset(ctx, strings.TrimSpace(tokenAddress), strings.TrimSpace(tokenID))
	if err != nil {
		return domain.Asset721{}, lookupErr(err, "asset", tokenAddress+"/"+tokenID)
	}
	return a, nil
}

// ListAssetsByOwner returns every token currently held by owner.
func (s *Service) ListAssetsByOwner(ctx context.Context, owner string) ([]domain.Asset721, error) {
	out, err := s.store.ListAssetsByOwner(ctx, strings.TrimSpace(owner))
	if err != nil {
		return nil, apperrors.Internal("failed to list assets", err)
	}
	return out, nil
}

func lookupErr(err error, resource, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NotFound(resource, id)
	}
	return apperrors.InternalFor("get", resource, id, err)
}
