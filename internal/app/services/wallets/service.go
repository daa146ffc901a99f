package wallets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/R3E-Network/nft_platform/internal/app/domain/wallet"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Service manages wallets and their binding to users.
type Service struct {
	store  storage.WalletStore
	nonces storage.NonceStore
	now    func() time.Time
	log    *logger.Logger
}

// New constructs a wallet service. nonces backs the sign-in challenges.
func New(store storage.WalletStore, nonces storage.NonceStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("wallets")
	}
	return &Service{store: store, nonces: nonces, now: time.Now, log: log}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create registers a wallet address. Addresses are unique regardless of case.
func (s *Service) Create(ctx context.Context, address string, ownerID *string, name string) (wallet.Wallet, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return wallet.Wallet{}, apperrors.BadRequest("Invalid wallet address")
	}
	if _, err := s.store.GetWalletByAddress(ctx, normalized); err == nil {
		return wallet.Wallet{}, apperrors.BadRequest(apperrors.MsgWalletExists)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return wallet.Wallet{}, apperrors.Internal("failed to look up wallet", err)
	}

	w, err := s.store.CreateWallet(ctx, wallet.Wallet{
		Address: normalized,
		OwnerID: ownerID,
		Name:    strings.TrimSpace(name),
	})
	if errors.Is(err, storage.ErrConflict) {
		return wallet.Wallet{}, apperrors.BadRequest(apperrors.MsgWalletExists)
	}
	if err != nil {
		return wallet.Wallet{}, apperrors.Internal("failed to create wallet", err)
	}
	s.log.WithField("wallet_id", w.ID).WithField("address", w.Address).Info("wallet created")
	return w, nil
}

// GetByAddress looks a wallet up case-insensitively.
func (s *Service) GetByAddress(ctx context.Context, address string) (wallet.Wallet, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return wallet.Wallet{}, apperrors.BadRequest("Invalid wallet address")
	}
	w, err := s.store.GetWalletByAddress(ctx, normalized)
	if errors.Is(err, storage.ErrNotFound) {
		return wallet.Wallet{}, apperrors.NotFound("wallet", normalized)
	}
	if err != nil {
		return wallet.Wallet{}, apperrors.InternalFor("get", "wallet", normalized, err)
	}
	return w, nil
}

// GetOrCreate returns the wallet for address, creating an unowned one if needed.
func (s *Service) GetOrCreate(ctx context.Context, address string) (wallet.Wallet, error) {
	w, err := s.GetByAddress(ctx, address)
	if err == nil || !apperrors.IsNotFound(err) {
		return w, err
	}
	w, err = s.Create(ctx, address, nil, "")
	if se := apperrors.GetServiceError(err); se != nil && se.Message == apperrors.MsgWalletExists {
		return s.GetByAddress(ctx, address)
	}
	return w, err
}

// ListByOwner returns the wallets bound to userID.
func (s *Service) ListByOwner(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	out, err := s.store.ListWalletsByOwner(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list wallets", err)
	}
	return out, nil
}

// Bind attaches a wallet to userID after proving control of the address with
// a signed challenge.
func (s *Service) Bind(ctx context.Context, userID, address, message, signature string) (wallet.Wallet, error) {
	if err := s.RedeemChallenge(ctx, address, message, signature); err != nil {
		s.log.WithError(err).WithField("address", address).Warn("wallet bind challenge rejected")
		return wallet.Wallet{}, ChallengeError(err, apperrors.BadRequest)
	}
	w, err := s.GetOrCreate(ctx, address)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if w.OwnedBy(userID) {
		return w, nil
	}
	if w.OwnerID != nil {
		return wallet.Wallet{}, apperrors.Forbidden("Wallet is bound to another user")
	}
	owner := userID
	w.OwnerID = &owner
	updated, err := s.store.UpdateWallet(ctx, w)
	if err != nil {
		return wallet.Wallet{}, apperrors.InternalFor("update", "wallet", w.ID, err)
	}
	s.log.WithField("wallet_id", w.ID).WithField("user_id", userID).Info("wallet bound")
	return updated, nil
}

// Unbind detaches a wallet from its owner.
func (s *Service) Unbind(ctx context.Context, userID, address string) (wallet.Wallet, error) {
	w, err := s.owned(ctx, userID, address)
	if err != nil {
		return wallet.Wallet{}, err
	}
	w.OwnerID = nil
	updated, err := s.store.UpdateWallet(ctx, w)
	if err != nil {
		return wallet.Wallet{}, apperrors.InternalFor("update", "wallet", w.ID, err)
	}
	s.log.WithField("wallet_id", w.ID).WithField("user_id", userID).Info("wallet unbound")
	return updated, nil
}

// Rename sets the display name of a wallet owned by userID.
func (s *Service) Rename(ctx context.Context, userID, address, name string) (wallet.Wallet, error) {
	w, err := s.owned(ctx, userID, address)
	if err != nil {
		return wallet.Wallet{}, err
	}
	w.Name = strings.TrimSpace(name)
	updated, err := s.store.UpdateWallet(ctx, w)
	if err != nil {
		return wallet.Wallet{}, apperrors.InternalFor("update", "wallet", w.ID, err)
	}
	return updated, nil
}

func (s *Service) owned(ctx context.Context, userID, address string) (wallet.Wallet, error) {
	w, err := s.GetByAddress(ctx, address)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if !w.OwnedBy(userID) {
		return wallet.Wallet{}, apperrors.Forbidden("Wallet is not bound to the caller")
	}
	return w, nil
}
