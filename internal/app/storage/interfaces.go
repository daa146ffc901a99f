package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/app/domain/collection"
	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/domain/redeem"
	"github.com/R3E-Network/nft_platform/internal/app/domain/referral"
	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
	"github.com/R3E-Network/nft_platform/internal/app/domain/wallet"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("storage: conflict")
)

// UserStore persists users. Email and username lookups are case-insensitive.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// WalletStore persists wallets. Address lookups are case-insensitive.
type WalletStore interface {
	CreateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error)
	UpdateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error)
	GetWallet(ctx context.Context, id string) (wallet.Wallet, error)
	GetWalletByAddress(ctx context.Context, address string) (wallet.Wallet, error)
	ListWalletsByOwner(ctx context.Context, ownerID string) ([]wallet.Wallet, error)
}

// OrganizationStore persists organizations. Name lookups are case-insensitive.
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error)
	UpdateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error)
	GetOrganization(ctx context.Context, id string) (organization.Organization, error)
	GetOrganizationByName(ctx context.Context, name string) (organization.Organization, error)
	ListOrganizations(ctx context.Context, ids []string) ([]organization.Organization, error)
	DeleteOrganization(ctx context.Context, id string) error
}

// MembershipStore persists memberships and pending invites.
type MembershipStore interface {
	CreateMembership(ctx context.Context, m organization.Membership) (organization.Membership, error)
	UpdateMembership(ctx context.Context, m organization.Membership) (organization.Membership, error)
	GetMembership(ctx context.Context, id string) (organization.Membership, error)
	GetMembershipByInviteCode(ctx context.Context, code string) (organization.Membership, error)
	GetMembershipByEmail(ctx context.Context, organizationID, email string) (organization.Membership, error)
	GetMembershipForUser(ctx context.Context, organizationID, userID string) (organization.Membership, error)
	ListMembershipsByOrganization(ctx context.Context, organizationID string) ([]organization.Membership, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]organization.Membership, error)
	DeleteMembership(ctx context.Context, id string) error
}

// CollectionFilter narrows collection listings. Nil Published lists both.
type CollectionFilter struct {
	OrganizationID string
	Published      *bool
}

// CollectionStore persists collections.
type CollectionStore interface {
	CreateCollection(ctx context.Context, c collection.Collection) (collection.Collection, error)
	UpdateCollection(ctx context.Context, c collection.Collection) (collection.Collection, error)
	GetCollection(ctx context.Context, id string) (collection.Collection, error)
	GetCollectionByAddress(ctx context.Context, address string) (collection.Collection, error)
	ListCollections(ctx context.Context, filter CollectionFilter) ([]collection.Collection, error)
	DeleteCollection(ctx context.Context, id string) error
}

// TierStore persists tiers.
type TierStore interface {
	CreateTier(ctx context.Context, t collection.Tier) (collection.Tier, error)
	UpdateTier(ctx context.Context, t collection.Tier) (collection.Tier, error)
	GetTier(ctx context.Context, id string) (collection.Tier, error)
	ListTiers(ctx context.Context, collectionID string) ([]collection.Tier, error)
	DeleteTier(ctx context.Context, id string) error
}

// ChainStore reads the sync-chain mirror. Address arguments are matched
// case-insensitively.
type ChainStore interface {
	GetCoin(ctx context.Context, chainID int64, address string) (chain.Coin, error)
	ListCoins(ctx context.Context) ([]chain.Coin, error)
	GetMintSaleContract(ctx context.Context, address string) (chain.MintSaleContract, error)
	ListMintSaleContracts(ctx context.Context, collectionID string) ([]chain.MintSaleContract, error)
	ListMintSaleTransactions(ctx context.Context, filter chain.TransactionFilter) ([]chain.MintSaleTransaction, error)
	GetAsset(ctx context.Context, tokenAddress, tokenID string) (chain.Asset721, error)
	ListAssets(ctx context.Context, tokenAddress string) ([]chain.Asset721, error)
	ListAssetsByOwner(ctx context.Context, owner string) ([]chain.Asset721, error)
}

// RedeemStore persists redemption requests.
type RedeemStore interface {
	CreateRedeem(ctx context.Context, r redeem.Request) (redeem.Request, error)
	UpdateRedeem(ctx context.Context, r redeem.Request) (redeem.Request, error)
	GetRedeem(ctx context.Context, id string) (redeem.Request, error)
	ListRedeemsByCollection(ctx context.Context, collectionID string) ([]redeem.Request, error)
	ListRedeemsByUser(ctx context.Context, userID string) ([]redeem.Request, error)
	ListRedeemsByToken(ctx context.Context, collectionID, tokenID string) ([]redeem.Request, error)
}

// ReferralStore persists referrals. A user is referred at most once.
type ReferralStore interface {
	CreateReferral(ctx context.Context, r referral.Referral) (referral.Referral, error)
	GetReferralByReferred(ctx context.Context, userID string) (referral.Referral, error)
	ListReferralsByReferrer(ctx context.Context, referrerID string) ([]referral.Referral, error)
}

// SessionStore keeps sessions keyed by the hash of their bearer token.
type SessionStore interface {
	PutSession(ctx context.Context, tokenHash string, session user.Session, ttl time.Duration) error
	GetSession(ctx context.Context, tokenHash string) (user.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
}

// NonceStore holds the sign-in nonces issued to wallet addresses.
type NonceStore interface {
	PutNonce(ctx context.Context, address, nonce string, ttl time.Duration) error
	// ConsumeNonce deletes the nonce and reports whether it was issued to
	// address and still live.
	ConsumeNonce(ctx context.Context, address, nonce string) (bool, error)
}

// QuoteCache caches USD quotes by token symbol.
type QuoteCache interface {
	GetQuote(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
	SetQuote(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration) error
}
