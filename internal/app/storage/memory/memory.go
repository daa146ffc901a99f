package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/app/domain/collection"
	"github.com/R3E-Network/nft_platform/internal/app/domain/organization"
	"github.com/R3E-Network/nft_platform/internal/app/domain/redeem"
	"github.com/R3E-Network/nft_platform/internal/app/domain/referral"
	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
	"github.com/R3E-Network/nft_platform/internal/app/domain/wallet"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
// The sync-chain tables are populated through the Seed* helpers.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	now           func() time.Time
	users         map[string]user.User
	wallets       map[string]wallet.Wallet
	organizations map[string]organization.Organization
	memberships   map[string]organization.Membership
	collections   map[string]collection.Collection
	tiers         map[string]collection.Tier
	redeems       map[string]redeem.Request
	referrals     map[string]referral.Referral
	sessions      map[string]sessionEntry
	nonces        map[string]time.Time
	quotes        map[string]quoteEntry

	coins        []chain.Coin
	contracts    []chain.MintSaleContract
	transactions []chain.MintSaleTransaction
	assets       []chain.Asset721
}

type sessionEntry struct {
	session   user.Session
	expiresAt time.Time
}

type quoteEntry struct {
	price     decimal.Decimal
	expiresAt time.Time
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.WalletStore = (*Store)(nil)
var _ storage.OrganizationStore = (*Store)(nil)
var _ storage.MembershipStore = (*Store)(nil)
var _ storage.CollectionStore = (*Store)(nil)
var _ storage.TierStore = (*Store)(nil)
var _ storage.ChainStore = (*Store)(nil)
var _ storage.RedeemStore = (*Store)(nil)
var _ storage.ReferralStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.NonceStore = (*Store)(nil)
var _ storage.QuoteCache = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		now:           time.Now,
		users:         make(map[string]user.User),
		wallets:       make(map[string]wallet.Wallet),
		organizations: make(map[string]organization.Organization),
		memberships:   make(map[string]organization.Membership),
		collections:   make(map[string]collection.Collection),
		tiers:         make(map[string]collection.Tier),
		redeems:       make(map[string]redeem.Request),
		referrals:     make(map[string]referral.Referral),
		sessions:      make(map[string]sessionEntry),
		nonces:        make(map[string]time.Time),
		quotes:        make(map[string]quoteEntry),
	}
}

// WithClock overrides the clock used for timestamps and expiry.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func (s *Store) stampLocked() time.Time {
	return s.now().UTC()
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) ||
			(u.Username != "" && strings.EqualFold(existing.Username, u.Username)) ||
			(u.ReferralCode != "" && existing.ReferralCode == u.ReferralCode) {
			return user.User{}, storage.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	}
	now := s.stampLocked()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) ||
			(u.Username != "" && strings.EqualFold(other.Username, u.Username)) {
			return user.User{}, storage.ErrConflict
		}
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = s.stampLocked()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return s.findUser(func(u user.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	return s.findUser(func(u user.User) bool { return u.Username != "" && strings.EqualFold(u.Username, username) })
}

func (s *Store) GetUserByReferralCode(_ context.Context, code string) (user.User, error) {
	return s.findUser(func(u user.User) bool { return u.ReferralCode != "" && u.ReferralCode == code })
}

func (s *Store) findUser(match func(user.User) bool) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt) || (out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID < out[j].ID)
	})
	return out, nil
}

// WalletStore implementation --------------------------------------------------

func (s *Store) CreateWallet(_ context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.wallets {
		if strings.EqualFold(existing.Address, w.Address) {
			return wallet.Wallet{}, storage.ErrConflict
		}
	}
	if w.ID == "" {
		w.ID = s.nextIDLocked()
	}
	now := s.stampLocked()
	w.CreatedAt = now
	w.UpdatedAt = now
	w.OwnerID = cloneString(w.OwnerID)
	s.wallets[w.ID] = w
	return w, nil
}

func (s *Store) UpdateWallet(_ context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.wallets[w.ID]
	if !ok {
		return wallet.Wallet{}, storage.ErrNotFound
	}
	w.Address = existing.Address
	w.CreatedAt = existing.CreatedAt
	w.UpdatedAt = s.stampLocked()
	w.OwnerID = cloneString(w.OwnerID)
	s.wallets[w.ID] = w
	return w, nil
}

func (s *Store) GetWallet(_ context.Context, id string) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return wallet.Wallet{}, storage.ErrNotFound
	}
	return w, nil
}

func (s *Store) GetWalletByAddress(_ context.Context, address string) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.wallets {
		if strings.EqualFold(w.Address, address) {
			return w, nil
		}
	}
	return wallet.Wallet{}, storage.ErrNotFound
}

func (s *Store) ListWalletsByOwner(_ context.Context, ownerID string) ([]wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []wallet.Wallet
	for _, w := range s.wallets {
		if w.OwnedBy(ownerID) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// OrganizationStore implementation --------------------------------------------

func (s *Store) CreateOrganization(_ context.Context, org organization.Organization) (organization.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.organizations {
		if strings.EqualFold(existing.Name, org.Name) {
			return organization.Organization{}, storage.ErrConflict
		}
	}
	if org.ID == "" {
		org.ID = s.nextIDLocked()
	}
	now := s.stampLocked()
	org.CreatedAt = now
	org.UpdatedAt = now
	s.organizations[org.ID] = org
	return org, nil
}

func (s *Store) UpdateOrganization(_ context.Context, org organization.Organization) (organization.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.organizations[org.ID]
	if !ok {
		return organization.Organization{}, storage.ErrNotFound
	}
	for id, other := range s.organizations {
		if id != org.ID && strings.EqualFold(other.Name, org.Name) {
			return organization.Organization{}, storage.ErrConflict
		}
	}
	org.CreatedAt = existing.CreatedAt
	org.UpdatedAt = s.stampLocked()
	s.organizations[org.ID] = org
	return org, nil
}

func (s *Store) GetOrganization(_ context.Context, id string) (organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.organizations[id]
	if !ok {
		return organization.Organization{}, storage.ErrNotFound
	}
	return org, nil
}

func (s *Store) GetOrganizationByName(_ context.Context, name string) (organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, org := range s.organizations {
		if strings.EqualFold(org.Name, name) {
			return org, nil
		}
	}
	return organization.Organization{}, storage.ErrNotFound
}

func (s *Store) ListOrganizations(_ context.Context, ids []string) ([]organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []organization.Organization
	if ids == nil {
		for _, org := range s.organizations {
			out = append(out, org)
		}
	} else {
		for _, id := range ids {
			if org, ok := s.organizations[id]; ok {
				out = append(out, org)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteOrganization(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.organizations[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.organizations, id)
	for mid, m := range s.memberships {
		if m.OrganizationID == id {
			delete(s.memberships, mid)
		}
	}
	for cid, c := range s.collections {
		if c.OrganizationID != id {
			continue
		}
		delete(s.collections, cid)
		for tid, t := range s.tiers {
			if t.CollectionID == cid {
				delete(s.tiers, tid)
			}
		}
	}
	return nil
}

// MembershipStore implementation ----------------------------------------------

func (s *Store) CreateMembership(_ context.Context, m organization.Membership) (organization.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.memberships {
		if existing.OrganizationID != m.OrganizationID {
			continue
		}
		if strings.EqualFold(existing.Email, m.Email) ||
			(m.UserID != nil && existing.UserID != nil && *existing.UserID == *m.UserID) {
			return organization.Membership{}, storage.ErrConflict
		}
	}
	if m.ID == "" {
		m.ID = s.nextIDLocked()
	}
	now := s.stampLocked()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.UserID = cloneString(m.UserID)
	m.AcceptedAt = cloneTime(m.AcceptedAt)
	s.memberships[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMembership(_ context.Context, m organization.Membership) (organization.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.memberships[m.ID]
	if !ok {
		return organization.Membership{}, storage.ErrNotFound
	}
	m.OrganizationID = existing.OrganizationID
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = s.stampLocked()
	m.UserID = cloneString(m.UserID)
	m.AcceptedAt = cloneTime(m.AcceptedAt)
	s.memberships[m.ID] = m
	return m, nil
}

func (s *Store) GetMembership(_ context.Context, id string) (organization.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[id]
	if !ok {
		return organization.Membership{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) GetMembershipByInviteCode(_ context.Context, code string) (organization.Membership, error) {
	return s.findMembership(func(m organization.Membership) bool { return code != "" && m.InviteCode == code })
}

func (s *Store) GetMembershipByEmail(_ context.Context, organizationID, email string) (organization.Membership, error) {
	return s.findMembership(func(m organization.Membership) bool {
		return m.OrganizationID == organizationID && strings.EqualFold(m.Email, email)
	})
}

func (s *Store) GetMembershipForUser(_ context.Context, organizationID, userID string) (organization.Membership, error) {
	return s.findMembership(func(m organization.Membership) bool {
		return m.OrganizationID == organizationID && m.UserID != nil && *m.UserID == userID
	})
}

func (s *Store) findMembership(match func(organization.Membership) bool) (organization.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberships {
		if match(m) {
			return m, nil
		}
	}
	return organization.Membership{}, storage.ErrNotFound
}

func (s *Store) ListMembershipsByOrganization(_ context.Context, organizationID string) ([]organization.Membership, error) {
	return s.listMemberships(func(m organization.Membership) bool { return m.OrganizationID == organizationID }), nil
}

func (s *Store) ListMembershipsByUser(_ context.Context, userID string) ([]organization.Membership, error) {
	return s.listMemberships(func(m organization.Membership) bool { return m.UserID != nil && *m.UserID == userID }), nil
}

func (s *Store) listMemberships(match func(organization.Membership) bool) []organization.Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []organization.Membership
	for _, m := range s.memberships {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func (s *Store) DeleteMembership(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memberships[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.memberships, id)
	return nil
}

// CollectionStore implementation ----------------------------------------------

func (s *Store) CreateCollection(_ context.Context, c collection.Collection) (collection.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Address != "" {
		for _, existing := range s.collections {
			if strings.EqualFold(existing.Address, c.Address) {
				return collection.Collection{}, storage.ErrConflict
			}
		}
	}
	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	now := s.stampLocked()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.CreatorID = cloneString(c.CreatorID)
	c.PublishedAt = cloneTime(c.PublishedAt)
	s.collections[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCollection(_ context.Context, c collection.Collection) (collection.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[c.ID]
	if !ok {
		return collection.Collection{}, storage.ErrNotFound
	}
	if c.Address != "" {
		for id, other := range s.collections {
			if id != c.ID && strings.EqualFold(other.Address, c.Address) {
				return collection.Collection{}, storage.ErrConflict
			}
		}
	}
	c.OrganizationID = existing.OrganizationID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.stampLocked()
	c.CreatorID = cloneString(c.CreatorID)
	c.PublishedAt = cloneTime(c.PublishedAt)
	s.collections[c.ID] = c
	return c, nil
}

func (s *Store) GetCollection(_ context.Context, id string) (collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[id]
	if !ok {
		return collection.Collection{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetCollectionByAddress(_ context.Context, address string) (collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.collections {
		if c.Address != "" && strings.EqualFold(c.Address, address) {
			return c, nil
		}
	}
	return collection.Collection{}, storage.ErrNotFound
}

func (s *Store) ListCollections(_ context.Context, filter storage.CollectionFilter) ([]collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []collection.Collection
	for _, c := range s.collections {
		if filter.OrganizationID != "" && c.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Published != nil && c.Published() != *filter.Published {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteCollection(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.collections, id)
	for tid, t := range s.tiers {
		if t.CollectionID == id {
			delete(s.tiers, tid)
		}
	}
	return nil
}

// TierStore implementation ----------------------------------------------------

func (s *Store) CreateTier(_ context.Context, t collection.Tier) (collection.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.nextIDLocked()
	}
	now := s.stampLocked()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Metadata = cloneBytes(t.Metadata)
	s.tiers[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTier(_ context.Context, t collection.Tier) (collection.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tiers[t.ID]
	if !ok {
		return collection.Tier{}, storage.ErrNotFound
	}
	t.CollectionID = existing.CollectionID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.stampLocked()
	t.Metadata = cloneBytes(t.Metadata)
	s.tiers[t.ID] = t
	return t, nil
}

func (s *Store) GetTier(_ context.Context, id string) (collection.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tiers[id]
	if !ok {
		return collection.Tier{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTiers(_ context.Context, collectionID string) ([]collection.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []collection.Tier
	for _, t := range s.tiers {
		if t.CollectionID == collectionID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TierID < out[j].TierID })
	return out, nil
}

func (s *Store) DeleteTier(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiers[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.tiers, id)
	return nil
}

// ChainStore implementation ---------------------------------------------------

// SeedCoin adds a coin to the mirror.
func (s *Store) SeedCoin(c chain.Coin) chain.Coin {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	s.coins = append(s.coins, c)
	return c
}

// SeedMintSaleContract adds a sale contract to the mirror.
func (s *Store) SeedMintSaleContract(c chain.MintSaleContract) chain.MintSaleContract {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	s.contracts = append(s.contracts, c)
	return c
}

// SeedMintSaleTransaction adds a mint transaction to the mirror.
func (s *Store) SeedMintSaleTransaction(tx chain.MintSaleTransaction) chain.MintSaleTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = s.nextIDLocked()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.stampLocked()
	}
	s.transactions = append(s.transactions, tx)
	return tx
}

// SeedAsset adds or replaces the ownership row of a token.
func (s *Store) SeedAsset(a chain.Asset721) chain.Asset721 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.stampLocked()
	}
	for i, existing := range s.assets {
		if strings.EqualFold(existing.TokenAddress, a.TokenAddress) && existing.TokenID == a.TokenID {
			a.ID = existing.ID
			s.assets[i] = a
			return a
		}
	}
	if a.ID == "" {
		a.ID = s.nextIDLocked()
	}
	s.assets = append(s.assets, a)
	return a
}

func (s *Store) GetCoin(_ context.Context, chainID int64, address string) (chain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.coins {
		if (chainID == 0 || c.ChainID == chainID) && strings.EqualFold(c.Address, address) {
			return c, nil
		}
	}
	return chain.Coin{}, storage.ErrNotFound
}

func (s *Store) ListCoins(_ context.Context) ([]chain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chain.Coin, len(s.coins))
	copy(out, s.coins)
	return out, nil
}

func (s *Store) GetMintSaleContract(_ context.Context, address string) (chain.MintSaleContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contracts {
		if strings.EqualFold(c.Address, address) {
			return c, nil
		}
	}
	return chain.MintSaleContract{}, storage.ErrNotFound
}

func (s *Store) ListMintSaleContracts(_ context.Context, collectionID string) ([]chain.MintSaleContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []chain.MintSaleContract
	for _, c := range s.contracts {
		if c.CollectionID == collectionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) ListMintSaleTransactions(_ context.Context, filter chain.TransactionFilter) ([]chain.MintSaleTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []chain.MintSaleTransaction
	for _, tx := range s.transactions {
		if len(filter.TokenAddresses) > 0 && !containsFold(filter.TokenAddresses, tx.TokenAddress) {
			continue
		}
		if filter.TierID != nil && tx.TierID != *filter.TierID {
			continue
		}
		if filter.Recipient != "" && !strings.EqualFold(filter.Recipient, tx.Recipient) {
			continue
		}
		if !filter.Since.IsZero() && tx.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && !tx.CreatedAt.Before(filter.Until) {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetAsset(_ context.Context, tokenAddress, tokenID string) (chain.Asset721, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assets {
		if strings.EqualFold(a.TokenAddress, tokenAddress) && a.TokenID == tokenID {
			return a, nil
		}
	}
	return chain.Asset721{}, storage.ErrNotFound
}

func (s *Store) ListAssets(_ context.Context, tokenAddress string) ([]chain.Asset721, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []chain.Asset721
	for _, a := range s.assets {
		if strings.EqualFold(a.TokenAddress, tokenAddress) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListAssetsByOwner(_ context.Context, owner string) ([]chain.Asset721, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []chain.Asset721
	for _, a := range s.assets {
		if strings.EqualFold(a.Owner, owner) {
			out = append(out, a)
		}
	}
	return out, nil
}

// RedeemStore implementation --------------------------------------------------

func (s *Store) CreateRedeem(_ context.Context, r redeem.Request) (redeem.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = s.nextIDLocked()
	}
	now := s.stampLocked()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.redeems[r.ID] = r
	return r, nil
}

func (s *Store) UpdateRedeem(_ context.Context, r redeem.Request) (redeem.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.redeems[r.ID]
	if !ok {
		return redeem.Request{}, storage.ErrNotFound
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = s.stampLocked()
	s.redeems[r.ID] = r
	return r, nil
}

func (s *Store) GetRedeem(_ context.Context, id string) (redeem.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.redeems[id]
	if !ok {
		return redeem.Request{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRedeemsByCollection(_ context.Context, collectionID string) ([]redeem.Request, error) {
	return s.listRedeems(func(r redeem.Request) bool { return r.CollectionID == collectionID }), nil
}

func (s *Store) ListRedeemsByUser(_ context.Context, userID string) ([]redeem.Request, error) {
	return s.listRedeems(func(r redeem.Request) bool { return r.UserID == userID }), nil
}

func (s *Store) ListRedeemsByToken(_ context.Context, collectionID, tokenID string) ([]redeem.Request, error) {
	return s.listRedeems(func(r redeem.Request) bool { return r.CollectionID == collectionID && r.TokenID == tokenID }), nil
}

func (s *Store) listRedeems(match func(redeem.Request) bool) []redeem.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []redeem.Request
	for _, r := range s.redeems {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt) || (out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID < out[j].ID)
	})
	return out
}

// ReferralStore implementation ------------------------------------------------

func (s *Store) CreateReferral(_ context.Context, r referral.Referral) (referral.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.referrals {
		if existing.ReferredUserID == r.ReferredUserID {
			return referral.Referral{}, storage.ErrConflict
		}
	}
	if r.ID == "" {
		r.ID = s.nextIDLocked()
	}
	r.CreatedAt = s.stampLocked()
	s.referrals[r.ID] = r
	return r, nil
}

func (s *Store) GetReferralByReferred(_ context.Context, userID string) (referral.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.referrals {
		if r.ReferredUserID == userID {
			return r, nil
		}
	}
	return referral.Referral{}, storage.ErrNotFound
}

func (s *Store) ListReferralsByReferrer(_ context.Context, referrerID string) ([]referral.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []referral.Referral
	for _, r := range s.referrals {
		if r.ReferrerID == referrerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SessionStore implementation -------------------------------------------------

func (s *Store) PutSession(_ context.Context, tokenHash string, session user.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := sessionEntry{session: session}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.sessions[tokenHash] = entry
	return nil
}

func (s *Store) GetSession(_ context.Context, tokenHash string) (user.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[tokenHash]
	if !ok {
		return user.Session{}, storage.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.sessions, tokenHash)
		return user.Session{}, storage.ErrNotFound
	}
	return entry.session, nil
}

func (s *Store) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

// NonceStore implementation ---------------------------------------------------

func (s *Store) PutNonce(_ context.Context, address, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.nonces[nonceKey(address, nonce)] = expiresAt
	return nil
}

func (s *Store) ConsumeNonce(_ context.Context, address, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := nonceKey(address, nonce)
	expiresAt, ok := s.nonces[key]
	if !ok {
		return false, nil
	}
	delete(s.nonces, key)
	return expiresAt.IsZero() || s.now().Before(expiresAt), nil
}

func nonceKey(address, nonce string) string {
	return strings.ToLower(address) + "/" + nonce
}

// QuoteCache implementation ---------------------------------------------------

func (s *Store) GetQuote(_ context.Context, symbol string) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.quotes[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		return decimal.Zero, false, nil
	}
	return entry.price, true, nil
}

func (s *Store) SetQuote(_ context.Context, symbol string, price decimal.Decimal, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := quoteEntry{price: price}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.quotes[strings.ToUpper(symbol)] = entry
	return nil
}

// helpers ---------------------------------------------------------------------

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneBytes(v []byte) []byte {
	if v == nil {
		return nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp
}
