// Package testutil provides shared test doubles: a controllable clock, a
// chain mirror that fails on demand and a counting quote provider.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
)

// ErrInjected is returned by FailingChainStore.
var ErrInjected = errors.New("injected failure")

// Clock is a manually advanced time source. Pass Clock.Now wherever a
// service accepts WithClock.
type Clock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewClock creates a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// FailingChainStore wraps a chain mirror and fails the list queries the
// aggregation engine relies on while Fail is set. FailCoins does the same
// for coin lookups.
type FailingChainStore struct {
	storage.ChainStore

	mu        sync.Mutex
	fail      bool
	failCoins bool
}

// NewFailingChainStore wraps next. It starts healthy.
func NewFailingChainStore(next storage.ChainStore) *FailingChainStore {
	return &FailingChainStore{ChainStore: next}
}

// Fail toggles failure injection.
func (s *FailingChainStore) Fail(on bool) {
	s.mu.Lock()
	s.fail = on
	s.mu.Unlock()
}

// FailCoins toggles failure injection for GetCoin.
func (s *FailingChainStore) FailCoins(on bool) {
	s.mu.Lock()
	s.failCoins = on
	s.mu.Unlock()
}

func (s *FailingChainStore) failing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail
}

func (s *FailingChainStore) ListMintSaleTransactions(ctx context.Context, filter chain.TransactionFilter) ([]chain.MintSaleTransaction, error) {
	if s.failing() {
		return nil, ErrInjected
	}
	return s.ChainStore.ListMintSaleTransactions(ctx, filter)
}

func (s *FailingChainStore) GetCoin(ctx context.Context, chainID int64, address string) (chain.Coin, error) {
	s.mu.Lock()
	fail := s.failCoins
	s.mu.Unlock()
	if fail {
		return chain.Coin{}, ErrInjected
	}
	return s.ChainStore.GetCoin(ctx, chainID, address)
}

func (s *FailingChainStore) ListAssets(ctx context.Context, tokenAddress string) ([]chain.Asset721, error) {
	if s.failing() {
		return nil, ErrInjected
	}
	return s.ChainStore.ListAssets(ctx, tokenAddress)
}

// CountingProvider serves fixed USD prices by symbol and records lookups.
// Unknown symbols fail with ErrInjected.
type CountingProvider struct {
	Prices map[string]decimal.Decimal

	mu    sync.Mutex
	calls map[string]int
}

func (p *CountingProvider) USDPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	p.mu.Lock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[symbol]++
	p.mu.Unlock()

	price, ok := p.Prices[symbol]
	if !ok {
		return decimal.Zero, ErrInjected
	}
	return price, nil
}

// Calls reports how often symbol was looked up.
func (p *CountingProvider) Calls(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[strings.ToUpper(symbol)]
}
