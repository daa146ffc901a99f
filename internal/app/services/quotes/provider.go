package quotes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/nft_platform/internal/app/metrics"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// ErrUnavailable is returned when no USD quote exists for a symbol.
var ErrUnavailable = errors.New("quote unavailable")

// Provider resolves the USD price of one unit of a token.
type Provider interface {
	USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, symbol string) (decimal.Decimal, error)

func (f ProviderFunc) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if f == nil {
		return decimal.Zero, ErrUnavailable
	}
	return f(ctx, symbol)
}

// StaticProvider serves fixed prices keyed by upper-case symbol.
type StaticProvider map[string]decimal.Decimal

func (p StaticProvider) USDPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := p[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, ErrUnavailable
	}
	return price, nil
}

// CachedProvider serves quotes from a cache and falls back to the wrapped
// provider on a miss.
type CachedProvider struct {
	next  Provider
	cache storage.QuoteCache
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedProvider wraps next with cache.
func NewCachedProvider(next Provider, cache storage.QuoteCache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	if log == nil {
		log = logger.NewDefault("quotes")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl, log: log}
}

func (p *CachedProvider) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, ErrUnavailable
	}
	price, ok, err := p.cache.GetQuote(ctx, symbol)
	if err != nil {
		p.log.WithError(err).WithField("symbol", symbol).Warn("quote cache read failed")
	}
	metrics.RecordQuoteLookup("cache", ok)
	if ok {
		return price, nil
	}
	return p.Refresh(ctx, symbol)
}

// Refresh fetches a fresh quote from the wrapped provider and caches it.
func (p *CachedProvider) Refresh(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	price, err := p.next.USDPrice(ctx, symbol)
	metrics.RecordQuoteLookup("provider", err == nil)
	if err != nil {
		return decimal.Zero, err
	}
	if err := p.cache.SetQuote(ctx, symbol, price, p.ttl); err != nil {
		p.log.WithError(err).WithField("symbol", symbol).Warn("quote cache write failed")
	}
	return price, nil
}
