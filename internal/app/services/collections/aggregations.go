package collections

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/nft_platform/internal/app/services/stats"
)

// Holders ranks the current owners of the collection at address.
func (s *Service) Holders(ctx context.Context, address string, page stats.Page) (stats.HolderConnection, error) {
	return s.stats.Holders(ctx, scopeFor(address), page)
}

// UniqueHolderCount counts distinct mint recipients.
func (s *Service) UniqueHolderCount(ctx context.Context, address string) (int, error) {
	return s.stats.UniqueHolderCount(ctx, scopeFor(address))
}

func (s *Service) Buyers(ctx context.Context, address string) ([]stats.Buyer, error) {
	return s.stats.Buyers(ctx, scopeFor(address), stats.Window{})
}

func (s *Service) Activities(ctx context.Context, address string, page stats.Page) (stats.ActivityConnection, error) {
	return s.stats.Activities(ctx, scopeFor(address), page)
}

// AggregatedActivities returns daily buckets for the last days days.
func (s *Service) AggregatedActivities(ctx context.Context, address string, days int) ([]stats.DailyActivity, error) {
	return s.stats.AggregatedActivities(ctx, scopeFor(address), days)
}

// EarningsByAddress returns nil when nothing has been minted.
func (s *Service) EarningsByAddress(ctx context.Context, address string) (*stats.Earnings, error) {
	return s.stats.Earnings(ctx, scopeFor(address), stats.Window{})
}

func (s *Service) GrossEarnings(ctx context.Context, address string) (decimal.Decimal, error) {
	return s.stats.GrossEarnings(ctx, scopeFor(address))
}

func (s *Service) SevenDayVolume(ctx context.Context, address string) (decimal.Decimal, error) {
	return s.stats.SevenDayVolume(ctx, scopeFor(address))
}

func (s *Service) SecondaryMarketStat(ctx context.Context, address string) (stats.MarketStat, error) {
	return s.stats.SecondaryMarketStat(ctx, strings.TrimSpace(address))
}

func scopeFor(address string) stats.Scope {
	return stats.ForAddress(strings.TrimSpace(address))
}
