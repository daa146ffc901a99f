package organizations

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/nft_platform/internal/app/services/stats"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
)

const day = 24 * time.Hour

// WindowStats summarises sales over one period.
type WindowStats struct {
	Buyers       int             `json:"buyers"`
	Transactions int             `json:"transactions"`
	EarningsUSD  decimal.Decimal `json:"earningsUsd"`
}

// Stats is the dashboard summary of an organization.
type Stats struct {
	Collections          int         `json:"collections"`
	PublishedCollections int         `json:"publishedCollections"`
	DraftCollections     int         `json:"draftCollections"`
	Daily                WindowStats `json:"daily"`
	Weekly               WindowStats `json:"weekly"`
	Monthly              WindowStats `json:"monthly"`
	LastNDays            int         `json:"lastNDays"`
	LastN                WindowStats `json:"lastN"`
	AllTime              WindowStats `json:"allTime"`
}

// Stats computes collection counts and sales windows ending at the current
// clock. lastNDays defaults to 7.
func (s *Service) Stats(ctx context.Context, id string, lastNDays int) (Stats, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Stats{}, err
	}
	if lastNDays <= 0 {
		lastNDays = 7
	}
	if lastNDays > 365 {
		lastNDays = 365
	}
	cols, err := s.collections.ListCollections(ctx, storage.CollectionFilter{OrganizationID: id})
	if err != nil {
		return Stats{}, apperrors.Internal("failed to list collections", err)
	}

	out := Stats{Collections: len(cols), LastNDays: lastNDays}
	scope := stats.Scope{}
	for _, c := range cols {
		if c.Published() {
			out.PublishedCollections++
		} else {
			out.DraftCollections++
		}
		if c.Address != "" {
			scope.TokenAddresses = append(scope.TokenAddresses, c.Address)
		}
	}

	now := s.now()
	windows := []struct {
		dst   *WindowStats
		since time.Time
	}{
		{&out.Daily, now.Add(-day)},
		{&out.Weekly, now.Add(-7 * day)},
		{&out.Monthly, now.Add(-30 * day)},
		{&out.LastN, now.Add(-time.Duration(lastNDays) * day)},
		{&out.AllTime, time.Time{}},
	}
	for _, w := range windows {
		ws, err := s.window(ctx, scope, stats.Window{Since: w.since})
		if err != nil {
			return Stats{}, err
		}
		*w.dst = ws
	}
	return out, nil
}

func (s *Service) window(ctx context.Context, scope stats.Scope, w stats.Window) (WindowStats, error) {
	out := WindowStats{EarningsUSD: decimal.Zero}
	earnings, err := s.stats.Earnings(ctx, scope, w)
	if err != nil {
		return WindowStats{}, err
	}
	if earnings != nil {
		out.EarningsUSD = earnings.TotalUSD
		out.Transactions = earnings.Transactions
	}
	buyers, err := s.stats.Buyers(ctx, scope, w)
	if err != nil {
		return WindowStats{}, err
	}
	out.Buyers = len(buyers)
	return out, nil
}
