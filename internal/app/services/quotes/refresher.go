package quotes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/nft_platform/internal/app/metrics"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	"github.com/R3E-Network/nft_platform/internal/app/system"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// Refresher warms the quote cache for every enabled coin on a cron schedule
// so request paths rarely wait on the provider.
type Refresher struct {
	coins    storage.ChainStore
	provider *CachedProvider
	schedule string
	timeout  time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewRefresher creates a lifecycle-managed refresher. schedule accepts any
// robfig/cron spec including descriptors such as "@every 5m".
func NewRefresher(coins storage.ChainStore, provider *CachedProvider, schedule string, log *logger.Logger) (*Refresher, error) {
	if log == nil {
		log = logger.NewDefault("quote-refresher")
	}
	schedule = strings.TrimSpace(schedule)
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid quote refresh schedule %q: %w", schedule, err)
	}
	return &Refresher{
		coins:    coins,
		provider: provider,
		schedule: schedule,
		timeout:  30 * time.Second,
		log:      log,
	}, nil
}

func (r *Refresher) Name() string { return "quote-refresher" }

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	runCtx, cancel := context.WithCancel(context.Background())
	if _, err := c.AddFunc(r.schedule, func() { r.RunOnce(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule quote refresh: %w", err)
	}
	c.Start()
	r.cron = c
	r.cancel = cancel

	r.log.WithField("schedule", r.schedule).Info("quote refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	c, cancel := r.cron, r.cancel
	r.cron, r.cancel = nil, nil
	r.mu.Unlock()
	if c == nil {
		return nil
	}

	cancel()
	done := c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	r.log.Info("quote refresher stopped")
	return nil
}

// RunOnce refreshes every enabled coin symbol and returns how many succeeded.
func (r *Refresher) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	coins, err := r.coins.ListCoins(ctx)
	if err != nil {
		r.log.WithError(err).Warn("quote refresh: list coins failed")
		metrics.RecordRefresh(false)
		return 0
	}

	seen := make(map[string]struct{})
	refreshed := 0
	failed := false
	for _, coin := range coins {
		symbol := strings.ToUpper(strings.TrimSpace(coin.Symbol))
		if !coin.Enabled || symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}

		if _, err := r.provider.Refresh(ctx, symbol); err != nil {
			failed = true
			r.log.WithError(err).WithField("symbol", symbol).Warn("quote refresh failed")
			continue
		}
		refreshed++
	}
	metrics.RecordRefresh(!failed)
	return refreshed
}
