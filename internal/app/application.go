package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/nft_platform/internal/app/services/auth"
	chainsvc "github.com/R3E-Network/nft_platform/internal/app/services/chain"
	"github.com/R3E-Network/nft_platform/internal/app/services/collections"
	"github.com/R3E-Network/nft_platform/internal/app/services/memberships"
	"github.com/R3E-Network/nft_platform/internal/app/services/organizations"
	"github.com/R3E-Network/nft_platform/internal/app/services/quotes"
	"github.com/R3E-Network/nft_platform/internal/app/services/redeems"
	"github.com/R3E-Network/nft_platform/internal/app/services/referrals"
	"github.com/R3E-Network/nft_platform/internal/app/services/stats"
	"github.com/R3E-Network/nft_platform/internal/app/services/tiers"
	"github.com/R3E-Network/nft_platform/internal/app/services/users"
	"github.com/R3E-Network/nft_platform/internal/app/services/wallets"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	"github.com/R3E-Network/nft_platform/internal/app/storage/memory"
	"github.com/R3E-Network/nft_platform/internal/app/system"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users         storage.UserStore
	Wallets       storage.WalletStore
	Organizations storage.OrganizationStore
	Memberships   storage.MembershipStore
	Collections   storage.CollectionStore
	Tiers         storage.TierStore
	Chain         storage.ChainStore
	Redeems       storage.RedeemStore
	Referrals     storage.ReferralStore
	Sessions      storage.SessionStore
	Nonces        storage.NonceStore
	Quotes        storage.QuoteCache
}

// Options carries the secrets and tuning the services need.
type Options struct {
	JWTSecret    []byte
	InviteSecret []byte
	Issuer       string
	SessionTTL   time.Duration

	// QuoteProvider is the upstream USD price source. Nil leaves the stats
	// engine with stored coin rates only and disables the refresher.
	QuoteProvider quotes.Provider
	QuoteCacheTTL time.Duration
	// QuoteSchedule is a cron spec; empty disables periodic refresh.
	QuoteSchedule string

	// Now overrides the clock of the time-sensitive services.
	Now func() time.Time
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Users         *users.Service
	Auth          *auth.Service
	Wallets       *wallets.Service
	Organizations *organizations.Service
	Memberships   *memberships.Service
	Collections   *collections.Service
	Tiers         *tiers.Service
	Chain         *chainsvc.Service
	Redeems       *redeems.Service
	Referrals     *referrals.Service
	Stats         *stats.Engine
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if len(opts.JWTSecret) == 0 {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if len(opts.InviteSecret) == 0 {
		opts.InviteSecret = opts.JWTSecret
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Wallets == nil {
		stores.Wallets = mem
	}
	if stores.Organizations == nil {
		stores.Organizations = mem
	}
	if stores.Memberships == nil {
		stores.Memberships = mem
	}
	if stores.Collections == nil {
		stores.Collections = mem
	}
	if stores.Tiers == nil {
		stores.Tiers = mem
	}
	if stores.Chain == nil {
		stores.Chain = mem
	}
	if stores.Redeems == nil {
		stores.Redeems = mem
	}
	if stores.Referrals == nil {
		stores.Referrals = mem
	}
	if stores.Sessions == nil {
		stores.Sessions = mem
	}
	if stores.Nonces == nil {
		stores.Nonces = mem
	}
	if stores.Quotes == nil {
		stores.Quotes = mem
	}

	manager := system.NewManager()

	var cached *quotes.CachedProvider
	var provider quotes.Provider
	if opts.QuoteProvider != nil {
		cached = quotes.NewCachedProvider(opts.QuoteProvider, stores.Quotes, opts.QuoteCacheTTL, log.Named("quotes"))
		provider = cached
	} else {
		log.Warn("no quote provider configured; USD values use stored coin rates only")
	}

	engine := stats.New(stores.Chain, provider, log.Named("stats"))
	usersService := users.New(stores.Users, log.Named("users"))
	walletsService := wallets.New(stores.Wallets, stores.Nonces, log.Named("wallets"))
	authService := auth.New(usersService, walletsService, stores.Sessions, auth.Config{
		Secret:     opts.JWTSecret,
		Issuer:     opts.Issuer,
		SessionTTL: opts.SessionTTL,
	}, log.Named("auth"))
	membershipService := memberships.New(stores.Memberships, stores.Organizations, stores.Users, opts.InviteSecret, log.Named("memberships"))
	orgService := organizations.New(stores.Organizations, stores.Collections, stores.Users, membershipService, engine, log.Named("organizations"))
	collectionService := collections.New(stores.Collections, stores.Organizations, membershipService, engine, log.Named("collections"))
	tierService := tiers.New(stores.Tiers, stores.Collections, membershipService, engine, log.Named("tiers"))
	chainService := chainsvc.New(stores.Chain, log.Named("chain"))
	redeemService := redeems.New(stores.Redeems, stores.Collections, stores.Chain, stores.Wallets, membershipService, log.Named("redeems"))
	referralService := referrals.New(stores.Referrals, stores.Users, log.Named("referrals"))

	if opts.Now != nil {
		engine.WithClock(opts.Now)
		authService.WithClock(opts.Now)
		walletsService.WithClock(opts.Now)
		membershipService.WithClock(opts.Now)
		collectionService.WithClock(opts.Now)
	}

	schedule := strings.TrimSpace(opts.QuoteSchedule)
	switch {
	case cached == nil:
	case schedule == "":
		log.Warn("quote schedule not set; quote refresher disabled")
	default:
		refresher, err := quotes.NewRefresher(stores.Chain, cached, schedule, log.Named("quote-refresher"))
		if err != nil {
			return nil, fmt.Errorf("configure quote refresher: %w", err)
		}
		if err := manager.Register(refresher); err != nil {
			return nil, fmt.Errorf("register %s: %w", refresher.Name(), err)
		}
	}

	return &Application{
		manager:       manager,
		log:           log,
		Users:         usersService,
		Auth:          authService,
		Wallets:       walletsService,
		Organizations: orgService,
		Memberships:   membershipService,
		Collections:   collectionService,
		Tiers:         tierService,
		Chain:         chainService,
		Redeems:       redeemService,
		Referrals:     referralService,
		Stats:         engine,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Services lists the registered lifecycle services in start order.
func (a *Application) Services() []system.Service {
	return a.manager.Services()
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	a.log.WithField("services", len(a.manager.Services())).Info("starting application")
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
