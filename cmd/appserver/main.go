// Command appserver runs the NFT platform REST API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	app "github.com/R3E-Network/nft_platform/internal/app"
	"github.com/R3E-Network/nft_platform/internal/app/httpapi"
	"github.com/R3E-Network/nft_platform/internal/app/services/quotes"
	"github.com/R3E-Network/nft_platform/internal/app/storage/postgres"
	"github.com/R3E-Network/nft_platform/internal/app/storage/redis"
	"github.com/R3E-Network/nft_platform/internal/config"
	"github.com/R3E-Network/nft_platform/internal/platform/migrations"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

const rateLimiterCleanupInterval = 5 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "appserver: load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging).Named("appserver")

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("appserver stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	var stores app.Stores

	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		db, err := openDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.Database.MigrateOnStart {
			if err := migrations.Up(db); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			log.Info("database migrations applied")
		}
		pg := postgres.New(db)
		stores.Users = pg
		stores.Wallets = pg
		stores.Organizations = pg
		stores.Memberships = pg
		stores.Collections = pg
		stores.Tiers = pg
		stores.Chain = pg
		stores.Redeems = pg
		stores.Referrals = pg
	} else {
		log.Warn("database.dsn not set; using in-memory storage")
	}

	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		rdb, err := redis.Dial(ctx, redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		stores.Sessions = rdb
		stores.Nonces = rdb
		stores.Quotes = rdb
	} else {
		log.Warn("redis.addr not set; sessions and quotes kept in process memory")
	}

	opts := app.Options{
		JWTSecret:     []byte(cfg.Auth.JWTSecret),
		InviteSecret:  []byte(cfg.Auth.InviteSecret),
		Issuer:        cfg.Auth.Issuer,
		SessionTTL:    cfg.Auth.SessionTTL,
		QuoteCacheTTL: cfg.Quotes.CacheTTL,
		QuoteSchedule: cfg.Quotes.Schedule,
	}
	if strings.TrimSpace(cfg.Quotes.APIKey) != "" {
		client, err := quotes.NewCoinMarketCapClient(quotes.CoinMarketCapConfig{
			BaseURL: cfg.Quotes.BaseURL,
			APIKey:  cfg.Quotes.APIKey,
			Timeout: cfg.Quotes.Timeout,
		}, log.Named("coinmarketcap"))
		if err != nil {
			return fmt.Errorf("configure quote provider: %w", err)
		}
		opts.QuoteProvider = client
	} else {
		log.Warn("quotes.api_key not set; USD conversion limited to stored coin rates")
	}

	application, err := app.New(stores, opts, log.Named("app"))
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	handler, limiter := httpapi.NewRouter(application, httpapi.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
	}, log.Named("http"))
	if limiter != nil {
		limiter.StartCleanup(ctx, rateLimiterCleanupInterval)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("http server listening")
		serveErr <- server.ListenAndServe()
	}()

	var result error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			result = fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop")
	}
	return result
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
