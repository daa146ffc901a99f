// Package httpapi exposes the application services as a versioned REST API.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/nft_platform/internal/app"
	"github.com/R3E-Network/nft_platform/internal/app/metrics"
	"github.com/R3E-Network/nft_platform/internal/middleware"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Options configures the middleware chain.
type Options struct {
	AllowedOrigins []string
	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64
	RateBurst int
}

// publicPaths are served without a session.
var publicPaths = []string{
	"/healthz",
	"/metrics",
	"/v1/auth/createUserWithEmail",
	"/v1/auth/loginWithEmail",
	"/v1/auth/loginWithWallet",
	"/v1/auth/nonce",
}

// NewRouter returns the full HTTP surface. The returned rate limiter is nil
// when limiting is disabled.
func NewRouter(application *app.Application, opts Options, log *logger.Logger) (http.Handler, *middleware.RateLimiter) {
	if log == nil {
		log = logger.NewDefault("http")
	}
	h := &handler{app: application, log: log}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	router.Use(middleware.MetricsMiddleware())
	var limiter *middleware.RateLimiter
	if opts.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst, log.Named("ratelimit"))
		router.Use(limiter.Handler)
	}
	router.Use(middleware.NewAuthMiddleware(application.Auth, log.Named("auth-middleware"), publicPaths).Handler)

	v1 := router.PathPrefix("/v1").Subrouter()
	h.registerAuth(v1)
	h.registerUsers(v1)
	h.registerOrganizations(v1)
	h.registerCollections(v1)
	h.registerTiers(v1)
	h.registerChain(v1)
	h.registerRedeems(v1)

	router.NotFoundHandler = http.HandlerFunc(h.notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	var out http.Handler = router
	out = middleware.NewCORSMiddleware(opts.AllowedOrigins).Handler(out)
	out = middleware.NewTracingMiddleware(log).Handler(out)
	return out, limiter
}

func (h *handler) registerAuth(r *mux.Router) {
	r.HandleFunc("/auth/createUserWithEmail", h.createUserWithEmail).Methods(http.MethodPost)
	r.HandleFunc("/auth/loginWithEmail", h.loginWithEmail).Methods(http.MethodPost)
	r.HandleFunc("/auth/nonce", h.walletNonce).Methods(http.MethodPost)
	r.HandleFunc("/auth/loginWithWallet", h.loginWithWallet).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
}

func (h *handler) registerUsers(r *mux.Router) {
	r.Handle("/users/me", user(h.me)).Methods(http.MethodGet)
	r.Handle("/users/me", user(h.updateMe)).Methods(http.MethodPatch)

	r.Handle("/wallets", user(h.listWallets)).Methods(http.MethodGet)
	r.Handle("/wallets/bind", user(h.bindWallet)).Methods(http.MethodPost)
	r.Handle("/wallets/{address}", user(h.renameWallet)).Methods(http.MethodPatch)
	r.Handle("/wallets/{address}", user(h.unbindWallet)).Methods(http.MethodDelete)

	r.Handle("/referrals", user(h.recordReferral)).Methods(http.MethodPost)
	r.Handle("/referrals", user(h.listReferrals)).Methods(http.MethodGet)
}

func (h *handler) registerOrganizations(r *mux.Router) {
	r.Handle("/organizations", user(h.createOrganization)).Methods(http.MethodPost)
	r.Handle("/organizations", user(h.listOrganizations)).Methods(http.MethodGet)
	r.Handle("/organizations/{id}", user(h.getOrganization)).Methods(http.MethodGet)
	r.Handle("/organizations/{id}", user(h.updateOrganization)).Methods(http.MethodPatch)
	r.Handle("/organizations/{id}", user(h.deleteOrganization)).Methods(http.MethodDelete)
	r.Handle("/organizations/{id}/transfer", user(h.transferOrganization)).Methods(http.MethodPost)
	r.Handle("/organizations/{id}/stats", user(h.organizationStats)).Methods(http.MethodGet)
	r.Handle("/organizations/{id}/memberships", user(h.invite)).Methods(http.MethodPost)
	r.Handle("/organizations/{id}/memberships", user(h.listOrganizationMemberships)).Methods(http.MethodGet)

	r.Handle("/memberships", user(h.listMyMemberships)).Methods(http.MethodGet)
	r.Handle("/memberships/accept", user(h.acceptInvite)).Methods(http.MethodPost)
	r.Handle("/memberships/decline", user(h.declineInvite)).Methods(http.MethodPost)
	r.Handle("/memberships/{id}", user(h.getMembership)).Methods(http.MethodGet)
	r.Handle("/memberships/{id}", user(h.updateMembership)).Methods(http.MethodPatch)
	r.Handle("/memberships/{id}", user(h.removeMembership)).Methods(http.MethodDelete)
}

func (h *handler) registerCollections(r *mux.Router) {
	r.HandleFunc("/collections/precheck", h.precheck).Methods(http.MethodPost)
	r.Handle("/collections", user(h.createCollection)).Methods(http.MethodPost)
	r.HandleFunc("/collections", h.listCollections).Methods(http.MethodGet)
	r.HandleFunc("/collections/address/{address}", h.getCollectionByAddress).Methods(http.MethodGet)
	r.HandleFunc("/collections/{id}", h.getCollection).Methods(http.MethodGet)
	r.Handle("/collections/{id}", user(h.updateCollection)).Methods(http.MethodPatch)
	r.Handle("/collections/{id}", user(h.deleteCollection)).Methods(http.MethodDelete)
	r.Handle("/collections/{id}/publish", user(h.publishCollection)).Methods(http.MethodPost)

	r.HandleFunc("/collections/{address}/holders", h.collectionHolders).Methods(http.MethodGet)
	r.HandleFunc("/collections/{address}/holders/count", h.collectionHolderCount).Methods(http.MethodGet)
	r.HandleFunc("/collections/{address}/buyers", h.collectionBuyers).Methods(http.MethodGet)
	r.HandleFunc("/collections/{address}/activities", h.collectionActivities).Methods(http.MethodGet)
	r.HandleFunc("/collections/{address}/activities/aggregated", h.collectionAggregatedActivities).Methods(http.MethodGet)
	r.HandleFunc("/collections/{address}/earnings", h.collectionEarnings).Methods(http.MethodGet)
	r.HandleFunc("/collections/{address}/gross-earnings", h.collectionGrossEarnings).Methods(http.MethodGet)
	r.HandleFunc("/collections/{address}/seven-day-volume", h.collectionSevenDayVolume).Methods(http.MethodGet)
	r.HandleFunc("/collections/{address}/secondary-market", h.collectionSecondaryMarket).Methods(http.MethodGet)
}

func (h *handler) registerTiers(r *mux.Router) {
	r.Handle("/collections/{id}/tiers", user(h.createTier)).Methods(http.MethodPost)
	r.HandleFunc("/collections/{id}/tiers", h.listTiers).Methods(http.MethodGet)
	r.HandleFunc("/tiers/{id}", h.getTier).Methods(http.MethodGet)
	r.Handle("/tiers/{id}", user(h.updateTier)).Methods(http.MethodPatch)
	r.Handle("/tiers/{id}", user(h.deleteTier)).Methods(http.MethodDelete)
	r.HandleFunc("/tiers/{id}/profit", h.tierProfit).Methods(http.MethodGet)
	r.HandleFunc("/tiers/{id}/holders", h.tierHolders).Methods(http.MethodGet)
	r.HandleFunc("/tiers/{id}/holders/count", h.tierHolderCount).Methods(http.MethodGet)
	r.HandleFunc("/tiers/{id}/evaluate", h.evaluateTier).Methods(http.MethodPost)
}

func (h *handler) registerChain(r *mux.Router) {
	r.HandleFunc("/chain/coins", h.listCoins).Methods(http.MethodGet)
	r.HandleFunc("/chain/coins/{chainId}/{address}", h.getCoin).Methods(http.MethodGet)
	r.HandleFunc("/chain/contracts", h.listContracts).Methods(http.MethodGet)
	r.HandleFunc("/chain/contracts/{address}", h.getContract).Methods(http.MethodGet)
	r.HandleFunc("/chain/transactions", h.listTransactions).Methods(http.MethodGet)
	r.HandleFunc("/chain/assets", h.listAssets).Methods(http.MethodGet)
	r.HandleFunc("/chain/assets/{tokenAddress}/{tokenId}", h.getAsset).Methods(http.MethodGet)
}

func (h *handler) registerRedeems(r *mux.Router) {
	r.Handle("/redeems", user(h.createRedeem)).Methods(http.MethodPost)
	r.Handle("/redeems", user(h.listMyRedeems)).Methods(http.MethodGet)
	r.Handle("/redeems/{id}", user(h.getRedeem)).Methods(http.MethodGet)
	r.Handle("/redeems/{id}/complete", user(h.completeRedeem)).Methods(http.MethodPost)
	r.Handle("/redeems/{id}/cancel", user(h.cancelRedeem)).Methods(http.MethodPost)
	r.Handle("/collections/{id}/redeems", user(h.listCollectionRedeems)).Methods(http.MethodGet)
}

// user guards handlers that act on behalf of a user account.
func user(fn http.HandlerFunc) http.Handler {
	return middleware.RequireUserID(fn)
}
