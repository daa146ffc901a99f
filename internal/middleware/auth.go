package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
	"github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/internal/httputil"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Authenticator resolves a bearer token to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.Session, error)
}

// AuthMiddleware requires a valid bearer session on every path except the
// public ones.
type AuthMiddleware struct {
	auth         Authenticator
	logger       *logger.Logger
	skipPaths    map[string]bool
	skipPrefixes []string
}

// NewAuthMiddleware creates the middleware. Entries of skipPaths ending in
// "/" are treated as prefixes.
func NewAuthMiddleware(auth Authenticator, log *logger.Logger, skipPaths []string) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth-middleware")
	}
	m := &AuthMiddleware{auth: auth, logger: log, skipPaths: make(map[string]bool)}
	for _, p := range skipPaths {
		if strings.HasSuffix(p, "/") {
			m.skipPrefixes = append(m.skipPrefixes, p)
			continue
		}
		m.skipPaths[p] = true
	}
	return m
}

func (m *AuthMiddleware) skip(r *http.Request) bool {
	if r.Method == http.MethodOptions || m.skipPaths[r.URL.Path] {
		return true
	}
	for _, p := range m.skipPrefixes {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondError(w, r, errors.Unauthorized("Missing Authorization header"))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			m.respondError(w, r, errors.Unauthorized("Invalid Authorization header format"))
			return
		}
		token := strings.TrimSpace(parts[1])

		session, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		ctx := WithSession(r.Context(), session, token)
		m.logger.WithField("trace_id", TraceID(ctx)).
			WithField("user_id", session.UserID).
			WithField("wallet", session.WalletAddress).
			Debug("authentication successful")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("Authentication failed", err)
	}
	m.logger.WithError(err).
		WithField("trace_id", TraceID(r.Context())).
		WithField("path", r.URL.Path).
		WithField("method", r.Method).
		WithField("status", serviceErr.HTTPStatus).
		Warn("authentication failed")
	httputil.WriteError(w, serviceErr)
}

// RequireUserID rejects sessions that are not linked to a user, such as
// logins with an unbound wallet.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			httputil.WriteError(w, errors.Forbidden("A user account is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
