// Package middleware provides the HTTP middleware chain of the API server.
package middleware

import (
	"context"

	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
)

type contextKey int

const (
	traceIDKey contextKey = iota
	sessionKey
	tokenKey
)

// WithTraceID stores the request trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID returns the request trace id, if any.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// WithSession stores the authenticated session and its bearer token.
func WithSession(ctx context.Context, session user.Session, token string) context.Context {
	ctx = context.WithValue(ctx, sessionKey, session)
	return context.WithValue(ctx, tokenKey, token)
}

// SessionFrom returns the authenticated session.
func SessionFrom(ctx context.Context) (user.Session, bool) {
	s, ok := ctx.Value(sessionKey).(user.Session)
	return s, ok
}

// GetUserID returns the authenticated user id, empty for anonymous requests
// and wallet-only sessions.
func GetUserID(ctx context.Context) string {
	s, _ := SessionFrom(ctx)
	return s.UserID
}

// BearerToken returns the raw token the session was authenticated with.
func BearerToken(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}
