// Package redis keeps short lived state (sessions, sign-in nonces and quotes)
// in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
)

const (
	sessionPrefix = "nft:session:"
	noncePrefix   = "nft:nonce:"
	quotePrefix   = "nft:quote:"
)

// Store implements storage.SessionStore, storage.NonceStore and
// storage.QuoteCache.
type Store struct {
	client goredis.UniversalClient
}

var _ storage.SessionStore = (*Store)(nil)
var _ storage.NonceStore = (*Store)(nil)
var _ storage.QuoteCache = (*Store)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New wraps an existing client.
func New(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return New(client), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) PutSession(ctx context.Context, tokenHash string, session user.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionPrefix+tokenHash, payload, ttl).Err()
}

func (s *Store) GetSession(ctx context.Context, tokenHash string) (user.Session, error) {
	raw, err := s.client.Get(ctx, sessionPrefix+tokenHash).Bytes()
	if errors.Is(err, goredis.Nil) {
		return user.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return user.Session{}, err
	}
	var session user.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return user.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	return s.client.Del(ctx, sessionPrefix+tokenHash).Err()
}

func (s *Store) PutNonce(ctx context.Context, address, nonce string, ttl time.Duration) error {
	return s.client.Set(ctx, nonceKey(address, nonce), "1", ttl).Err()
}

func (s *Store) ConsumeNonce(ctx context.Context, address, nonce string) (bool, error) {
	n, err := s.client.Del(ctx, nonceKey(address, nonce)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func nonceKey(address, nonce string) string {
	return noncePrefix + strings.ToLower(address) + ":" + nonce
}

func (s *Store) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	raw, err := s.client.Get(ctx, quoteKey(symbol)).Result()
	if errors.Is(err, goredis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("decode quote %s: %w", symbol, err)
	}
	return price, true, nil
}

func (s *Store) SetQuote(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration) error {
	return s.client.Set(ctx, quoteKey(symbol), price.String(), ttl).Err()
}

func quoteKey(symbol string) string {
	return quotePrefix + strings.ToUpper(symbol)
}
