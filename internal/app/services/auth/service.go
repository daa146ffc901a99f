package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
	"github.com/R3E-Network/nft_platform/internal/app/domain/wallet"
	"github.com/R3E-Network/nft_platform/internal/app/services/users"
	"github.com/R3E-Network/nft_platform/internal/app/services/wallets"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

const minPasswordLength = 8

// Config controls token signing.
type Config struct {
	Secret     []byte
	Issuer     string
	SessionTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Result is returned by every login flow.
type Result struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      *user.User     `json:"user,omitempty"`
	Wallet    *wallet.Wallet `json:"wallet,omitempty"`
}

type sessionClaims struct {
	Wallet string `json:"wal,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies session tokens.
type Service struct {
	users    *users.Service
	wallets  *wallets.Service
	sessions storage.SessionStore
	cfg      Config
	now      func() time.Time
	log      *logger.Logger
}

// New constructs the auth service.
func New(usersSvc *users.Service, walletsSvc *wallets.Service, sessions storage.SessionStore, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:    usersSvc,
		wallets:  walletsSvc,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// HashPassword bcrypt-hashes a password after checking its length.
func (s *Service) HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", apperrors.BadRequestf("Password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", apperrors.Internal("failed to hash password", err)
	}
	return string(hash), nil
}

// CreateUserWithEmail signs up a user and opens a session.
func (s *Service) CreateUserWithEmail(ctx context.Context, email, password, username string) (Result, error) {
	hash, err := s.HashPassword(password)
	if err != nil {
		return Result{}, err
	}
	u, err := s.users.Create(ctx, users.CreateInput{Email: email, Username: username, PasswordHash: hash})
	if err != nil {
		return Result{}, err
	}
	return s.issue(ctx, &u, nil)
}

// LoginWithEmail checks credentials. Unknown emails and wrong passwords
// produce the same error.
func (s *Service) LoginWithEmail(ctx context.Context, email, password string) (Result, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return Result{}, apperrors.Unauthorized(apperrors.MsgInvalidCredentials)
		}
		return Result{}, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.log.WithField("user_id", u.ID).Warn("password login rejected")
		return Result{}, apperrors.Unauthorized(apperrors.MsgInvalidCredentials)
	}
	return s.issue(ctx, &u, nil)
}

// WalletChallenge issues the nonce message a wallet signs to log in.
func (s *Service) WalletChallenge(ctx context.Context, address string) (wallets.Challenge, error) {
	return s.wallets.IssueChallenge(ctx, address)
}

// LoginWithWallet redeems a signed challenge and opens a session for the
// wallet, registering it on first use. A bound wallet logs in its owner.
func (s *Service) LoginWithWallet(ctx context.Context, address, message, signature string) (Result, error) {
	if err := s.wallets.RedeemChallenge(ctx, address, message, signature); err != nil {
		s.log.WithError(err).WithField("address", address).Warn("wallet login rejected")
		return Result{}, wallets.ChallengeError(err, apperrors.Unauthorized)
	}
	w, err := s.wallets.GetOrCreate(ctx, address)
	if err != nil {
		return Result{}, err
	}
	var owner *user.User
	if w.OwnerID != nil {
		u, err := s.users.Get(ctx, *w.OwnerID)
		if err != nil {
			return Result{}, err
		}
		owner = &u
	}
	return s.issue(ctx, owner, &w)
}

// Logout revokes the session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteSession(ctx, HashToken(token)); err != nil {
		return apperrors.Internal("failed to delete session", err)
	}
	return nil
}

// Authenticate verifies the token signature and that its session is live.
func (s *Service) Authenticate(ctx context.Context, token string) (user.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Session{}, apperrors.Unauthorized("")
	}
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.cfg.Issuer))
	if err != nil {
		return user.Session{}, apperrors.InvalidToken(err)
	}

	session, err := s.sessions.GetSession(ctx, HashToken(token))
	if errors.Is(err, storage.ErrNotFound) {
		return user.Session{}, apperrors.InvalidToken(errors.New("session revoked"))
	}
	if err != nil {
		return user.Session{}, apperrors.Internal("failed to load session", err)
	}
	if session.Expired(s.now()) {
		return user.Session{}, apperrors.InvalidToken(errors.New("session expired"))
	}
	return session, nil
}

func (s *Service) issue(ctx context.Context, u *user.User, w *wallet.Wallet) (Result, error) {
	now := s.now().UTC()
	expires := now.Add(s.cfg.SessionTTL)

	session := user.Session{IssuedAt: now, ExpiresAt: expires}
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if u != nil {
		session.UserID = u.ID
		claims.Subject = u.ID
	}
	if w != nil {
		session.WalletAddress = w.Address
		claims.Wallet = w.Address
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return Result{}, apperrors.Internal("failed to sign session token", err)
	}
	if err := s.sessions.PutSession(ctx, HashToken(token), session, s.cfg.SessionTTL); err != nil {
		return Result{}, apperrors.Internal("failed to store session", err)
	}
	s.log.WithField("user_id", session.UserID).WithField("wallet", session.WalletAddress).Info("session issued")
	return Result{Token: token, ExpiresAt: expires, User: u, Wallet: w}, nil
}

// HashToken is the session store key for a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
