package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Service manages platform accounts.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// CreateInput carries the fields accepted at sign-up. PasswordHash is
// already hashed by the caller.
type CreateInput struct {
	Email        string
	Username     string
	PasswordHash string
	DisplayName  string
}

// UpdateInput is a partial profile update; nil fields are left unchanged.
type UpdateInput struct {
	Username    *string
	DisplayName *string
	AvatarURL   *string
	Bio         *string
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers a user. Email and username must be unique regardless of case.
func (s *Service) Create(ctx context.Context, in CreateInput) (user.User, error) {
	email := NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || !strings.Contains(email, "@") {
		return user.User{}, apperrors.BadRequest("A valid email is required")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return user.User{}, apperrors.BadRequest(apperrors.MsgEmailExists)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, apperrors.Internal("failed to look up user by email", err)
	}
	if username != "" {
		if err := s.ensureUsernameFree(ctx, username, ""); err != nil {
			return user.User{}, err
		}
	}

	u := user.User{
		Email:        email,
		Username:     username,
		PasswordHash: in.PasswordHash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		ReferralCode: newReferralCode(),
	}
	created, err := s.store.CreateUser(ctx, u)
	if errors.Is(err, storage.ErrConflict) {
		// lost a race against a concurrent sign-up
		return user.User{}, apperrors.BadRequest(apperrors.MsgEmailExists)
	}
	if err != nil {
		return user.User{}, apperrors.Internal("failed to create user", err)
	}
	s.log.WithField("user_id", created.ID).Info("user created")
	return created, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, notFoundOr(err, "user", id)
	}
	return u, nil
}

// GetByEmail looks a user up case-insensitively.
func (s *Service) GetByEmail(ctx context.Context, email string) (user.User, error) {
	email = NormalizeEmail(email)
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return user.User{}, notFoundOr(err, "user", email)
	}
	return u, nil
}

// GetByReferralCode resolves a referral code to its owner.
func (s *Service) GetByReferralCode(ctx context.Context, code string) (user.User, error) {
	code = strings.TrimSpace(code)
	u, err := s.store.GetUserByReferralCode(ctx, code)
	if err != nil {
		return user.User{}, notFoundOr(err, "referral code", code)
	}
	return u, nil
}

// Update applies a partial profile update.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (user.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return user.User{}, apperrors.BadRequest("username cannot be empty")
		}
		if !strings.EqualFold(username, u.Username) {
			if err := s.ensureUsernameFree(ctx, username, u.ID); err != nil {
				return user.User{}, err
			}
		}
		u.Username = username
	}
	if in.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}

	updated, err := s.store.UpdateUser(ctx, u)
	if errors.Is(err, storage.ErrConflict) {
		return user.User{}, apperrors.BadRequest(apperrors.MsgUsernameExists)
	}
	if err != nil {
		return user.User{}, apperrors.InternalFor("update", "user", id, err)
	}
	s.log.WithField("user_id", id).Info("user updated")
	return updated, nil
}

// SetPasswordHash replaces the stored password hash.
func (s *Service) SetPasswordHash(ctx context.Context, id, hash string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if _, err := s.store.UpdateUser(ctx, u); err != nil {
		return apperrors.InternalFor("update", "user", id, err)
	}
	return nil
}

// List returns every user.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	out, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to list users", err)
	}
	return out, nil
}

func (s *Service) ensureUsernameFree(ctx context.Context, username, selfID string) error {
	existing, err := s.store.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return apperrors.Internal("failed to look up user by username", err)
	case existing.ID != selfID:
		return apperrors.BadRequest(apperrors.MsgUsernameExists)
	}
	return nil
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NotFound(resource, id)
	}
	return apperrors.InternalFor("get", resource, id, err)
}
