package referrals

import (
	"context"
	"errors"
	"strings"

	"github.com/R3E-Network/nft_platform/internal/app/domain/referral"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

// Service records which user brought in which.
type Service struct {
	store storage.ReferralStore
	users storage.UserStore
	log   *logger.Logger
}

// New constructs a referral service.
func New(store storage.ReferralStore, userStore storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("referrals")
	}
	return &Service{store: store, users: userStore, log: log}
}

// Record attributes referredUserID to the owner of code. Users cannot refer
// themselves and are referred at most once.
func (s *Service) Record(ctx context.Context, code, referredUserID string) (referral.Referral, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return referral.Referral{}, apperrors.BadRequest("Referral code is required")
	}
	referrer, err := s.users.GetUserByReferralCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return referral.Referral{}, apperrors.BadRequest("Invalid referral code")
	}
	if err != nil {
		return referral.Referral{}, apperrors.Internal("failed to look up referral code", err)
	}
	if referrer.ID == referredUserID {
		return referral.Referral{}, apperrors.BadRequest("Users cannot refer themselves")
	}
	if _, err := s.store.GetReferralByReferred(ctx, referredUserID); err == nil {
		return referral.Referral{}, apperrors.BadRequest("User has already been referred")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return referral.Referral{}, apperrors.Internal("failed to look up referral", err)
	}

	r, err := s.store.CreateReferral(ctx, referral.Referral{
		ReferrerID:     referrer.ID,
		ReferredUserID: referredUserID,
		Code:           code,
	})
	if errors.Is(err, storage.ErrConflict) {
		return referral.Referral{}, apperrors.BadRequest("User has already been referred")
	}
	if err != nil {
		return referral.Referral{}, apperrors.InternalFor("create", "referral", referredUserID, err)
	}
	s.log.WithField("referrer_id", referrer.ID).WithField("user_id", referredUserID).Info("referral recorded")
	return r, nil
}

// ListByReferrer returns the referrals credited to referrerID.
func (s *Service) ListByReferrer(ctx context.Context, referrerID string) ([]referral.Referral, error) {
	out, err := s.store.ListReferralsByReferrer(ctx, referrerID)
	if err != nil {
		return nil, apperrors.Internal("failed to list referrals", err)
	}
	return out, nil
}

func (s *Service) Count(ctx context.Context, referrerID string) (int, error) {
	out, err := s.ListByReferrer(ctx, referrerID)
	return len(out), err
}
