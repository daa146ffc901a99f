package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/nft_platform/internal/app/domain/referral"
	"github.com/R3E-Network/nft_platform/internal/app/domain/user"
	"github.com/R3E-Network/nft_platform/internal/app/domain/wallet"
)

const userColumns = `id, email, username, password_hash, display_name, avatar_url, bio, referral_code, created_at, updated_at`

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO app_users (`+userColumns+`)
		VALUES (:id, :email, :username, :password_hash, :display_name, :avatar_url, :bio, :referral_code, :created_at, :updated_at)
	`, u)
	if err != nil {
		return user.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE app_users
		SET email = :email, username = :username, password_hash = :password_hash,
		    display_name = :display_name, avatar_url = :avatar_url, bio = :bio, updated_at = :updated_at
		WHERE id = :id
	`, u)
	if err != nil {
		return user.User{}, mapError(err)
	}
	if err := expectAffected(res); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.getUser(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.getUser(ctx, `WHERE username <> '' AND lower(username) = lower($1)`, username)
}

func (s *Store) GetUserByReferralCode(ctx context.Context, code string) (user.User, error) {
	return s.getUser(ctx, `WHERE referral_code <> '' AND referral_code = $1`, code)
}

func (s *Store) getUser(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var u user.User
	if err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM app_users `+where, arg); err != nil {
		return user.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	var out []user.User
	if err := s.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM app_users ORDER BY created_at, id`); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// --- WalletStore ------------------------------------------------------------

const walletColumns = `id, address, owner_id, name, created_at, updated_at`

func (s *Store) CreateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO app_wallets (`+walletColumns+`)
		VALUES (:id, :address, :owner_id, :name, :created_at, :updated_at)
	`, w)
	if err != nil {
		return wallet.Wallet{}, mapError(err)
	}
	return w, nil
}

func (s *Store) UpdateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	existing, err := s.GetWallet(ctx, w.ID)
	if err != nil {
		return wallet.Wallet{}, err
	}
	w.Address = existing.Address
	w.CreatedAt = existing.CreatedAt
	w.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE app_wallets SET owner_id = :owner_id, name = :name, updated_at = :updated_at
		WHERE id = :id
	`, w)
	if err != nil {
		return wallet.Wallet{}, mapError(err)
	}
	if err := expectAffected(res); err != nil {
		return wallet.Wallet{}, err
	}
	return w, nil
}

func (s *Store) GetWallet(ctx context.Context, id string) (wallet.Wallet, error) {
	var w wallet.Wallet
	if err := s.db.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM app_wallets WHERE id = $1`, id); err != nil {
		return wallet.Wallet{}, mapError(err)
	}
	return w, nil
}

func (s *Store) GetWalletByAddress(ctx context.Context, address string) (wallet.Wallet, error) {
	var w wallet.Wallet
	if err := s.db.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM app_wallets WHERE lower(address) = lower($1)`, address); err != nil {
		return wallet.Wallet{}, mapError(err)
	}
	return w, nil
}

func (s *Store) ListWalletsByOwner(ctx context.Context, ownerID string) ([]wallet.Wallet, error) {
	var out []wallet.Wallet
	if err := s.db.SelectContext(ctx, &out, `SELECT `+walletColumns+` FROM app_wallets WHERE owner_id = $1 ORDER BY address`, ownerID); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// --- ReferralStore ----------------------------------------------------------

func (s *Store) CreateReferral(ctx context.Context, r referral.Referral) (referral.Referral, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO app_referrals (id, referrer_id, referred_user_id, code, created_at)
		VALUES (:id, :referrer_id, :referred_user_id, :code, :created_at)
	`, r)
	if err != nil {
		return referral.Referral{}, mapError(err)
	}
	return r, nil
}

func (s *Store) GetReferralByReferred(ctx context.Context, userID string) (referral.Referral, error) {
	var r referral.Referral
	err := s.db.GetContext(ctx, &r, `
		SELECT id, referrer_id, referred_user_id, code, created_at
		FROM app_referrals WHERE referred_user_id = $1
	`, userID)
	if err != nil {
		return referral.Referral{}, mapError(err)
	}
	return r, nil
}

func (s *Store) ListReferralsByReferrer(ctx context.Context, referrerID string) ([]referral.Referral, error) {
	var out []referral.Referral
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, referrer_id, referred_user_id, code, created_at
		FROM app_referrals WHERE referrer_id = $1 ORDER BY created_at, id
	`, referrerID)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}
