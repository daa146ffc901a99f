package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/nft_platform/internal/app/domain/redeem"
)

const redeemColumns = `id, collection_id, token_id, wallet_address, user_id, email, name, address, status, created_at, updated_at`

// --- RedeemStore ------------------------------------------------------------

func (s *Store) CreateRedeem(ctx context.Context, r redeem.Request) (redeem.Request, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO app_redeems (`+redeemColumns+`)
		VALUES (:id, :collection_id, :token_id, :wallet_address, :user_id, :email, :name, :address, :status, :created_at, :updated_at)
	`, r)
	if err != nil {
		return redeem.Request{}, mapError(err)
	}
	return r, nil
}

func (s *Store) UpdateRedeem(ctx context.Context, r redeem.Request) (redeem.Request, error) {
	existing, err := s.GetRedeem(ctx, r.ID)
	if err != nil {
		return redeem.Request{}, err
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE app_redeems
		SET email = :email, name = :name, address = :address, status = :status, updated_at = :updated_at
		WHERE id = :id
	`, r)
	if err != nil {
		return redeem.Request{}, mapError(err)
	}
	if err := expectAffected(res); err != nil {
		return redeem.Request{}, err
	}
	return r, nil
}

func (s *Store) GetRedeem(ctx context.Context, id string) (redeem.Request, error) {
	var r redeem.Request
	if err := s.db.GetContext(ctx, &r, `SELECT `+redeemColumns+` FROM app_redeems WHERE id = $1`, id); err != nil {
		return redeem.Request{}, mapError(err)
	}
	return r, nil
}

func (s *Store) ListRedeemsByCollection(ctx context.Context, collectionID string) ([]redeem.Request, error) {
	return s.listRedeems(ctx, `WHERE collection_id = $1`, collectionID)
}

func (s *Store) ListRedeemsByUser(ctx context.Context, userID string) ([]redeem.Request, error) {
	return s.listRedeems(ctx, `WHERE user_id = $1`, userID)
}

func (s *Store) ListRedeemsByToken(ctx context.Context, collectionID, tokenID string) ([]redeem.Request, error) {
	return s.listRedeems(ctx, `WHERE collection_id = $1 AND token_id = $2`, collectionID, tokenID)
}

func (s *Store) listRedeems(ctx context.Context, where string, args ...interface{}) ([]redeem.Request, error) {
	var out []redeem.Request
	if err := s.db.SelectContext(ctx, &out, `SELECT `+redeemColumns+` FROM app_redeems `+where+` ORDER BY created_at, id`, args...); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}
