package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/nft_platform/internal/app/domain/collection"
	"github.com/R3E-Network/nft_platform/internal/app/storage"
)

const collectionColumns = `id, organization_id, creator_id, name, description, kind, address, chain_id, begin_sale_at, end_sale_at, published_at, created_at, updated_at`

// --- CollectionStore --------------------------------------------------------

func (s *Store) CreateCollection(ctx context.Context, c collection.Collection) (collection.Collection, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO app_collections (`+collectionColumns+`)
		VALUES (:id, :organization_id, :creator_id, :name, :description, :kind, :address, :chain_id,
		        :begin_sale_at, :end_sale_at, :published_at, :created_at, :updated_at)
	`, c)
	if err != nil {
		return collection.Collection{}, mapError(err)
	}
	return c, nil
}

func (s *Store) UpdateCollection(ctx context.Context, c collection.Collection) (collection.Collection, error) {
	existing, err := s.GetCollection(ctx, c.ID)
	if err != nil {
		return collection.Collection{}, err
	}
	c.OrganizationID = existing.OrganizationID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE app_collections
		SET creator_id = :creator_id, name = :name, description = :description, kind = :kind, address = :address,
		    chain_id = :chain_id, begin_sale_at = :begin_sale_at, end_sale_at = :end_sale_at,
		    published_at = :published_at, updated_at = :updated_at
		WHERE id = :id
	`, c)
	if err != nil {
		return collection.Collection{}, mapError(err)
	}
	if err := expectAffected(res); err != nil {
		return collection.Collection{}, err
	}
	return c, nil
}

func (s *Store) GetCollection(ctx context.Context, id string) (collection.Collection, error) {
	var c collection.Collection
	if err := s.db.GetContext(ctx, &c, `SELECT `+collectionColumns+` FROM app_collections WHERE id = $1`, id); err != nil {
		return collection.Collection{}, mapError(err)
	}
	return c, nil
}

func (s *Store) GetCollectionByAddress(ctx context.Context, address string) (collection.Collection, error) {
	var c collection.Collection
	err := s.db.GetContext(ctx, &c, `SELECT `+collectionColumns+` FROM app_collections WHERE address <> '' AND lower(address) = lower($1)`, address)
	if err != nil {
		return collection.Collection{}, mapError(err)
	}
	return c, nil
}

func (s *Store) ListCollections(ctx context.Context, filter storage.CollectionFilter) ([]collection.Collection, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if filter.OrganizationID != "" {
		args = append(args, filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if filter.Published != nil {
		if *filter.Published {
			clauses = append(clauses, "published_at IS NOT NULL")
		} else {
			clauses = append(clauses, "published_at IS NULL")
		}
	}
	query := `SELECT ` + collectionColumns + ` FROM app_collections`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"

	var out []collection.Collection
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_collections WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res)
}

// --- TierStore --------------------------------------------------------------

const tierColumns = `id, collection_id, name, description, tier_id, price, payment_token_address, total_mints, image_url, metadata, created_at, updated_at`

// tierRow scans metadata through []byte so a NULL column maps to nil.
type tierRow struct {
	collection.Tier
	Metadata []byte `db:"metadata"`
}

func newTierRow(t collection.Tier) tierRow {
	row := tierRow{Tier: t}
	if len(t.Metadata) > 0 {
		row.Metadata = []byte(t.Metadata)
	}
	return row
}

func (r tierRow) toTier() collection.Tier {
	t := r.Tier
	t.Metadata = nil
	if len(r.Metadata) > 0 {
		t.Metadata = json.RawMessage(r.Metadata)
	}
	return t
}

func (s *Store) CreateTier(ctx context.Context, t collection.Tier) (collection.Tier, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO app_tiers (`+tierColumns+`)
		VALUES (:id, :collection_id, :name, :description, :tier_id, :price, :payment_token_address,
		        :total_mints, :image_url, :metadata, :created_at, :updated_at)
	`, newTierRow(t))
	if err != nil {
		return collection.Tier{}, mapError(err)
	}
	return t, nil
}

func (s *Store) UpdateTier(ctx context.Context, t collection.Tier) (collection.Tier, error) {
	existing, err := s.GetTier(ctx, t.ID)
	if err != nil {
		return collection.Tier{}, err
	}
	t.CollectionID = existing.CollectionID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE app_tiers
		SET name = :name, description = :description, tier_id = :tier_id, price = :price,
		    payment_token_address = :payment_token_address, total_mints = :total_mints,
		    image_url = :image_url, metadata = :metadata, updated_at = :updated_at
		WHERE id = :id
	`, newTierRow(t))
	if err != nil {
		return collection.Tier{}, mapError(err)
	}
	if err := expectAffected(res); err != nil {
		return collection.Tier{}, err
	}
	return t, nil
}

func (s *Store) GetTier(ctx context.Context, id string) (collection.Tier, error) {
	var row tierRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+tierColumns+` FROM app_tiers WHERE id = $1`, id); err != nil {
		return collection.Tier{}, mapError(err)
	}
	return row.toTier(), nil
}

func (s *Store) ListTiers(ctx context.Context, collectionID string) ([]collection.Tier, error) {
	var rows []tierRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+tierColumns+` FROM app_tiers WHERE collection_id = $1 ORDER BY tier_id`, collectionID); err != nil {
		return nil, mapError(err)
	}
	out := make([]collection.Tier, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toTier())
	}
	return out, nil
}

func (s *Store) DeleteTier(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_tiers WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res)
}
