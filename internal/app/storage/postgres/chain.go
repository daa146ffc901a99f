package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/R3E-Network/nft_platform/internal/app/domain/chain"
)

// The chain_* tables are written by the indexer; the store only reads them.

const (
	coinColumns     = `id, chain_id, address, name, symbol, decimals, derived_usd, enabled, updated_at`
	contractColumns = `id, chain_id, address, token_address, payment_token, royalty, royalty_receiver, start_time, end_time, collection_id, created_at`
	txColumns       = `id, chain_id, tx_hash, address, token_address, payment_token, tier_id, token_id, sender, recipient, price::text AS price, created_at`
	assetColumns    = `id, chain_id, token_address, token_id, owner, created_at`
)

func (s *Store) GetCoin(ctx context.Context, chainID int64, address string) (chain.Coin, error) {
	var c chain.Coin
	err := s.db.GetContext(ctx, &c, `
		SELECT `+coinColumns+` FROM chain_coins
		WHERE ($1 = 0 OR chain_id = $1) AND lower(address) = lower($2)
		LIMIT 1
	`, chainID, address)
	if err != nil {
		return chain.Coin{}, mapError(err)
	}
	return c, nil
}

func (s *Store) ListCoins(ctx context.Context) ([]chain.Coin, error) {
	var out []chain.Coin
	if err := s.db.SelectContext(ctx, &out, `SELECT `+coinColumns+` FROM chain_coins ORDER BY chain_id, symbol`); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) GetMintSaleContract(ctx context.Context, address string) (chain.MintSaleContract, error) {
	var c chain.MintSaleContract
	err := s.db.GetContext(ctx, &c, `SELECT `+contractColumns+` FROM chain_mint_sale_contracts WHERE lower(address) = lower($1) LIMIT 1`, address)
	if err != nil {
		return chain.MintSaleContract{}, mapError(err)
	}
	return c, nil
}

func (s *Store) ListMintSaleContracts(ctx context.Context, collectionID string) ([]chain.MintSaleContract, error) {
	var out []chain.MintSaleContract
	err := s.db.SelectContext(ctx, &out, `SELECT `+contractColumns+` FROM chain_mint_sale_contracts WHERE collection_id = $1 ORDER BY created_at`, collectionID)
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) ListMintSaleTransactions(ctx context.Context, filter chain.TransactionFilter) ([]chain.MintSaleTransaction, error) {
	var (
		clauses []string
		args    []interface{}
	)
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if len(filter.TokenAddresses) > 0 {
		add("lower(token_address) = ANY($%d)", pq.Array(lowerAll(filter.TokenAddresses)))
	}
	if filter.TierID != nil {
		add("tier_id = $%d", *filter.TierID)
	}
	if filter.Recipient != "" {
		add("lower(recipient) = lower($%d)", filter.Recipient)
	}
	if !filter.Since.IsZero() {
		add("created_at >= $%d", filter.Since)
	}
	if !filter.Until.IsZero() {
		add("created_at < $%d", filter.Until)
	}

	query := `SELECT ` + txColumns + ` FROM chain_mint_sale_transactions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"

	var out []chain.MintSaleTransaction
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) GetAsset(ctx context.Context, tokenAddress, tokenID string) (chain.Asset721, error) {
	var a chain.Asset721
	err := s.db.GetContext(ctx, &a, `SELECT `+assetColumns+` FROM chain_assets_721 WHERE lower(token_address) = lower($1) AND token_id = $2`, tokenAddress, tokenID)
	if err != nil {
		return chain.Asset721{}, mapError(err)
	}
	return a, nil
}

func (s *Store) ListAssets(ctx context.Context, tokenAddress string) ([]chain.Asset721, error) {
	var out []chain.Asset721
	if err := s.db.SelectContext(ctx, &out, `SELECT `+assetColumns+` FROM chain_assets_721 WHERE lower(token_address) = lower($1)`, tokenAddress); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) ListAssetsByOwner(ctx context.Context, owner string) ([]chain.Asset721, error) {
	var out []chain.Asset721
	if err := s.db.SelectContext(ctx, &out, `SELECT `+assetColumns+` FROM chain_assets_721 WHERE lower(owner) = lower($1)`, owner); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}
