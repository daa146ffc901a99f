package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
)

func TestChainReads(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	store.SeedCoin(domain.Coin{ChainID: 5, Address: "0xAbC", Symbol: "USDC", Decimals: 6})
	store.SeedMintSaleContract(domain.MintSaleContract{Address: "0xSale", TokenAddress: "0xtoken", CollectionID: "c1"})
	store.SeedAsset(domain.Asset721{TokenAddress: "0xtoken", TokenID: "7", Owner: "0xOwner"})
	store.SeedMintSaleTransaction(domain.MintSaleTransaction{TokenAddress: "0xtoken", TokenID: "7", Recipient: "0xowner", Price: "1"})

	coin, err := svc.GetCoin(ctx, 0, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "USDC", coin.Symbol)

	_, err = svc.GetCoin(ctx, 1, "0xabc")
	assert.True(t, apperrors.IsNotFound(err))

	contract, err := svc.GetMintSaleContract(ctx, "0xsale")
	require.NoError(t, err)
	assert.Equal(t, "c1", contract.CollectionID)

	contracts, err := svc.ListMintSaleContracts(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, contracts, 1)

	asset, err := svc.GetAsset(ctx, "0xTOKEN", "7")
	require.NoError(t, err)
	assert.Equal(t, "0xOwner", asset.Owner)

	owned, err := svc.ListAssetsByOwner(ctx, "0xowner")
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	txs, err := svc.ListTransactions(ctx, domain.TransactionFilter{Recipient: "0xOWNER"})
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	_, err = svc.ListTransactions(ctx, domain.TransactionFilter{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))
}
