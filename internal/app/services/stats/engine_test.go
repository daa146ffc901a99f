package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/app/services/quotes"
	"github.com/R3E-Network/nft_platform/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
	"github.com/R3E-Network/nft_platform/pkg/logger"
	"github.com/R3E-Network/nft_platform/pkg/testutil"
)

const (
	collectionAddr = "0xc011ec7100000000000000000000000000000001"
	wethAddr       = "0x0000000000000000000000000000000000000eth"
	usdcAddr       = "0x000000000000000000000000000000000000usdc"
	alice          = "0x00000000000000000000000000000000000a11ce"
	bob            = "0x0000000000000000000000000000000000000b0b"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.SeedCoin(chain.Coin{ChainID: 1, Address: wethAddr, Symbol: "WETH", Decimals: 18, Enabled: true})
	store.SeedCoin(chain.Coin{
		ChainID:    1,
		Address:    usdcAddr,
		Symbol:     "USDC",
		Decimals:   6,
		Enabled:    true,
		DerivedUSD: decimal.NewNullDecimal(decimal.NewFromInt(1)),
	})
	provider := quotes.StaticProvider{"WETH": decimal.NewFromInt(3000)}
	engine := New(store, provider, logger.NewNop()).WithClock(func() time.Time { return fixedNow })
	return engine, store
}

func mint(store *memory.Store, hash, recipient, token, tokenID, price string, tier int64, at time.Time) {
	store.SeedMintSaleTransaction(chain.MintSaleTransaction{
		ChainID:      1,
		TxHash:       hash,
		TokenAddress: collectionAddr,
		PaymentToken: token,
		TierID:       tier,
		TokenID:      tokenID,
		Recipient:    recipient,
		Price:        price,
		CreatedAt:    at,
	})
}

func TestEarningsSumsRawAmountsExactly(t *testing.T) {
	engine, store := newEngine(t)
	mint(store, "0x1", alice, wethAddr, "1", "1000000000000000000", 1, fixedNow.Add(-time.Hour))
	mint(store, "0x2", bob, wethAddr, "2", "1000000000000000000", 1, fixedNow.Add(-time.Hour))
	mint(store, "0x3", bob, usdcAddr, "3", "2500000", 2, fixedNow.Add(-time.Hour))

	earnings, err := engine.Earnings(context.Background(), ForAddress(collectionAddr), Window{})
	require.NoError(t, err)
	require.NotNil(t, earnings)
	require.Len(t, earnings.Tokens, 2)

	byToken := map[string]TokenAmount{}
	for _, tok := range earnings.Tokens {
		byToken[tok.PaymentToken] = tok
	}
	weth := byToken[wethAddr]
	assert.Equal(t, "2000000000000000000", weth.Raw)
	assert.Equal(t, "2", weth.Amount.String())
	assert.Equal(t, "6000", weth.USD.String())

	usdc := byToken[usdcAddr]
	assert.Equal(t, "2.5", usdc.Amount.String())
	assert.Equal(t, "2.5", usdc.USD.String())

	assert.Equal(t, "6002.5", earnings.TotalUSD.String())
	assert.Equal(t, 3, earnings.Transactions)
}

func TestEarningsEmptyReturnsNil(t *testing.T) {
	engine, _ := newEngine(t)

	earnings, err := engine.Earnings(context.Background(), ForAddress(collectionAddr), Window{})
	require.NoError(t, err)
	assert.Nil(t, earnings)

	gross, err := engine.GrossEarnings(context.Background(), ForAddress(collectionAddr))
	require.NoError(t, err)
	assert.True(t, gross.IsZero())

	earnings, err = engine.Earnings(context.Background(), Scope{}, Window{})
	require.NoError(t, err)
	assert.Nil(t, earnings)
}

func TestUnknownCoinDefaultsTo18DecimalsWithoutRate(t *testing.T) {
	engine, store := newEngine(t)
	mint(store, "0x1", alice, "0xunknown", "1", "1500000000000000000", 1, fixedNow)

	earnings, err := engine.Earnings(context.Background(), ForAddress(collectionAddr), Window{})
	require.NoError(t, err)
	require.Len(t, earnings.Tokens, 1)
	assert.Equal(t, int32(18), earnings.Tokens[0].Decimals)
	assert.Equal(t, "1.5", earnings.Tokens[0].Amount.String())
	assert.True(t, earnings.TotalUSD.IsZero())
}

func TestProviderFailureYieldsZeroRate(t *testing.T) {
	store := memory.New()
	store.SeedCoin(chain.Coin{ChainID: 1, Address: wethAddr, Symbol: "WETH", Decimals: 18})
	failing := quotes.ProviderFunc(func(context.Context, string) (decimal.Decimal, error) {
		return decimal.Zero, errors.New("down")
	})
	engine := New(store, failing, logger.NewNop())
	mint(store, "0x1", alice, wethAddr, "1", "1000000000000000000", 1, time.Now())

	gross, err := engine.GrossEarnings(context.Background(), ForAddress(collectionAddr))
	require.NoError(t, err)
	assert.True(t, gross.IsZero())
}

func TestSevenDayVolumeExcludesOlderMints(t *testing.T) {
	engine, store := newEngine(t)
	mint(store, "0x1", alice, usdcAddr, "1", "1000000", 1, fixedNow.Add(-8*24*time.Hour))
	mint(store, "0x2", alice, usdcAddr, "2", "4000000", 1, fixedNow.Add(-24*time.Hour))

	vol, err := engine.SevenDayVolume(context.Background(), ForAddress(collectionAddr))
	require.NoError(t, err)
	assert.Equal(t, "4", vol.String())

	gross, err := engine.GrossEarnings(context.Background(), ForAddress(collectionAddr))
	require.NoError(t, err)
	assert.Equal(t, "5", gross.String())
}

func TestHoldersRankAndPaginate(t *testing.T) {
	engine, store := newEngine(t)
	carol := "0x00000000000000000000000000000000000ca201"
	for i, owner := range []string{bob, alice, alice, carol, bob, alice} {
		id := string(rune('1' + i))
		store.SeedAsset(chain.Asset721{ChainID: 1, TokenAddress: collectionAddr, TokenID: id, Owner: owner})
	}
	mint(store, "0x1", alice, usdcAddr, "2", "1000000", 1, fixedNow)

	ctx := context.Background()
	first, err := engine.Holders(ctx, ForAddress(collectionAddr), Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Edges, 2)
	assert.Equal(t, 3, first.TotalCount)
	assert.True(t, first.PageInfo.HasNextPage)
	assert.Equal(t, alice, first.Edges[0].Node.Address)
	assert.Equal(t, int64(3), first.Edges[0].Node.Quantity)
	assert.Equal(t, "1", first.Edges[0].Node.TotalSpend.String())
	assert.Equal(t, bob, first.Edges[1].Node.Address)

	second, err := engine.Holders(ctx, ForAddress(collectionAddr), Page{Limit: 2, Cursor: first.PageInfo.EndCursor})
	require.NoError(t, err)
	require.Len(t, second.Edges, 1)
	assert.Equal(t, carol, second.Edges[0].Node.Address)
	assert.False(t, second.PageInfo.HasNextPage)
}

func TestHoldersByTierFiltersMintedTokens(t *testing.T) {
	engine, store := newEngine(t)
	store.SeedAsset(chain.Asset721{TokenAddress: collectionAddr, TokenID: "1", Owner: alice})
	store.SeedAsset(chain.Asset721{TokenAddress: collectionAddr, TokenID: "2", Owner: bob})
	mint(store, "0x1", alice, usdcAddr, "1", "1", 1, fixedNow)
	mint(store, "0x2", bob, usdcAddr, "2", "1", 2, fixedNow)

	tier := int64(2)
	count, err := engine.HolderCount(context.Background(), Scope{TokenAddresses: []string{collectionAddr}, TierID: &tier})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHoldersRejectsBadCursor(t *testing.T) {
	engine, _ := newEngine(t)
	_, err := engine.Holders(context.Background(), ForAddress(collectionAddr), Page{Cursor: "%%%"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))
}

func TestUniqueHolderCountCountsRecipients(t *testing.T) {
	engine, store := newEngine(t)
	mint(store, "0x1", alice, usdcAddr, "1", "1", 1, fixedNow)
	mint(store, "0x2", "0x00000000000000000000000000000000000A11CE", usdcAddr, "2", "1", 1, fixedNow)
	mint(store, "0x3", bob, usdcAddr, "3", "1", 1, fixedNow)

	count, err := engine.UniqueHolderCount(context.Background(), ForAddress(collectionAddr))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBuyersRankByMints(t *testing.T) {
	engine, store := newEngine(t)
	mint(store, "0x1", bob, usdcAddr, "1", "1000000", 1, fixedNow)
	mint(store, "0x2", alice, usdcAddr, "2", "1000000", 1, fixedNow)
	mint(store, "0x3", alice, usdcAddr, "3", "1000000", 1, fixedNow)

	buyers, err := engine.Buyers(context.Background(), ForAddress(collectionAddr), Window{})
	require.NoError(t, err)
	require.Len(t, buyers, 2)
	assert.Equal(t, alice, buyers[0].Address)
	assert.Equal(t, int64(2), buyers[0].Mints)
	assert.Equal(t, "2", buyers[0].TotalSpend.String())
}

func TestActivitiesGroupByTransaction(t *testing.T) {
	engine, store := newEngine(t)
	mint(store, "0xaa", alice, usdcAddr, "1", "1000000", 1, fixedNow.Add(-2*time.Hour))
	mint(store, "0xaa", alice, usdcAddr, "2", "1000000", 2, fixedNow.Add(-2*time.Hour))
	mint(store, "0xbb", bob, usdcAddr, "3", "1000000", 1, fixedNow.Add(-time.Hour))

	ctx := context.Background()
	page, err := engine.Activities(ctx, ForAddress(collectionAddr), Page{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Edges, 1)
	assert.Equal(t, "0xbb", page.Edges[0].Node.TxHash)
	assert.True(t, page.PageInfo.HasNextPage)
	assert.Equal(t, 2, page.TotalCount)

	next, err := engine.Activities(ctx, ForAddress(collectionAddr), Page{Limit: 1, Cursor: page.PageInfo.EndCursor})
	require.NoError(t, err)
	require.Len(t, next.Edges, 1)
	act := next.Edges[0].Node
	assert.Equal(t, "0xaa", act.TxHash)
	assert.Equal(t, int64(2), act.Quantity)
	assert.Equal(t, []int64{1, 2}, act.TierIDs)
	require.Len(t, act.Amounts, 1)
	assert.Equal(t, "2", act.Amounts[0].Amount.String())
	assert.False(t, next.PageInfo.HasNextPage)
}

func TestAggregatedActivitiesZeroFillsDays(t *testing.T) {
	engine, store := newEngine(t)
	mint(store, "0x1", alice, usdcAddr, "1", "1000000", 1, fixedNow.Add(-time.Hour))
	mint(store, "0x1", alice, usdcAddr, "2", "1000000", 1, fixedNow.Add(-time.Hour))
	mint(store, "0x2", bob, usdcAddr, "3", "3000000", 1, fixedNow.Add(-48*time.Hour))
	mint(store, "0x3", bob, usdcAddr, "4", "3000000", 1, fixedNow.Add(-30*24*time.Hour))

	days, err := engine.AggregatedActivities(context.Background(), ForAddress(collectionAddr), 0)
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, "2024-05-04", days[0].Date)
	assert.Equal(t, "2024-05-10", days[6].Date)

	assert.Equal(t, 1, days[6].Transactions)
	assert.Equal(t, int64(2), days[6].Quantity)
	assert.Equal(t, "2", days[6].VolumeUSD.String())

	assert.Equal(t, 1, days[4].Transactions)
	assert.Equal(t, "3", days[4].VolumeUSD.String())

	assert.Equal(t, 0, days[5].Transactions)
	assert.True(t, days[5].VolumeUSD.IsZero())
}

type fixedMarket struct{ stat MarketStat }

func (m fixedMarket) SecondaryMarketStat(context.Context, string) (MarketStat, error) {
	return m.stat, nil
}

func TestSecondaryMarketStat(t *testing.T) {
	engine, _ := newEngine(t)
	stat, err := engine.SecondaryMarketStat(context.Background(), collectionAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stat.Sales)

	engine.WithMarketData(fixedMarket{stat: MarketStat{Sales: 4, FloorPriceUSD: decimal.NewFromInt(12)}})
	stat, err = engine.SecondaryMarketStat(context.Background(), collectionAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stat.Sales)
}

func TestQuotesResolvedOncePerCall(t *testing.T) {
	store := memory.New()
	store.SeedCoin(chain.Coin{ChainID: 1, Address: wethAddr, Symbol: "WETH", Decimals: 18})
	store.SeedCoin(chain.Coin{ChainID: 1, Address: usdcAddr, Symbol: "USDC", Decimals: 6, DerivedUSD: decimal.NewNullDecimal(decimal.NewFromInt(1))})
	provider := &testutil.CountingProvider{Prices: map[string]decimal.Decimal{"WETH": decimal.NewFromInt(3000), "USDC": decimal.NewFromInt(2)}}
	engine := New(store, provider, logger.NewNop())

	mint(store, "0x1", alice, wethAddr, "1", "1000000000000000000", 1, time.Now())
	mint(store, "0x2", bob, wethAddr, "2", "1000000000000000000", 1, time.Now())
	mint(store, "0x3", bob, usdcAddr, "3", "5000000", 1, time.Now())

	gross, err := engine.GrossEarnings(context.Background(), ForAddress(collectionAddr))
	require.NoError(t, err)
	assert.Equal(t, "6005", gross.String())
	assert.Equal(t, 1, provider.Calls("WETH"))
	assert.Equal(t, 0, provider.Calls("USDC"))
}

func TestStoreFailuresSurfaceAsInternal(t *testing.T) {
	mem := memory.New()
	store := testutil.NewFailingChainStore(mem)
	engine := New(store, nil, logger.NewNop())
	mint(mem, "0x1", alice, wethAddr, "1", "1", 1, time.Now())
	mem.SeedAsset(chain.Asset721{TokenAddress: collectionAddr, TokenID: "1", Owner: alice})
	store.Fail(true)
	ctx := context.Background()
	scope := ForAddress(collectionAddr)

	_, err := engine.Earnings(ctx, scope, Window{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	assert.ErrorIs(t, err, testutil.ErrInjected)

	_, err = engine.Holders(ctx, scope, Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	store.Fail(false)
	count, err := engine.HolderCount(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCoinLookupFailureIsNotMaskedAsDefault(t *testing.T) {
	mem := memory.New()
	mem.SeedCoin(chain.Coin{ChainID: 1, Address: usdcAddr, Symbol: "USDC", Decimals: 6, DerivedUSD: decimal.NewNullDecimal(decimal.NewFromInt(1))})
	store := testutil.NewFailingChainStore(mem)
	engine := New(store, nil, logger.NewNop()).WithClock(func() time.Time { return fixedNow })
	mint(mem, "0x1", alice, usdcAddr, "1", "2500000", 1, fixedNow.Add(-time.Hour))
	mem.SeedAsset(chain.Asset721{TokenAddress: collectionAddr, TokenID: "1", Owner: alice})
	store.FailCoins(true)
	ctx := context.Background()
	scope := ForAddress(collectionAddr)

	earnings, err := engine.Earnings(ctx, scope, Window{})
	assert.Nil(t, earnings)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	assert.ErrorIs(t, err, testutil.ErrInjected)

	_, err = engine.SevenDayVolume(ctx, scope)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	_, err = engine.Buyers(ctx, scope, Window{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	_, err = engine.Holders(ctx, scope, Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	_, err = engine.Activities(ctx, scope, Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	_, err = engine.AggregatedActivities(ctx, scope, 3)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	store.FailCoins(false)
	earnings, err = engine.Earnings(ctx, scope, Window{})
	require.NoError(t, err)
	require.Len(t, earnings.Tokens, 1)
	assert.Equal(t, int32(6), earnings.Tokens[0].Decimals)
	assert.Equal(t, "2.5", earnings.TotalUSD.String())
}

func TestSameTokenAddressOnTwoChainsKeptApart(t *testing.T) {
	store := memory.New()
	store.SeedCoin(chain.Coin{ChainID: 1, Address: usdcAddr, Symbol: "USDC", Decimals: 6, DerivedUSD: decimal.NewNullDecimal(decimal.NewFromInt(1))})
	store.SeedCoin(chain.Coin{ChainID: 56, Address: usdcAddr, Symbol: "BUSDC", Decimals: 18, DerivedUSD: decimal.NewNullDecimal(decimal.NewFromInt(2))})
	engine := New(store, nil, logger.NewNop())
	mint(store, "0x1", alice, usdcAddr, "1", "1000000", 1, fixedNow)
	store.SeedMintSaleTransaction(chain.MintSaleTransaction{
		ChainID:      56,
		TxHash:       "0x2",
		TokenAddress: collectionAddr,
		PaymentToken: usdcAddr,
		TierID:       1,
		TokenID:      "2",
		Recipient:    bob,
		Price:        "1000000000000000000",
		CreatedAt:    fixedNow,
	})

	earnings, err := engine.Earnings(context.Background(), ForAddress(collectionAddr), Window{})
	require.NoError(t, err)
	require.Len(t, earnings.Tokens, 2)
	assert.Equal(t, int64(1), earnings.Tokens[0].ChainID)
	assert.Equal(t, "1", earnings.Tokens[0].Amount.String())
	assert.Equal(t, "1", earnings.Tokens[0].USD.String())
	assert.Equal(t, int64(56), earnings.Tokens[1].ChainID)
	assert.Equal(t, "1", earnings.Tokens[1].Amount.String())
	assert.Equal(t, "2", earnings.Tokens[1].USD.String())
	assert.Equal(t, "3", earnings.TotalUSD.String())
}

func TestStoredRateWinsOverRefreshedQuote(t *testing.T) {
	store := memory.New()
	store.SeedCoin(chain.Coin{ChainID: 1, Address: wethAddr, Symbol: "WETH", Decimals: 18, Enabled: true})
	store.SeedCoin(chain.Coin{ChainID: 1, Address: usdcAddr, Symbol: "USDC", Decimals: 6, Enabled: true, DerivedUSD: decimal.NewNullDecimal(decimal.NewFromInt(1))})
	upstream := &testutil.CountingProvider{Prices: map[string]decimal.Decimal{"WETH": decimal.NewFromInt(3000), "USDC": decimal.NewFromInt(2)}}
	cached := quotes.NewCachedProvider(upstream, store, time.Hour, logger.NewNop())
	refresher, err := quotes.NewRefresher(store, cached, "@every 5m", logger.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, refresher.RunOnce(context.Background()))

	engine := New(store, cached, logger.NewNop())
	mint(store, "0x1", alice, wethAddr, "1", "1000000000000000000", 1, time.Now())
	mint(store, "0x2", bob, usdcAddr, "2", "5000000", 1, time.Now())

	earnings, err := engine.Earnings(context.Background(), ForAddress(collectionAddr), Window{})
	require.NoError(t, err)
	require.Len(t, earnings.Tokens, 2)
	byToken := map[string]TokenAmount{}
	for _, tok := range earnings.Tokens {
		byToken[tok.PaymentToken] = tok
	}
	assert.Equal(t, "3000", byToken[wethAddr].USDRate.String())
	assert.Equal(t, "1", byToken[usdcAddr].USDRate.String())
	assert.Equal(t, "3005", earnings.TotalUSD.String())
	assert.Equal(t, 1, upstream.Calls("WETH"))
	assert.Equal(t, 1, upstream.Calls("USDC"))

	coin, err := store.GetCoin(context.Background(), 1, wethAddr)
	require.NoError(t, err)
	assert.False(t, coin.DerivedUSD.Valid)
}
