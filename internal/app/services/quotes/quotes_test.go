package quotes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/nft_platform/internal/app/domain/chain"
	"github.com/R3E-Network/nft_platform/internal/app/storage/memory"
)

func TestCoinMarketCapClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, latestQuotesPath, r.URL.Path)
		assert.Equal(t, "ETH", r.URL.Query().Get("symbol"))
		assert.Equal(t, "secret", r.Header.Get("X-CMC_PRO_API_KEY"))
		w.Write([]byte(`{"status":{"error_code":0},"data":{"ETH":{"quote":{"USD":{"price":3012.123456789012345}}}}}`))
	}))
	defer server.Close()

	client, err := NewCoinMarketCapClient(CoinMarketCapConfig{BaseURL: server.URL, APIKey: "secret"}, nil)
	require.NoError(t, err)

	price, err := client.USDPrice(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "3012.123456789012345", price.String())
}

func TestNewCoinMarketCapClientRequiresKey(t *testing.T) {
	_, err := NewCoinMarketCapClient(CoinMarketCapConfig{}, nil)
	assert.Error(t, err)
}

func TestParseQuote(t *testing.T) {
	price, err := parseQuote([]byte(`{"data":{"USDC":[{"quote":{"USD":{"price":1.0001}}}]}}`), "USDC")
	require.NoError(t, err)
	assert.Equal(t, "1.0001", price.String())

	_, err = parseQuote([]byte(`{"data":{}}`), "XYZ")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = parseQuote([]byte(`{"status":{"error_code":1001,"error_message":"bad key"}}`), "ETH")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")

	_, err = parseQuote([]byte(`not json`), "ETH")
	assert.Error(t, err)
}

func TestCachedProvider(t *testing.T) {
	var calls int32
	upstream := ProviderFunc(func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		atomic.AddInt32(&calls, 1)
		if symbol != "ETH" {
			return decimal.Zero, ErrUnavailable
		}
		return decimal.NewFromInt(2000), nil
	})
	cache := memory.New()
	provider := NewCachedProvider(upstream, cache, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		price, err := provider.USDPrice(ctx, "eth")
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(2000)))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err := provider.USDPrice(ctx, "DOGE")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRefresherRunOnce(t *testing.T) {
	store := memory.New()
	store.SeedCoin(chain.Coin{Symbol: "eth", Enabled: true})
	store.SeedCoin(chain.Coin{Symbol: "ETH", Enabled: true, ChainID: 2})
	store.SeedCoin(chain.Coin{Symbol: "USDC", Enabled: true})
	store.SeedCoin(chain.Coin{Symbol: "OLD", Enabled: false})

	var fetched []string
	upstream := ProviderFunc(func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		fetched = append(fetched, symbol)
		if symbol == "USDC" {
			return decimal.Zero, errors.New("boom")
		}
		return decimal.NewFromInt(1), nil
	})
	r, err := NewRefresher(store, NewCachedProvider(upstream, store, time.Minute, nil), "@every 1h", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, r.RunOnce(context.Background()))
	assert.Equal(t, []string{"ETH", "USDC"}, fetched)

	_, ok, err := store.GetQuote(context.Background(), "ETH")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefresherLifecycle(t *testing.T) {
	_, err := NewRefresher(memory.New(), nil, "not a schedule", nil)
	assert.Error(t, err)

	r, err := NewRefresher(memory.New(), NewCachedProvider(StaticProvider{}, memory.New(), 0, nil), "@every 1h", nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Stop(ctx))
	require.NoError(t, r.Stop(ctx))
	assert.Equal(t, "quote-refresher", r.Name())
}
