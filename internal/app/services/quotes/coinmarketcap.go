package quotes

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/nft_platform/internal/httputil"
	"github.com/R3E-Network/nft_platform/pkg/logger"
)

const (
	// DefaultCoinMarketCapURL is the production API root.
	DefaultCoinMarketCapURL = "https://pro-api.coinmarketcap.com"
	apiKeyHeader            = "X-CMC_PRO_API_KEY"
	latestQuotesPath        = "/v1/cryptocurrency/quotes/latest"
)

// CoinMarketCapClient fetches USD quotes from the CoinMarketCap API.
type CoinMarketCapClient struct {
	client *httputil.Client
	log    *logger.Logger
}

// CoinMarketCapConfig configures the client.
type CoinMarketCapConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewCoinMarketCapClient creates a client. An API key is required.
func NewCoinMarketCapClient(cfg CoinMarketCapConfig, log *logger.Logger) (*CoinMarketCapClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("coinmarketcap api key is required")
	}
	if log == nil {
		log = logger.NewDefault("coinmarketcap")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultCoinMarketCapURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinMarketCapClient{
		client: httputil.NewClient(httputil.ClientConfig{
			BaseURL:    baseURL,
			Timeout:    timeout,
			MaxRetries: 1,
			Headers:    map[string]string{apiKeyHeader: cfg.APIKey},
		}),
		log: log,
	}, nil
}

func (c *CoinMarketCapClient) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, ErrUnavailable
	}
	resp, err := c.client.Get(ctx, latestQuotesPath, url.Values{"symbol": {symbol}, "convert": {"USD"}})
	if err != nil {
		return decimal.Zero, fmt.Errorf("coinmarketcap %s: %w", symbol, err)
	}
	body, err := httputil.ReadResponse(resp)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coinmarketcap %s: %w", symbol, err)
	}
	return parseQuote(body, symbol)
}

// parseQuote extracts data.<SYMBOL>.quote.USD.price. The v2 API wraps each
// symbol in an array; the first entry wins.
func parseQuote(body []byte, symbol string) (decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return decimal.Zero, fmt.Errorf("coinmarketcap %s: invalid json", symbol)
	}
	doc := gjson.ParseBytes(body)
	if code := doc.Get("status.error_code").Int(); code != 0 {
		return decimal.Zero, fmt.Errorf("coinmarketcap %s: error %d: %s", symbol, code, doc.Get("status.error_message").String())
	}

	entry := doc.Get("data." + gjson.Escape(symbol))
	if entry.IsArray() {
		entry = entry.Get("0")
	}
	price := entry.Get("quote.USD.price")
	if !price.Exists() || price.Type == gjson.Null {
		return decimal.Zero, fmt.Errorf("coinmarketcap %s: %w", symbol, ErrUnavailable)
	}
	// Raw keeps the provider's full precision instead of going through float64.
	out, err := decimal.NewFromString(price.Raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coinmarketcap %s: parse price %q: %w", symbol, price.Raw, err)
	}
	return out, nil
}
