package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjannette/trahn-pnl/internal/httputil"
)

type CoinGeckoClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		retry: httputil.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
	}
}

func (c *CoinGeckoClient) Name() string { return "coingecko" }

// ReferenceUSDPrice returns the current SOL/USD price.
func (c *CoinGeckoClient) ReferenceUSDPrice(ctx context.Context) (float64, error) {
	var data struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := c.get(ctx, "/simple/price?ids=solana&vs_currencies=usd", &data); err != nil {
		return 0, err
	}
	if data.Solana.USD <= 0 {
		return 0, fmt.Errorf("invalid price: %f", data.Solana.USD)
	}
	return data.Solana.USD, nil
}

// Quotes returns USD prices for the mints CoinGecko tracks. CoinGecko carries
// no metadata on this endpoint, so only PriceUSD is set.
func (c *CoinGeckoClient) Quotes(ctx context.Context, mints []string) (map[string]TokenQuote, error) {
	q := url.Values{}
	q.Set("contract_addresses", strings.Join(mints, ","))
	q.Set("vs_currencies", "usd")

	var data map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := c.get(ctx, "/simple/token_price/solana?"+q.Encode(), &data); err != nil {
		return nil, err
	}

	// Keys may come back lower-cased; map them to the requested spelling.
	byLower := make(map[string]string, len(mints))
	for _, m := range mints {
		byLower[strings.ToLower(m)] = m
	}

	out := make(map[string]TokenQuote, len(data))
	for key, v := range data {
		mint, ok := byLower[strings.ToLower(key)]
		if !ok || v.USD <= 0 {
			continue
		}
		out[mint] = TokenQuote{PriceUSD: v.USD}
	}
	return out, nil
}

func (c *CoinGeckoClient) get(ctx context.Context, path string, dst any) error {
	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		if c.apiKey != "" {
			req.Header.Set("x-cg-demo-api-key", c.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
