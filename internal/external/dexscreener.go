package external

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kjannette/trahn-pnl/internal/httputil"
	"github.com/kjannette/trahn-pnl/internal/solana"
)

// DexScreenerMaxBatch is the id limit of the tokens endpoint.
const DexScreenerMaxBatch = 30

// TokenQuote is one market-data source's view of an asset. PriceNative is set
// only when the source priced the asset directly against SOL.
type TokenQuote struct {
	Symbol      string
	Name        string
	Image       string
	PriceNative float64
	PriceUSD    float64
}

type DexScreenerClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewDexScreenerClient(baseURL string, timeout time.Duration) *DexScreenerClient {
	return &DexScreenerClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry: httputil.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   250 * time.Millisecond,
			MaxDelay:    time.Second,
		},
	}
}

func (c *DexScreenerClient) Name() string { return "dexscreener" }

type dexPair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	QuoteToken struct {
		Address string `json:"address"`
	} `json:"quoteToken"`
	PriceNative string `json:"priceNative"`
	PriceUSD    string `json:"priceUsd"`
	Liquidity   *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Info *struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

// Quotes returns one quote per requested mint that DexScreener lists, taken
// from the mint's most liquid pair.
func (c *DexScreenerClient) Quotes(ctx context.Context, mints []string) (map[string]TokenQuote, error) {
	if len(mints) > DexScreenerMaxBatch {
		return nil, fmt.Errorf("dexscreener batch of %d exceeds %d", len(mints), DexScreenerMaxBatch)
	}
	endpoint := fmt.Sprintf("%s/tokens/v1/solana/%s", c.baseURL, strings.Join(mints, ","))

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("dexscreener fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener returned status %d", resp.StatusCode)
	}

	var pairs []dexPair
	if err := json.NewDecoder(resp.Body).Decode(&pairs); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	wanted := make(map[string]bool, len(mints))
	for _, m := range mints {
		wanted[m] = true
	}

	best := make(map[string]float64, len(mints))
	out := make(map[string]TokenQuote, len(mints))
	for _, p := range pairs {
		mint := p.BaseToken.Address
		if !wanted[mint] || (p.ChainID != "" && p.ChainID != "solana") {
			continue
		}
		liq := 0.0
		if p.Liquidity != nil {
			liq = p.Liquidity.USD
		}
		if prev, seen := best[mint]; seen && liq <= prev {
			continue
		}
		best[mint] = liq

		q := TokenQuote{
			Symbol:   p.BaseToken.Symbol,
			Name:     p.BaseToken.Name,
			PriceUSD: parsePrice(p.PriceUSD),
		}
		if solana.IsNative(p.QuoteToken.Address) {
			q.PriceNative = parsePrice(p.PriceNative)
		}
		if p.Info != nil {
			q.Image = p.Info.ImageURL
		}
		out[mint] = q
	}
	return out, nil
}

// parsePrice reads a decimal price string; anything unparsable, negative or
// non-finite ("NaN", "Infinity") is no price.
func parsePrice(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
