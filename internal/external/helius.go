package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjannette/trahn-pnl/internal/httputil"
	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/kjannette/trahn-pnl/internal/solana"
	"github.com/shopspring/decimal"
)

// heliusPageSize is the largest page the enhanced-transactions endpoint serves.
const heliusPageSize = 100

var lamportsPerSOL = decimal.NewFromInt(solana.LamportsPerSOL)

type HeliusClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewHeliusClient(apiKey, baseURL string, timeout time.Duration) *HeliusClient {
	return &HeliusClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry: httputil.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   300 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
	}
}

// ListSwaps returns up to limit of the wallet's most recent SWAP transactions,
// newest first. Failed transactions are dropped. A payload that is not a JSON
// array ends pagination with whatever was collected so far; only transport
// failures and non-200 responses are errors.
func (c *HeliusClient) ListSwaps(ctx context.Context, wallet string, limit int) ([]models.RawSwapRecord, error) {
	var out []models.RawSwapRecord
	var before string
	fetched := 0

	for fetched < limit {
		pageLimit := min(heliusPageSize, limit-fetched)
		txns, ok, err := c.fetchPage(ctx, wallet, before, pageLimit)
		if err != nil {
			return nil, err
		}
		if !ok {
			fmt.Printf("[HELIUS] Malformed payload for %s after %d records, treating as end of history\n", wallet, fetched)
			break
		}
		if len(txns) == 0 {
			break
		}

		fetched += len(txns)
		for i := range txns {
			if txns[i].TransactionError != nil {
				continue
			}
			out = append(out, normalize(&txns[i]))
		}

		before = txns[len(txns)-1].Signature
		if len(txns) < pageLimit || before == "" {
			break
		}
	}

	fmt.Printf("[HELIUS] %s: %d transactions fetched, %d usable\n", truncAddr(wallet), fetched, len(out))
	return out, nil
}

// fetchPage returns ok=false when the body is not a well-formed array of transactions.
func (c *HeliusClient) fetchPage(ctx context.Context, wallet, before string, limit int) ([]EnhancedTransaction, bool, error) {
	params := url.Values{}
	params.Set("api-key", c.apiKey)
	params.Set("type", "SWAP")
	params.Set("limit", strconv.Itoa(limit))
	if before != "" {
		params.Set("before", before)
	}
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions?%s", c.baseURL, url.PathEscape(wallet), params.Encode())

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, false, fmt.Errorf("helius fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("helius returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, false, nil
	}

	var txns []EnhancedTransaction
	if err := json.Unmarshal(body, &txns); err != nil {
		return nil, false, nil
	}
	return txns, true, nil
}

func normalize(tx *EnhancedTransaction) models.RawSwapRecord {
	rec := models.RawSwapRecord{
		Signature: tx.Signature,
		Timestamp: time.Unix(tx.Timestamp, 0).UTC(),
		Transfers: make([]models.Transfer, 0, len(tx.TokenTransfers)+len(tx.NativeTransfers)),
	}
	for _, t := range tx.TokenTransfers {
		rec.Transfers = append(rec.Transfers, models.Transfer{
			Mint:   t.Mint,
			Amount: t.TokenAmount,
			From:   t.FromUserAccount,
			To:     t.ToUserAccount,
		})
	}
	for _, n := range tx.NativeTransfers {
		rec.Transfers = append(rec.Transfers, models.Transfer{
			Mint:   solana.NativeMint,
			Amount: decimal.NewFromInt(n.Amount).Div(lamportsPerSOL).InexactFloat64(),
			From:   n.FromUserAccount,
			To:     n.ToUserAccount,
			Native: true,
		})
	}
	return rec
}

func truncAddr(addr string) string {
	if len(addr) > 10 {
		return addr[:4] + "…" + addr[len(addr)-4:]
	}
	return addr
}
