package solana

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
)

// Client is a minimal Solana JSON-RPC client. The transport is go-ethereum's
// JSON-RPC 2.0 client, which speaks the same envelope and supports batching.
type Client struct {
	rpc *rpc.Client
}

func Dial(ctx context.Context, url string, httpClient *http.Client) (*Client, error) {
	c, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("dial solana rpc: %w", err)
	}
	return &Client{rpc: c}, nil
}

func (c *Client) Close() { c.rpc.Close() }

type tokenAccountsResult struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string `json:"mint"`
						TokenAmount struct {
							Amount   string `json:"amount"`
							Decimals int32  `json:"decimals"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// TokenBalances returns the owner's balance of each mint, summed across all of
// the owner's token accounts for that mint. All mints go out in one JSON-RPC
// batch. Mints whose call failed are absent from the result; a transport
// failure fails the whole batch.
func (c *Client) TokenBalances(ctx context.Context, owner string, mints []string) (map[string]float64, error) {
	if len(mints) == 0 {
		return map[string]float64{}, nil
	}

	results := make([]tokenAccountsResult, len(mints))
	elems := make([]rpc.BatchElem, len(mints))
	for i, mint := range mints {
		elems[i] = rpc.BatchElem{
			Method: "getTokenAccountsByOwner",
			Args: []any{
				owner,
				map[string]string{"mint": mint},
				map[string]string{"encoding": "jsonParsed", "commitment": "confirmed"},
			},
			Result: &results[i],
		}
	}

	if err := c.rpc.BatchCallContext(ctx, elems); err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner batch: %w", err)
	}

	sums := make(map[string]decimal.Decimal, len(mints))
	for i, el := range elems {
		if el.Error != nil {
			fmt.Printf("[HOLDINGS] %s: %v\n", mints[i], el.Error)
			continue
		}
		total := decimal.Zero
		for _, acct := range results[i].Value {
			info := acct.Account.Data.Parsed.Info
			if info.Mint != "" && info.Mint != mints[i] {
				continue
			}
			raw, err := decimal.NewFromString(info.TokenAmount.Amount)
			if err != nil {
				fmt.Printf("[HOLDINGS] %s: unparsable amount %q for owner %s: %v\n",
					mints[i], info.TokenAmount.Amount, owner, err)
				continue
			}
			total = total.Add(raw.Shift(-info.TokenAmount.Decimals))
		}
		sums[mints[i]] = total
	}

	out := make(map[string]float64, len(sums))
	for mint, d := range sums {
		out[mint] = d.InexactFloat64()
	}
	return out, nil
}
