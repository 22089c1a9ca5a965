package resolver

import (
	"context"
	"fmt"
)

// BalanceProvider reads the wallet's current balance of each mint.
type BalanceProvider interface {
	TokenBalances(ctx context.Context, owner string, mints []string) (map[string]float64, error)
}

type HoldingsResolver struct {
	balances BalanceProvider
	opts     Options
}

func NewHoldingsResolver(balances BalanceProvider, opts Options) *HoldingsResolver {
	return &HoldingsResolver{balances: balances, opts: opts.withDefaults()}
}

// Resolve returns a holding for every requested mint; mints in failed batches
// or unknown to the chain hold 0.
func (r *HoldingsResolver) Resolve(ctx context.Context, wallet string, mints []string) map[string]float64 {
	out := make(map[string]float64, len(mints))
	for _, m := range mints {
		out[m] = 0
	}
	if len(mints) == 0 {
		return out
	}

	batches := Chunk(mints, r.opts.BatchSize)
	results := fanOut(ctx, "holdings", batches, r.opts.MaxConcurrent, r.opts.Timeout,
		func(ctx context.Context, batch []string) (map[string]float64, error) {
			return r.balances.TokenBalances(ctx, wallet, batch)
		})

	for bi, res := range results {
		if u := res.Unresolved(); u != nil {
			fmt.Printf("[HOLDINGS] batch %d/%d (%d ids) unresolved: %v\n", bi+1, len(batches), len(batches[bi]), u.Err)
		}
		for mint, qty := range res.Coalesce(nil) {
			if _, ok := out[mint]; !ok {
				continue
			}
			if !finite(qty) || qty < 0 {
				fmt.Printf("[HOLDINGS] %s: discarding balance %v\n", mint, qty)
				continue
			}
			out[mint] = qty
		}
	}
	return out
}
