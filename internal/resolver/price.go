package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kjannette/trahn-pnl/internal/external"
	"github.com/kjannette/trahn-pnl/internal/models"
	"golang.org/x/sync/errgroup"
)

// QuoteSource is a market-data aggregator that prices batches of mints.
type QuoteSource interface {
	Name() string
	Quotes(ctx context.Context, mints []string) (map[string]external.TokenQuote, error)
}

// ReferencePricer prices the reference asset in USD.
type ReferencePricer interface {
	ReferenceUSDPrice(ctx context.Context) (float64, error)
}

type Options struct {
	BatchSize     int
	MaxConcurrent int
	Timeout       time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 || o.BatchSize > external.DexScreenerMaxBatch {
		o.BatchSize = external.DexScreenerMaxBatch
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 8
	}
	if o.Timeout <= 0 {
		o.Timeout = 8 * time.Second
	}
	return o
}

// Prices is the merged market data for one request. Tokens holds an entry
// for every requested mint, zero-valued when no source knew it.
type Prices struct {
	Tokens       map[string]models.TokenInfo
	ReferenceUSD float64
}

type PriceResolver struct {
	sources   []QuoteSource
	reference ReferencePricer
	opts      Options
}

// NewPriceResolver builds a resolver over sources in priority order. When two
// sources price the same mint, the earlier source's non-zero price wins.
func NewPriceResolver(reference ReferencePricer, opts Options, sources ...QuoteSource) *PriceResolver {
	return &PriceResolver{
		sources:   sources,
		reference: reference,
		opts:      opts.withDefaults(),
	}
}

func (r *PriceResolver) Resolve(ctx context.Context, mints []string) Prices {
	out := Prices{Tokens: make(map[string]models.TokenInfo, len(mints))}
	for _, m := range mints {
		out.Tokens[m] = models.TokenInfo{}
	}
	if len(mints) == 0 {
		return out
	}

	batches := Chunk(mints, r.opts.BatchSize)
	perSource := make([][]Result[map[string]external.TokenQuote], len(r.sources))
	var ref Result[float64]

	var g errgroup.Group
	g.Go(func() error {
		ref = r.resolveReference(ctx)
		return nil
	})
	for si, src := range r.sources {
		g.Go(func() error {
			perSource[si] = fanOut(ctx, src.Name(), batches, r.opts.MaxConcurrent, r.opts.Timeout, src.Quotes)
			return nil
		})
	}
	_ = g.Wait()

	if u := ref.Unresolved(); u != nil {
		fmt.Printf("[PRICE] Reference USD price unresolved: %v\n", u)
	}
	out.ReferenceUSD = ref.Coalesce(0)
	if !finite(out.ReferenceUSD) || out.ReferenceUSD < 0 {
		fmt.Printf("[PRICE] Discarding non-finite reference USD price %v\n", out.ReferenceUSD)
		out.ReferenceUSD = 0
	}

	// Merge in priority order, single-threaded, so completion order is irrelevant.
	for si, results := range perSource {
		for bi, res := range results {
			if u := res.Unresolved(); u != nil {
				fmt.Printf("[PRICE] %s batch %d/%d (%d ids) unresolved: %v\n",
					r.sources[si].Name(), bi+1, len(batches), len(batches[bi]), u.Err)
			}
			for mint, q := range res.Coalesce(nil) {
				cur, ok := out.Tokens[mint]
				if !ok {
					continue
				}
				out.Tokens[mint] = mergeQuote(cur, q, out.ReferenceUSD)
			}
		}
	}
	return out
}

func (r *PriceResolver) resolveReference(ctx context.Context) Result[float64] {
	if r.reference == nil {
		return Failed[float64]("reference", errors.New("no reference pricer configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	v, err := r.reference.ReferenceUSDPrice(ctx)
	if err != nil {
		return Failed[float64]("reference", err)
	}
	return Resolved(v)
}

// mergeQuote fills gaps in cur from q. A non-zero price is never replaced.
func mergeQuote(cur models.TokenInfo, q external.TokenQuote, referenceUSD float64) models.TokenInfo {
	if cur.Symbol == "" {
		cur.Symbol = q.Symbol
	}
	if cur.Name == "" {
		cur.Name = q.Name
	}
	if cur.Image == "" {
		cur.Image = q.Image
	}
	if cur.Price == 0 {
		cur.Price = quotePrice(q, referenceUSD)
	}
	return cur
}

// quotePrice converts a quote into SOL terms, 0 when it cannot.
func quotePrice(q external.TokenQuote, referenceUSD float64) float64 {
	if finite(q.PriceNative) && q.PriceNative > 0 {
		return q.PriceNative
	}
	if finite(q.PriceUSD) && q.PriceUSD > 0 && finite(referenceUSD) && referenceUSD > 0 {
		if p := q.PriceUSD / referenceUSD; finite(p) {
			return p
		}
	}
	return 0
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
