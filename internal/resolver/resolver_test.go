package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjannette/trahn-pnl/internal/external"
	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Coalesce(t *testing.T) {
	t.Parallel()
	ok := Resolved(4.2)
	assert.True(t, ok.OK())
	assert.Nil(t, ok.Unresolved())
	assert.Equal(t, 4.2, ok.Coalesce(0))

	cause := errors.New("timeout")
	bad := Failed[float64]("dexscreener", cause)
	assert.False(t, bad.OK())
	assert.Equal(t, 0.0, bad.Coalesce(0))
	assert.ErrorIs(t, bad.Unresolved(), cause)
	assert.Contains(t, bad.Unresolved().Error(), "dexscreener")
}

func TestChunk(t *testing.T) {
	t.Parallel()
	ids := make([]string, 65)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%d", i)
	}
	batches := Chunk(ids, 30)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 30)
	assert.Len(t, batches[1], 30)
	assert.Len(t, batches[2], 5)
	assert.Equal(t, "m60", batches[2][0])

	assert.Empty(t, Chunk(nil, 30))
}

type fakeSource struct {
	name   string
	quotes map[string]external.TokenQuote
	fail   map[string]bool // batches containing these ids fail
	delay  func(batch []string) time.Duration

	mu       sync.Mutex
	batches  [][]string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Quotes(ctx context.Context, mints []string) (map[string]external.TokenQuote, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.batches = append(f.batches, mints)
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(mints)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	out := map[string]external.TokenQuote{}
	for _, m := range mints {
		if f.fail[m] {
			return nil, errors.New("upstream 503")
		}
		if q, ok := f.quotes[m]; ok {
			out[m] = q
		}
	}
	return out, nil
}

type fixedReference struct {
	usd float64
	err error
}

func (f fixedReference) ReferenceUSDPrice(context.Context) (float64, error) { return f.usd, f.err }

func TestPriceResolver_MergePolicy(t *testing.T) {
	t.Parallel()
	primary := &fakeSource{name: "primary", quotes: map[string]external.TokenQuote{
		"a": {Symbol: "A", Name: "Alpha", PriceNative: 0.5},
		"b": {Symbol: "B", PriceNative: 0}, // listed, unpriced
	}}
	secondary := &fakeSource{name: "secondary", quotes: map[string]external.TokenQuote{
		"a": {Symbol: "A2", PriceUSD: 999},
		"b": {Name: "Bravo", Image: "b.png", PriceUSD: 20},
		"c": {PriceUSD: 10},
	}}

	r := NewPriceResolver(fixedReference{usd: 200}, Options{}, primary, secondary)
	got := r.Resolve(context.Background(), []string{"a", "b", "c", "d"})

	assert.Equal(t, 200.0, got.ReferenceUSD)
	assert.Equal(t, models.TokenInfo{Symbol: "A", Name: "Alpha", Price: 0.5}, got.Tokens["a"])
	assert.Equal(t, models.TokenInfo{Symbol: "B", Name: "Bravo", Image: "b.png", Price: 0.1}, got.Tokens["b"])
	assert.Equal(t, 0.05, got.Tokens["c"].Price)
	assert.Equal(t, models.TokenInfo{}, got.Tokens["d"], "unknown mints are present and zero")
}

func TestPriceResolver_ReferenceUnresolved(t *testing.T) {
	t.Parallel()
	src := &fakeSource{name: "s", quotes: map[string]external.TokenQuote{
		"a": {PriceNative: 0.3},
		"b": {PriceUSD: 4},
	}}
	r := NewPriceResolver(fixedReference{err: errors.New("rate limited")}, Options{}, src)
	got := r.Resolve(context.Background(), []string{"a", "b"})

	assert.Equal(t, 0.0, got.ReferenceUSD)
	assert.Equal(t, 0.3, got.Tokens["a"].Price)
	assert.Equal(t, 0.0, got.Tokens["b"].Price, "USD-only quote cannot be converted without the reference price")
}

func TestPriceResolver_NonFiniteQuotesAreNoPrice(t *testing.T) {
	t.Parallel()
	primary := &fakeSource{name: "primary", quotes: map[string]external.TokenQuote{
		"a": {Symbol: "A", PriceNative: math.NaN()},
		"b": {PriceUSD: math.Inf(1)},
	}}
	secondary := &fakeSource{name: "secondary", quotes: map[string]external.TokenQuote{
		"a": {PriceNative: 0.25},
	}}
	got := NewPriceResolver(fixedReference{usd: 100}, Options{}, primary, secondary).
		Resolve(context.Background(), []string{"a", "b"})

	assert.Equal(t, 0.25, got.Tokens["a"].Price, "a NaN price must not block a later source")
	assert.Equal(t, 0.0, got.Tokens["b"].Price)

	got = NewPriceResolver(fixedReference{usd: math.Inf(1)}, Options{}, secondary).
		Resolve(context.Background(), []string{"a"})
	assert.Equal(t, 0.0, got.ReferenceUSD)
}

func TestPriceResolver_BatchFailureIsIsolated(t *testing.T) {
	t.Parallel()
	ids := make([]string, 70)
	quotes := map[string]external.TokenQuote{}
	for i := range ids {
		ids[i] = fmt.Sprintf("m%02d", i)
		quotes[ids[i]] = external.TokenQuote{PriceNative: 1}
	}
	src := &fakeSource{name: "s", quotes: quotes, fail: map[string]bool{"m35": true}}

	r := NewPriceResolver(fixedReference{usd: 100}, Options{BatchSize: 30}, src)
	got := r.Resolve(context.Background(), ids)

	require.Len(t, src.batches, 3)
	for _, b := range src.batches {
		assert.LessOrEqual(t, len(b), 30)
	}
	require.Len(t, got.Tokens, 70)
	for i, id := range ids {
		want := 1.0
		if i >= 30 && i < 60 {
			want = 0
		}
		assert.Equal(t, want, got.Tokens[id].Price, id)
	}
}

func TestPriceResolver_BatchesRunConcurrently(t *testing.T) {
	t.Parallel()
	ids := make([]string, 90)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%02d", i)
	}
	src := &fakeSource{name: "s", delay: func([]string) time.Duration { return 100 * time.Millisecond }}

	r := NewPriceResolver(fixedReference{usd: 1}, Options{BatchSize: 30, MaxConcurrent: 8}, src)
	start := time.Now()
	r.Resolve(context.Background(), ids)

	assert.Equal(t, int32(3), src.peak.Load())
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestPriceResolver_TimeoutDegrades(t *testing.T) {
	t.Parallel()
	slow := &fakeSource{
		name:   "slow",
		quotes: map[string]external.TokenQuote{"a": {PriceNative: 2}},
		delay:  func([]string) time.Duration { return time.Second },
	}
	r := NewPriceResolver(fixedReference{usd: 1}, Options{Timeout: 50 * time.Millisecond}, slow)
	got := r.Resolve(context.Background(), []string{"a"})
	assert.Equal(t, 0.0, got.Tokens["a"].Price)
}

func TestPriceResolver_CompletionOrderIrrelevant(t *testing.T) {
	t.Parallel()
	ids := []string{"a", "b", "c", "d"}
	mk := func(seed int) Prices {
		first := &fakeSource{name: "first", quotes: map[string]external.TokenQuote{
			"a": {Symbol: "A", PriceNative: 1}, "c": {PriceNative: 0},
		}, delay: func(b []string) time.Duration { return time.Duration((seed*7+int(b[0][0]))%5) * 5 * time.Millisecond }}
		second := &fakeSource{name: "second", quotes: map[string]external.TokenQuote{
			"a": {Symbol: "AX", PriceNative: 9}, "c": {PriceNative: 3}, "d": {Symbol: "D", PriceNative: 4},
		}, delay: func(b []string) time.Duration { return time.Duration((seed*3+int(b[0][0]))%5) * 5 * time.Millisecond }}
		return NewPriceResolver(fixedReference{usd: 1}, Options{BatchSize: 1}, first, second).
			Resolve(context.Background(), ids)
	}

	want := mk(0)
	for seed := 1; seed < 5; seed++ {
		assert.Equal(t, want, mk(seed))
	}
	assert.Equal(t, 1.0, want.Tokens["a"].Price)
	assert.Equal(t, 3.0, want.Tokens["c"].Price)
}

type fakeBalances struct {
	data    map[string]float64
	failFor string
}

func (f fakeBalances) TokenBalances(_ context.Context, _ string, mints []string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, m := range mints {
		if m == f.failFor {
			return nil, errors.New("rpc unavailable")
		}
		if v, ok := f.data[m]; ok {
			out[m] = v
		}
	}
	return out, nil
}

func TestHoldingsResolver(t *testing.T) {
	t.Parallel()
	r := NewHoldingsResolver(fakeBalances{
		data:    map[string]float64{"a": 100, "b": 5, "c": 7, "z": 1},
		failFor: "c",
	}, Options{BatchSize: 2})

	got := r.Resolve(context.Background(), "wallet", []string{"a", "b", "c", "d"})
	assert.Equal(t, map[string]float64{"a": 100, "b": 5, "c": 0, "d": 0}, got)

	assert.Empty(t, r.Resolve(context.Background(), "wallet", nil))

	odd := NewHoldingsResolver(fakeBalances{data: map[string]float64{"a": math.NaN(), "b": math.Inf(1)}}, Options{})
	assert.Equal(t, map[string]float64{"a": 0, "b": 0}, odd.Resolve(context.Background(), "wallet", []string{"a", "b"}))
}
