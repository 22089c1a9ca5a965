package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kjannette/trahn-pnl/internal/cache"
	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/kjannette/trahn-pnl/internal/pnl"
	"github.com/kjannette/trahn-pnl/internal/resolver"
	"github.com/kjannette/trahn-pnl/internal/solana"
	"golang.org/x/sync/errgroup"
)

type EventSource interface {
	Events(ctx context.Context, wallet, assetFilter string) ([]models.SwapEvent, error)
}

type PriceSource interface {
	Resolve(ctx context.Context, mints []string) resolver.Prices
}

type HoldingsSource interface {
	Resolve(ctx context.Context, wallet string, mints []string) map[string]float64
}

// SnapshotStore persists computed summaries. It is never read while computing PnL.
type SnapshotStore interface {
	Record(ctx context.Context, snap *models.PnLSnapshot) error
	ListByWallet(ctx context.Context, wallet string, limit int) ([]models.PnLSnapshot, error)
}

type Service struct {
	events    EventSource
	prices    PriceSource
	holdings  HoldingsSource
	cache     cache.Store
	cacheTTL  time.Duration
	snapshots SnapshotStore
	now       func() time.Time
}

func NewService(events EventSource, prices PriceSource, holdings HoldingsSource) *Service {
	return &Service{
		events:   events,
		prices:   prices,
		holdings: holdings,
		now:      time.Now,
	}
}

// WithCache enables the response cache. A zero ttl leaves it disabled.
func (s *Service) WithCache(store cache.Store, ttl time.Duration) *Service {
	if store != nil && ttl > 0 {
		s.cache = store
		s.cacheTTL = ttl
	}
	return s
}

func (s *Service) WithSnapshots(store SnapshotStore) *Service {
	s.snapshots = store
	return s
}

// CacheName reports the configured cache backend, "" when disabled.
func (s *Service) CacheName() string {
	if s.cache == nil {
		return ""
	}
	return s.cache.Name()
}

func (s *Service) PingCache(ctx context.Context) error {
	if s.cache == nil {
		return errors.New("cache disabled")
	}
	return s.cache.Ping(ctx)
}

// Trades returns the wallet's history for one asset in display shape.
func (s *Service) Trades(ctx context.Context, wallet, token string) ([]models.Trade, error) {
	return cached(ctx, s, "pnl:"+wallet+":"+token, func() ([]models.Trade, error) {
		events, err := s.events.Events(ctx, wallet, token)
		if err != nil {
			logFailure(wallet, "ingest", err)
			return nil, err
		}
		trades := make([]models.Trade, 0, len(events))
		for _, ev := range events {
			trades = append(trades, ev.Trade())
		}
		return trades, nil
	})
}

// Portfolio computes per-asset PnL and the summary for a wallet. Only a
// failure to fetch history is returned; price and holdings gaps read as zero.
func (s *Service) Portfolio(ctx context.Context, wallet string) (*models.PortfolioReport, error) {
	return cached(ctx, s, "pnl:"+wallet+":", func() (*models.PortfolioReport, error) {
		return s.compute(ctx, wallet)
	})
}

func (s *Service) compute(ctx context.Context, wallet string) (*models.PortfolioReport, error) {
	start := s.now()

	events, err := s.events.Events(ctx, wallet, "")
	if err != nil {
		logFailure(wallet, "ingest", err)
		return nil, err
	}

	ledgers := pnl.BuildLedgers(events)
	mints := ledgers.Assets()

	var (
		prices   resolver.Prices
		holdings map[string]float64
	)
	var g errgroup.Group
	g.Go(func() error {
		prices = s.prices.Resolve(ctx, mints)
		return nil
	})
	g.Go(func() error {
		holdings = s.holdings.Resolve(ctx, wallet, mints)
		return nil
	})
	_ = g.Wait()

	tokens, summary := pnl.Compile(ledgers, pnl.Market{
		Tokens:       prices.Tokens,
		Holdings:     holdings,
		ReferenceUSD: prices.ReferenceUSD,
	})

	fmt.Printf("[PNL] %s: %d events, %d assets, total %.6f SOL (%s)\n",
		truncWallet(wallet), len(events), len(tokens), summary.TotalPnL, s.now().Sub(start).Round(time.Millisecond))

	s.recordSnapshot(ctx, wallet, summary)

	return &models.PortfolioReport{Tokens: tokens, Summary: summary}, nil
}

// History lists stored summaries, newest first. Empty when snapshots are disabled.
func (s *Service) History(ctx context.Context, wallet string, limit int) ([]models.PnLSnapshot, error) {
	if err := solana.ValidateAddress(wallet); err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	if s.snapshots == nil {
		return []models.PnLSnapshot{}, nil
	}
	snaps, err := s.snapshots.ListByWallet(ctx, wallet, limit)
	if err != nil {
		logFailure(wallet, "history", err)
		return nil, err
	}
	if snaps == nil {
		snaps = []models.PnLSnapshot{}
	}
	return snaps, nil
}

func (s *Service) recordSnapshot(ctx context.Context, wallet string, sum models.PortfolioSummary) {
	if s.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	snap := &models.PnLSnapshot{
		Wallet:          wallet,
		Timestamp:       s.now().UTC(),
		TotalPnL:        sum.TotalPnL,
		TotalRealized:   sum.TotalRealized,
		TotalUnrealized: sum.TotalUnrealized,
		TotalInvested:   sum.TotalInvested,
		WinRate:         sum.WinRate,
		AssetCount:      sum.TotalAssets,
		TradeCount:      sum.TotalTrades,
	}
	if err := s.snapshots.Record(ctx, snap); err != nil {
		fmt.Printf("[PNL] %s: snapshot not recorded: %v\n", truncWallet(wallet), err)
	}
}

// cached serves key from the cache when possible, otherwise computes and
// stores the JSON encoding. Cache errors only cost latency.
func cached[T any](ctx context.Context, s *Service, key string, compute func() (T, error)) (T, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				return v, nil
			}
			fmt.Printf("[CACHE] Discarding undecodable entry %s\n", key)
		} else if !errors.Is(err, cache.ErrMiss) {
			fmt.Printf("[CACHE] Get failed: %v\n", err)
		}
	}

	v, err := compute()
	if err != nil || s.cache == nil {
		return v, err
	}

	data, mErr := json.Marshal(v)
	if mErr != nil {
		fmt.Printf("[CACHE] Marshal %s: %v\n", key, mErr)
		return v, nil
	}
	if sErr := s.cache.Set(ctx, key, data, s.cacheTTL); sErr != nil {
		fmt.Printf("[CACHE] Set failed: %v\n", sErr)
	}
	return v, nil
}

func logFailure(wallet, stage string, err error) {
	if errors.Is(err, solana.ErrInvalidAddress) {
		return
	}
	fmt.Printf("[PNL] %s: stage=%s failed: %v\n", truncWallet(wallet), stage, err)
}

func truncWallet(w string) string {
	if len(w) <= 10 {
		return w
	}
	return w[:4] + "..." + w[len(w)-4:]
}
