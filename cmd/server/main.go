package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjannette/trahn-pnl/internal/api"
	"github.com/kjannette/trahn-pnl/internal/cache"
	"github.com/kjannette/trahn-pnl/internal/config"
	"github.com/kjannette/trahn-pnl/internal/db"
	"github.com/kjannette/trahn-pnl/internal/external"
	"github.com/kjannette/trahn-pnl/internal/ingest"
	"github.com/kjannette/trahn-pnl/internal/portfolio"
	"github.com/kjannette/trahn-pnl/internal/repository"
	"github.com/kjannette/trahn-pnl/internal/resolver"
	"github.com/kjannette/trahn-pnl/internal/scheduler"
	"github.com/kjannette/trahn-pnl/internal/solana"
)

const banner = `
╔══════════════════════════════════════╗
║      TRAHN Wallet PnL Service        ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Upstreams
	helius := external.NewHeliusClient(cfg.HeliusAPIKey, cfg.HeliusBaseURL, cfg.UpstreamTimeout)
	dexscreener := external.NewDexScreenerClient(cfg.DexScreenerBaseURL, cfg.UpstreamTimeout)
	coingecko := external.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey, cfg.UpstreamTimeout)

	rpcClient, err := solana.Dial(ctx, cfg.SolanaRPCURL, &http.Client{Timeout: cfg.UpstreamTimeout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "[HOLDINGS] RPC dial failed: %v\n", err)
		os.Exit(1)
	}
	defer rpcClient.Close()

	// Pipeline
	opts := resolver.Options{
		BatchSize:     cfg.PriceBatchSize,
		MaxConcurrent: cfg.MaxConcurrentBatches,
		Timeout:       cfg.UpstreamTimeout,
	}
	svc := portfolio.NewService(
		ingest.NewIngestor(helius, cfg.HistoryLimit),
		resolver.NewPriceResolver(coingecko, opts, dexscreener, coingecko),
		resolver.NewHoldingsResolver(rpcClient, opts),
	)

	// Cache
	if cfg.CacheTTL > 0 {
		var store cache.Store = cache.NewMemoryStore()
		if cfg.RedisAddr != "" {
			rs := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			defer rs.Close()
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if err := rs.Ping(pingCtx); err != nil {
				fmt.Printf("[CACHE] Redis at %s not reachable yet: %v\n", cfg.RedisAddr, err)
			}
			cancel()
			store = rs
		}
		svc.WithCache(store, cfg.CacheTTL)
		fmt.Printf("[CACHE] %s cache enabled (TTL %s)\n", store.Name(), cfg.CacheTTL)
	}

	// Snapshots (optional)
	var dbPinger api.Pinger
	var pruner *scheduler.Pruner
	if cfg.SnapshotsEnabled {
		fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
		pool, err := db.Connect(ctx, cfg.DSN())
		if err != nil {
			fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			pool.Close()
			fmt.Println("[DB] Connection pool closed")
		}()

		if err := db.TestConnection(ctx, pool); err != nil {
			fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
			os.Exit(1)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			fmt.Fprintf(os.Stderr, "[DB] %v\n", err)
			os.Exit(1)
		}

		snapshots := repository.NewSnapshotRepo(pool)
		svc.WithSnapshots(snapshots)
		dbPinger = pool

		pruner = scheduler.NewPruner(snapshots, scheduler.PrunerConfig{
			Interval:  1 * time.Hour,
			Retention: time.Duration(cfg.SnapshotRetentionDays) * 24 * time.Hour,
		})
		pruner.Start()
	} else {
		fmt.Println("[DB] Skipped - snapshots disabled")
	}

	// API server
	srv := api.NewServer(svc, dbPinger, cfg.APIPort, cfg.APIKey, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")

	if pruner != nil {
		pruner.Stop()
	}
	fmt.Println("Shutdown complete")
}
