package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	maxHistoryLimit = 1000
	maxBatchSize    = 30
)

type Config struct {
	// API
	APIPort         int
	APIKey          string
	CORSAllowOrigin string

	// Upstreams
	HeliusAPIKey       string
	HeliusBaseURL      string
	SolanaRPCURL       string
	DexScreenerBaseURL string
	CoinGeckoBaseURL   string
	CoinGeckoAPIKey    string

	// Pipeline
	HistoryLimit         int
	PriceBatchSize       int
	MaxConcurrentBatches int
	UpstreamTimeout      time.Duration

	// Cache
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Snapshots (Postgres)
	SnapshotsEnabled      bool
	SnapshotRetentionDays int
	DBHost                string
	DBPort                int
	DBName                string
	DBUser                string
	DBPassword            string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	heliusKey := envStr("HELIUS_API_KEY", "")

	cfg := &Config{
		APIPort:         envInt("API_PORT", 3001),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		HeliusAPIKey:       heliusKey,
		HeliusBaseURL:      envStr("HELIUS_BASE_URL", "https://api-mainnet.helius-rpc.com"),
		SolanaRPCURL:       envStr("SOLANA_RPC_URL", "https://mainnet.helius-rpc.com/?api-key="+heliusKey),
		DexScreenerBaseURL: envStr("DEXSCREENER_BASE_URL", "https://api.dexscreener.com"),
		CoinGeckoBaseURL:   envStr("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:    envStr("COINGECKO_API_KEY", ""),

		HistoryLimit:         envInt("HISTORY_LIMIT", 100),
		PriceBatchSize:       envInt("PRICE_BATCH_SIZE", maxBatchSize),
		MaxConcurrentBatches: envInt("MAX_CONCURRENT_BATCHES", 8),
		UpstreamTimeout:      envSeconds("UPSTREAM_TIMEOUT_SECONDS", 8),

		CacheTTL:      envSeconds("CACHE_TTL_SECONDS", 30),
		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		SnapshotsEnabled:      envBool("SNAPSHOTS_ENABLED", false),
		SnapshotRetentionDays: envInt("SNAPSHOT_RETENTION_DAYS", 30),
		DBHost:                envStr("DB_HOST", "localhost"),
		DBPort:                envInt("DB_PORT", 5432),
		DBName:                envStr("DB_NAME", "trahn_pnl"),
		DBUser:                envStr("DB_USER", ""),
		DBPassword:            envStr("DB_PASSWORD", ""),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.HeliusAPIKey == "" {
		errs = append(errs, "HELIUS_API_KEY is required")
	}
	if c.HistoryLimit <= 0 || c.HistoryLimit > maxHistoryLimit {
		errs = append(errs, fmt.Sprintf("HISTORY_LIMIT must be in [1, %d]", maxHistoryLimit))
	}
	if c.PriceBatchSize <= 0 || c.PriceBatchSize > maxBatchSize {
		errs = append(errs, fmt.Sprintf("PRICE_BATCH_SIZE must be in [1, %d]", maxBatchSize))
	}
	if c.MaxConcurrentBatches <= 0 {
		errs = append(errs, "MAX_CONCURRENT_BATCHES must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, "UPSTREAM_TIMEOUT_SECONDS must be positive")
	}
	if c.SnapshotsEnabled && c.DBUser == "" {
		errs = append(errs, "DB_USER is required when SNAPSHOTS_ENABLED=true")
	}

	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set, REST API has no authentication")
	}
	if c.CacheTTL == 0 {
		fmt.Println("[WARN] CACHE_TTL_SECONDS is 0, every request recomputes from upstream")
	}
	if c.UpstreamTimeout >= 10*time.Second {
		fmt.Printf("[WARN] UPSTREAM_TIMEOUT_SECONDS=%d is high, slow batches will hold requests open\n",
			int(c.UpstreamTimeout.Seconds()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Wallet PnL Service Configuration ===")
	fmt.Printf("API Port: %d\n", c.APIPort)
	fmt.Printf("Helius: %s (key %s)\n", c.HeliusBaseURL, boolLabel(c.HeliusAPIKey != "", "set", "missing"))
	fmt.Printf("Solana RPC: %s\n", redactQuery(c.SolanaRPCURL))
	fmt.Printf("DexScreener: %s\n", c.DexScreenerBaseURL)
	fmt.Printf("CoinGecko: %s\n", c.CoinGeckoBaseURL)
	fmt.Println("--------------------------------------")
	fmt.Println("Pipeline:")
	fmt.Printf("  History Limit: %d\n", c.HistoryLimit)
	fmt.Printf("  Price Batch Size: %d\n", c.PriceBatchSize)
	fmt.Printf("  Max Concurrent Batches: %d\n", c.MaxConcurrentBatches)
	fmt.Printf("  Upstream Timeout: %s\n", c.UpstreamTimeout)
	fmt.Println("--------------------------------------")
	fmt.Printf("Cache: %s (TTL %s)\n", boolLabel(c.RedisAddr != "", "redis "+c.RedisAddr, "in-memory"), c.CacheTTL)
	fmt.Printf("Snapshots: %s\n", boolLabel(c.SnapshotsEnabled,
		fmt.Sprintf("enabled (%s:%d/%s, retention %d days)", c.DBHost, c.DBPort, c.DBName, c.SnapshotRetentionDays),
		"disabled"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

// redactQuery hides query strings, which carry API keys for most RPC providers.
func redactQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i] + "?<redacted>"
	}
	return u
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
