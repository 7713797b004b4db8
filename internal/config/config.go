// Package config provides configuration management for the movement scanner.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/movement-scanner/internal/types"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Providers ProvidersConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
	Refresh   RefreshConfig
	Logging   LoggingConfig
	Chains    []types.ChainID
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// ProvidersConfig holds upstream provider configuration
type ProvidersConfig struct {
	Nansen      NansenConfig
	Etherscan   EtherscanConfig
	Hyperliquid HyperliquidConfig
	DexScreener DexScreenerConfig
}

// NansenConfig holds Nansen API configuration.
// CreditBudget and CreditReserved configure the per-minute credit budget
// shared across processes; CreditReserved is held back for interactive
// requests.
type NansenConfig struct {
	APIKey         string
	BaseURL        string
	CreditBudget   int
	CreditReserved int
}

// EtherscanConfig holds Etherscan API configuration.
// WatchAddresses is the whale watchlist the scanner polls for transfers.
type EtherscanConfig struct {
	APIKey         string
	BaseURL        string
	WatchAddresses []string
}

// HyperliquidConfig holds Hyperliquid info API configuration
type HyperliquidConfig struct {
	BaseURL string
}

// DexScreenerConfig holds DexScreener API configuration
type DexScreenerConfig struct {
	BaseURL string
}

// PipelineConfig holds pipeline tuning knobs
type PipelineConfig struct {
	DedupCapacity int
}

// RateLimitConfig holds API rate limiting configuration (requests per second)
type RateLimitConfig struct {
	FreeTier int
	PaidTier int
}

// RefreshConfig holds the background cache-warm worker configuration
type RefreshConfig struct {
	Enabled  bool
	Interval time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 30*time.Second),
		},
		Providers: ProvidersConfig{
			Nansen: NansenConfig{
				APIKey:         getEnv("NANSEN_API_KEY", ""),
				BaseURL:        getEnv("NANSEN_BASE_URL", "https://api.nansen.ai/api/v1"),
				CreditBudget:   getEnvAsInt("NANSEN_CREDIT_BUDGET", 300),
				CreditReserved: getEnvAsInt("NANSEN_CREDIT_RESERVED", 100),
			},
			Etherscan: EtherscanConfig{
				APIKey:         getEnv("ETHERSCAN_API_KEY", ""),
				BaseURL:        getEnv("ETHERSCAN_BASE_URL", "https://api.etherscan.io/v2/api"),
				WatchAddresses: splitList(getEnv("ETHERSCAN_WATCH_ADDRESSES", "")),
			},
			Hyperliquid: HyperliquidConfig{
				BaseURL: getEnv("HYPERLIQUID_BASE_URL", "https://api.hyperliquid.xyz"),
			},
			DexScreener: DexScreenerConfig{
				BaseURL: getEnv("DEXSCREENER_BASE_URL", "https://api.dexscreener.com"),
			},
		},
		Pipeline: PipelineConfig{
			DedupCapacity: getEnvAsInt("PIPELINE_DEDUP_CAPACITY", 10000),
		},
		RateLimit: RateLimitConfig{
			FreeTier: getEnvAsInt("RATE_LIMIT_FREE_TIER", 10),
			PaidTier: getEnvAsInt("RATE_LIMIT_PAID_TIER", 100),
		},
		Refresh: RefreshConfig{
			Enabled:  getEnvAsBool("REFRESH_ENABLED", true),
			Interval: getEnvAsDuration("REFRESH_INTERVAL", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Chains: loadChains(),
	}

	return config, nil
}

// loadChains parses the enabled chain list
func loadChains() []types.ChainID {
	raw := strings.Split(getEnv("ENABLED_CHAINS", "ethereum,base,solana,hyperliquid"), ",")
	chains := make([]types.ChainID, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		chains = append(chains, types.ChainID(c))
	}
	return chains
}

// splitList parses a comma-separated env value into a trimmed slice
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
