// Command scan runs one aggregation pass and prints the ranked flows, for
// ad-hoc inspection without the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/movement-scanner/internal/adapter"
	"github.com/movement-scanner/internal/circuitbreaker"
	"github.com/movement-scanner/internal/config"
	"github.com/movement-scanner/internal/logging"
	"github.com/movement-scanner/internal/pipeline"
	"github.com/movement-scanner/internal/ratelimit"
	"github.com/movement-scanner/internal/service"
	"github.com/movement-scanner/internal/storage"
	"github.com/movement-scanner/internal/types"
)

func main() {
	chainsFlag := flag.String("chains", "", "comma-separated chains to scan (default: configured chains)")
	limitFlag := flag.Int("limit", 20, "maximum flows to print")
	jsonFlag := flag.Bool("json", false, "print raw JSON instead of a table")
	timeoutFlag := flag.Duration("timeout", 2*time.Minute, "overall scan timeout")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.FormatText)
	logger := logging.GetGlobalLogger()

	chains := cfg.Chains
	if *chainsFlag != "" {
		chains = nil
		for _, c := range strings.Split(*chainsFlag, ",") {
			if c = strings.TrimSpace(c); c != "" {
				chains = append(chains, types.ChainID(c))
			}
		}
	}

	redisCache, err := storage.NewRedisCache(&cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	cache := storage.NewCacheService(redisCache, cfg.Cache.TTL)
	breakers := circuitbreaker.NewManager()

	nansenBudget, err := ratelimit.NewBudgetTracker(&ratelimit.BudgetTrackerConfig{
		Redis:          redisCache.Client(),
		Provider:       "nansen",
		TotalBudget:    cfg.Providers.Nansen.CreditBudget,
		ReservedBudget: cfg.Providers.Nansen.CreditReserved,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Nansen budget tracker")
	}

	providers := []adapter.Provider{
		adapter.NewNansenClient(&cfg.Providers.Nansen, breakers, nansenBudget),
		adapter.NewEtherscanClient(&cfg.Providers.Etherscan, breakers),
		adapter.NewHyperliquidClient(&cfg.Providers.Hyperliquid, breakers),
		adapter.NewDexScreenerClient(&cfg.Providers.DexScreener, breakers),
	}

	pipe := pipeline.New(
		pipeline.NewEntityResolver(),
		pipeline.NewDeduplicator(cfg.Pipeline.DedupCapacity),
		logger,
	)

	aggregator := service.NewAggregator(providers, pipe, pipeline.NewRanker(), cache, breakers, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	flows, err := aggregator.GetFlows(ctx, chains, *limitFlag)
	if err != nil {
		logger.WithError(err).Fatal("Scan failed")
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(flows); err != nil {
			logger.WithError(err).Fatal("Failed to encode flows")
		}
		return
	}

	fmt.Printf("%-5s %-14s %-12s %-10s %14s  %s\n", "SCORE", "TYPE", "CHAIN", "ASSET", "USD", "ID")
	for _, f := range flows {
		m := f.Movement
		fmt.Printf("%-5d %-14s %-12s %-10s %14.0f  %s\n",
			f.Score, f.FlowType, m.Chain, m.AssetSymbol, m.AmountUSD, m.ID)
	}
}
