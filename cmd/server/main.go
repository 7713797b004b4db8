// Command server runs the movement scanner HTTP API with its background
// refresh worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/movement-scanner/internal/adapter"
	"github.com/movement-scanner/internal/api"
	"github.com/movement-scanner/internal/circuitbreaker"
	"github.com/movement-scanner/internal/config"
	"github.com/movement-scanner/internal/logging"
	"github.com/movement-scanner/internal/pipeline"
	"github.com/movement-scanner/internal/ratelimit"
	"github.com/movement-scanner/internal/service"
	"github.com/movement-scanner/internal/storage"
	"github.com/movement-scanner/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

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

	server := api.NewServer(&api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DefaultChains:   cfg.Chains,
		FreeTierRPS:     cfg.RateLimit.FreeTier,
		PaidTierRPS:     cfg.RateLimit.PaidTier,
	}, aggregator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Refresh.Enabled {
		refreshWorker, err := worker.NewRefreshWorker(aggregator, cfg.Chains, cfg.Refresh.Interval, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create refresh worker")
		}
		if err := refreshWorker.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to start refresh worker")
		}
		defer refreshWorker.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Error("Server failed")
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}
