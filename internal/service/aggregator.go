// Package service contains the aggregation orchestrator. It fans out to the
// provider clients, pushes everything through the pipeline, ranks the result,
// and caches the assembled view so the HTTP layer stays thin.
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/movement-scanner/internal/adapter"
	"github.com/movement-scanner/internal/circuitbreaker"
	"github.com/movement-scanner/internal/logging"
	"github.com/movement-scanner/internal/models"
	"github.com/movement-scanner/internal/pipeline"
	"github.com/movement-scanner/internal/storage"
	"github.com/movement-scanner/internal/types"
	"golang.org/x/sync/errgroup"
)

// maxFanOutConcurrency bounds the number of in-flight provider fetches
const maxFanOutConcurrency = 8

// retentionWindow is how long a movement stays in the rolling view. Beyond a
// day the recency score is zero and the record is noise.
const retentionWindow = 24 * time.Hour

// maxRetainedMovements caps the rolling view
const maxRetainedMovements = 1000

// Aggregator assembles ranked movement views from all providers
type Aggregator struct {
	providers []adapter.Provider
	pipeline  *pipeline.Pipeline
	ranker    *pipeline.Ranker
	cache     *storage.CacheService
	breakers  *circuitbreaker.Manager
	logger    *logging.Logger
}

// NewAggregator creates the aggregation service
func NewAggregator(
	providers []adapter.Provider,
	pipe *pipeline.Pipeline,
	ranker *pipeline.Ranker,
	cache *storage.CacheService,
	breakers *circuitbreaker.Manager,
	logger *logging.Logger,
) *Aggregator {
	if ranker == nil {
		ranker = pipeline.NewRanker()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Aggregator{
		providers: providers,
		pipeline:  pipe,
		ranker:    ranker,
		cache:     cache,
		breakers:  breakers,
		logger:    logger,
	}
}

// GetFlows returns the ranked flow view for a chain selection, serving from
// cache when fresh and rebuilding on a miss
func (a *Aggregator) GetFlows(ctx context.Context, chains []types.ChainID, limit int) ([]*models.Flow, error) {
	flows, err := a.flowsFor(ctx, chains)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(flows) > limit {
		flows = flows[:limit]
	}
	return flows, nil
}

// GetMovements returns ranked movements for a chain selection, filtered by a
// minimum USD size. Filters apply after the cache so every selection of the
// same chains shares one cached build.
func (a *Aggregator) GetMovements(ctx context.Context, chains []types.ChainID, minUSD float64, limit int) ([]*models.Movement, error) {
	flows, err := a.flowsFor(ctx, chains)
	if err != nil {
		return nil, err
	}

	movements := make([]*models.Movement, 0, len(flows))
	for _, f := range flows {
		if f.Movement.AmountUSD < minUSD {
			continue
		}
		movements = append(movements, f.Movement)
		if limit > 0 && len(movements) == limit {
			break
		}
	}
	return movements, nil
}

// ProviderStatus reports circuit breaker snapshots keyed by provider name
func (a *Aggregator) ProviderStatus() map[string]*circuitbreaker.Stats {
	return a.breakers.GetAllStats()
}

// Refresh rebuilds the cached view for a chain selection regardless of cache
// state. The background worker calls this to keep the cache warm.
func (a *Aggregator) Refresh(ctx context.Context, chains []types.ChainID) error {
	_, err := a.rebuild(ctx, chains)
	return err
}

// flowsFor serves from cache, rebuilding on a miss
func (a *Aggregator) flowsFor(ctx context.Context, chains []types.ChainID) ([]*models.Flow, error) {
	key := a.cache.GenerateFlowsKey(chains)

	var cached []*models.Flow
	hit, err := a.cache.Get(ctx, key, &cached)
	if err != nil {
		// A broken cache degrades to a rebuild, it never fails the request
		a.logger.WithError(err).Warn("Cache read failed, rebuilding")
	}
	if hit {
		return cached, nil
	}

	return a.rebuild(ctx, chains)
}

// rebuild fans out to every provider for every chain, runs the pipeline,
// merges the fresh movements into the rolling view, ranks it, and stores the
// result. A failing provider slice degrades to empty; the rebuild only fails
// when the context is cancelled.
//
// The deduplicator remembers ids across rebuilds, so a record re-fetched on
// the next refresh does not re-enter the view; the rolling store is what keeps
// it visible until it ages out.
func (a *Aggregator) rebuild(ctx context.Context, chains []types.ChainID) ([]*models.Flow, error) {
	start := time.Now()

	var mu sync.Mutex
	var fresh []*models.Movement

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanOutConcurrency)

	for _, provider := range a.providers {
		for _, chain := range chains {
			if !provider.SupportsChain(chain) {
				continue
			}
			provider, chain := provider, chain

			g.Go(func() error {
				batch := a.fetchSlice(gctx, provider, chain)
				if len(batch) == 0 {
					return nil
				}
				mu.Lock()
				fresh = append(fresh, batch...)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	movements := a.mergeRetained(ctx, chains, fresh)
	flows := a.ranker.Rank(movements)

	key := a.cache.GenerateFlowsKey(chains)
	if err := a.cache.Set(ctx, key, flows); err != nil {
		a.logger.WithError(err).Warn("Failed to store rebuilt view in cache")
	}

	a.logger.WithFields(map[string]interface{}{
		"chains":    len(chains),
		"fresh":     len(fresh),
		"movements": len(flows),
		"duration":  time.Since(start).String(),
	}).Info("Rebuilt movement view")

	return flows, nil
}

// mergeRetained folds fresh movements into the rolling store for a chain
// selection, pruning aged-out records and capping the total, then writes the
// store back with the retention-window TTL
func (a *Aggregator) mergeRetained(ctx context.Context, chains []types.ChainID, fresh []*models.Movement) []*models.Movement {
	key := a.cache.GenerateMovementsKey(chains)

	var retained []*models.Movement
	if _, err := a.cache.Get(ctx, key, &retained); err != nil {
		a.logger.WithError(err).Warn("Rolling store read failed, starting empty")
		retained = nil
	}

	now := time.Now()
	seen := make(map[string]bool, len(fresh)+len(retained))
	merged := make([]*models.Movement, 0, len(fresh)+len(retained))
	for _, m := range fresh {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		merged = append(merged, m)
	}
	for _, m := range retained {
		if seen[m.ID] || m.Age(now) > retentionWindow {
			continue
		}
		seen[m.ID] = true
		merged = append(merged, m)
	}

	// Newest first before capping so the cap drops the oldest records
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})
	if len(merged) > maxRetainedMovements {
		merged = merged[:maxRetainedMovements]
	}

	if err := a.cache.SetWithTTL(ctx, key, merged, retentionWindow); err != nil {
		a.logger.WithError(err).Warn("Failed to store rolling movement set")
	}

	return merged
}

// fetchSlice fetches and processes one provider's records for one chain.
// Failures are logged and degrade to an empty slice.
func (a *Aggregator) fetchSlice(ctx context.Context, provider adapter.Provider, chain types.ChainID) []*models.Movement {
	var out []*models.Movement

	transfers, err := provider.FetchTransfers(ctx, chain)
	if err != nil {
		a.logger.WithFields(map[string]interface{}{
			"provider": provider.Name(),
			"chain":    chain,
			"error":    err.Error(),
		}).Warn("Transfer fetch failed, continuing without this slice")
	} else if len(transfers) > 0 {
		out = append(out, a.pipeline.ProcessTransfers(transfers, chain)...)
	}

	trades, err := provider.FetchDexTrades(ctx, chain)
	if err != nil {
		a.logger.WithFields(map[string]interface{}{
			"provider": provider.Name(),
			"chain":    chain,
			"error":    err.Error(),
		}).Warn("DEX trade fetch failed, continuing without this slice")
	} else if len(trades) > 0 {
		out = append(out, a.pipeline.ProcessDexTrades(trades)...)
	}

	return out
}
