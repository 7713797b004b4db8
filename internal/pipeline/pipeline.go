package pipeline

import (
	"github.com/movement-scanner/internal/logging"
	"github.com/movement-scanner/internal/models"
	"github.com/movement-scanner/internal/types"
)

// Pipeline wires the transform stages together:
// normalize -> enrich entities -> enrich tags -> score confidence -> dedup.
// Ranking is separate so callers that only need raw movements can skip it.
//
// Entity enrichment runs before tag enrichment even though today's tag rules
// key on labels only; future tag rules may key on entity ids.
type Pipeline struct {
	entities *EntityResolver
	dedup    *Deduplicator
	logger   *logging.Logger
}

// New creates a pipeline. The deduplicator is passed in explicitly because it
// is the only stateful stage; whoever owns the pipeline owns its dedup window.
func New(entities *EntityResolver, dedup *Deduplicator, logger *logging.Logger) *Pipeline {
	if entities == nil {
		entities = NewEntityResolver()
	}
	if dedup == nil {
		dedup = NewDeduplicator(DefaultDedupCapacity)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Pipeline{entities: entities, dedup: dedup, logger: logger}
}

// Enrich runs the per-movement stages in order on one movement
func (p *Pipeline) Enrich(m *models.Movement) *models.Movement {
	m = p.entities.Enrich(m)
	m = EnrichTags(m)
	m = ScoreConfidence(m)
	return m
}

// ProcessTransfers normalizes and enriches a batch of raw transfer records
// for one chain, then deduplicates. Records that fail normalization (missing
// identity fields) are dropped with a warning rather than failing the batch.
func (p *Pipeline) ProcessTransfers(raws []types.RawTransfer, chain types.ChainID) []*models.Movement {
	movements := make([]*models.Movement, 0, len(raws))
	for _, raw := range raws {
		m, err := NormalizeTransfer(raw, chain)
		if err != nil {
			p.logger.WithFields(map[string]interface{}{
				"chain": chain,
				"error": err.Error(),
			}).Warn("Skipping unnormalizable transfer record")
			continue
		}
		movements = append(movements, p.Enrich(m))
	}
	return p.dedup.Filter(movements)
}

// ProcessDexTrades normalizes and enriches a batch of raw DEX trade records,
// then deduplicates
func (p *Pipeline) ProcessDexTrades(raws []types.RawDexTrade) []*models.Movement {
	movements := make([]*models.Movement, 0, len(raws))
	for _, raw := range raws {
		m, err := NormalizeDexTrade(raw)
		if err != nil {
			p.logger.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Warn("Skipping unnormalizable dex trade record")
			continue
		}
		movements = append(movements, p.Enrich(m))
	}
	return p.dedup.Filter(movements)
}

// Entities exposes the resolver for callers that enrich outside a batch
func (p *Pipeline) Entities() *EntityResolver {
	return p.entities
}

// Dedup exposes the shared deduplicator
func (p *Pipeline) Dedup() *Deduplicator {
	return p.dedup
}
