package pipeline

import (
	"strings"

	"github.com/movement-scanner/internal/models"
)

// entityEntry maps one canonical entity id to its known label variants.
// Patterns are matched against lowercased, trimmed labels.
type entityEntry struct {
	id       string
	patterns []string
}

// entityTable is the static mapping from label variants to canonical entity
// ids, grouped by entity kind. Order matters: substring matching walks the
// table top to bottom and the first matching pattern wins, which is the
// documented tie-break for labels that match more than one pattern.
var entityTable = []entityEntry{
	// Centralized exchanges
	{id: "cex-binance", patterns: []string{"binance", "bnb vault"}},
	{id: "cex-coinbase", patterns: []string{"coinbase", "cb prime"}},
	{id: "cex-kraken", patterns: []string{"kraken"}},
	{id: "cex-okx", patterns: []string{"okx", "okex"}},
	{id: "cex-bybit", patterns: []string{"bybit"}},
	{id: "cex-bitfinex", patterns: []string{"bitfinex"}},
	{id: "cex-htx", patterns: []string{"htx", "huobi"}},
	{id: "cex-gemini", patterns: []string{"gemini"}},
	{id: "cex-gate", patterns: []string{"gate.io", "gate io"}},
	{id: "cex-kucoin", patterns: []string{"kucoin"}},
	{id: "cex-cryptocom", patterns: []string{"crypto.com", "crypto com"}},

	// Funds and VCs
	{id: "fund-a16z", patterns: []string{"a16z", "andreessen"}},
	{id: "fund-paradigm", patterns: []string{"paradigm"}},
	{id: "fund-pantera", patterns: []string{"pantera"}},
	{id: "fund-polychain", patterns: []string{"polychain"}},
	{id: "fund-galaxy", patterns: []string{"galaxy digital"}},
	{id: "fund-grayscale", patterns: []string{"grayscale"}},
	{id: "fund-jump", patterns: []string{"jump trading", "jump crypto"}},

	// Market makers
	{id: "mm-wintermute", patterns: []string{"wintermute"}},
	{id: "mm-gsr", patterns: []string{"gsr markets", "gsr"}},
	{id: "mm-cumberland", patterns: []string{"cumberland"}},
	{id: "mm-dwf", patterns: []string{"dwf labs"}},
	{id: "mm-amber", patterns: []string{"amber group"}},
	{id: "mm-b2c2", patterns: []string{"b2c2"}},
	{id: "mm-flowtraders", patterns: []string{"flow traders"}},

	// DeFi protocols
	{id: "protocol-uniswap", patterns: []string{"uniswap"}},
	{id: "protocol-aave", patterns: []string{"aave"}},
	{id: "protocol-curve", patterns: []string{"curve"}},
	{id: "protocol-lido", patterns: []string{"lido"}},
	{id: "protocol-compound", patterns: []string{"compound"}},
	{id: "protocol-maker", patterns: []string{"maker", "makerdao"}},
	{id: "protocol-sushi", patterns: []string{"sushiswap", "sushi"}},
	{id: "protocol-1inch", patterns: []string{"1inch"}},
	{id: "protocol-balancer", patterns: []string{"balancer"}},
	{id: "protocol-jupiter", patterns: []string{"jupiter"}},
	{id: "protocol-raydium", patterns: []string{"raydium"}},
}

// cexPatterns are the exchange label fragments used by the normalizer's
// deposit/withdrawal classification and by the exchange tag rule
var cexPatterns = []string{
	"binance", "coinbase", "kraken", "okx", "okex", "bybit", "bitfinex",
	"htx", "huobi", "gemini", "gate.io", "gate io", "kucoin", "crypto.com",
	"crypto com",
}

func labelMatchesCEX(label *string) bool {
	if label == nil {
		return false
	}
	lower := strings.ToLower(*label)
	for _, p := range cexPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// EntityResolver maps free-text provider labels to canonical entity ids so
// that different sub-labels of one institution ("Binance 1", "Binance Hot
// Wallet") collapse to one id. Read-only after construction; safe for
// concurrent use.
type EntityResolver struct {
	table []entityEntry
	exact map[string]string // normalized variant -> canonical id
}

// NewEntityResolver builds a resolver over the static entity table
func NewEntityResolver() *EntityResolver {
	exact := make(map[string]string)
	for _, entry := range entityTable {
		for _, p := range entry.patterns {
			exact[p] = entry.id
		}
	}
	return &EntityResolver{table: entityTable, exact: exact}
}

// Resolve maps a label to a canonical entity id. Lookup order: exact variant
// match, then substring match in table order (either direction), then a
// slugified fallback id so identical unknown labels still collapse together.
func (r *EntityResolver) Resolve(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" || normalized == strings.ToLower(unknownWalletPlaceholder) {
		return ""
	}

	if id, ok := r.exact[normalized]; ok {
		return id
	}

	for _, entry := range r.table {
		for _, p := range entry.patterns {
			if strings.Contains(normalized, p) || strings.Contains(p, normalized) {
				return entry.id
			}
		}
	}

	return slugify(normalized)
}

// Enrich returns a copy of the movement with entity ids populated from its
// labels. Absent labels leave the corresponding entity id unset.
func (r *EntityResolver) Enrich(m *models.Movement) *models.Movement {
	enriched := *m

	if m.FromLabel != nil {
		if id := r.Resolve(*m.FromLabel); id != "" {
			enriched.FromEntityID = &id
		}
	}
	if m.ToLabel != nil {
		if id := r.Resolve(*m.ToLabel); id != "" {
			enriched.ToEntityID = &id
		}
	}

	return &enriched
}

// slugify converts a label into a stable fallback entity id: lowercased with
// non-alphanumeric runs collapsed to single hyphens
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
