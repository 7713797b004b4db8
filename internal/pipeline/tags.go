package pipeline

import (
	"strings"

	"github.com/movement-scanner/internal/models"
	"github.com/movement-scanner/internal/types"
)

// Label markers some providers embed instead of words
const (
	custodyMarker = "\U0001F3E6" // bank emoji, marks custody wallets
	botMarker     = "\U0001F916" // robot emoji, marks protocol bots
)

// whaleThresholdUSD is the amount above which a movement is tagged as whale
const whaleThresholdUSD = 10_000_000

// stablecoinSymbols is the fixed set of symbols treated as 1:1 USD
var stablecoinSymbols = map[string]bool{
	"USDT": true, "USDC": true, "DAI": true, "BUSD": true, "TUSD": true,
	"USDP": true, "GUSD": true, "PYUSD": true, "FRAX": true,
}

var fundKeywords = []string{
	"fund", "capital", "ventures", "vc", "trading firm", "asset management",
	"a16z", "paradigm", "pantera", "polychain", "grayscale", "galaxy digital",
}

var marketMakerKeywords = []string{
	"market maker", "liquidity provider", "wintermute", "gsr", "cumberland",
	"dwf labs", "amber group", "b2c2", "flow traders",
}

var protocolKeywords = []string{
	"protocol", "contract", "vault", "pool", "uniswap", "aave", "curve",
	"lido", "compound", "maker", "sushiswap", "1inch", "balancer", "jupiter",
	"raydium",
}

var smartMoneyKeywords = []string{
	"smart", "30d smart", "elite", "dex trader", "legendary", "smart money",
}

// EnrichTags returns a copy of the movement with its tag set populated.
// Each rule is an independent boolean over labels, amount, and type; a record
// can carry several tags at once. Recomputing over the same movement always
// yields the same set.
func EnrichTags(m *models.Movement) *models.Movement {
	enriched := *m
	tags := make([]types.Tag, 0, 4)

	joined := joinedLabels(m)

	if labelHasAny(joined, cexPatterns) || strings.Contains(joined, "exchange") || strings.Contains(joined, custodyMarker) {
		tags = append(tags, types.TagExchange)
	}
	if labelHasAny(joined, fundKeywords) {
		tags = append(tags, types.TagFund)
	}
	if labelHasAny(joined, marketMakerKeywords) {
		tags = append(tags, types.TagMarketMaker)
	}

	// Protocol membership feeds both the protocol and defi rules, so it is
	// computed once as a named condition instead of checking the tag slice.
	isProtocol := labelHasAny(joined, protocolKeywords) || strings.Contains(joined, botMarker)
	if isProtocol {
		tags = append(tags, types.TagProtocol)
	}

	if m.MovementType == types.MovementBridge || strings.Contains(joined, "bridge") {
		tags = append(tags, types.TagBridge)
	}
	if stablecoinSymbols[strings.ToUpper(m.AssetSymbol)] {
		tags = append(tags, types.TagStablecoin)
	}
	if labelHasAny(joined, smartMoneyKeywords) {
		tags = append(tags, types.TagSmartMoney)
	}

	isDefi := m.MovementType == types.MovementSwap || isProtocol ||
		(m.Metadata != nil && m.Metadata.DexName != "")
	if isDefi {
		tags = append(tags, types.TagDefi)
	}

	if m.AmountUSD > whaleThresholdUSD {
		tags = append(tags, types.TagWhale)
	}

	enriched.Tags = tags
	return &enriched
}

// joinedLabels concatenates both side labels lowercased, so label rules apply
// when either side matches
func joinedLabels(m *models.Movement) string {
	var parts []string
	if m.FromLabel != nil {
		parts = append(parts, strings.ToLower(*m.FromLabel))
	}
	if m.ToLabel != nil {
		parts = append(parts, strings.ToLower(*m.ToLabel))
	}
	return strings.Join(parts, " | ")
}

func labelHasAny(joined string, keywords []string) bool {
	if joined == "" {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(joined, kw) {
			return true
		}
	}
	return false
}
