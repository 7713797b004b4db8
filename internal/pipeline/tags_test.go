package pipeline

import (
	"testing"

	"github.com/movement-scanner/internal/models"
	"github.com/movement-scanner/internal/types"
	"github.com/stretchr/testify/assert"
)

func movementWithLabels(from, to string) *models.Movement {
	m := &models.Movement{
		ID:           "ethereum-0x1-0",
		Chain:        types.ChainEthereum,
		MovementType: types.MovementTransfer,
		AssetSymbol:  "WETH",
	}
	if from != "" {
		m.FromLabel = &from
	}
	if to != "" {
		m.ToLabel = &to
	}
	return m
}

func TestEnrichTagsExchange(t *testing.T) {
	assert.Contains(t, EnrichTags(movementWithLabels("Binance 14", "")).Tags, types.TagExchange)
	assert.Contains(t, EnrichTags(movementWithLabels("", "Some Exchange Wallet")).Tags, types.TagExchange)
	assert.Contains(t, EnrichTags(movementWithLabels("Custody 🏦", "")).Tags, types.TagExchange)
	assert.NotContains(t, EnrichTags(movementWithLabels("Random Whale", "")).Tags, types.TagExchange)
}

func TestEnrichTagsFundAndMarketMaker(t *testing.T) {
	m := EnrichTags(movementWithLabels("Paradigm Capital", "Wintermute"))
	assert.Contains(t, m.Tags, types.TagFund)
	assert.Contains(t, m.Tags, types.TagMarketMaker)
}

func TestEnrichTagsProtocolFeedsDefi(t *testing.T) {
	// A protocol label on a plain transfer yields both protocol and defi
	m := EnrichTags(movementWithLabels("", "Aave: Lending Pool V3"))
	assert.Contains(t, m.Tags, types.TagProtocol)
	assert.Contains(t, m.Tags, types.TagDefi)

	// The bot marker counts as a protocol signal
	m = EnrichTags(movementWithLabels("MEV Bot 🤖", ""))
	assert.Contains(t, m.Tags, types.TagProtocol)
	assert.Contains(t, m.Tags, types.TagDefi)
}

func TestEnrichTagsDefiWithoutProtocol(t *testing.T) {
	m := movementWithLabels("Random Whale", "")
	m.MovementType = types.MovementSwap
	enriched := EnrichTags(m)
	assert.Contains(t, enriched.Tags, types.TagDefi)
	assert.NotContains(t, enriched.Tags, types.TagProtocol)

	m = movementWithLabels("Random Whale", "")
	m.Metadata = &models.MovementMetadata{DexName: "Uniswap"}
	enriched = EnrichTags(m)
	assert.Contains(t, enriched.Tags, types.TagDefi)
}

func TestEnrichTagsBridge(t *testing.T) {
	m := movementWithLabels("", "")
	m.MovementType = types.MovementBridge
	assert.Contains(t, EnrichTags(m).Tags, types.TagBridge)

	assert.Contains(t, EnrichTags(movementWithLabels("Wormhole Bridge", "")).Tags, types.TagBridge)
}

func TestEnrichTagsStablecoin(t *testing.T) {
	m := movementWithLabels("", "")
	m.AssetSymbol = "usdc"
	assert.Contains(t, EnrichTags(m).Tags, types.TagStablecoin)

	m.AssetSymbol = "WETH"
	assert.NotContains(t, EnrichTags(m).Tags, types.TagStablecoin)
}

func TestEnrichTagsSmartMoney(t *testing.T) {
	assert.Contains(t, EnrichTags(movementWithLabels("Smart Money: Top 100 PnL", "")).Tags, types.TagSmartMoney)
	assert.Contains(t, EnrichTags(movementWithLabels("", "Elite DEX Trader")).Tags, types.TagSmartMoney)
}

func TestEnrichTagsWhaleThresholdIsStrict(t *testing.T) {
	m := movementWithLabels("", "")
	m.AmountUSD = whaleThresholdUSD
	assert.NotContains(t, EnrichTags(m).Tags, types.TagWhale, "exactly at the threshold is not a whale")

	m.AmountUSD = whaleThresholdUSD + 1
	assert.Contains(t, EnrichTags(m).Tags, types.TagWhale)
}

func TestEnrichTagsIsDeterministic(t *testing.T) {
	m := movementWithLabels("Binance 14", "Aave: Pool")
	m.AmountUSD = 50_000_000
	m.AssetSymbol = "USDT"

	first := EnrichTags(m)
	second := EnrichTags(m)
	assert.Equal(t, first.Tags, second.Tags)
}

func TestEnrichTagsDoesNotMutateInput(t *testing.T) {
	m := movementWithLabels("Binance 14", "")
	m.Tags = []types.Tag{}
	EnrichTags(m)
	assert.Empty(t, m.Tags)
}
