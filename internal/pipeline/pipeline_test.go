package pipeline

import (
	"testing"
	"time"

	"github.com/movement-scanner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline() *Pipeline {
	return New(NewEntityResolver(), NewDeduplicator(100), nil)
}

func TestProcessTransfersEnrichesEndToEnd(t *testing.T) {
	p := newTestPipeline()

	raw := baseRawTransfer()
	raw.FromLabel = strPtr("Binance 14")
	raw.ToLabel = strPtr("Wintermute: Vault")
	raw.TransferValueUSD = 25_000_000

	out := p.ProcessTransfers([]types.RawTransfer{raw}, types.ChainEthereum)
	require.Len(t, out, 1)
	m := out[0]

	assert.Equal(t, "ethereum-0xabc-0", m.ID)
	assert.Equal(t, types.MovementWithdrawal, m.MovementType)
	require.NotNil(t, m.FromEntityID)
	require.NotNil(t, m.ToEntityID)
	assert.Equal(t, "cex-binance", *m.FromEntityID)
	assert.Equal(t, "mm-wintermute", *m.ToEntityID)
	assert.Contains(t, m.Tags, types.TagExchange)
	assert.Contains(t, m.Tags, types.TagMarketMaker)
	assert.Contains(t, m.Tags, types.TagWhale)
	assert.Equal(t, types.ConfidenceHigh, m.Confidence)
}

func TestProcessTransfersSkipsBadRecords(t *testing.T) {
	p := newTestPipeline()

	good := baseRawTransfer()
	bad := baseRawTransfer()
	bad.TransactionHash = ""

	out := p.ProcessTransfers([]types.RawTransfer{bad, good}, types.ChainEthereum)
	require.Len(t, out, 1)
	assert.Equal(t, "ethereum-0xabc-0", out[0].ID)
}

func TestProcessTransfersSuppressesExchangeShuffles(t *testing.T) {
	p := newTestPipeline()

	shuffle := baseRawTransfer()
	shuffle.TransactionHash = "0xshuffle"
	shuffle.FromLabel = strPtr("Binance 1")
	shuffle.ToLabel = strPtr("Binance 2")

	out := p.ProcessTransfers([]types.RawTransfer{shuffle}, types.ChainEthereum)
	assert.Empty(t, out, "both sides resolve to cex-binance")

	// The suppression does not block the same tx hash once the entities differ
	cross := baseRawTransfer()
	cross.TransactionHash = "0xshuffle"
	cross.FromLabel = strPtr("Binance 1")
	cross.ToLabel = strPtr("Kraken 4")
	out = p.ProcessTransfers([]types.RawTransfer{cross}, types.ChainEthereum)
	assert.Len(t, out, 1)
}

func TestProcessTransfersDeduplicatesAcrossBatches(t *testing.T) {
	p := newTestPipeline()

	out := p.ProcessTransfers([]types.RawTransfer{baseRawTransfer()}, types.ChainEthereum)
	require.Len(t, out, 1)

	out = p.ProcessTransfers([]types.RawTransfer{baseRawTransfer()}, types.ChainEthereum)
	assert.Empty(t, out)
}

func TestProcessDexTradesEnrichesEndToEnd(t *testing.T) {
	p := newTestPipeline()

	raw := types.RawDexTrade{
		TransactionHash:    "0xdex",
		Chain:              types.ChainBase,
		BlockTimestamp:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		TraderAddress:      "0xtrader",
		SmartMoneyLabel:    strPtr("Smart Money: Top 100 PnL"),
		TokenBoughtSymbol:  "AERO",
		TokenBoughtAddress: "0xaero",
		TradeValueUSD:      2_000_000,
		DexName:            "Aerodrome",
		Source:             types.SourceNansen,
	}

	out := p.ProcessDexTrades([]types.RawDexTrade{raw})
	require.Len(t, out, 1)
	m := out[0]

	assert.Equal(t, "base-0xdex-0", m.ID)
	assert.Equal(t, types.MovementSwap, m.MovementType)
	assert.Equal(t, types.TierSmartMoney, m.Tier)
	assert.Contains(t, m.Tags, types.TagSmartMoney)
	assert.Contains(t, m.Tags, types.TagDefi)
	require.NotNil(t, m.Metadata)
	assert.Equal(t, "Aerodrome", m.Metadata.DexName)
}

func TestProcessDexTradesSkipsBadRecords(t *testing.T) {
	p := newTestPipeline()

	out := p.ProcessDexTrades([]types.RawDexTrade{{Chain: types.ChainBase}})
	assert.Empty(t, out)
}

func TestNewFallsBackOnNilStages(t *testing.T) {
	p := New(nil, nil, nil)
	require.NotNil(t, p.Entities())
	require.NotNil(t, p.Dedup())

	out := p.ProcessTransfers([]types.RawTransfer{baseRawTransfer()}, types.ChainEthereum)
	assert.Len(t, out, 1)
}
