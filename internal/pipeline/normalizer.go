// Package pipeline implements the movement normalization, enrichment,
// deduplication, and ranking pipeline. Every stage is a synchronous,
// side-effect-free transform over in-memory movements; the only stateful
// component is the Deduplicator, which is constructed explicitly and passed in.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/movement-scanner/internal/models"
	"github.com/movement-scanner/internal/types"
)

// unknownWalletPlaceholder is a display-layer string some upstreams leak into
// label fields. It is never stored in the model; anywhere a label equals this
// placeholder it is treated as absent.
const unknownWalletPlaceholder = "Unknown Wallet"

// NativeAsset returns the default native asset symbol for a chain.
// Used when a provider omits the token symbol.
func NativeAsset(chain types.ChainID) string {
	switch chain {
	case types.ChainEthereum, types.ChainBase, types.ChainArbitrum:
		return "ETH"
	case types.ChainSolana:
		return "SOL"
	case types.ChainHyperliquid:
		// Hyperliquid margin is USDC-denominated
		return "USDC"
	default:
		return "ETH"
	}
}

// ExplorerURL returns the block-explorer transaction URL for a chain
func ExplorerURL(chain types.ChainID, txHash string) string {
	switch chain {
	case types.ChainEthereum:
		return "https://etherscan.io/tx/" + txHash
	case types.ChainBase:
		return "https://basescan.org/tx/" + txHash
	case types.ChainArbitrum:
		return "https://arbiscan.io/tx/" + txHash
	case types.ChainSolana:
		return "https://solscan.io/tx/" + txHash
	case types.ChainHyperliquid:
		return "https://app.hyperliquid.xyz/explorer/tx/" + txHash
	default:
		return "https://etherscan.io/tx/" + txHash
	}
}

// NormalizeTransfer converts one raw transfer record into a Movement.
// Tags are left empty and confidence defaults to med; both are overwritten by
// later stages. Only missing identity fields (hash, chain) are errors; every
// other missing field degrades to a documented default.
func NormalizeTransfer(raw types.RawTransfer, chain types.ChainID) (*models.Movement, error) {
	if raw.TransactionHash == "" {
		return nil, fmt.Errorf("raw transfer missing transaction hash")
	}
	if chain == "" {
		return nil, fmt.Errorf("raw transfer missing chain")
	}

	logIndex := 0
	if raw.LogIndex != nil {
		logIndex = *raw.LogIndex
	}

	assetSymbol := NativeAsset(chain)
	if raw.TokenSymbol != nil && *raw.TokenSymbol != "" {
		assetSymbol = *raw.TokenSymbol
	}

	amountUSD := raw.TransferValueUSD
	if amountUSD < 0 {
		amountUSD = 0
	}

	var tokenAmount *float64
	if raw.TransferAmount != 0 {
		amt := raw.TransferAmount
		tokenAmount = &amt
	}

	fromLabel := cleanLabel(raw.FromLabel)
	toLabel := cleanLabel(raw.ToLabel)

	txHash := raw.TransactionHash
	explorer := ExplorerURL(chain, txHash)

	m := &models.Movement{
		ID:           models.MovementID(chain, txHash, logIndex),
		Timestamp:    raw.BlockTimestamp.UnixMilli(),
		Chain:        chain,
		MovementType: classifyMovementType(raw, fromLabel, toLabel),
		Tags:         []types.Tag{},
		Confidence:   types.ConfidenceMed,
		Tier:         classifyTier(fromLabel, toLabel),
		AmountUSD:    amountUSD,
		TokenAmount:  tokenAmount,
		AssetSymbol:  assetSymbol,
		AssetAddress: raw.TokenAddress,
		FromAddress:  raw.FromAddress,
		ToAddress:    raw.ToAddress,
		FromLabel:    fromLabel,
		ToLabel:      toLabel,
		TxHash:       &txHash,
		ExplorerURL:  &explorer,
		DataSource:   raw.Source,
	}

	return m, nil
}

// NormalizeDexTrade converts one raw DEX trade record into a swap Movement.
// The "to" side is synthesized as the purchased token's pool label rather than
// a wallet, and protocol metadata is attached.
func NormalizeDexTrade(raw types.RawDexTrade) (*models.Movement, error) {
	if raw.TransactionHash == "" {
		return nil, fmt.Errorf("raw dex trade missing transaction hash")
	}
	if raw.Chain == "" {
		return nil, fmt.Errorf("raw dex trade missing chain")
	}

	amountUSD := raw.TradeValueUSD
	if amountUSD < 0 {
		amountUSD = 0
	}

	fromLabel := cleanLabel(raw.SmartMoneyLabel)
	if fromLabel == nil {
		fromLabel = cleanLabel(raw.TraderLabel)
	}

	poolLabel := fmt.Sprintf("%s Pool (%s)", raw.TokenBoughtSymbol, raw.DexName)

	txHash := raw.TransactionHash
	explorer := ExplorerURL(raw.Chain, txHash)
	trader := raw.TraderAddress
	tokenAddr := raw.TokenBoughtAddress

	m := &models.Movement{
		ID:           models.MovementID(raw.Chain, txHash, 0),
		Timestamp:    raw.BlockTimestamp.UnixMilli(),
		Chain:        raw.Chain,
		MovementType: types.MovementSwap,
		Tags:         []types.Tag{},
		Confidence:   types.ConfidenceMed,
		Tier:         dexTradeTier(raw),
		AmountUSD:    amountUSD,
		AssetSymbol:  raw.TokenBoughtSymbol,
		AssetAddress: &tokenAddr,
		FromAddress:  &trader,
		FromLabel:    fromLabel,
		ToLabel:      &poolLabel,
		TxHash:       &txHash,
		ExplorerURL:  &explorer,
		DataSource:   raw.Source,
		Metadata: &models.MovementMetadata{
			Protocol: raw.DexName,
			DexName:  raw.DexName,
		},
	}

	return m, nil
}

// classifyMovementType applies the movement-type precedence rules.
// First match wins: explicit mint/burn/liquidation markers, then DEX flag,
// then bridge labels, then CEX withdrawal/deposit, then plain transfer.
func classifyMovementType(raw types.RawTransfer, fromLabel, toLabel *string) types.MovementType {
	if raw.TransactionType != nil {
		switch strings.ToLower(*raw.TransactionType) {
		case "mint":
			return types.MovementMint
		case "burn":
			return types.MovementBurn
		case "liquidation":
			return types.MovementLiquidation
		}
	}

	if raw.ExchangeType != nil && strings.EqualFold(*raw.ExchangeType, "dex") {
		return types.MovementSwap
	}

	if labelContains(fromLabel, "bridge") || labelContains(toLabel, "bridge") {
		return types.MovementBridge
	}

	fromCEX := labelMatchesCEX(fromLabel)
	toCEX := labelMatchesCEX(toLabel)
	if fromCEX && !toCEX {
		return types.MovementWithdrawal
	}
	if toCEX && !fromCEX {
		return types.MovementDeposit
	}

	return types.MovementTransfer
}

// classifyTier assigns the signal-quality tier from provider labels
func classifyTier(fromLabel, toLabel *string) int {
	if hasSmartMoneyKeyword(fromLabel) || hasSmartMoneyKeyword(toLabel) {
		return types.TierSmartMoney
	}
	if fromLabel != nil || toLabel != nil {
		return types.TierLabeled
	}
	return types.TierUnlabeledWhale
}

func dexTradeTier(raw types.RawDexTrade) int {
	if cleanLabel(raw.SmartMoneyLabel) != nil {
		return types.TierSmartMoney
	}
	if cleanLabel(raw.TraderLabel) != nil {
		return types.TierLabeled
	}
	return types.TierUnlabeledWhale
}

// cleanLabel normalizes an optional provider label: empty strings and the
// "Unknown Wallet" display placeholder are treated as absent.
func cleanLabel(label *string) *string {
	if label == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*label)
	if trimmed == "" || trimmed == unknownWalletPlaceholder {
		return nil
	}
	return &trimmed
}

// labelContains reports whether an optional label contains the substring,
// case-insensitively
func labelContains(label *string, substr string) bool {
	if label == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*label), substr)
}

func hasSmartMoneyKeyword(label *string) bool {
	if label == nil {
		return false
	}
	lower := strings.ToLower(*label)
	for _, kw := range smartMoneyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
