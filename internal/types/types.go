// Package types provides common type definitions for the movement scanner system.
package types

import "time"

// UserTier represents the service tier level
type UserTier string

const (
	// TierFree represents the free service tier with limited features
	TierFree UserTier = "free"
	// TierPaid represents the paid service tier with full features
	TierPaid UserTier = "paid"
)

// ChainID represents supported blockchain networks
type ChainID string

const (
	// ChainEthereum represents the Ethereum mainnet
	ChainEthereum ChainID = "ethereum"
	// ChainBase represents the Base network
	ChainBase ChainID = "base"
	// ChainArbitrum represents the Arbitrum network
	ChainArbitrum ChainID = "arbitrum"
	// ChainSolana represents the Solana network
	ChainSolana ChainID = "solana"
	// ChainHyperliquid represents the Hyperliquid L1
	ChainHyperliquid ChainID = "hyperliquid"
)

// MovementType classifies what kind of value movement a record represents.
// It is assigned once at normalization time and never re-derived downstream.
type MovementType string

const (
	MovementTransfer    MovementType = "transfer"
	MovementSwap        MovementType = "swap"
	MovementBridge      MovementType = "bridge"
	MovementMint        MovementType = "mint"
	MovementBurn        MovementType = "burn"
	MovementDeposit     MovementType = "deposit"
	MovementWithdrawal  MovementType = "withdrawal"
	MovementLiquidation MovementType = "liquidation"
	MovementOther       MovementType = "other"
)

// Confidence is a coarse data-quality bucket, distinct from Tier
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceMed  Confidence = "med"
	ConfidenceLow  Confidence = "low"
)

// DataSource records which upstream provider produced a movement
type DataSource string

const (
	// SourceNansen is label-enriched transfer and smart-money trade data
	SourceNansen DataSource = "nansen"
	// SourceEtherscan is raw token transfer data without labels
	SourceEtherscan DataSource = "etherscan"
	// SourceHyperliquid is fill and liquidation data from the Hyperliquid info API
	SourceHyperliquid DataSource = "hyperliquid"
	// SourceStitched marks records assembled from more than one upstream
	SourceStitched DataSource = "stitched"
)

// Tag is a semantic annotation derived from labels, amount, and movement type
type Tag string

const (
	TagExchange    Tag = "exchange"
	TagFund        Tag = "fund"
	TagMarketMaker Tag = "market_maker"
	TagProtocol    Tag = "protocol"
	TagBridge      Tag = "bridge"
	TagStablecoin  Tag = "stablecoin"
	TagSmartMoney  Tag = "smart_money"
	TagDefi        Tag = "defi"
	TagWhale       Tag = "whale"
)

// Signal-quality tiers assigned by upstream classification
const (
	// TierSmartMoney marks addresses flagged as smart money by the provider
	TierSmartMoney = 1
	// TierLabeled marks addresses with a known label but no smart-money flag
	TierLabeled = 2
	// TierUnlabeledWhale marks unlabeled addresses moving whale-sized amounts
	TierUnlabeledWhale = 3
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// RawTransfer is a token transfer record as returned by a provider client.
// Optional fields are nil when the upstream omits them.
type RawTransfer struct {
	TransactionHash  string     `json:"transactionHash"`
	LogIndex         *int       `json:"logIndex,omitempty"`
	BlockTimestamp   time.Time  `json:"blockTimestamp"`
	FromAddress      *string    `json:"fromAddress,omitempty"`
	ToAddress        *string    `json:"toAddress,omitempty"`
	FromLabel        *string    `json:"fromLabel,omitempty"`
	ToLabel          *string    `json:"toLabel,omitempty"`
	TokenSymbol      *string    `json:"tokenSymbol,omitempty"`
	TokenAddress     *string    `json:"tokenAddress,omitempty"`
	TransferAmount   float64    `json:"transferAmount"`
	TransferValueUSD float64    `json:"transferValueUsd"`
	TransactionType  *string    `json:"transactionType,omitempty"`
	ExchangeType     *string    `json:"exchangeType,omitempty"`
	Source           DataSource `json:"source"`
}

// RawDexTrade is a DEX trade record as returned by a provider client
type RawDexTrade struct {
	TransactionHash    string     `json:"transactionHash"`
	BlockTimestamp     time.Time  `json:"blockTimestamp"`
	Chain              ChainID    `json:"chain"`
	TraderAddress      string     `json:"traderAddress"`
	TraderLabel        *string    `json:"traderLabel,omitempty"`
	SmartMoneyLabel    *string    `json:"smartMoneyLabel,omitempty"`
	TokenBoughtSymbol  string     `json:"tokenBoughtSymbol"`
	TokenBoughtAddress string     `json:"tokenBoughtAddress"`
	TradeValueUSD      float64    `json:"tradeValueUsd"`
	DexName            string     `json:"dexName"`
	Source             DataSource `json:"source"`
}
