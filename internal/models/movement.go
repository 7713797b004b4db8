package models

import (
	"fmt"
	"time"

	"github.com/movement-scanner/internal/types"
)

// Movement is the canonical normalized record of one on-chain value transfer
// or trade. It is created once by the normalizer; each enrichment stage returns
// a copy with additional fields populated rather than mutating in place.
type Movement struct {
	ID           string             `json:"id"`
	Timestamp    int64              `json:"ts"` // Unix milliseconds
	Chain        types.ChainID      `json:"chain"`
	MovementType types.MovementType `json:"movementType"`
	Tags         []types.Tag        `json:"tags"`
	Confidence   types.Confidence   `json:"confidence"`
	Tier         int                `json:"tier"`
	AmountUSD    float64            `json:"amountUsd"`
	TokenAmount  *float64           `json:"tokenAmount,omitempty"`
	AssetSymbol  string             `json:"assetSymbol"`
	AssetAddress *string            `json:"assetAddress,omitempty"`
	FromAddress  *string            `json:"fromAddress,omitempty"`
	ToAddress    *string            `json:"toAddress,omitempty"`
	FromLabel    *string            `json:"fromLabel,omitempty"`
	ToLabel      *string            `json:"toLabel,omitempty"`
	FromEntityID *string            `json:"fromEntityId,omitempty"`
	ToEntityID   *string            `json:"toEntityId,omitempty"`
	TxHash       *string            `json:"txHash,omitempty"`
	ExplorerURL  *string            `json:"explorerUrl,omitempty"`
	DataSource   types.DataSource   `json:"dataSource"`
	Metadata     *MovementMetadata  `json:"metadata,omitempty"`
}

// MovementMetadata carries protocol-level context attached during DEX-trade
// normalization
type MovementMetadata struct {
	Protocol string `json:"protocol,omitempty"`
	DexName  string `json:"dexName,omitempty"`
}

// MovementID builds the deterministic movement identifier.
// Format: {chain}-{txHash}-{logIndex}. Providers that report no log index get
// index 0, which collapses multiple legs of one transaction into a single
// record. That is a documented limitation of the id scheme, not a bug.
func MovementID(chain types.ChainID, txHash string, logIndex int) string {
	return fmt.Sprintf("%s-%s-%d", chain, txHash, logIndex)
}

// Age returns how long ago the movement happened relative to now
func (m *Movement) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(m.Timestamp))
}

// HasTag reports whether the movement carries the given tag
func (m *Movement) HasTag(tag types.Tag) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SameEntityPair reports whether both sides resolve to the same canonical
// entity. Such movements are internal shuffles, not economic signals.
func (m *Movement) SameEntityPair() bool {
	return m.FromEntityID != nil && m.ToEntityID != nil && *m.FromEntityID == *m.ToEntityID
}

// FlowType categorizes a movement for display-priority scoring
type FlowType string

const (
	// FlowSmartMoney marks flows driven by smart-money-tagged actors
	FlowSmartMoney FlowType = "smart_money"
	// FlowTokenLaunch marks mint events for newly launched tokens
	FlowTokenLaunch FlowType = "token_launch"
	// FlowDefiWhale marks whale-sized DeFi activity
	FlowDefiWhale FlowType = "defi_whale"
	// FlowWhaleTransfer marks whale-sized plain transfers
	FlowWhaleTransfer FlowType = "whale_transfer"
	// FlowGeneric is everything else
	FlowGeneric FlowType = "generic"
)

// Flow is a movement wrapped with its display classification and
// interestingness score
type Flow struct {
	Movement *Movement `json:"movement"`
	FlowType FlowType  `json:"flowType"`
	Score    int       `json:"score"` // 0-100 display priority
}
