package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/movement-scanner/internal/models"
	"github.com/movement-scanner/internal/types"
)

// megaWhaleThresholdUSD is the cutoff for the mega-whale bonus
const megaWhaleThresholdUSD = 50_000_000

// premiumLabelKeywords mark labels that justify the higher flow base score
var premiumLabelKeywords = []string{
	"smart money", "smart dex", "30d smart", "public figure", "hedge fund",
	"fund", "capital", "ventures", "vc", "top 100",
}

// topTierProtocols get a small bonus when they appear in a label
var topTierProtocols = []string{"uniswap", "aave", "curve", "lido", "maker"}

// Ranker computes 0-100 interestingness scores and orders flows for display.
// The clock is injectable so recency scoring is testable.
type Ranker struct {
	now func() time.Time
}

// NewRanker creates a ranker using the wall clock
func NewRanker() *Ranker {
	return &Ranker{now: time.Now}
}

// NewRankerAt creates a ranker with a fixed clock, for tests
func NewRankerAt(now func() time.Time) *Ranker {
	return &Ranker{now: now}
}

// ClassifyFlow assigns the display category for a movement
func ClassifyFlow(m *models.Movement) models.FlowType {
	switch {
	case m.HasTag(types.TagSmartMoney) || m.Tier == types.TierSmartMoney:
		return models.FlowSmartMoney
	case m.MovementType == types.MovementMint:
		return models.FlowTokenLaunch
	case m.HasTag(types.TagWhale) && m.HasTag(types.TagDefi):
		return models.FlowDefiWhale
	case m.HasTag(types.TagWhale):
		return models.FlowWhaleTransfer
	default:
		return models.FlowGeneric
	}
}

// Score computes the interestingness score for a movement, clamped to [0, 100]
func (r *Ranker) Score(m *models.Movement) int {
	premium := hasPremiumLabel(m)

	score := baseScore(ClassifyFlow(m), premium)
	score += sizeScore(m.AmountUSD)
	score += entityQualityScore(m)
	score += recencyScore(m.Age(r.now()))
	score += bonusScore(m)

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Rank wraps movements into flows, scores them, and sorts by descending
// score, breaking ties by descending timestamp. The order is total and
// deterministic for identical inputs.
func (r *Ranker) Rank(movements []*models.Movement) []*models.Flow {
	flows := make([]*models.Flow, 0, len(movements))
	for _, m := range movements {
		flows = append(flows, &models.Flow{
			Movement: m,
			FlowType: ClassifyFlow(m),
			Score:    r.Score(m),
		})
	}

	sort.SliceStable(flows, func(i, j int) bool {
		if flows[i].Score != flows[j].Score {
			return flows[i].Score > flows[j].Score
		}
		return flows[i].Movement.Timestamp > flows[j].Movement.Timestamp
	})

	return flows
}

// baseScore is the flow-category component (0-40)
func baseScore(ft models.FlowType, premium bool) int {
	switch ft {
	case models.FlowSmartMoney:
		return 40
	case models.FlowTokenLaunch:
		return 35
	case models.FlowDefiWhale:
		if premium {
			return 30
		}
		return 25
	case models.FlowWhaleTransfer:
		if premium {
			return 25
		}
		return 20
	default:
		return 10
	}
}

// sizeScore is the transaction-size component (0-30), stepped by USD value
func sizeScore(amountUSD float64) int {
	switch {
	case amountUSD >= 100_000_000:
		return 30
	case amountUSD >= 50_000_000:
		return 25
	case amountUSD >= 10_000_000:
		return 20
	case amountUSD >= 5_000_000:
		return 15
	case amountUSD >= 1_000_000:
		return 10
	case amountUSD >= 500_000:
		return 6
	case amountUSD >= 100_000:
		return 3
	default:
		return 0
	}
}

// entityQualityScore is the best label-category score across both sides (0-20)
func entityQualityScore(m *models.Movement) int {
	from := labelCategoryScore(m.FromLabel)
	to := labelCategoryScore(m.ToLabel)
	if from > to {
		return from
	}
	return to
}

func labelCategoryScore(label *string) int {
	if !labelPresent(label) {
		return 0
	}
	lower := strings.ToLower(*label)

	switch {
	case containsAny(lower, smartMoneyKeywords):
		return 20
	case strings.Contains(lower, "public figure"):
		return 18
	case containsAny(lower, fundKeywords):
		return 15
	case strings.Contains(lower, "whale"):
		return 12
	case containsAny(lower, cexPatterns) || strings.Contains(lower, "exchange"):
		return 10
	default:
		return 8
	}
}

// recencyScore rewards fresh movements (0-10), stepped by age
func recencyScore(age time.Duration) int {
	switch {
	case age <= 5*time.Minute:
		return 10
	case age <= 15*time.Minute:
		return 8
	case age <= time.Hour:
		return 5
	case age <= 6*time.Hour:
		return 3
	case age <= 24*time.Hour:
		return 1
	default:
		return 0
	}
}

// bonusScore adds pattern-based bumps: bridge routes, unusual routes,
// mega whales near smart money, and top-tier protocol involvement
func bonusScore(m *models.Movement) int {
	bonus := 0
	joined := joinedLabels(m)

	if m.MovementType == types.MovementBridge || strings.Contains(joined, "bridge") {
		bonus += 5
	}
	if isUnusualRoute(m, joined) {
		bonus += 5
	}
	if m.AmountUSD >= megaWhaleThresholdUSD && containsAny(joined, smartMoneyKeywords) {
		bonus += 3
	}
	if containsAny(joined, topTierProtocols) {
		bonus += 2
	}

	return bonus
}

// isUnusualRoute flags routes that rarely happen without intent: a fund going
// straight to a DEX, or smart money pulling off an exchange to a private
// destination
func isUnusualRoute(m *models.Movement, joined string) bool {
	fundToDex := m.FromLabel != nil &&
		containsAny(strings.ToLower(*m.FromLabel), fundKeywords) &&
		(m.MovementType == types.MovementSwap || labelContains(m.ToLabel, "pool") || labelContains(m.ToLabel, "dex"))
	if fundToDex {
		return true
	}

	smartWithdrawal := containsAny(joined, smartMoneyKeywords) &&
		labelMatchesCEX(m.FromLabel) && !labelMatchesCEX(m.ToLabel)
	return smartWithdrawal
}

func hasPremiumLabel(m *models.Movement) bool {
	return containsAny(joinedLabels(m), premiumLabelKeywords)
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
