package pipeline

import (
	"testing"
	"time"

	"github.com/movement-scanner/internal/models"
	"github.com/movement-scanner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rankClock = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func fixedRanker() *Ranker {
	return NewRankerAt(func() time.Time { return rankClock })
}

// agedMovement builds a movement whose age relative to the fixed clock is d
func agedMovement(d time.Duration) *models.Movement {
	return &models.Movement{
		ID:           "ethereum-0x1-0",
		Timestamp:    rankClock.Add(-d).UnixMilli(),
		Chain:        types.ChainEthereum,
		MovementType: types.MovementTransfer,
	}
}

func TestClassifyFlow(t *testing.T) {
	m := agedMovement(time.Minute)
	m.Tags = []types.Tag{types.TagSmartMoney}
	assert.Equal(t, models.FlowSmartMoney, ClassifyFlow(m))

	m = agedMovement(time.Minute)
	m.Tier = types.TierSmartMoney
	assert.Equal(t, models.FlowSmartMoney, ClassifyFlow(m))

	m = agedMovement(time.Minute)
	m.MovementType = types.MovementMint
	assert.Equal(t, models.FlowTokenLaunch, ClassifyFlow(m))

	m = agedMovement(time.Minute)
	m.Tags = []types.Tag{types.TagWhale, types.TagDefi}
	assert.Equal(t, models.FlowDefiWhale, ClassifyFlow(m))

	m = agedMovement(time.Minute)
	m.Tags = []types.Tag{types.TagWhale}
	assert.Equal(t, models.FlowWhaleTransfer, ClassifyFlow(m))

	m = agedMovement(time.Minute)
	assert.Equal(t, models.FlowGeneric, ClassifyFlow(m))
}

func TestScoreComponents(t *testing.T) {
	r := fixedRanker()

	// Generic, tiny, old: base 10 only
	m := agedMovement(48 * time.Hour)
	m.AmountUSD = 50
	assert.Equal(t, 10, r.Score(m))

	// Same movement fresh gains the full recency component
	m = agedMovement(2 * time.Minute)
	m.AmountUSD = 50
	assert.Equal(t, 20, r.Score(m))
}

func TestScoreSizeSteps(t *testing.T) {
	r := fixedRanker()

	tests := []struct {
		amount float64
		want   int
	}{
		{150_000_000, 30},
		{60_000_000, 25},
		{20_000_000, 20},
		{7_000_000, 15},
		{2_000_000, 10},
		{600_000, 6},
		{150_000, 3},
		{50_000, 0},
	}
	for _, tt := range tests {
		m := agedMovement(48 * time.Hour) // no recency component
		m.AmountUSD = tt.amount
		assert.Equal(t, 10+tt.want, r.Score(m), "amount %.0f", tt.amount)
	}
}

func TestScoreRecencySteps(t *testing.T) {
	r := fixedRanker()

	tests := []struct {
		age  time.Duration
		want int
	}{
		{3 * time.Minute, 10},
		{10 * time.Minute, 8},
		{45 * time.Minute, 5},
		{3 * time.Hour, 3},
		{20 * time.Hour, 1},
		{30 * time.Hour, 0},
	}
	for _, tt := range tests {
		m := agedMovement(tt.age)
		assert.Equal(t, 10+tt.want, r.Score(m), "age %s", tt.age)
	}
}

func TestScoreEntityQualityTakesBestSide(t *testing.T) {
	r := fixedRanker()

	m := agedMovement(48 * time.Hour)
	m.FromLabel = strPtr("Wintermute")             // unrecognized category: 8
	m.ToLabel = strPtr("Smart Money: Top 100 PnL") // smart: 20
	m.Tags = []types.Tag{types.TagSmartMoney}      // smart money flow: base 40

	// 40 base + 20 entity = 60
	assert.Equal(t, 60, r.Score(m))
}

func TestScoreBridgeAndProtocolBonus(t *testing.T) {
	r := fixedRanker()

	m := agedMovement(48 * time.Hour)
	m.MovementType = types.MovementBridge
	// 10 base (generic flow) + 5 bridge bonus
	assert.Equal(t, 15, r.Score(m))

	m = agedMovement(48 * time.Hour)
	m.ToLabel = strPtr("Uniswap V3: Router")
	// base 10 + entity other-label 8 + top-tier protocol 2
	assert.Equal(t, 20, r.Score(m))
}

func TestScoreIsClamped(t *testing.T) {
	r := fixedRanker()

	// Stack everything: smart money flow, mega size, smart label, fresh,
	// bridge route, top protocol
	m := agedMovement(time.Minute)
	m.AmountUSD = 200_000_000
	m.Tags = []types.Tag{types.TagSmartMoney, types.TagWhale}
	m.MovementType = types.MovementBridge
	m.FromLabel = strPtr("Smart Money: Legendary Trader")
	m.ToLabel = strPtr("Uniswap Bridge Pool")

	score := r.Score(m)
	assert.Equal(t, 100, score)
}

func TestRankOrdersByScoreThenTimestamp(t *testing.T) {
	r := fixedRanker()

	high := agedMovement(time.Minute)
	high.ID = "ethereum-0xhigh-0"
	high.AmountUSD = 20_000_000
	high.Tags = []types.Tag{types.TagWhale}

	lowOld := agedMovement(3 * time.Hour)
	lowOld.ID = "ethereum-0xlowold-0"

	lowNew := agedMovement(2 * time.Hour)
	lowNew.ID = "ethereum-0xlownew-0"

	flows := r.Rank([]*models.Movement{lowOld, high, lowNew})
	require.Len(t, flows, 3)
	assert.Equal(t, "ethereum-0xhigh-0", flows[0].Movement.ID)

	// Equal scores break ties by the newer timestamp
	assert.Equal(t, flows[1].Score, flows[2].Score)
	assert.Equal(t, "ethereum-0xlownew-0", flows[1].Movement.ID)
	assert.Equal(t, "ethereum-0xlowold-0", flows[2].Movement.ID)
}

func TestRankIsDeterministic(t *testing.T) {
	r := fixedRanker()

	input := []*models.Movement{agedMovement(time.Minute), agedMovement(time.Hour), agedMovement(time.Minute)}
	input[0].ID = "a"
	input[1].ID = "b"
	input[2].ID = "c"

	first := r.Rank(input)
	second := r.Rank(input)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Movement.ID, second[i].Movement.ID)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}
