package pipeline

import (
	"testing"

	"github.com/movement-scanner/internal/models"
	"github.com/movement-scanner/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestScoreConfidenceHighWhenFullyAttributed(t *testing.T) {
	// 3+3 labels, 2+2 entities, 2 nansen, 1 whale = 13
	m := &models.Movement{
		FromLabel:    strPtr("Binance 14"),
		ToLabel:      strPtr("Wintermute"),
		FromEntityID: strPtr("cex-binance"),
		ToEntityID:   strPtr("mm-wintermute"),
		DataSource:   types.SourceNansen,
		AmountUSD:    25_000_000,
	}
	assert.Equal(t, types.ConfidenceHigh, ScoreConfidence(m).Confidence)
}

func TestScoreConfidenceMedForOneSidedWithdrawal(t *testing.T) {
	// One label (3), one entity (2), nansen (2), whale (1) = 8
	m := &models.Movement{
		FromLabel:    strPtr("Binance 14"),
		FromEntityID: strPtr("cex-binance"),
		DataSource:   types.SourceNansen,
		AmountUSD:    15_000_000,
	}
	assert.Equal(t, types.ConfidenceMed, ScoreConfidence(m).Confidence)
}

func TestScoreConfidenceLowForBareRecord(t *testing.T) {
	m := &models.Movement{
		DataSource: types.SourceEtherscan,
		AmountUSD:  5_000,
	}
	assert.Equal(t, types.ConfidenceLow, ScoreConfidence(m).Confidence)
}

func TestScoreConfidenceBoundaries(t *testing.T) {
	// 3+3 labels, 2+2 entities = 10, exactly the high threshold
	m := &models.Movement{
		FromLabel:    strPtr("Kraken 4"),
		ToLabel:      strPtr("Paradigm"),
		FromEntityID: strPtr("cex-kraken"),
		ToEntityID:   strPtr("fund-paradigm"),
		DataSource:   types.SourceEtherscan,
	}
	assert.Equal(t, types.ConfidenceHigh, ScoreConfidence(m).Confidence)

	// One label and one entity = 5, one point below med
	m = &models.Movement{
		FromLabel:    strPtr("Kraken 4"),
		FromEntityID: strPtr("cex-kraken"),
		DataSource:   types.SourceEtherscan,
	}
	assert.Equal(t, types.ConfidenceLow, ScoreConfidence(m).Confidence)

	// Add the nansen source: 7, inside med
	m.DataSource = types.SourceNansen
	assert.Equal(t, types.ConfidenceMed, ScoreConfidence(m).Confidence)
}

func TestScoreConfidencePlaceholderLabelScoresNothing(t *testing.T) {
	placeholder := "Unknown Wallet"
	m := &models.Movement{
		FromLabel:  &placeholder,
		DataSource: types.SourceNansen,
	}
	// Only the nansen points count: 2 -> low
	assert.Equal(t, types.ConfidenceLow, ScoreConfidence(m).Confidence)
}

func TestScoreConfidenceDoesNotMutateInput(t *testing.T) {
	m := &models.Movement{Confidence: types.ConfidenceMed, DataSource: types.SourceEtherscan}
	scored := ScoreConfidence(m)
	assert.Equal(t, types.ConfidenceLow, scored.Confidence)
	assert.Equal(t, types.ConfidenceMed, m.Confidence)
}
