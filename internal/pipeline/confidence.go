package pipeline

import (
	"github.com/movement-scanner/internal/models"
	"github.com/movement-scanner/internal/types"
)

// Confidence bucket thresholds over the additive point score (max 13)
const (
	confidenceHighMin = 10
	confidenceMedMin  = 6
)

// ScoreConfidence returns a copy of the movement with its confidence bucket
// assigned from data-quality signals. Total function: absent fields simply
// contribute no points.
func ScoreConfidence(m *models.Movement) *models.Movement {
	scored := *m
	scored.Confidence = confidenceBucket(confidencePoints(m))
	return &scored
}

// confidencePoints computes the additive data-quality score:
// labeled sides are worth 3 each, resolved entities 2 each, the Nansen data
// source 2, and a whale-sized amount 1.
func confidencePoints(m *models.Movement) int {
	points := 0

	if labelPresent(m.FromLabel) {
		points += 3
	}
	if labelPresent(m.ToLabel) {
		points += 3
	}
	if m.FromEntityID != nil {
		points += 2
	}
	if m.ToEntityID != nil {
		points += 2
	}
	if m.DataSource == types.SourceNansen {
		points += 2
	}
	if m.AmountUSD > whaleThresholdUSD {
		points++
	}

	return points
}

func confidenceBucket(points int) types.Confidence {
	switch {
	case points >= confidenceHighMin:
		return types.ConfidenceHigh
	case points >= confidenceMedMin:
		return types.ConfidenceMed
	default:
		return types.ConfidenceLow
	}
}

// labelPresent reports whether a label is set and is not the display
// placeholder
func labelPresent(label *string) bool {
	return label != nil && *label != unknownWalletPlaceholder
}
