package pipeline

import (
	"testing"

	"github.com/movement-scanner/internal/models"
	"github.com/movement-scanner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExactVariant(t *testing.T) {
	r := NewEntityResolver()

	assert.Equal(t, "cex-binance", r.Resolve("binance"))
	assert.Equal(t, "cex-binance", r.Resolve("  Binance  "))
	assert.Equal(t, "fund-a16z", r.Resolve("a16z"))
}

func TestResolveSubstring(t *testing.T) {
	r := NewEntityResolver()

	// Label contains a pattern
	assert.Equal(t, "cex-binance", r.Resolve("Binance 14"))
	assert.Equal(t, "cex-binance", r.Resolve("Binance Hot Wallet 🏦"))
	assert.Equal(t, "mm-wintermute", r.Resolve("Wintermute: Trading"))

	// Pattern contains the label
	assert.Equal(t, "fund-jump", r.Resolve("jump trading"))
}

func TestResolveTableOrderBreaksTies(t *testing.T) {
	r := NewEntityResolver()

	// Matches both binance and kraken patterns; the earlier table entry wins
	assert.Equal(t, "cex-binance", r.Resolve("binance to kraken router"))
}

func TestResolveSlugFallback(t *testing.T) {
	r := NewEntityResolver()

	slug := r.Resolve("Some Obscure Whale #3")
	assert.Equal(t, "some-obscure-whale-3", slug)

	// Identical unknown labels collapse to the same id
	assert.Equal(t, slug, r.Resolve("Some Obscure Whale #3"))
}

func TestResolveEmptyAndPlaceholder(t *testing.T) {
	r := NewEntityResolver()

	assert.Equal(t, "", r.Resolve(""))
	assert.Equal(t, "", r.Resolve("   "))
	assert.Equal(t, "", r.Resolve("Unknown Wallet"))
}

func TestEnrichPopulatesEntityIDs(t *testing.T) {
	r := NewEntityResolver()

	m := &models.Movement{
		ID:        "ethereum-0x1-0",
		Chain:     types.ChainEthereum,
		FromLabel: strPtr("Binance 14"),
		ToLabel:   strPtr("Wintermute: Vault"),
	}

	enriched := r.Enrich(m)
	require.NotNil(t, enriched.FromEntityID)
	require.NotNil(t, enriched.ToEntityID)
	assert.Equal(t, "cex-binance", *enriched.FromEntityID)
	assert.Equal(t, "mm-wintermute", *enriched.ToEntityID)

	// The input movement is untouched
	assert.Nil(t, m.FromEntityID)
	assert.Nil(t, m.ToEntityID)
}

func TestEnrichLeavesAbsentLabelsUnset(t *testing.T) {
	r := NewEntityResolver()

	m := &models.Movement{ID: "ethereum-0x2-0"}
	enriched := r.Enrich(m)
	assert.Nil(t, enriched.FromEntityID)
	assert.Nil(t, enriched.ToEntityID)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Binance 14", "binance-14"},
		{"a16z: Growth Fund", "a16z-growth-fund"},
		{"---weird___input---", "weird-input"},
		{"UPPER case", "upper-case"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), tt.in)
	}
}
