package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		probability float64
		want        Tier
	}{
		{0, TierLow},
		{0.3999, TierLow},
		{0.40, TierModerate},
		{0.6499, TierModerate},
		{0.65, TierHigh},
		{0.99, TierHigh},
		{1.0, TierHigh},
		{1.2, TierHigh},
		{-0.1, TierHigh},
		{math.NaN(), TierHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.probability), "probability %v", tt.probability)
	}
}

func TestThresholdTableIsContiguous(t *testing.T) {
	bands := Thresholds()
	assert.Equal(t, 0.0, bands[0].Lower)
	assert.Equal(t, 1.0, bands[len(bands)-1].Upper)
	for i := 1; i < len(bands); i++ {
		assert.Equal(t, bands[i-1].Upper, bands[i].Lower)
		assert.Greater(t, bands[i].Tier.Rank(), bands[i-1].Tier.Rank())
	}

	bands[0].Upper = 0.9
	assert.Equal(t, TierModerate, Classify(0.5))
}

func TestAssembleBinaryPredictionIndependentOfTier(t *testing.T) {
	moderateNegative := Assemble(0.45, Classify(0.45), ProvenanceModel, "m")
	assert.Equal(t, TierModerate, moderateNegative.Tier)
	assert.Equal(t, 0, moderateNegative.Prediction)
	assert.Equal(t, "m", moderateNegative.ModelName)

	moderatePositive := Assemble(0.5, Classify(0.5), ProvenanceModel, "m")
	assert.Equal(t, TierModerate, moderatePositive.Tier)
	assert.Equal(t, 1, moderatePositive.Prediction)

	below := Assemble(0.4999, Classify(0.4999), ProvenanceHeuristic, "ignored")
	assert.Equal(t, 0, below.Prediction)
	assert.Empty(t, below.ModelName)
	assert.Equal(t, 49.99, below.RiskPercent)
	assert.Equal(t, 0.4999, below.Confidence)
}
