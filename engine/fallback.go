package engine

import (
	"math"

	"cardiorisk/ml"
)

const (
	// fallbackDenominator calibrates points to probability; typical
	// high-risk profiles approach it without reaching it.
	fallbackDenominator = 28.0
	fallbackCeiling     = 0.99
)

var (
	chestPainPoints = map[int]float64{0: 3.0, 1: 2.0, 2: 1.5, 3: 0.5}
	slopePoints     = map[int]float64{0: 0.0, 1: 1.0, 2: 2.5}
	thalPoints      = map[int]float64{0: 0.0, 1: 0.5, 2: 0.0, 3: 3.0}
)

// FallbackScore is the rule-based probability used when no trained model
// is usable. It is pure: no I/O and no shared mutable state.
func FallbackScore(v ml.FeatureVector) float64 {
	return math.Min(FallbackPoints(v)/fallbackDenominator, fallbackCeiling)
}

// FallbackPoints accumulates the raw clinical risk points.
func FallbackPoints(v ml.FeatureVector) float64 {
	score := 0.0

	switch age := v[ml.IdxAge]; {
	case age >= 65:
		score += 3.0
	case age >= 55:
		score += 2.0
	case age >= 45:
		score += 1.0
	}

	if v[ml.IdxSex] == 1 {
		score += 1.0
	}

	score += chestPainPoints[int(v[ml.IdxCP])]

	switch bp := v[ml.IdxTrestbps]; {
	case bp > 160:
		score += 2.5
	case bp > 140:
		score += 1.5
	case bp > 120:
		score += 0.5
	}

	switch chol := v[ml.IdxChol]; {
	case chol > 300:
		score += 2.0
	case chol > 240:
		score += 1.0
	}

	if v[ml.IdxFBS] == 1 {
		score += 1.0
	}

	// low peak heart rate is the risk signal
	switch hr := v[ml.IdxThalach]; {
	case hr < 90:
		score += 3.0
	case hr < 120:
		score += 2.0
	case hr < 140:
		score += 1.0
	}

	if v[ml.IdxExang] == 1 {
		score += 2.0
	}

	switch st := v[ml.IdxOldpeak]; {
	case st > 3.0:
		score += 3.0
	case st > 2.0:
		score += 2.0
	case st > 1.0:
		score += 1.0
	}

	score += slopePoints[int(v[ml.IdxSlope])]
	score += math.Min(v[ml.IdxCA], 3) * 2.0
	score += thalPoints[int(v[ml.IdxThal])]

	return score
}
