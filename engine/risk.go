package engine

import "math"

// Tier is an ordered clinical risk category.
type Tier string

const (
	TierLow      Tier = "Low"
	TierModerate Tier = "Moderate"
	TierHigh     Tier = "High"
)

// Rank orders tiers from 0 (Low) upward; unknown tiers rank as High.
func (t Tier) Rank() int {
	switch t {
	case TierLow:
		return 0
	case TierModerate:
		return 1
	default:
		return 2
	}
}

// Band is a probability interval [Lower, Upper). The last band of the
// table is closed at its upper bound.
type Band struct {
	Tier  Tier    `json:"tier"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// thresholds is contiguous, non-overlapping and covers [0,1].
var thresholds = [...]Band{
	{Tier: TierLow, Lower: 0.00, Upper: 0.40},
	{Tier: TierModerate, Lower: 0.40, Upper: 0.65},
	{Tier: TierHigh, Lower: 0.65, Upper: 1.00},
}

// Thresholds returns a copy of the threshold table.
func Thresholds() []Band {
	bands := make([]Band, len(thresholds))
	copy(bands, thresholds[:])
	return bands
}

// Tiers lists every tier in rank order.
func Tiers() []Tier {
	return []Tier{TierLow, TierModerate, TierHigh}
}

// Classify maps a probability to its tier. Anything outside the table,
// including NaN, is High.
func Classify(probability float64) Tier {
	if math.IsNaN(probability) {
		return TierHigh
	}
	last := len(thresholds) - 1
	for i, band := range thresholds {
		if probability < band.Lower {
			continue
		}
		if probability < band.Upper || (i == last && probability == band.Upper) {
			return band.Tier
		}
	}
	return TierHigh
}
