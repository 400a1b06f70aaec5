package ml

import (
	"errors"
	"fmt"
)

// StandardScaler centers each column on its training mean and divides by its scale.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) validate() error {
	if len(s.Mean) == 0 {
		return errors.New("standard scaler has no columns")
	}
	if len(s.Mean) != len(s.Scale) {
		return errors.New("standard scaler mean/scale length mismatch")
	}
	return nil
}

func (s *StandardScaler) Transform(features []float64) ([]float64, error) {
	if len(features) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d columns, got %d", len(s.Mean), len(features))
	}
	result := make([]float64, len(features))
	for i, value := range features {
		scale := s.Scale[i]
		// zero-variance columns are left centered, matching how they were fitted
		if scale == 0 {
			scale = 1
		}
		result[i] = (value - s.Mean[i]) / scale
	}
	return result, nil
}

// MinMaxScaler maps each column onto [0,1] using the training range.
type MinMaxScaler struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

func (s *MinMaxScaler) validate() error {
	if len(s.Min) == 0 {
		return errors.New("minmax scaler has no columns")
	}
	if len(s.Min) != len(s.Max) {
		return errors.New("values/mins/maxs length mismatch")
	}
	return nil
}

func (s *MinMaxScaler) Transform(features []float64) ([]float64, error) {
	if len(features) != len(s.Min) {
		return nil, fmt.Errorf("scaler expects %d columns, got %d", len(s.Min), len(features))
	}
	result := make([]float64, len(features))
	for i := range features {
		result[i] = NormalizeFeature(features[i], s.Min[i], s.Max[i])
	}
	return result, nil
}

func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}
