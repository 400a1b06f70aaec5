package engine

import (
	"testing"

	"cardiorisk/ml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorOf(t *testing.T, fields ml.Fields) ml.FeatureVector {
	t.Helper()
	v, err := ml.ToVector(fields)
	require.NoError(t, err)
	return v
}

func TestFallbackPointsScenarios(t *testing.T) {
	assert.Equal(t, 7.0, FallbackPoints(vectorOf(t, scenarioA())))
	assert.Equal(t, 0.25, FallbackScore(vectorOf(t, scenarioA())))

	assert.Equal(t, 26.0, FallbackPoints(vectorOf(t, scenarioB())))
	assert.Equal(t, 26.0/28.0, FallbackScore(vectorOf(t, scenarioB())))
}

func TestFallbackRules(t *testing.T) {
	base := func() ml.Fields {
		return ml.Fields{
			ml.Age: 30, ml.Sex: 0, ml.CP: 3, ml.Trestbps: 120, ml.Chol: 240, ml.FBS: 0,
			ml.RestECG: 0, ml.Thalach: 140, ml.Exang: 0, ml.Oldpeak: 1.0, ml.Slope: 0, ml.CA: 0, ml.Thal: 2,
		}
	}
	// cp=3 contributes 0.5 in the baseline
	require.Equal(t, 0.5, FallbackPoints(vectorOf(t, base())))

	tests := []struct {
		name  string
		field string
		value float64
		delta float64
	}{
		{"age 44", ml.Age, 44, 0},
		{"age 45", ml.Age, 45, 1},
		{"age 55", ml.Age, 55, 2},
		{"age 65", ml.Age, 65, 3},
		{"male", ml.Sex, 1, 1},
		{"typical angina", ml.CP, 0, 2.5},
		{"atypical angina", ml.CP, 1, 1.5},
		{"non-anginal", ml.CP, 2, 1},
		{"bp 121", ml.Trestbps, 121, 0.5},
		{"bp 141", ml.Trestbps, 141, 1.5},
		{"bp 160", ml.Trestbps, 160, 1.5},
		{"bp 161", ml.Trestbps, 161, 2.5},
		{"chol 241", ml.Chol, 241, 1},
		{"chol 300", ml.Chol, 300, 1},
		{"chol 301", ml.Chol, 301, 2},
		{"fbs", ml.FBS, 1, 1},
		{"restecg ignored", ml.RestECG, 2, 0},
		{"hr 139", ml.Thalach, 139, 1},
		{"hr 119", ml.Thalach, 119, 2},
		{"hr 89", ml.Thalach, 89, 3},
		{"exang", ml.Exang, 1, 2},
		{"st 1.01", ml.Oldpeak, 1.01, 1},
		{"st 2.0", ml.Oldpeak, 2.0, 1},
		{"st 2.5", ml.Oldpeak, 2.5, 2},
		{"st 3.01", ml.Oldpeak, 3.01, 3},
		{"flat slope", ml.Slope, 1, 1},
		{"down slope", ml.Slope, 2, 2.5},
		{"one vessel", ml.CA, 1, 2},
		{"three vessels", ml.CA, 3, 6},
		{"four vessels capped", ml.CA, 4, 6},
		{"thal unknown", ml.Thal, 0, 0},
		{"thal fixed", ml.Thal, 1, 0.5},
		{"thal reversible", ml.Thal, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := base()
			fields[tt.field] = tt.value
			assert.InDelta(t, 0.5+tt.delta, FallbackPoints(vectorOf(t, fields)), 1e-12)
		})
	}
}

func TestFallbackScoreCapped(t *testing.T) {
	worst := ml.Fields{
		ml.Age: 80, ml.Sex: 1, ml.CP: 0, ml.Trestbps: 200, ml.Chol: 400, ml.FBS: 1,
		ml.RestECG: 2, ml.Thalach: 70, ml.Exang: 1, ml.Oldpeak: 6, ml.Slope: 2, ml.CA: 4, ml.Thal: 3,
	}
	v := vectorOf(t, worst)
	assert.Equal(t, 32.0, FallbackPoints(v))
	assert.Equal(t, 0.99, FallbackScore(v))
}

func TestFallbackScoreIsPure(t *testing.T) {
	v := vectorOf(t, scenarioB())
	first := FallbackScore(v)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, FallbackScore(v))
	}
}
