package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClassifierRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	params := &LogisticRegression{Coefficients: make([]float64, FeatureCount), Intercept: 0.2}
	require.NoError(t, SaveArtifact(path, ModelLogisticRegression, "heart-lr", params))

	loaded, err := LoadClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, "heart-lr", loaded.Name)
	assert.Equal(t, ModelLogisticRegression, loaded.Type)

	proba, err := loaded.PredictProba(make([]float64, FeatureCount))
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(0.2), proba[1], 1e-12)
}

func TestLoadClassifierDecisionTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, SaveArtifact(path, ModelDecisionTree, "", stumpOnAge()))

	loaded, err := LoadClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, ModelDecisionTree, loaded.Name)
}

func TestLoadClassifierErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadClassifier(filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("\x80\x04\x95pickle"), 0o600))
	_, err = LoadClassifier(garbage)
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.json")
	require.NoError(t, os.WriteFile(unknown, []byte(`{"type":"xgboost","params":{}}`), 0o600))
	_, err = LoadClassifier(unknown)
	assert.EqualError(t, err, unknown+": unsupported model type")

	wrongWidth := filepath.Join(dir, "wide.json")
	require.NoError(t, SaveArtifact(wrongWidth, ModelLogisticRegression, "", &LogisticRegression{Coefficients: []float64{1, 2}}))
	_, err = LoadClassifier(wrongWidth)
	assert.Error(t, err)

	reordered := filepath.Join(dir, "reordered.json")
	require.NoError(t, os.WriteFile(reordered, []byte(`{"type":"logistic_regression","feature_names":["sex","age"],"params":{}}`), 0o600))
	_, err = LoadClassifier(reordered)
	assert.Error(t, err)
}

func TestLoadScaler(t *testing.T) {
	dir := t.TempDir()

	standard := filepath.Join(dir, "standard.json")
	mean := make([]float64, FeatureCount)
	scale := make([]float64, FeatureCount)
	for i := range mean {
		mean[i] = float64(i)
		scale[i] = 2
	}
	require.NoError(t, SaveArtifact(standard, ScalerStandard, "", &StandardScaler{Mean: mean, Scale: scale}))
	scaler, err := LoadScaler(standard)
	require.NoError(t, err)
	row := make([]float64, FeatureCount)
	out, err := scaler.Transform(row)
	require.NoError(t, err)
	assert.Equal(t, -0.5, out[1])

	_, err = scaler.Transform(row[:5])
	assert.Error(t, err)

	minmax := filepath.Join(dir, "minmax.json")
	require.NoError(t, SaveArtifact(minmax, ScalerMinMax, "", &MinMaxScaler{Min: []float64{0, 10}, Max: []float64{10, 10}}))
	scaler, err = LoadScaler(minmax)
	require.NoError(t, err)
	out, err = scaler.Transform([]float64{5, 10})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0}, out)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, SaveArtifact(bad, ScalerStandard, "", &StandardScaler{Mean: []float64{1}, Scale: []float64{}}))
	_, err = LoadScaler(bad)
	assert.Error(t, err)
}

func TestStandardScalerZeroScale(t *testing.T) {
	scaler := &StandardScaler{Mean: []float64{3}, Scale: []float64{0}}
	out, err := scaler.Transform([]float64{5})
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, out)
}
