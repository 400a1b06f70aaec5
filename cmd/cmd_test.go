package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardiorisk/engine"
	"cardiorisk/ml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const patientJSON = `{"patient_name":"Ramesh Kumar","age":52,"sex":1,"cp":2,"trestbps":130,"chol":250,"fbs":0,"restecg":1,"thalach":153,"exang":0,"oldpeak":1.4,"slope":1,"ca":0,"thal":2}`

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	missing := filepath.Join(dir, "none.json")
	args = append(args,
		"--config", filepath.Join(dir, "config.yaml"),
		"--model", missing,
		"--scaler", missing,
	)

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScoreFromStdin(t *testing.T) {
	out, err := runCommand(t, patientJSON, "score", "--input", "-", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Risk level:   Low")
	assert.Contains(t, out, "Probability:  25.00%")
	assert.Contains(t, out, "heuristic (heuristic-only)")
}

func TestScoreFromFileAsJSON(t *testing.T) {
	input := filepath.Join(t.TempDir(), "patient.json")
	require.NoError(t, os.WriteFile(input, []byte(patientJSON), 0o644))

	out, err := runCommand(t, "", "score", "--input", input, "--json")
	require.NoError(t, err)

	var result engine.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, engine.TierLow, result.Tier)
	assert.Equal(t, engine.ProvenanceHeuristic, result.Provenance)
	assert.InDelta(t, 0.25, result.Probability, 1e-12)
}

func TestScoreRejectsInvalidInput(t *testing.T) {
	_, err := runCommand(t, `{"age": 52}`, "score", "--input", "-", "--json=false")
	assert.ErrorIs(t, err, ml.ErrSchema)
}

func TestArtifactsCommand(t *testing.T) {
	out, err := runCommand(t, "", "artifacts")
	require.NoError(t, err)
	assert.Contains(t, out, "Mode:    heuristic-only")
	assert.Contains(t, out, ml.SchemaVersion)
	assert.Contains(t, out, "artifact missing")
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]byte(`{"age": 61, "oldpeak": 2.25, "unknown": "x"}`))
	require.NoError(t, err)
	assert.Equal(t, ml.Fields{"age": 61, "oldpeak": 2.25}, fields)

	_, err = parseFields([]byte(`{"age": "sixty"}`))
	var schemaErr *ml.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "age", schemaErr.Fields[0].Field)

	_, err = parseFields([]byte(`[1,2]`))
	assert.Error(t, err)
}
