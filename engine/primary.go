package engine

import (
	"errors"
	"fmt"
	"math"

	"cardiorisk/ml"
)

// ErrInferenceFault wraps any failure of the loaded model at call time.
var ErrInferenceFault = errors.New("inference fault")

// primaryOutcome is either a model probability or a fault the engine must
// replace with the fallback score.
type primaryOutcome struct {
	probability float64
	label       int
	fault       error
}

// scorePrimary runs scaler then classifier. It never panics; artifact
// faults come back in the outcome.
func scorePrimary(bundle *Bundle, vector ml.FeatureVector) (out primaryOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = primaryOutcome{fault: fmt.Errorf("%w: panic: %v", ErrInferenceFault, r)}
		}
	}()

	if !bundle.usable() {
		return primaryOutcome{fault: fmt.Errorf("%w: model not loaded", ErrInferenceFault)}
	}

	scaled, err := bundle.Scaler.Transform(vector.Slice())
	if err != nil {
		return primaryOutcome{fault: fmt.Errorf("%w: transform: %v", ErrInferenceFault, err)}
	}
	proba, err := bundle.Classifier.PredictProba(scaled)
	if err != nil {
		return primaryOutcome{fault: fmt.Errorf("%w: predict_proba: %v", ErrInferenceFault, err)}
	}
	if len(proba) < 2 {
		return primaryOutcome{fault: fmt.Errorf("%w: expected 2 class probabilities, got %d", ErrInferenceFault, len(proba))}
	}
	p := proba[1]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return primaryOutcome{fault: fmt.Errorf("%w: positive class probability %v outside [0,1]", ErrInferenceFault, p)}
	}
	label, err := bundle.Classifier.Predict(scaled)
	if err != nil {
		return primaryOutcome{fault: fmt.Errorf("%w: predict: %v", ErrInferenceFault, err)}
	}
	return primaryOutcome{probability: p, label: label}
}
