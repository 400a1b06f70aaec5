package ml

// Classifier is a fitted binary model.
type Classifier interface {
	Predict(features []float64) (int, error)
	// PredictProba returns one probability per class, index 1 is the positive class.
	PredictProba(features []float64) ([]float64, error)
}

// Scaler transforms a raw row into the space the classifier was fitted in.
type Scaler interface {
	Transform(features []float64) ([]float64, error)
}

// IdentityScaler passes rows through unchanged.
type IdentityScaler struct{}

func (IdentityScaler) Transform(features []float64) ([]float64, error) {
	out := make([]float64, len(features))
	copy(out, features)
	return out, nil
}

func predictFromProba(c Classifier, features []float64) (int, error) {
	proba, err := c.PredictProba(features)
	if err != nil {
		return 0, err
	}
	best := 0
	for i := range proba {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return best, nil
}
