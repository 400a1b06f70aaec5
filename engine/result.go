package engine

import "cardiorisk/ml"

// PositiveThreshold is the cut for the binary prediction, independent of
// the tier table: 0.45 is Moderate with prediction 0.
const PositiveThreshold = 0.50

// Provenance names the scoring path that produced a result.
type Provenance string

const (
	ProvenanceModel Provenance = "model"
	// ProvenanceHeuristic: no usable model is loaded.
	ProvenanceHeuristic Provenance = "heuristic"
	// ProvenanceHeuristicFallback: the model faulted on this call.
	ProvenanceHeuristicFallback Provenance = "heuristic-fallback"
)

func (p Provenance) IsHeuristic() bool {
	return p != ProvenanceModel
}

// Result is the engine output. It is built once per call and never mutated.
type Result struct {
	Probability float64    `json:"probability"`
	RiskPercent float64    `json:"risk_probability"`
	Tier        Tier       `json:"risk_level"`
	Prediction  int        `json:"prediction"`
	Confidence  float64    `json:"confidence"`
	Provenance  Provenance `json:"provenance"`
	ModelName   string     `json:"model_name,omitempty"`
}

// Assemble composes the output contract from a probability and its tier.
func Assemble(probability float64, tier Tier, provenance Provenance, modelName string) Result {
	prediction := 0
	if probability >= PositiveThreshold {
		prediction = 1
	}
	if provenance.IsHeuristic() {
		modelName = ""
	}
	return Result{
		Probability: probability,
		RiskPercent: ml.RoundTo(probability*100, 2),
		Tier:        tier,
		Prediction:  prediction,
		Confidence:  ml.RoundTo(probability, 4),
		Provenance:  provenance,
		ModelName:   modelName,
	}
}
