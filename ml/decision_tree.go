package ml

import (
	"errors"
	"fmt"
	"math"
)

type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx    int       `json:"feature_idx"`
	Threshold     float64   `json:"threshold"`
	LeftChild     int       `json:"left_child"`
	RightChild    int       `json:"right_child"`
	IsLeaf        bool      `json:"is_leaf"`
	Probabilities []float64 `json:"probabilities,omitempty"`
	Value         float64   `json:"value,omitempty"`
}

func (dt *DecisionTree) Predict(features []float64) (int, error) {
	return predictFromProba(dt, features)
}

func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	if len(leaf.Probabilities) != 2 {
		return nil, errors.New("leaf has no class probabilities")
	}
	out := make([]float64, 2)
	copy(out, leaf.Probabilities)
	return out, nil
}

// leaf walks from the root. A well-formed tree reaches a leaf in fewer
// steps than it has nodes, so a longer walk means the artifact has a cycle.
func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.Nodes) == 0 {
		return TreeNode{}, errors.New("model not trained")
	}
	idx := 0
	for steps := 0; steps <= len(dt.Nodes); steps++ {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
	return TreeNode{}, errors.New("tree walk did not terminate")
}

func (dt *DecisionTree) validate(leafProbabilities bool) error {
	if len(dt.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if leafProbabilities && len(node.Probabilities) != 2 {
				return fmt.Errorf("leaf %d: expected 2 class probabilities, got %d", i, len(node.Probabilities))
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= FeatureCount {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(dt.Nodes) || node.RightChild <= i || node.RightChild >= len(dt.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

// BoostedTrees is an additive ensemble of regression trees whose summed
// margin is squashed through a logistic link.
type BoostedTrees struct {
	BaseScore float64        `json:"base_score"`
	Trees     []DecisionTree `json:"trees"`
}

func (b *BoostedTrees) Predict(features []float64) (int, error) {
	return predictFromProba(b, features)
}

func (b *BoostedTrees) PredictProba(features []float64) ([]float64, error) {
	if len(b.Trees) == 0 {
		return nil, errors.New("ensemble has no trees")
	}
	margin := b.BaseScore
	for i := range b.Trees {
		leaf, err := b.Trees[i].leaf(features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		margin += leaf.Value
	}
	p := sigmoid(margin)
	return []float64{1 - p, p}, nil
}

func (b *BoostedTrees) validate() error {
	if len(b.Trees) == 0 {
		return errors.New("ensemble has no trees")
	}
	for i := range b.Trees {
		if err := b.Trees[i].validate(false); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// LogisticRegression is a linear model over the scaled feature row.
type LogisticRegression struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

func (lr *LogisticRegression) Predict(features []float64) (int, error) {
	return predictFromProba(lr, features)
}

func (lr *LogisticRegression) PredictProba(features []float64) ([]float64, error) {
	if len(features) != len(lr.Coefficients) {
		return nil, fmt.Errorf("model expects %d features, got %d", len(lr.Coefficients), len(features))
	}
	z := lr.Intercept
	for i, w := range lr.Coefficients {
		z += w * features[i]
	}
	p := sigmoid(z)
	return []float64{1 - p, p}, nil
}

func (lr *LogisticRegression) validate() error {
	if len(lr.Coefficients) != FeatureCount {
		return fmt.Errorf("expected %d coefficients, got %d", FeatureCount, len(lr.Coefficients))
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
