package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	ModelLogisticRegression = "logistic_regression"
	ModelDecisionTree       = "decision_tree"
	ModelBoostedTrees       = "boosted_trees"

	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// Artifact is the on-disk envelope shared by classifiers and scalers.
type Artifact struct {
	Type         string          `json:"type"`
	Name         string          `json:"name,omitempty"`
	FeatureNames []string        `json:"feature_names,omitempty"`
	Params       json.RawMessage `json:"params"`
}

// LoadedClassifier is a classifier together with its envelope metadata.
type LoadedClassifier struct {
	Classifier
	Type string
	Name string
}

func readArtifact(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if artifact.Type == "" {
		return nil, fmt.Errorf("%s: artifact type missing", path)
	}
	if len(artifact.Params) == 0 {
		return nil, fmt.Errorf("%s: artifact params missing", path)
	}
	if err := CheckFeatureNames(artifact.FeatureNames); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &artifact, nil
}

// LoadClassifier reads a classifier envelope and builds the model it names.
func LoadClassifier(path string) (*LoadedClassifier, error) {
	artifact, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	model, err := DecodeClassifier(artifact.Type, artifact.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	name := artifact.Name
	if name == "" {
		name = artifact.Type
	}
	return &LoadedClassifier{Classifier: model, Type: artifact.Type, Name: name}, nil
}

func DecodeClassifier(modelType string, params json.RawMessage) (Classifier, error) {
	switch modelType {
	case ModelLogisticRegression:
		model := &LogisticRegression{}
		if err := json.Unmarshal(params, model); err != nil {
			return nil, err
		}
		if err := model.validate(); err != nil {
			return nil, err
		}
		return model, nil
	case ModelDecisionTree:
		model := &DecisionTree{}
		if err := json.Unmarshal(params, model); err != nil {
			return nil, err
		}
		if err := model.validate(true); err != nil {
			return nil, err
		}
		return model, nil
	case ModelBoostedTrees:
		model := &BoostedTrees{}
		if err := json.Unmarshal(params, model); err != nil {
			return nil, err
		}
		if err := model.validate(); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, errors.New("unsupported model type")
	}
}

// LoadScaler reads a scaler envelope.
func LoadScaler(path string) (Scaler, error) {
	artifact, err := readArtifact(path)
	if err != nil {
		return nil, err
	}
	scaler, err := DecodeScaler(artifact.Type, artifact.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scaler, nil
}

func DecodeScaler(scalerType string, params json.RawMessage) (Scaler, error) {
	switch scalerType {
	case ScalerStandard:
		scaler := &StandardScaler{}
		if err := json.Unmarshal(params, scaler); err != nil {
			return nil, err
		}
		if err := scaler.validate(); err != nil {
			return nil, err
		}
		return scaler, nil
	case ScalerMinMax:
		scaler := &MinMaxScaler{}
		if err := json.Unmarshal(params, scaler); err != nil {
			return nil, err
		}
		if err := scaler.validate(); err != nil {
			return nil, err
		}
		return scaler, nil
	default:
		return nil, errors.New("unsupported scaler type")
	}
}

// SaveArtifact writes an envelope for the given params, stamped with the
// canonical feature order.
func SaveArtifact(path, artifactType, name string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(Artifact{
		Type:         artifactType,
		Name:         name,
		FeatureNames: FeatureNames(),
		Params:       raw,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
