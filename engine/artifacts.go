package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"

	"cardiorisk/logging"
	"cardiorisk/ml"
	"go.uber.org/zap"
)

var (
	// ErrArtifactMissing means a configured path does not resolve to a readable file.
	ErrArtifactMissing = errors.New("artifact missing")
	// ErrArtifactCorrupt means the file exists but could not be decoded or is
	// incompatible with the feature schema.
	ErrArtifactCorrupt = errors.New("artifact corrupt")
)

// Bundle is the classifier/scaler pair. It is never mutated after load.
type Bundle struct {
	Classifier ml.Classifier
	Scaler     ml.Scaler
	ModelName  string
}

func (b *Bundle) usable() bool {
	return b != nil && b.Classifier != nil && b.Scaler != nil
}

// ArtifactStatus is the load outcome of one artifact.
type ArtifactStatus struct {
	Path   string `json:"path"`
	Loaded bool   `json:"loaded"`
	Err    error  `json:"-"`
}

// Error returns the load error text, or "" when loaded.
func (s ArtifactStatus) Error() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

type LoadState struct {
	Model  ArtifactStatus
	Scaler ArtifactStatus
}

func (s LoadState) Usable() bool {
	return s.Model.Loaded && s.Scaler.Loaded
}

// ArtifactStore owns the artifacts for the life of the process. The bundle
// sits behind an atomic pointer so readers never see a partial update.
type ArtifactStore struct {
	bundle atomic.Pointer[Bundle]
	state  LoadState
}

// LoadArtifacts reads both artifacts once. Failures are logged and recorded,
// never returned: the store is always usable in heuristic-only mode.
func LoadArtifacts(modelPath, scalerPath string, logger *zap.Logger) *ArtifactStore {
	logger = logging.OrNop(logger)
	store := &ArtifactStore{}
	bundle := &Bundle{}

	store.state.Model.Path = modelPath
	if loaded, err := loadClassifier(modelPath); err != nil {
		store.state.Model.Err = err
		logger.Error("classifier not loaded", zap.String("path", modelPath), zap.Error(err))
	} else {
		bundle.Classifier = loaded.Classifier
		bundle.ModelName = loaded.Name
		store.state.Model.Loaded = true
		logger.Info("classifier loaded", zap.String("path", modelPath), zap.String("type", loaded.Type), zap.String("name", loaded.Name))
	}

	store.state.Scaler.Path = scalerPath
	if scaler, err := loadScaler(scalerPath); err != nil {
		store.state.Scaler.Err = err
		logger.Error("scaler not loaded", zap.String("path", scalerPath), zap.Error(err))
	} else {
		bundle.Scaler = scaler
		store.state.Scaler.Loaded = true
		logger.Info("scaler loaded", zap.String("path", scalerPath))
	}

	if !store.state.Usable() {
		logger.Warn("model unavailable, heuristic fallback is active",
			zap.String("model_path", modelPath), zap.String("scaler_path", scalerPath))
	}
	store.bundle.Store(bundle)
	return store
}

// NewArtifactStore wraps already constructed artifacts. Either may be nil.
func NewArtifactStore(classifier ml.Classifier, scaler ml.Scaler, modelName string) *ArtifactStore {
	store := &ArtifactStore{}
	store.bundle.Store(&Bundle{Classifier: classifier, Scaler: scaler, ModelName: modelName})
	store.state.Model.Loaded = classifier != nil
	if classifier == nil {
		store.state.Model.Err = ErrArtifactMissing
	}
	store.state.Scaler.Loaded = scaler != nil
	if scaler == nil {
		store.state.Scaler.Err = ErrArtifactMissing
	}
	return store
}

// IsModelUsable reports whether both classifier and scaler are loaded.
func (s *ArtifactStore) IsModelUsable() bool {
	return s.Bundle().usable()
}

func (s *ArtifactStore) Bundle() *Bundle {
	return s.bundle.Load()
}

func (s *ArtifactStore) State() LoadState {
	return s.state
}

func loadClassifier(path string) (*ml.LoadedClassifier, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: model path not configured", ErrArtifactMissing)
	}
	loaded, err := ml.LoadClassifier(path)
	if err != nil {
		return nil, classifyLoadError(path, err)
	}
	return loaded, nil
}

func loadScaler(path string) (ml.Scaler, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: scaler path not configured", ErrArtifactMissing)
	}
	scaler, err := ml.LoadScaler(path)
	if err != nil {
		return nil, classifyLoadError(path, err)
	}
	return scaler, nil
}

func classifyLoadError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %v", ErrArtifactMissing, path, err)
	}
	return fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
}
