// Package engine scores cardiac risk from a validated feature vector,
// using a trained model when one is loaded and a rule-based heuristic
// otherwise.
package engine

import (
	"cardiorisk/logging"
	"cardiorisk/ml"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Mode is the steady state chosen at construction.
type Mode string

const (
	ModeModelBacked   Mode = "model-backed"
	ModeHeuristicOnly Mode = "heuristic-only"
)

// Engine is safe for concurrent use. Construct it once and share it.
type Engine struct {
	store  *ArtifactStore
	mode   Mode
	logger *zap.Logger
	cache  *lru.Cache[ml.FeatureVector, Result]
}

type Option func(*Engine) error

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) error {
		e.logger = logging.OrNop(logger)
		return nil
	}
}

// WithCache memoizes results per feature vector. Size <= 0 disables it.
func WithCache(size int) Option {
	return func(e *Engine) error {
		if size <= 0 {
			e.cache = nil
			return nil
		}
		cache, err := lru.New[ml.FeatureVector, Result](size)
		if err != nil {
			return err
		}
		e.cache = cache
		return nil
	}
}

// New builds an engine over the store. A nil store runs heuristic-only.
func New(store *ArtifactStore, opts ...Option) (*Engine, error) {
	if store == nil {
		store = NewArtifactStore(nil, nil, "")
	}
	e := &Engine{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.mode = ModeHeuristicOnly
	if store.IsModelUsable() {
		e.mode = ModeModelBacked
	}
	e.logger.Info("risk engine ready", zap.String("mode", string(e.mode)), zap.String("schema", ml.SchemaVersion))
	return e, nil
}

func (e *Engine) Mode() Mode {
	return e.mode
}

func (e *Engine) Artifacts() LoadState {
	return e.store.State()
}

// Assess validates named fields and scores them. Only schema errors are
// returned; model faults degrade to the heuristic.
func (e *Engine) Assess(fields ml.Fields) (Result, error) {
	vector, err := ml.ToVector(fields)
	if err != nil {
		return Result{}, err
	}
	return e.AssessVector(vector), nil
}

// AssessVector scores a vector that is already in canonical order.
func (e *Engine) AssessVector(vector ml.FeatureVector) Result {
	if e.cache != nil {
		if cached, ok := e.cache.Get(vector); ok {
			return cached
		}
	}

	result, cacheable := e.score(vector)
	if e.cache != nil && cacheable {
		e.cache.Add(vector, result)
	}
	return result
}

func (e *Engine) score(vector ml.FeatureVector) (Result, bool) {
	if e.mode == ModeHeuristicOnly {
		p := FallbackScore(vector)
		return Assemble(p, Classify(p), ProvenanceHeuristic, ""), true
	}

	bundle := e.store.Bundle()
	outcome := scorePrimary(bundle, vector)
	if outcome.fault != nil {
		e.logger.Error("model inference failed, using heuristic fallback", zap.Error(outcome.fault))
		p := FallbackScore(vector)
		// a transient fault must not pin a degraded answer in the cache
		return Assemble(p, Classify(p), ProvenanceHeuristicFallback, ""), false
	}

	if (outcome.probability >= PositiveThreshold) != (outcome.label == 1) {
		e.logger.Debug("classifier label disagrees with probability cut",
			zap.Int("label", outcome.label), zap.Float64("probability", outcome.probability))
	}
	p := outcome.probability
	return Assemble(p, Classify(p), ProvenanceModel, bundle.ModelName), true
}
