package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"cardiorisk/db"
	"cardiorisk/engine"
	"cardiorisk/logging"
	"cardiorisk/ml"
	"cardiorisk/monitoring"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// AssessmentStore persists scored assessments.
type AssessmentStore interface {
	SaveAssessment(ctx context.Context, a *db.Assessment) error
	GetAssessment(ctx context.Context, id string) (*db.Assessment, error)
	ListAssessments(ctx context.Context, limit int) ([]db.Assessment, error)
	Stats(ctx context.Context) (*db.Stats, error)
}

// Feed broadcasts assessments to live clients.
type Feed interface {
	PublishAssessment(assessment any) error
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// API holds handler dependencies. Store and Feed are optional.
type API struct {
	Engine  *engine.Engine
	Store   AssessmentStore
	Feed    Feed
	Metrics *monitoring.MetricsCollector
	Logger  *zap.Logger
}

// NewAPI builds the handler set with a fresh metrics collector.
func NewAPI(eng *engine.Engine, store AssessmentStore, feed Feed, logger *zap.Logger) *API {
	return &API{
		Engine:  eng,
		Store:   store,
		Feed:    feed,
		Metrics: monitoring.NewMetricsCollector(),
		Logger:  logging.OrNop(logger),
	}
}

// Register mounts every route on mux.
func (a *API) Register(mux *http.ServeMux) {
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}
	if a.Metrics == nil {
		a.Metrics = monitoring.NewMetricsCollector()
	}
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/model", a.handleModel)
	mux.HandleFunc("POST /api/predict", a.handlePredict)
	mux.HandleFunc("GET /api/history", a.handleHistory)
	mux.HandleFunc("GET /api/history/{id}", a.handleAssessment)
	mux.HandleFunc("GET /api/stats", a.handleStats)
	mux.HandleFunc("GET /api/ws/assessments", a.handleFeed)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)
	mux.Handle("GET /metrics", a.Metrics.Handler())
}

type errorResponse struct {
	Error  string          `json:"error"`
	Fields []ml.FieldError `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string, fields []ml.FieldError) {
	respondJSON(w, status, errorResponse{Error: message, Fields: fields})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type artifactInfo struct {
	Path   string `json:"path"`
	Loaded bool   `json:"loaded"`
	Error  string `json:"error,omitempty"`
}

type modelResponse struct {
	Mode          engine.Mode    `json:"mode"`
	SchemaVersion string         `json:"schema_version"`
	Model         artifactInfo   `json:"model"`
	Scaler        artifactInfo   `json:"scaler"`
	Features      []ml.FieldSpec `json:"features"`
	Thresholds    []engine.Band  `json:"thresholds"`
}

func (a *API) handleModel(w http.ResponseWriter, r *http.Request) {
	state := a.Engine.Artifacts()
	respondJSON(w, http.StatusOK, modelResponse{
		Mode:          a.Engine.Mode(),
		SchemaVersion: ml.SchemaVersion,
		Model:         artifactInfo{Path: state.Model.Path, Loaded: state.Model.Loaded, Error: state.Model.Error()},
		Scaler:        artifactInfo{Path: state.Scaler.Path, Loaded: state.Scaler.Loaded, Error: state.Scaler.Error()},
		Features:      ml.FieldSpecs(),
		Thresholds:    engine.Thresholds(),
	})
}

type predictResponse struct {
	engine.Result
	AssessmentID string    `json:"assessment_id,omitempty"`
	PatientName  string    `json:"patient_name"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body", nil)
		return
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	patient, problems := decodePatient(payload)
	if len(problems) > 0 {
		a.Metrics.RecordRejected()
		writeError(w, http.StatusBadRequest, "invalid patient details", problems)
		return
	}

	fields, typeErrors := decodeFeatures(body)
	vector, err := ml.ToVector(fields)
	if err != nil {
		a.Metrics.RecordRejected()
		var schemaErr *ml.SchemaError
		if errors.As(err, &schemaErr) {
			writeError(w, http.StatusUnprocessableEntity, "invalid clinical features", mergeFieldErrors(schemaErr.Fields, typeErrors))
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}
	start := time.Now()
	result := a.Engine.AssessVector(vector)
	elapsed := time.Since(start)

	record := &db.Assessment{
		PatientName:   patient.PatientName,
		PatientGender: patient.PatientGender,
		Notes:         patient.Notes,
		Features:      map[string]float64(vector.Fields()),
		Probability:   result.Probability,
		RiskPercent:   result.RiskPercent,
		RiskLevel:     string(result.Tier),
		Prediction:    result.Prediction,
		Confidence:    result.Confidence,
		Provenance:    string(result.Provenance),
		ModelName:     result.ModelName,
	}
	if a.Store != nil {
		if err := a.Store.SaveAssessment(r.Context(), record); err != nil {
			a.Logger.Error("save assessment", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to store assessment", nil)
			return
		}
	} else {
		record.CreatedAt = time.Now().UTC()
	}
	a.Metrics.RecordAssessment(string(result.Tier), string(result.Provenance), elapsed)

	if a.Feed != nil {
		if err := a.Feed.PublishAssessment(record); err != nil {
			a.Logger.Warn("publish assessment", zap.Error(err))
		}
	}

	a.Logger.Info("assessment scored",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("assessment_id", record.ID),
		zap.String("risk_level", string(result.Tier)),
		zap.String("provenance", string(result.Provenance)),
	)

	respondJSON(w, http.StatusOK, predictResponse{
		Result:       result,
		AssessmentID: record.ID,
		PatientName:  record.PatientName,
		CreatedAt:    record.CreatedAt,
	})
}

// decodeFeatures pulls the clinical fields out of the body. Fields with a
// non-numeric value are left out of the result and reported separately.
func decodeFeatures(body map[string]json.RawMessage) (ml.Fields, map[string]string) {
	fields := make(ml.Fields, ml.FeatureCount)
	typeErrors := map[string]string{}
	for _, name := range ml.FeatureNames() {
		raw, ok := body[name]
		if !ok || string(raw) == "null" {
			continue
		}
		var value float64
		if err := json.Unmarshal(raw, &value); err != nil {
			typeErrors[name] = "must be a number"
			continue
		}
		fields[name] = value
	}
	return fields, typeErrors
}

func mergeFieldErrors(problems []ml.FieldError, typeErrors map[string]string) []ml.FieldError {
	merged := make([]ml.FieldError, len(problems))
	for i, p := range problems {
		if reason, ok := typeErrors[p.Field]; ok {
			p.Reason = reason
		}
		merged[i] = p
	}
	return merged
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "assessment history is not configured", nil)
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	assessments, err := a.Store.ListAssessments(r.Context(), limit)
	if err != nil {
		a.Logger.Error("list assessments", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load history", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"assessments": assessments,
		"count":       len(assessments),
	})
}

func (a *API) handleAssessment(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "assessment history is not configured", nil)
		return
	}

	assessment, err := a.Store.GetAssessment(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "assessment not found", nil)
		return
	}
	if err != nil {
		a.Logger.Error("get assessment", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load assessment", nil)
		return
	}
	respondJSON(w, http.StatusOK, assessment)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if a.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "assessment history is not configured", nil)
		return
	}

	stats, err := a.Store.Stats(r.Context())
	if err != nil {
		a.Logger.Error("assessment stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load stats", nil)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (a *API) handleFeed(w http.ResponseWriter, r *http.Request) {
	if a.Feed == nil {
		writeError(w, http.StatusServiceUnavailable, "live feed is not configured", nil)
		return
	}
	a.Feed.HandleWebSocket(w, r)
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.Metrics.Snapshot())
}

