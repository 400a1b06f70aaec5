package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("assessment not found")

const schema = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    patient_name TEXT NOT NULL,
    patient_gender TEXT NOT NULL,
    notes TEXT,
    features_json TEXT NOT NULL,
    probability REAL NOT NULL,
    risk_percent REAL NOT NULL,
    risk_level TEXT NOT NULL,
    prediction INTEGER NOT NULL,
    confidence REAL NOT NULL,
    provenance TEXT NOT NULL,
    model_name TEXT,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at);
`

// Assessment is one persisted scoring call.
type Assessment struct {
	ID            string             `json:"id"`
	PatientName   string             `json:"patient_name"`
	PatientGender string             `json:"patient_gender"`
	Notes         string             `json:"notes,omitempty"`
	Features      map[string]float64 `json:"features"`
	Probability   float64            `json:"probability"`
	RiskPercent   float64            `json:"risk_probability"`
	RiskLevel     string             `json:"risk_level"`
	Prediction    int                `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Provenance    string             `json:"provenance"`
	ModelName     string             `json:"model_name,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

type Stats struct {
	Total        int            `json:"total"`
	ByRiskLevel  map[string]int `json:"by_risk_level"`
	ByProvenance map[string]int `json:"by_provenance"`
}

type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveAssessment inserts a record, assigning ID and CreatedAt when unset.
func (s *Store) SaveAssessment(ctx context.Context, a *Assessment) error {
	if a == nil {
		return errors.New("assessment required")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	features, err := json.Marshal(a.Features)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO assessments (
            id, patient_name, patient_gender, notes, features_json,
            probability, risk_percent, risk_level, prediction, confidence,
            provenance, model_name, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.PatientName, a.PatientGender, a.Notes, string(features),
		a.Probability, a.RiskPercent, a.RiskLevel, a.Prediction, a.Confidence,
		a.Provenance, a.ModelName, a.CreatedAt,
	)
	return err
}

const selectColumns = `
    SELECT id, patient_name, patient_gender, notes, features_json,
           probability, risk_percent, risk_level, prediction, confidence,
           provenance, model_name, created_at
    FROM assessments`

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row scanner) (*Assessment, error) {
	var a Assessment
	var notes, modelName sql.NullString
	var features string
	err := row.Scan(&a.ID, &a.PatientName, &a.PatientGender, &notes, &features,
		&a.Probability, &a.RiskPercent, &a.RiskLevel, &a.Prediction, &a.Confidence,
		&a.Provenance, &modelName, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if notes.Valid {
		a.Notes = notes.String
	}
	if modelName.Valid {
		a.ModelName = modelName.String
	}
	if err := json.Unmarshal([]byte(features), &a.Features); err != nil {
		return nil, fmt.Errorf("decode features of %s: %w", a.ID, err)
	}
	return &a, nil
}

func (s *Store) GetAssessment(ctx context.Context, id string) (*Assessment, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAssessments returns the newest records first.
func (s *Store) ListAssessments(ctx context.Context, limit int) ([]Assessment, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assessments := make([]Assessment, 0)
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, *a)
	}
	return assessments, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByRiskLevel: map[string]int{}, ByProvenance: map[string]int{}}

	count := func(column string, into map[string]int) error {
		rows, err := s.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM assessments GROUP BY `+column)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				return err
			}
			into[key] = n
		}
		return rows.Err()
	}

	if err := count("risk_level", stats.ByRiskLevel); err != nil {
		return nil, err
	}
	if err := count("provenance", stats.ByProvenance); err != nil {
		return nil, err
	}
	for _, n := range stats.ByRiskLevel {
		stats.Total += n
	}
	return stats, nil
}
