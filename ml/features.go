package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// SchemaVersion identifies the feature contract artifacts are fitted against.
// A different column set is a different contract and gets a new version.
const SchemaVersion = "cleveland-13/v1"

const (
	Age      = "age"
	Sex      = "sex"
	CP       = "cp"
	Trestbps = "trestbps"
	Chol     = "chol"
	FBS      = "fbs"
	RestECG  = "restecg"
	Thalach  = "thalach"
	Exang    = "exang"
	Oldpeak  = "oldpeak"
	Slope    = "slope"
	CA       = "ca"
	Thal     = "thal"
)

// Positions of each field inside a FeatureVector.
const (
	IdxAge = iota
	IdxSex
	IdxCP
	IdxTrestbps
	IdxChol
	IdxFBS
	IdxRestECG
	IdxThalach
	IdxExang
	IdxOldpeak
	IdxSlope
	IdxCA
	IdxThal

	FeatureCount
)

// FeatureVector is the ordered encoding the classifier was fitted on.
type FeatureVector [FeatureCount]float64

// Fields holds clinical measurements by name.
type Fields map[string]float64

// FieldSpec documents one column of the contract.
type FieldSpec struct {
	Name        string  `json:"name" yaml:"name"`
	Min         float64 `json:"min" yaml:"min"`
	Max         float64 `json:"max" yaml:"max"`
	Integer     bool    `json:"integer" yaml:"integer"`
	Description string  `json:"description" yaml:"description"`
}

var fieldSpecs = [FeatureCount]FieldSpec{
	{Name: Age, Min: 1, Max: 120, Integer: true, Description: "age in years"},
	{Name: Sex, Min: 0, Max: 1, Integer: true, Description: "biological sex, 1 = male"},
	{Name: CP, Min: 0, Max: 3, Integer: true, Description: "chest pain type, 0 = typical angina .. 3 = asymptomatic"},
	{Name: Trestbps, Min: 60, Max: 250, Integer: true, Description: "resting blood pressure, mm Hg"},
	{Name: Chol, Min: 100, Max: 700, Integer: true, Description: "serum cholesterol, mg/dl"},
	{Name: FBS, Min: 0, Max: 1, Integer: true, Description: "fasting blood sugar > 120 mg/dl"},
	{Name: RestECG, Min: 0, Max: 2, Integer: true, Description: "resting ECG, 0 = normal, 1 = ST-T abnormality, 2 = LV hypertrophy"},
	{Name: Thalach, Min: 60, Max: 250, Integer: true, Description: "maximum heart rate achieved, bpm"},
	{Name: Exang, Min: 0, Max: 1, Integer: true, Description: "exercise induced angina"},
	{Name: Oldpeak, Min: 0, Max: 10, Description: "ST depression induced by exercise relative to rest"},
	{Name: Slope, Min: 0, Max: 2, Integer: true, Description: "slope of peak exercise ST segment, 0 = up .. 2 = down"},
	{Name: CA, Min: 0, Max: 4, Integer: true, Description: "major vessels colored by fluoroscopy"},
	{Name: Thal, Min: 0, Max: 3, Integer: true, Description: "thalassemia, 0 = unknown, 1 = fixed, 2 = normal, 3 = reversible defect"},
}

var fieldIndex = func() map[string]int {
	m := make(map[string]int, FeatureCount)
	for i, spec := range fieldSpecs {
		m[spec.Name] = i
	}
	return m
}()

// ErrSchema matches every *SchemaError.
var ErrSchema = errors.New("feature schema violation")

// FieldError describes one rejected field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// SchemaError is returned by ToVector when input fields are missing or invalid.
type SchemaError struct {
	Fields []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return fmt.Sprintf("%s: %s", ErrSchema, strings.Join(parts, "; "))
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// FeatureNames returns the canonical column order.
func FeatureNames() []string {
	names := make([]string, FeatureCount)
	for i, spec := range fieldSpecs {
		names[i] = spec.Name
	}
	return names
}

// FieldSpecs returns the contract in canonical order.
func FieldSpecs() []FieldSpec {
	specs := make([]FieldSpec, FeatureCount)
	copy(specs, fieldSpecs[:])
	return specs
}

// ToVector validates named fields and lays them out in canonical order.
// The order comes from the schema, never from the input map. Unknown keys
// are ignored.
func ToVector(fields Fields) (FeatureVector, error) {
	var vector FeatureVector
	var problems []FieldError

	for i, spec := range fieldSpecs {
		value, ok := fields[spec.Name]
		if !ok {
			problems = append(problems, FieldError{Field: spec.Name, Reason: "required"})
			continue
		}
		if reason := spec.check(value); reason != "" {
			problems = append(problems, FieldError{Field: spec.Name, Reason: reason})
			continue
		}
		if i == IdxOldpeak {
			value = RoundTo(value, 2)
		}
		vector[i] = value
	}

	if len(problems) > 0 {
		return FeatureVector{}, &SchemaError{Fields: problems}
	}
	return vector, nil
}

func (s FieldSpec) check(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "must be a finite number"
	}
	if value < s.Min || value > s.Max {
		return fmt.Sprintf("must be between %g and %g", s.Min, s.Max)
	}
	if s.Integer && value != math.Trunc(value) {
		return "must be an integer"
	}
	return ""
}

// Slice returns a fresh copy of the vector for classifier input.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// Value returns a field by name.
func (v FeatureVector) Value(name string) (float64, bool) {
	idx, ok := fieldIndex[name]
	if !ok {
		return 0, false
	}
	return v[idx], true
}

// Fields converts the vector back to named form.
func (v FeatureVector) Fields() Fields {
	fields := make(Fields, FeatureCount)
	for i, spec := range fieldSpecs {
		fields[spec.Name] = v[i]
	}
	return fields
}

// CheckFeatureNames verifies that an artifact was fitted on the canonical
// column order. An empty list is accepted.
func CheckFeatureNames(names []string) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != FeatureCount {
		return fmt.Errorf("artifact declares %d features, schema %s has %d", len(names), SchemaVersion, FeatureCount)
	}
	for i, name := range names {
		if name != fieldSpecs[i].Name {
			expected := FeatureNames()
			got := append([]string(nil), names...)
			sort.Strings(got)
			sort.Strings(expected)
			if strings.Join(got, ",") == strings.Join(expected, ",") {
				return fmt.Errorf("artifact column %d is %q, schema %s expects %q (columns reordered)", i, name, SchemaVersion, fieldSpecs[i].Name)
			}
			return fmt.Errorf("artifact column %d is %q, schema %s expects %q", i, name, SchemaVersion, fieldSpecs[i].Name)
		}
	}
	return nil
}

// RoundTo rounds half to even at the given number of decimals.
func RoundTo(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.RoundToEven(value*pow) / pow
}
