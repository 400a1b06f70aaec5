package http

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"cardiorisk/ml"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// PatientRequest is the patient metadata carried next to the clinical
// fields in a predict body.
type PatientRequest struct {
	PatientName   string `json:"patient_name" validate:"required,min=2,max=255"`
	PatientGender string `json:"patient_gender" validate:"required,oneof=Male Female Other"`
	Notes         string `json:"notes" validate:"max=1000"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodePatient reads the metadata from a predict body. Text is trimmed and
// NFC-normalized before the length rules run, so composed and decomposed
// spellings of a name count the same.
func decodePatient(payload []byte) (PatientRequest, []ml.FieldError) {
	var req PatientRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return req, []ml.FieldError{{Field: typeErr.Field, Reason: "must be a string"}}
		}
		return req, []ml.FieldError{{Field: "body", Reason: "must be a JSON object"}}
	}

	req.PatientName = norm.NFC.String(strings.TrimSpace(req.PatientName))
	req.Notes = norm.NFC.String(req.Notes)

	err := validate.Struct(req)
	if err == nil {
		return req, nil
	}
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return req, []ml.FieldError{{Field: "body", Reason: err.Error()}}
	}
	problems := make([]ml.FieldError, 0, len(invalid))
	for _, fe := range invalid {
		problems = append(problems, ml.FieldError{Field: fe.Field(), Reason: describe(fe)})
	}
	return req, problems
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed " + fe.Tag() + " check"
	}
}
