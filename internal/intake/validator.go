package intake

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Label is the French display label used by the results view and the PDF.
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Homme"
	case GenderFemale:
		return "Femme"
	default:
		return "Autre"
	}
}

type PatientRecord struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender Gender `json:"gender"`
}

const (
	FieldName   = "name"
	FieldAge    = "age"
	FieldGender = "gender"

	minNameLength = 2
)

type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks the raw intake form. Every violated field is reported,
// so the caller can display all field errors at once.
func Validate(rawName, rawAge, rawGender string) (PatientRecord, error) {
	var result *multierror.Error

	name := strings.TrimSpace(rawName)
	if utf8.RuneCountInString(name) < minNameLength {
		result = multierror.Append(result, &ValidationError{
			Field:  FieldName,
			Reason: "Le nom doit contenir au moins 2 caractères",
		})
	}

	age, err := parseAge(rawAge)
	if err != nil {
		result = multierror.Append(result, &ValidationError{Field: FieldAge, Reason: err.Error()})
	}

	gender := Gender(strings.TrimSpace(rawGender))
	if !gender.Valid() {
		result = multierror.Append(result, &ValidationError{
			Field:  FieldGender,
			Reason: "Le genre est requis",
		})
	}

	if result != nil {
		result.ErrorFormat = formatErrors
		return PatientRecord{}, result
	}
	return PatientRecord{Name: name, Age: age, Gender: gender}, nil
}

func parseAge(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("L'âge est requis")
	}
	age, err := strconv.Atoi(raw)
	if err != nil || age <= 0 {
		return 0, errors.New("L'âge doit être un entier positif")
	}
	return age, nil
}

func formatErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return "invalid patient: " + strings.Join(parts, "; ")
}

// FieldErrors extracts the per-field violations from an error returned by
// Validate. It returns nil for errors of any other kind.
func FieldErrors(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return []*ValidationError{ve}
		}
		return nil
	}
	var out []*ValidationError
	for _, e := range merr.Errors {
		var ve *ValidationError
		if errors.As(e, &ve) {
			out = append(out, ve)
		}
	}
	return out
}
