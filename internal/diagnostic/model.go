package diagnostic

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"mydiagai/internal/catalog"
	"mydiagai/internal/intake"
	"mydiagai/internal/scoring"
)

var (
	ErrUnknownSymptom    = errors.New("unknown symptom")
	ErrEmptySelection    = errors.New("no symptom selected")
	ErrIncompleteSession = errors.New("session is not complete")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session closed")
)

type Step string

const (
	StepIntake           Step = "intake"
	StepSymptomSelection Step = "symptom_selection"
	StepAnalyzing        Step = "analyzing"
	StepComplete         Step = "complete"
)

// Snapshot is the read-only projection handed to the presentation layer.
type Snapshot struct {
	ID               uuid.UUID                    `json:"id"`
	Version          uint64                       `json:"version"`
	Step             Step                         `json:"step"`
	Patient          *intake.PatientRecord        `json:"patient,omitempty"`
	SelectedSymptoms []string                     `json:"selected_symptoms"`
	Candidates       []scoring.CandidateCondition `json:"candidates,omitempty"`
	LastError        string                       `json:"last_error,omitempty"`
	CreatedAt        time.Time                    `json:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at"`
}

type DiagnosticReport struct {
	Patient    intake.PatientRecord         `json:"patient"`
	Symptoms   []catalog.SymptomDescriptor  `json:"symptoms"`
	Candidates []scoring.CandidateCondition `json:"candidates"`
}
