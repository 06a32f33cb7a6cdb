package diagnostic

import (
	"mydiagai/internal/catalog"
	"mydiagai/internal/scoring"
)

// Render projects a complete session onto its report. Symptoms keep the
// selection order; ids missing from the catalog render as their raw id.
func Render(s Snapshot, cat *catalog.Catalog) (DiagnosticReport, error) {
	if s.Step != StepComplete || s.Patient == nil || len(s.Candidates) == 0 {
		return DiagnosticReport{}, ErrIncompleteSession
	}

	symptoms := make([]catalog.SymptomDescriptor, 0, len(s.SelectedSymptoms))
	for _, id := range s.SelectedSymptoms {
		d, err := cat.Lookup(id)
		if err != nil {
			d = catalog.SymptomDescriptor{ID: id, Label: id}
		}
		symptoms = append(symptoms, d)
	}

	return DiagnosticReport{
		Patient:    *s.Patient,
		Symptoms:   symptoms,
		Candidates: scoring.Rank(s.Candidates),
	}, nil
}
