package scoring

import (
	"context"
	"fmt"

	"mydiagai/internal/platform/gateway"
)

// DiagnosticSubmitter is the part of the gateway client the remote scorer
// needs.
type DiagnosticSubmitter interface {
	SubmitDiagnostic(ctx context.Context, req gateway.DiagnosticRequest) (*gateway.DiagnosticResponse, error)
}

type remote struct {
	gw DiagnosticSubmitter
}

// NewRemote delegates scoring to the backend's /diagnostic endpoint. The
// backend only returns names and probabilities, so severity is derived
// from the probability and description/recommendations stay empty.
func NewRemote(gw DiagnosticSubmitter) Scorer {
	return &remote{gw: gw}
}

func (r *remote) Score(ctx context.Context, in Input) ([]CandidateCondition, error) {
	if len(in.Symptoms) == 0 {
		return nil, ErrNoSymptoms
	}
	resp, err := r.gw.SubmitDiagnostic(ctx, gateway.DiagnosticRequest{
		Patient: gateway.Patient{
			Name:   in.Patient.Name,
			Age:    in.Patient.Age,
			Gender: string(in.Patient.Gender),
		},
		Symptoms: in.Symptoms,
	})
	if err != nil {
		return nil, fmt.Errorf("remote scoring: %w", err)
	}
	if len(resp.Diseases) == 0 {
		return nil, ErrNoCandidates
	}

	candidates := make([]CandidateCondition, 0, len(resp.Diseases))
	for _, d := range resp.Diseases {
		p := clampProbability(d.Probability)
		candidates = append(candidates, CandidateCondition{
			Disease:         d.Name,
			Probability:     p,
			Severity:        SeverityFor(p),
			Recommendations: []string{},
		})
	}
	return Rank(candidates), nil
}

func clampProbability(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
