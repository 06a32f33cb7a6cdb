package scoring

import (
	"context"
	"errors"
	"sort"

	"mydiagai/internal/intake"
)

var (
	ErrNoSymptoms   = errors.New("no symptoms to score")
	ErrNoCandidates = errors.New("scorer returned no candidates")
)

type Severity string

const (
	SeverityLow      Severity = "Léger"
	SeverityModerate Severity = "Modéré"
	SeverityHigh     Severity = "Élevé"
)

// SeverityFor maps a probability onto the three display bands of the
// results view.
func SeverityFor(probability int) Severity {
	switch {
	case probability >= 70:
		return SeverityHigh
	case probability >= 50:
		return SeverityModerate
	default:
		return SeverityLow
	}
}

type CandidateCondition struct {
	Disease         string   `json:"disease"`
	Probability     int      `json:"probability"`
	Severity        Severity `json:"severity"`
	Description     string   `json:"description"`
	Recommendations []string `json:"recommendations"`
}

type Input struct {
	Patient  intake.PatientRecord
	Symptoms []string
}

// Scorer turns a symptom selection into ranked candidate conditions.
// Implementations must be deterministic for a given input and never
// return an empty result for a non-empty selection.
type Scorer interface {
	Score(ctx context.Context, in Input) ([]CandidateCondition, error)
}

// Rank returns a copy of candidates sorted by descending probability.
// Equal probabilities keep their original relative order.
func Rank(candidates []CandidateCondition) []CandidateCondition {
	out := make([]CandidateCondition, len(candidates))
	for i, c := range candidates {
		if c.Recommendations != nil {
			recs := make([]string, len(c.Recommendations))
			copy(recs, c.Recommendations)
			c.Recommendations = recs
		}
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	return out
}

type static struct {
	reference []CandidateCondition
}

// NewStatic returns the reference scorer: the same ranked list whatever
// the selection. Real inference replaces it behind the Scorer interface.
func NewStatic() Scorer {
	return &static{reference: Rank(referenceCandidates)}
}

func (s *static) Score(ctx context.Context, in Input) ([]CandidateCondition, error) {
	if len(in.Symptoms) == 0 {
		return nil, ErrNoSymptoms
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Rank(s.reference), nil
}

var referenceCandidates = []CandidateCondition{
	{
		Disease:     "Grippe saisonnière",
		Probability: 78,
		Severity:    SeverityModerate,
		Description: "Infection virale commune des voies respiratoires",
		Recommendations: []string{
			"Repos et hydratation",
			"Médicaments antipyrétiques si nécessaire",
			"Surveillance des symptômes pendant 7-10 jours",
		},
	},
	{
		Disease:     "Bronchite aiguë",
		Probability: 65,
		Severity:    SeverityModerate,
		Description: "Inflammation des bronches généralement d'origine virale",
		Recommendations: []string{
			"Repos et hydratation",
			"Antitussifs si toux sèche",
			"Consultation si aggravation",
		},
	},
	{
		Disease:     "Migraine",
		Probability: 45,
		Severity:    SeverityLow,
		Description: "Maux de tête intenses et récurrents",
		Recommendations: []string{
			"Repos dans un endroit calme et sombre",
			"Analgésiques adaptés",
			"Suivi avec un neurologue si récurrent",
		},
	},
}
