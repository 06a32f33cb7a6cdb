package catalog

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("symptom not found")

type Category string

const (
	CategoryGeneral         Category = "général"
	CategoryRespiratory     Category = "respiratoire"
	CategoryNeurological    Category = "neurologique"
	CategoryDigestive       Category = "digestif"
	CategoryDermatological  Category = "dermatologique"
	CategoryCardiovascular  Category = "cardiovasculaire"
	CategoryMusculoskeletal Category = "musculosquelettique"
)

type SymptomDescriptor struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Category Category `json:"category"`
}

// Catalog is the fixed reference list of selectable symptoms. It is safe
// for concurrent use since nothing mutates it after construction.
type Catalog struct {
	symptoms []SymptomDescriptor
	byID     map[string]int
}

func New(symptoms []SymptomDescriptor) (*Catalog, error) {
	c := &Catalog{
		symptoms: make([]SymptomDescriptor, len(symptoms)),
		byID:     make(map[string]int, len(symptoms)),
	}
	for i, s := range symptoms {
		if s.ID == "" {
			return nil, fmt.Errorf("symptom at index %d has empty id", i)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate symptom id %q", s.ID)
		}
		c.symptoms[i] = s
		c.byID[s.ID] = i
	}
	return c, nil
}

// Default returns the catalog used by the two-step diagnostic flow.
func Default() *Catalog {
	c, err := New(defaultSymptoms)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Lookup(id string) (SymptomDescriptor, error) {
	i, ok := c.byID[id]
	if !ok {
		return SymptomDescriptor{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c.symptoms[i], nil
}

func (c *Catalog) Contains(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Label returns the display label for id, or id itself when unknown.
func (c *Catalog) Label(id string) string {
	if s, err := c.Lookup(id); err == nil {
		return s.Label
	}
	return id
}

// All returns a copy of the catalog in declaration order.
func (c *Catalog) All() []SymptomDescriptor {
	out := make([]SymptomDescriptor, len(c.symptoms))
	copy(out, c.symptoms)
	return out
}

func (c *Catalog) Len() int {
	return len(c.symptoms)
}

var defaultSymptoms = []SymptomDescriptor{
	{ID: "fever", Label: "Fièvre", Category: CategoryGeneral},
	{ID: "cough", Label: "Toux", Category: CategoryRespiratory},
	{ID: "headache", Label: "Mal de tête", Category: CategoryNeurological},
	{ID: "fatigue", Label: "Fatigue", Category: CategoryGeneral},
	{ID: "nausea", Label: "Nausée", Category: CategoryDigestive},
	{ID: "vomiting", Label: "Vomissements", Category: CategoryDigestive},
	{ID: "diarrhea", Label: "Diarrhée", Category: CategoryDigestive},
	{ID: "rash", Label: "Éruption cutanée", Category: CategoryDermatological},
	{ID: "sore-throat", Label: "Mal de gorge", Category: CategoryRespiratory},
	{ID: "shortness-of-breath", Label: "Essoufflement", Category: CategoryRespiratory},
	{ID: "chest-pain", Label: "Douleur thoracique", Category: CategoryCardiovascular},
	{ID: "dizziness", Label: "Étourdissement", Category: CategoryNeurological},
	{ID: "joint-pain", Label: "Douleurs articulaires", Category: CategoryMusculoskeletal},
	{ID: "muscle-pain", Label: "Douleurs musculaires", Category: CategoryMusculoskeletal},
	{ID: "loss-of-smell", Label: "Perte d'odorat", Category: CategoryNeurological},
	{ID: "loss-of-taste", Label: "Perte de goût", Category: CategoryNeurological},
	{ID: "runny-nose", Label: "Nez qui coule", Category: CategoryRespiratory},
	{ID: "abdominal-pain", Label: "Douleur abdominale", Category: CategoryDigestive},
	{ID: "chills", Label: "Frissons", Category: CategoryGeneral},
	{ID: "thirst", Label: "Soif", Category: CategoryGeneral},
	{ID: "sensitivity", Label: "Sensibilité", Category: CategoryNeurological},
	{ID: "pain", Label: "Douleur", Category: CategoryGeneral},
	{ID: "itching", Label: "Démangeaison", Category: CategoryDermatological},
	{ID: "loss-of-appetite", Label: "Perte d'appétit", Category: CategoryDigestive},
	{ID: "other-disorders", Label: "Troubles divers", Category: CategoryGeneral},
}
