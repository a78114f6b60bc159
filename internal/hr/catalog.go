package hr

import "doflow-backend/internal/models"

// TestTypeInfo describes one assessment kind offered to HR.
type TestTypeInfo struct {
	ID          models.TestType `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Duration    int             `json:"duration"` // minutes
	Questions   int             `json:"questions"`
	insights    []string
}

var catalog = []TestTypeInfo{
	{
		ID:          models.TestCognitive,
		Name:        "Test Cognitivo",
		Description: "Valuta capacità di ragionamento logico, problem solving e analisi",
		Duration:    30,
		Questions:   25,
		insights: []string{
			"Eccellenti capacità di problem solving",
			"Forte pensiero analitico",
			"Buona capacità di apprendimento rapido",
		},
	},
	{
		ID:          models.TestPersonality,
		Name:        "Test Personalità",
		Description: "Analizza tratti caratteriali e stile di lavoro",
		Duration:    20,
		Questions:   40,
		insights: []string{
			"Personalità orientata al team",
			"Alta motivazione intrinseca",
			"Buona gestione dello stress",
		},
	},
	{
		ID:          models.TestTechnical,
		Name:        "Test Tecnico",
		Description: "Valuta competenze tecniche specifiche per il ruolo",
		Duration:    45,
		Questions:   30,
		insights: []string{
			"Solide competenze tecniche",
			"Capacità di adattamento tecnologico",
			"Attenzione ai dettagli",
		},
	},
	{
		ID:          models.TestLeadership,
		Name:        "Test Leadership",
		Description: "Misura potenziale di leadership e gestione team",
		Duration:    25,
		Questions:   20,
		insights: []string{
			"Potenziale di leadership emergente",
			"Buone capacità decisionali",
			"Abilità nel motivare gli altri",
		},
	},
	{
		ID:          models.TestCommunication,
		Name:        "Test Comunicazione",
		Description: "Valuta abilità comunicative e interpersonali",
		Duration:    15,
		Questions:   15,
		insights: []string{
			"Eccellenti abilità comunicative",
			"Ascolto attivo sviluppato",
			"Chiarezza espositiva",
		},
	},
}

// TestTypes returns the fixed assessment catalog in display order.
func TestTypes() []TestTypeInfo {
	out := make([]TestTypeInfo, len(catalog))
	copy(out, catalog)
	return out
}

// LookupTestType finds a catalog entry by id.
func LookupTestType(id models.TestType) (TestTypeInfo, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return TestTypeInfo{}, false
}
