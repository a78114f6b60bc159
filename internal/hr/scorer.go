package hr

import (
	"math"

	"doflow-backend/internal/models"
)

// Scorer turns the answers of a completed test into a 0..100 score and a
// list of insights. Implementations must be deterministic.
type Scorer interface {
	Score(test TestTypeInfo, answers []models.AssessmentAnswer) (float64, []string)
}

// CompletionScorer scores by the share of distinct questions answered.
type CompletionScorer struct{}

func (CompletionScorer) Score(test TestTypeInfo, answers []models.AssessmentAnswer) (float64, []string) {
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		if a.QuestionID != "" && a.Answer != "" {
			seen[a.QuestionID] = true
		}
	}

	score := 0.0
	if test.Questions > 0 {
		score = float64(len(seen)) / float64(test.Questions) * 100
	}
	score = math.Min(100, math.Round(score*100)/100)

	return score, insightsFor(test, score)
}

func insightsFor(test TestTypeInfo, score float64) []string {
	switch {
	case score >= 80:
		return append([]string(nil), test.insights...)
	case score >= 50:
		return []string{test.insights[0], "Margini di crescita nelle aree non completate"}
	default:
		return []string{"Test completato solo in parte, si consiglia di ripeterlo"}
	}
}

// clampScore keeps whatever a Scorer returns inside 0..100.
func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
