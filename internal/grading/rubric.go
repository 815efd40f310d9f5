package grading

import "math"

// Rubric criterion keys as stored in criteria_scores payloads.
const (
	CriterionContentAccuracy = "content_accuracy"
	CriterionUniqueness      = "uniqueness"
	CriterionRelevance       = "relevance"
	CriterionQuality         = "quality"
)

// Criteria lists the four rubric criteria in display order.
var Criteria = []string{
	CriterionContentAccuracy,
	CriterionUniqueness,
	CriterionRelevance,
	CriterionQuality,
}

// RubricWeights holds the teacher configured percentage per criterion.
type RubricWeights struct {
	ContentAccuracy int `json:"content_accuracy"`
	Uniqueness      int `json:"uniqueness"`
	Relevance       int `json:"relevance"`
	Quality         int `json:"quality"`
}

// RubricValidation is the advisory result shown next to the weight sliders.
type RubricValidation struct {
	Valid bool `json:"valid"`
	Total int  `json:"total"`
}

// DefaultRubricWeights is applied when an assignment is created without weights.
func DefaultRubricWeights() RubricWeights {
	return RubricWeights{ContentAccuracy: 40, Uniqueness: 25, Relevance: 20, Quality: 15}
}

// Total sums the four weights.
func (w RubricWeights) Total() int {
	return w.ContentAccuracy + w.Uniqueness + w.Relevance + w.Quality
}

// IsZero reports whether no weight was set at all.
func (w RubricWeights) IsZero() bool {
	return w == RubricWeights{}
}

// Clamped returns a copy with every weight forced into [0,100].
func (w RubricWeights) Clamped() RubricWeights {
	return RubricWeights{
		ContentAccuracy: ClampWeight(w.ContentAccuracy),
		Uniqueness:      ClampWeight(w.Uniqueness),
		Relevance:       ClampWeight(w.Relevance),
		Quality:         ClampWeight(w.Quality),
	}
}

// ByCriterion exposes the weights keyed by criterion name.
func (w RubricWeights) ByCriterion() map[string]int {
	return map[string]int{
		CriterionContentAccuracy: w.ContentAccuracy,
		CriterionUniqueness:      w.Uniqueness,
		CriterionRelevance:       w.Relevance,
		CriterionQuality:         w.Quality,
	}
}

// ValidateRubricWeights sums the weights and reports whether they reach 100.
// It does not clamp; out of range values are expected to be clamped on input.
func ValidateRubricWeights(weights RubricWeights) RubricValidation {
	total := weights.Total()
	return RubricValidation{Valid: total == 100, Total: total}
}

// ClampWeight forces a single weight into [0,100].
func ClampWeight(weight int) int {
	switch {
	case weight < 0:
		return 0
	case weight > 100:
		return 100
	default:
		return weight
	}
}

// CriterionScores are per-criterion percentages in [0,100].
type CriterionScores map[string]float64

// WeightedPercentage combines criterion percentages using the rubric weights.
// Weights are normalised by their total so a rubric that does not add up to
// 100 still produces a percentage in [0,100]. A zero total yields 0.
func WeightedPercentage(scores CriterionScores, weights RubricWeights) float64 {
	weights = weights.Clamped()
	total := weights.Total()
	if total == 0 {
		return 0
	}

	byCriterion := weights.ByCriterion()
	var sum float64
	// fixed order keeps the float sum, and so the rounding, reproducible
	for _, criterion := range Criteria {
		weight := byCriterion[criterion]
		value := scores[criterion]
		if math.IsNaN(value) || value < 0 {
			value = 0
		}
		if value > 100 {
			value = 100
		}
		sum += value * float64(weight)
	}

	return math.Round(sum/float64(total)*100) / 100
}
