package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"eldersafe/internal/types"
)

// Aggregation constants. A single HIGH factor pulls the average toward it
// (dominationPull), three or more factors at moderate strength stack a
// compound bonus, and the elderly uplift reflects reduced physiological
// reserve across the board.
const (
	dominationPull       = 0.7
	compoundScoreFloor   = 35.0
	compoundMinFactors   = 3
	compoundBonusPerRisk = 3.0
	elderlyOverallUplift = 1.08
	topRiskCount         = 2
)

var activityPhrase = map[types.ActivityIntent]string{
	types.ActivityWalking:     "going for a walk",
	types.ActivityOutdoorWork: "outdoor work",
	types.ActivityExercise:    "exercising outdoors",
	types.ActivityCommute:     "commuting",
	types.ActivityRest:        "staying home",
}

// Aggregate combines individual factor assessments into a single Safety
// Index. The factor slice order is preserved in AllRisks; TopRisks holds the
// two highest-scoring factors.
func Aggregate(factors []types.RiskFactorAssessment, pop types.PopulationContext, now time.Time) types.SafetyIndex {
	if len(factors) == 0 {
		return types.SafetyIndex{
			OverallLevel:    types.RiskLow,
			OverallScore:    0,
			TopRisks:        []types.RiskFactorAssessment{},
			AllRisks:        []types.RiskFactorAssessment{},
			Summary:         "No environmental data available.",
			Recommendations: []string{"Check back later for updated conditions."},
			Timestamp:       now,
		}
	}

	var totalWeight, weightedSum float64
	for _, f := range factors {
		w := weightForName(f.Name)
		weightedSum += f.Score * w
		totalWeight += w
	}
	avg := weightedSum / totalWeight

	// Domination: one HIGH factor must not be diluted away by calm ones.
	var maxHigh float64
	for _, f := range factors {
		if f.Level == types.RiskHigh && f.Score > maxHigh {
			maxHigh = f.Score
		}
	}
	if maxHigh > 0 {
		avg = math.Max(avg, maxHigh*dominationPull)
	}

	var moderatePlus int
	for _, f := range factors {
		if f.Score >= compoundScoreFloor {
			moderatePlus++
		}
	}
	if moderatePlus >= compoundMinFactors {
		avg = math.Min(avg+float64(moderatePlus)*compoundBonusPerRisk, 100)
	}

	if pop.AgeGroup == types.AgeElderly {
		avg = math.Min(avg*elderlyOverallUplift, 100)
	}

	score := round1(clampScore(avg))
	level := types.LevelForScore(score)

	sorted := make([]types.RiskFactorAssessment, len(factors))
	copy(sorted, factors)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	top := sorted
	if len(top) > topRiskCount {
		top = top[:topRiskCount]
	}

	return types.SafetyIndex{
		OverallLevel:    level,
		OverallScore:    score,
		TopRisks:        top,
		AllRisks:        factors,
		Summary:         buildSummary(level, top, pop),
		Recommendations: buildRecommendations(level, top),
		Timestamp:       now,
	}
}

func buildSummary(level types.RiskLevel, top []types.RiskFactorAssessment, pop types.PopulationContext) string {
	target := "adults"
	if pop.AgeGroup == types.AgeElderly {
		target = "seniors"
	}
	activity, ok := activityPhrase[pop.Activity]
	if !ok {
		activity = "outdoor activity"
	}

	switch level {
	case types.RiskLow:
		summary := fmt.Sprintf("Conditions are safe for %s for %s today.", target, activity)
		if len(top) > 0 {
			summary += fmt.Sprintf(" Minor note: %s is the only slight concern.", strings.ToLower(top[0].Name))
		}
		return summary
	case types.RiskModerate:
		return fmt.Sprintf(
			"Moderate caution needed for %s. Main concerns: %s. Short outdoor activities are okay with precautions.",
			target, concernList(top),
		)
	default:
		return fmt.Sprintf(
			"High risk for %s today due to %s. It is strongly recommended to avoid %s unless necessary.",
			target, concernList(top), activity,
		)
	}
}

func buildRecommendations(level types.RiskLevel, top []types.RiskFactorAssessment) []string {
	recs := make([]string, 0, len(top)+3)
	for _, f := range top {
		recs = append(recs, f.Recommendation)
	}
	switch level {
	case types.RiskLow:
		recs = append(recs, "Stay hydrated and enjoy your day.")
	case types.RiskModerate:
		recs = append(recs,
			"Keep a phone charged and nearby in case of emergency.",
			"Inform a family member if heading out.",
		)
	default:
		recs = append(recs,
			"Stay indoors if possible.",
			"Keep emergency contacts accessible.",
			"Monitor for any symptoms like dizziness, breathlessness, or chest pain.",
		)
	}
	return recs
}

func concernList(top []types.RiskFactorAssessment) string {
	names := make([]string, 0, len(top))
	for _, f := range top {
		names = append(names, strings.ToLower(f.Name))
	}
	return strings.Join(names, " and ")
}
