package risk

import (
	"fmt"

	"eldersafe/internal/types"
)

// uvExposure scales the raw UV index by expected outdoor exposure duration.
var uvExposure = map[types.ActivityIntent]float64{
	types.ActivityRest:        0.3,
	types.ActivityCommute:     0.6,
	types.ActivityWalking:     1.0,
	types.ActivityOutdoorWork: 1.4,
	types.ActivityExercise:    1.2,
}

// Thinner skin makes seniors more susceptible to UV damage.
const uvElderlySensitivity = 1.3

var uvCurve = piecewiseCurve{
	segments: []linearSegment{
		{upper: 2, base: 0, slope: 7.5},
		{upper: 5, base: 15, slope: 10},
		{upper: 7, base: 45, slope: 12.5},
		{upper: 10, base: 70, slope: 8},
		{upper: maxInput, base: 94, slope: 2},
	},
	max: 100,
}

// UV computes ultraviolet exposure risk. The reported index is scaled by
// activity exposure and age sensitivity before the curve is applied; the
// human-readable text always quotes the raw index.
func UV(uvIndex float64, pop types.PopulationContext) types.RiskFactorAssessment {
	exposure, ok := uvExposure[pop.Activity]
	if !ok {
		exposure = 1.0
	}
	sensitivity := 1.0
	if pop.AgeGroup == types.AgeElderly {
		sensitivity = uvElderlySensitivity
	}

	effective := uvIndex * exposure * sensitivity
	score := round1(clampScore(uvCurve.score(effective)))
	level := types.LevelForScore(score)

	var reason, recommendation, icon string
	switch level {
	case types.RiskLow:
		reason = fmt.Sprintf("UV index is low at %.1f.", uvIndex)
		recommendation = "Minimal sun protection needed. Sunglasses recommended."
		icon = iconLow
	case types.RiskModerate:
		reason = fmt.Sprintf("UV index is %.1f — moderate risk of skin damage with prolonged exposure.", uvIndex)
		recommendation = "Apply sunscreen (SPF 30+). Wear a hat and long sleeves. Seek shade during peak hours."
		icon = iconModerate
	default:
		reason = fmt.Sprintf("UV index is high at %.1f — seniors are at risk of sunburn and heat-related fatigue.", uvIndex)
		recommendation = "Avoid going outside between 10 AM–4 PM. Use strong sunscreen, hat, and protective clothing."
		icon = iconHigh
	}

	return types.RiskFactorAssessment{
		Name:           FactorUV.DisplayName(),
		Level:          level,
		Score:          score,
		Reason:         reason,
		Recommendation: recommendation,
		Icon:           icon,
	}
}
