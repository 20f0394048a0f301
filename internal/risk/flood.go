package risk

import (
	"fmt"
	"math"

	"eldersafe/internal/types"
)

// Rainfall rate bands: light <2.5 mm/hr, moderate 2.5-7.5, heavy 7.5-15,
// extreme >15. Water level bands: >5 cm ankle depth, >15 cm knee depth.
var (
	floodRainCurve = piecewiseCurve{
		segments: []linearSegment{
			{upper: 1, base: 0, slope: 5},
			{upper: 2.5, base: 5, slope: 10},
			{upper: 7.5, base: 20, slope: 8},
			{upper: 15, base: 60, slope: 3.3},
			{upper: maxInput, base: 85, slope: 1},
		},
		max: 100,
	}
	floodWaterCurve = piecewiseCurve{
		segments: []linearSegment{
			{upper: 5, base: 0, slope: 10},
			{upper: 15, base: 50, slope: 4},
			{upper: maxInput, base: 90, slope: 1},
		},
		max: 100,
	}
)

const (
	floodCompoundThreshold = 20.0 // both sub-scores above this -> compound bonus
	floodCompoundBonus     = 10.0
	floodWindRainFloor     = 2.5 // mm/hr
	floodWindSpeedFloor    = 10.0
	floodWindSlope         = 1.5
	floodWindCap           = 15.0
	floodMobilityFactor    = 1.2
	floodIndoorFactor      = 0.6
	floodFallRiskFloor     = 15.0 // elderly bonus applies above this score
	floodFallRiskBonus     = 12.0
)

// Flood computes waterlogging and fall-hazard risk from rainfall rate,
// standing-water depth, and wind. Either heavy rain or standing water alone
// is dangerous, so the two sub-scores combine by max rather than sum.
func Flood(rainfall, waterLevel, windSpeed float64, pop types.PopulationContext) types.RiskFactorAssessment {
	rainScore := floodRainCurve.score(rainfall)
	waterScore := floodWaterCurve.score(waterLevel)

	score := math.Max(rainScore, waterScore)
	if rainScore > floodCompoundThreshold && waterScore > floodCompoundThreshold {
		score = math.Min(score+floodCompoundBonus, 100)
	}

	// Wind-driven rain reduces visibility and makes umbrellas useless.
	if rainfall > floodWindRainFloor && windSpeed > floodWindSpeedFloor {
		penalty := math.Min((windSpeed-floodWindSpeedFloor)*floodWindSlope, floodWindCap)
		score = math.Min(score+penalty, 100)
	}

	switch pop.Activity {
	case types.ActivityWalking, types.ActivityCommute:
		score = math.Min(score*floodMobilityFactor, 100)
	case types.ActivityRest:
		score *= floodIndoorFactor
	}

	// Wet surfaces are the leading cause of outdoor falls among seniors.
	if pop.AgeGroup == types.AgeElderly && score > floodFallRiskFloor {
		score = math.Min(score+floodFallRiskBonus, 100)
	}

	score = round1(clampScore(score))
	level := types.LevelForScore(score)

	var reason, recommendation, icon string
	switch level {
	case types.RiskLow:
		if rainfall > 0 {
			reason = fmt.Sprintf("Light rain (%.1f mm/hr) — minimal waterlogging risk.", rainfall)
			recommendation = "Carry an umbrella. Watch your step on wet surfaces."
		} else {
			reason = "No rain or waterlogging detected."
			recommendation = "No flood-related concerns."
		}
		icon = iconLow
	case types.RiskModerate:
		reason = fmt.Sprintf("Moderate rain (%.1f mm/hr)", rainfall)
		if waterLevel > 0 {
			reason += fmt.Sprintf(" with water level at %.0f cm", waterLevel)
		}
		reason += " — slippery surfaces and puddles may affect mobility."
		recommendation = "Avoid walking in low-lying areas. Wear non-slip footwear. Use walking aids."
		icon = iconModerate
	default:
		reason = fmt.Sprintf("Heavy rain (%.1f mm/hr)", rainfall)
		if waterLevel > 0 {
			reason += fmt.Sprintf(" with waterlogging at %.0f cm", waterLevel)
		}
		reason += " — high fall risk and mobility hazard for seniors."
		recommendation = "Do not go outside. Risk of falls, injuries, and waterborne infections. Wait for water to recede."
		icon = iconHigh
	}

	return types.RiskFactorAssessment{
		Name:           FactorFlood.DisplayName(),
		Level:          level,
		Score:          score,
		Reason:         reason,
		Recommendation: recommendation,
		Icon:           icon,
	}
}
