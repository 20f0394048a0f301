package risk

import (
	"fmt"
	"math"

	"eldersafe/internal/types"
)

// humidityBands is the ideal relative-humidity window for one age group.
// The elderly window is narrower: arthritis and respiratory discomfort set in
// sooner on both the dry and humid sides.
type humidityBands struct {
	idealLow  float64
	idealHigh float64
}

var humidityBandsByAge = map[types.AgeGroup]humidityBands{
	types.AgeElderly: {idealLow: 40, idealHigh: 55},
	types.AgeAdult:   {idealLow: 35, idealHigh: 65},
}

// comfortBaselineScore is the minimal residual risk inside the ideal window.
const comfortBaselineScore = 5.0

// Penalty curves over the deviation from the ideal window. Humid excess is
// penalized harder than dry deficit: high humidity triggers joint pain and
// breathing difficulty in addition to general discomfort.
var (
	humidityDryCurve = piecewiseCurve{
		segments: []linearSegment{
			{upper: 10, base: 15, slope: 1.5},
			{upper: 25, base: 30, slope: 2.5},
			{upper: maxInput, base: 67, slope: 2},
		},
		max: 100,
	}
	humidityWetCurve = piecewiseCurve{
		segments: []linearSegment{
			{upper: 10, base: 20, slope: 2},
			{upper: 25, base: 40, slope: 2.5},
			{upper: maxInput, base: 77, slope: 1.5},
		},
		max: 100,
	}
)

// Compound and arthritis constants.
const (
	humidityCompoundFloor     = 65.0 // humidity above this with temp above the floor compounds
	humidityCompoundTempFloor = 32.0
	arthritisHumidityFloor    = 70.0 // elderly-only penalty above this
	arthritisSlope            = 0.3  // points per % of excess humidity
)

// Humidity computes humidity-related health risk: dehydration and respiratory
// irritation on the dry side, joint pain and heat-exhaustion aggravation on
// the humid side. Temperature feeds the compound term only.
func Humidity(humidity, temperature float64, pop types.PopulationContext) types.RiskFactorAssessment {
	bands, ok := humidityBandsByAge[pop.AgeGroup]
	if !ok {
		bands = humidityBandsByAge[types.AgeAdult]
	}

	var score float64
	switch {
	case humidity >= bands.idealLow && humidity <= bands.idealHigh:
		score = comfortBaselineScore
	case humidity < bands.idealLow:
		score = humidityDryCurve.score(bands.idealLow - humidity)
	default:
		score = humidityWetCurve.score(humidity - bands.idealHigh)
	}

	// Muggy heat compounds: reduced evaporative cooling plus breathing load.
	if humidity > humidityCompoundFloor && temperature > humidityCompoundTempFloor {
		compound := ((humidity - humidityCompoundFloor) / 35) * ((temperature - humidityCompoundTempFloor) / 10) * 20
		score = math.Min(score+compound, 100)
	}

	// Very high humidity correlates with arthritis flare-ups in the elderly.
	if pop.AgeGroup == types.AgeElderly && humidity > arthritisHumidityFloor {
		score = math.Min(score+(humidity-arthritisHumidityFloor)*arthritisSlope, 100)
	}

	score = round1(clampScore(score))
	level := types.LevelForScore(score)

	var reason, recommendation, icon string
	switch {
	case humidity < bands.idealLow:
		switch level {
		case types.RiskLow:
			reason = fmt.Sprintf("Humidity is slightly low at %.0f%%.", humidity)
			recommendation = "Stay hydrated. Use moisturizer for dry skin."
			icon = iconLow
		case types.RiskModerate:
			reason = fmt.Sprintf("Dry air at %.0f%% humidity can cause throat irritation and dry skin.", humidity)
			recommendation = "Drink extra water. Use a humidifier indoors. Apply moisturizer."
			icon = iconModerate
		default:
			reason = fmt.Sprintf("Very dry air at %.0f%% — risk of dehydration and respiratory irritation.", humidity)
			recommendation = "Use a humidifier. Drink water frequently. Avoid AC on high."
			icon = iconHigh
		}
	case humidity > bands.idealHigh:
		switch level {
		case types.RiskLow:
			reason = fmt.Sprintf("Humidity is slightly high at %.0f%%.", humidity)
			recommendation = "Normal precautions sufficient."
			icon = iconLow
		case types.RiskModerate:
			reason = fmt.Sprintf("High humidity at %.0f%% may trigger joint pain and breathing discomfort.", humidity)
			recommendation = "Use a dehumidifier or AC. Light clothing recommended. Avoid heavy exertion."
			icon = iconModerate
		default:
			reason = fmt.Sprintf("Very high humidity at %.0f%% — can worsen arthritis, breathing problems, and cause heat exhaustion.", humidity)
			recommendation = "Stay in air-conditioned spaces. Avoid outdoor activity. Monitor for dizziness."
			icon = iconHigh
		}
	default:
		reason = fmt.Sprintf("Humidity at %.0f%% is comfortable.", humidity)
		recommendation = "No humidity concerns."
		icon = iconLow
	}

	return types.RiskFactorAssessment{
		Name:           FactorHumidity.DisplayName(),
		Level:          level,
		Score:          score,
		Reason:         reason,
		Recommendation: recommendation,
		Icon:           icon,
	}
}
