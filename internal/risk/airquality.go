package risk

import (
	"fmt"

	"eldersafe/internal/types"
)

// airQualityConfig hoists the air-quality scoring constants so the curves are
// data-driven and independently testable. PM2.5 segment boundaries follow the
// WHO guideline and Indian NAAQS breakpoints.
type airQualityConfig struct {
	pm25Curve piecewiseCurve
	pm10Curve piecewiseCurve
	aqiCurve  piecewiseCurve

	// Component weights in the combined score.
	pm25Weight float64
	aqiWeight  float64
	pm10Weight float64

	// elderlyDivisor tightens effective thresholds for the elderly population
	// (inputs are divided by this factor, ~30% lower tolerance).
	elderlyDivisor float64
}

var airQuality = airQualityConfig{
	pm25Curve: piecewiseCurve{
		segments: []linearSegment{
			{upper: 30, base: 0, slope: 20.0 / 30},
			{upper: 60, base: 20, slope: 30.0 / 30},
			{upper: 90, base: 50, slope: 25.0 / 30},
			{upper: 150, base: 75, slope: 15.0 / 60},
			{upper: maxInput, base: 90, slope: 10.0 / 100},
		},
		max: 100,
	},
	pm10Curve: piecewiseCurve{
		segments: []linearSegment{
			{upper: 50, base: 0, slope: 15.0 / 50},
			{upper: 100, base: 15, slope: 25.0 / 50},
			{upper: 200, base: 40, slope: 30.0 / 100},
			{upper: maxInput, base: 70, slope: 30.0 / 200},
		},
		max: 100,
	},
	aqiCurve: piecewiseCurve{
		segments: []linearSegment{
			{upper: 50, base: 0, slope: 15.0 / 50},
			{upper: 100, base: 15, slope: 25.0 / 50},
			{upper: 200, base: 40, slope: 35.0 / 100},
			{upper: maxInput, base: 75, slope: 25.0 / 300},
		},
		max: 100,
	},
	pm25Weight:     0.50,
	aqiWeight:      0.30,
	pm10Weight:     0.20,
	elderlyDivisor: 0.7,
}

// activityExposure scales effective pollutant exposure: breathing rate rises
// with exertion, so active intents see tighter effective thresholds.
var activityExposure = map[types.ActivityIntent]float64{
	types.ActivityRest:        0.6,
	types.ActivityWalking:     1.0,
	types.ActivityCommute:     0.8,
	types.ActivityOutdoorWork: 1.3,
	types.ActivityExercise:    1.5,
}

// AirQuality computes respiratory risk from PM2.5, PM10, and AQI readings.
// PM2.5 dominates the combined score because it penetrates deepest into the
// lungs; AQI confirms, PM10 contributes least. Out-of-range inputs are
// clamped, never rejected.
func AirQuality(pm25, pm10 float64, aqi int, pop types.PopulationContext) types.RiskFactorAssessment {
	ageFactor := 1.0
	if pop.AgeGroup == types.AgeElderly {
		ageFactor = airQuality.elderlyDivisor
	}
	activityFactor, ok := activityExposure[pop.Activity]
	if !ok {
		activityFactor = 1.0
	}

	pm25Score := airQuality.pm25Curve.score(pm25 * activityFactor / ageFactor)
	pm10Score := airQuality.pm10Curve.score(pm10 * activityFactor / ageFactor)
	aqiScore := airQuality.aqiCurve.score(float64(aqi))

	score := round1(clampScore(
		pm25Score*airQuality.pm25Weight +
			aqiScore*airQuality.aqiWeight +
			pm10Score*airQuality.pm10Weight,
	))
	level := types.LevelForScore(score)

	var reason, recommendation, icon string
	switch level {
	case types.RiskLow:
		reason = "Air quality is good for outdoor activities."
		recommendation = "Safe to go outside. Enjoy fresh air."
		icon = iconLow
	case types.RiskModerate:
		reason = fmt.Sprintf("Air quality is moderate. PM2.5 is %.0f µg/m³ which may affect sensitive individuals.", pm25)
		recommendation = "Limit prolonged outdoor activity. Use a mask if you have respiratory conditions."
		icon = iconModerate
	default:
		reason = fmt.Sprintf("Air quality is poor. PM2.5 is %.0f µg/m³ — harmful for elderly and those with lung/heart conditions.", pm25)
		recommendation = "Stay indoors. Keep windows closed. Use air purifier if available."
		icon = iconHigh
	}

	return types.RiskFactorAssessment{
		Name:           FactorAirQuality.DisplayName(),
		Level:          level,
		Score:          score,
		Reason:         reason,
		Recommendation: recommendation,
		Icon:           icon,
	}
}
