package risk

import (
	"fmt"
	"math"

	"eldersafe/internal/types"
)

// thermalBands defines the comfort and danger temperature boundaries for one
// age group, in °C. The elderly band is narrower on both ends: impaired
// thermoregulation means both heat and cold become dangerous sooner.
type thermalBands struct {
	comfortLow  float64
	comfortHigh float64
	dangerLow   float64
	dangerHigh  float64
}

var thermalBandsByAge = map[types.AgeGroup]thermalBands{
	types.AgeElderly: {comfortLow: 22, comfortHigh: 32, dangerLow: 12, dangerHigh: 38},
	types.AgeAdult:   {comfortLow: 18, comfortHigh: 35, dangerLow: 8, dangerHigh: 42},
}

// activityHeatAddition is the metabolic heat each activity adds to the
// effective temperature, in °C.
var activityHeatAddition = map[types.ActivityIntent]float64{
	types.ActivityRest:        0,
	types.ActivityWalking:     2,
	types.ActivityCommute:     1,
	types.ActivityOutdoorWork: 4,
	types.ActivityExercise:    5,
}

// Wind cooling: each m/s of wind removes 0.5 °C of perceived heat, capped.
const (
	windCoolingPerUnit = 0.5
	windCoolingCap     = 3.0
)

// Humidity compound effect: above these boundaries evaporative cooling breaks
// down and up to 15 extra points are added.
const (
	thermalHumidityTempFloor = 30.0
	thermalHumidityFloor     = 70.0
	thermalHumidityMaxBonus  = 15.0
)

// Thermal computes heat/cold stress risk from the feels-like temperature,
// adjusted for activity heat generation and wind cooling. Both extremes score:
// inside the comfort band the score grows with deviation from the midpoint
// (0-25); between comfort and danger bounds it ramps 25-80; beyond the danger
// bound it ramps 80-100 at 4 points per °C.
func Thermal(temperature, humidity, feelsLike, windSpeed float64, pop types.PopulationContext) types.RiskFactorAssessment {
	bands, ok := thermalBandsByAge[pop.AgeGroup]
	if !ok {
		bands = thermalBandsByAge[types.AgeAdult]
	}

	heatAddition := activityHeatAddition[pop.Activity]
	windCooling := math.Min(windSpeed*windCoolingPerUnit, windCoolingCap)
	effective := feelsLike + heatAddition - windCooling

	var score float64
	switch {
	case effective >= bands.comfortLow && effective <= bands.comfortHigh:
		mid := (bands.comfortLow + bands.comfortHigh) / 2
		deviation := math.Abs(effective-mid) / ((bands.comfortHigh - bands.comfortLow) / 2)
		score = deviation * 25
	case effective > bands.comfortHigh:
		if effective >= bands.dangerHigh {
			score = 80 + math.Min((effective-bands.dangerHigh)*4, 20)
		} else {
			ratio := (effective - bands.comfortHigh) / (bands.dangerHigh - bands.comfortHigh)
			score = 25 + ratio*55
		}
	default:
		if effective <= bands.dangerLow {
			score = 80 + math.Min((bands.dangerLow-effective)*4, 20)
		} else {
			ratio := (bands.comfortLow - effective) / (bands.comfortLow - bands.dangerLow)
			score = 25 + ratio*55
		}
	}

	// High humidity blocks evaporative cooling when it is already hot.
	if effective > thermalHumidityTempFloor && humidity > thermalHumidityFloor {
		penalty := ((humidity - thermalHumidityFloor) / 30) * thermalHumidityMaxBonus
		score = math.Min(score+penalty, 100)
	}

	score = round1(clampScore(score))
	level := types.LevelForScore(score)

	var reason, recommendation, icon string
	switch {
	case effective > bands.comfortHigh:
		switch level {
		case types.RiskLow:
			reason = fmt.Sprintf("Temperature (%.0f°C) is within comfortable range.", temperature)
			recommendation = "Safe for outdoor activities. Stay hydrated."
			icon = iconLow
		case types.RiskModerate:
			reason = fmt.Sprintf("It feels like %.0f°C — warm enough to cause discomfort for seniors.", feelsLike)
			recommendation = "Avoid direct sun between 11 AM–4 PM. Drink water every 30 minutes."
			icon = iconModerate
		default:
			reason = fmt.Sprintf("Dangerously hot — feels like %.0f°C. High risk of heat stroke for elderly.", feelsLike)
			recommendation = "Stay indoors in cool areas. Do not go outside. Drink plenty of fluids."
			icon = iconHigh
		}
	case effective < bands.comfortLow:
		switch level {
		case types.RiskLow:
			reason = fmt.Sprintf("Mildly cool at %.0f°C.", temperature)
			recommendation = "Wear a light jacket if going out."
			icon = iconLow
		case types.RiskModerate:
			reason = fmt.Sprintf("Cold at %.0f°C — may cause joint stiffness and discomfort.", temperature)
			recommendation = "Wear warm layers. Limit time outdoors."
			icon = iconModerate
		default:
			reason = fmt.Sprintf("Very cold at %.0f°C — risk of hypothermia for seniors.", temperature)
			recommendation = "Stay indoors. Use room heating. Wear warm clothes even inside."
			icon = iconHigh
		}
	default:
		reason = fmt.Sprintf("Temperature (%.0f°C) is comfortable.", temperature)
		recommendation = "Good conditions for outdoor activity."
		icon = iconLow
	}

	return types.RiskFactorAssessment{
		Name:           FactorThermal.DisplayName(),
		Level:          level,
		Score:          score,
		Reason:         reason,
		Recommendation: recommendation,
		Icon:           icon,
	}
}
