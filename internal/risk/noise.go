package risk

import (
	"fmt"
	"math"

	"eldersafe/internal/types"
)

// noiseThresholds holds the dB breakpoints for one rest/active context.
// WHO guidance: <55 dB for outdoor residential areas, 40 dB at night for
// sleep quality, cardiovascular risk above sustained 70 dB.
type noiseThresholds struct {
	safe     float64
	moderate float64
	high     float64
}

func noiseThresholdsFor(pop types.PopulationContext) noiseThresholds {
	if pop.Activity == types.ActivityRest {
		t := noiseThresholds{safe: 45, moderate: 55, high: 70}
		if pop.AgeGroup == types.AgeElderly {
			t.safe = 40
		}
		return t
	}
	t := noiseThresholds{safe: 60, moderate: 70, high: 85}
	if pop.AgeGroup == types.AgeElderly {
		t.safe = 55
	}
	return t
}

const (
	noiseStressFloor = 50.0 // dB above which elderly stress bonus applies
	noiseStressBonus = 8.0
	noiseTailSlope   = 1.5
)

// Noise computes noise-pollution risk for stress, blood pressure, and sleep.
// Thresholds shift with activity: resting demands quiet, active contexts
// tolerate more.
func Noise(noiseDB float64, pop types.PopulationContext) types.RiskFactorAssessment {
	t := noiseThresholdsFor(pop)

	var score float64
	switch {
	case noiseDB <= t.safe:
		score = noiseDB / t.safe * 15
	case noiseDB <= t.moderate:
		score = 15 + (noiseDB-t.safe)/(t.moderate-t.safe)*35
	case noiseDB <= t.high:
		score = 50 + (noiseDB-t.moderate)/(t.high-t.moderate)*30
	default:
		score = math.Min(80+(noiseDB-t.high)*noiseTailSlope, 100)
	}

	if pop.AgeGroup == types.AgeElderly && noiseDB > noiseStressFloor {
		score = math.Min(score+noiseStressBonus, 100)
	}

	score = round1(clampScore(score))
	level := types.LevelForScore(score)

	var reason, recommendation, icon string
	switch level {
	case types.RiskLow:
		reason = fmt.Sprintf("Noise level is safe at %.0f dB.", noiseDB)
		recommendation = "Environment is quiet enough for rest and outdoor activities."
		icon = iconLow
	case types.RiskModerate:
		reason = fmt.Sprintf("Noise is elevated at %.0f dB — may cause stress and disturb rest.", noiseDB)
		recommendation = "Use earplugs if resting. Avoid prolonged exposure in noisy areas."
		icon = iconModerate
	default:
		reason = fmt.Sprintf("Noise level is high at %.0f dB — can cause hearing stress, increased blood pressure, and sleep disruption.", noiseDB)
		recommendation = "Move to a quieter area. Close windows. Use noise-cancelling methods."
		icon = iconHigh
	}

	return types.RiskFactorAssessment{
		Name:           FactorNoise.DisplayName(),
		Level:          level,
		Score:          score,
		Reason:         reason,
		Recommendation: recommendation,
		Icon:           icon,
	}
}
