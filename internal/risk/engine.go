package risk

import (
	"fmt"

	"eldersafe/internal/types"
)

// Engine computes risk assessments from environmental snapshots. It is
// stateless apart from the clock and safe for concurrent use.
type Engine struct {
	clock types.Clock
}

func NewEngine(clock types.Clock) *Engine {
	return &Engine{clock: clock}
}

// Factors runs all six factor scorers against a snapshot in canonical order.
func (e *Engine) Factors(snap types.EnvironmentSnapshot, pop types.PopulationContext) []types.RiskFactorAssessment {
	factors := make([]types.RiskFactorAssessment, 0, len(AllFactors))
	for _, kind := range AllFactors {
		switch kind {
		case FactorAirQuality:
			factors = append(factors, AirQuality(snap.PM25, snap.PM10, snap.AQI, pop))
		case FactorThermal:
			factors = append(factors, Thermal(snap.Temperature, snap.Humidity, snap.FeelsLike, snap.WindSpeed, pop))
		case FactorHumidity:
			factors = append(factors, Humidity(snap.Humidity, snap.Temperature, pop))
		case FactorUV:
			factors = append(factors, UV(snap.UVIndex, pop))
		case FactorFlood:
			factors = append(factors, Flood(snap.Rainfall, snap.WaterLevel, snap.WindSpeed, pop))
		case FactorNoise:
			factors = append(factors, Noise(snap.NoiseDB, pop))
		}
	}
	return factors
}

// AssessAll is the main entry point: scores every factor and aggregates the
// results into a Safety Index.
func (e *Engine) AssessAll(snap types.EnvironmentSnapshot, pop types.PopulationContext) types.SafetyIndex {
	return Aggregate(e.Factors(snap, pop), pop, e.clock.Now())
}

// Alerts derives proactive health alerts from an assessment: one per HIGH
// factor, plus advisories for MODERATE factors scoring above 50.
func (e *Engine) Alerts(index types.SafetyIndex) []types.HealthAlert {
	now := e.clock.Now()
	alerts := make([]types.HealthAlert, 0, len(index.AllRisks))
	for _, f := range index.AllRisks {
		switch {
		case f.Level == types.RiskHigh:
			alerts = append(alerts, types.HealthAlert{
				AlertType: f.Name,
				Severity:  types.RiskHigh,
				Title:     fmt.Sprintf("⚠️ %s Alert", f.Name),
				Message:   f.Reason,
				Action:    f.Recommendation,
				Icon:      f.Icon,
				Timestamp: now,
			})
		case f.Level == types.RiskModerate && f.Score > 50:
			alerts = append(alerts, types.HealthAlert{
				AlertType: f.Name,
				Severity:  types.RiskModerate,
				Title:     fmt.Sprintf("🔔 %s Advisory", f.Name),
				Message:   f.Reason,
				Action:    f.Recommendation,
				Icon:      f.Icon,
				Timestamp: now,
			})
		}
	}
	return alerts
}

// DailySummary produces a full-day briefing for a city: current assessment,
// short-term outlook, and advice for each part of the day.
func (e *Engine) DailySummary(snap types.EnvironmentSnapshot, horizon []types.EnvironmentSnapshot, city string, pop types.PopulationContext) types.DailySummary {
	return types.DailySummary{
		Date:            e.clock.Now().Format("2006-01-02"),
		Location:        city,
		SafetyIndex:     e.AssessAll(snap, pop),
		Forecast:        e.Outlook(horizon, pop),
		MorningAdvice:   timeAdvice(snap, timeOfDayMorning),
		AfternoonAdvice: timeAdvice(snap, timeOfDayAfternoon),
		EveningAdvice:   timeAdvice(snap, timeOfDayEvening),
	}
}

type timeOfDay int

const (
	timeOfDayMorning timeOfDay = iota
	timeOfDayAfternoon
	timeOfDayEvening
)

func timeAdvice(snap types.EnvironmentSnapshot, tod timeOfDay) string {
	switch tod {
	case timeOfDayMorning:
		switch {
		case snap.Temperature < 28 && snap.AQI < 100:
			return "Morning is the best time for a short walk. Air quality is usually better before traffic builds up. Go before 9 AM."
		case snap.AQI >= 100:
			return "Air quality is poor this morning. If possible, wait for conditions to improve or stay indoors."
		default:
			return "Morning may be warm. Go out only if necessary and stay hydrated."
		}
	case timeOfDayAfternoon:
		switch {
		case snap.Temperature > 35:
			return "Afternoon will be very hot. Stay indoors between 12 PM–4 PM. Use fans or AC."
		case snap.UVIndex > 5:
			return "UV is high in the afternoon. Avoid sun exposure. If you must go out, use sunscreen and a hat."
		default:
			return "Afternoon conditions are manageable. Take breaks if outdoors."
		}
	default:
		switch {
		case snap.NoiseDB > 60:
			return "Evening noise levels are elevated. Close windows before sleeping. Use earplugs if needed."
		case snap.Temperature < 20:
			return "Evening will be cool. Wear warm clothes and use a blanket while sleeping."
		default:
			return "Evening conditions are comfortable. A light walk after sunset can be beneficial."
		}
	}
}
