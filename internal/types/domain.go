package types

import "time"

// EnvironmentSnapshot is one combined reading of all environmental inputs for
// a location at a point in time. It is assembled by the envdata collaborator
// and treated as immutable by the risk engine (the engine only normalizes
// units, never mutates the caller's copy).
type EnvironmentSnapshot struct {
	PM25        float64   `json:"pm25"`         // µg/m³
	PM10        float64   `json:"pm10"`         // µg/m³
	AQI         int       `json:"aqi"`          // US-EPA scale
	Temperature float64   `json:"temperature"`  // °C
	FeelsLike   float64   `json:"feels_like"`   // °C
	Humidity    float64   `json:"humidity"`     // relative %
	WindSpeed   float64   `json:"wind_speed"`   // m/s
	Rainfall    float64   `json:"rainfall"`     // mm/hr
	UVIndex     float64   `json:"uv_index"`
	NoiseDB     float64   `json:"noise_db"`     // dB(A)
	WaterLevel  float64   `json:"water_level"`  // standing water, cm
	Visibility  float64   `json:"visibility"`   // km
	WeatherDesc string    `json:"weather_desc,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// SensorReadings carries optional on-site hardware measurements. Nil fields
// mean "not reported"; reported fields take precedence over provider data.
type SensorReadings struct {
	PM25        *float64 `json:"pm25,omitempty"`
	PM10        *float64 `json:"pm10,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	NoiseDB     *float64 `json:"noise_db,omitempty"`
	WaterLevel  *float64 `json:"water_level,omitempty"`
}

// PopulationContext selects the thresholds and multipliers a scorer applies.
// Supplied per request, immutable.
type PopulationContext struct {
	AgeGroup AgeGroup       `json:"age_group"`
	Activity ActivityIntent `json:"activity"`
}

// DefaultPopulation mirrors the platform's primary audience.
func DefaultPopulation() PopulationContext {
	return PopulationContext{AgeGroup: AgeElderly, Activity: ActivityWalking}
}

// RiskFactorAssessment is the normalized output of one factor scorer.
// Score is continuous in [0,100]; Level is always LevelForScore(Score).
type RiskFactorAssessment struct {
	Name           string    `json:"name"`
	Level          RiskLevel `json:"level"`
	Score          float64   `json:"score"`
	Reason         string    `json:"reason"`
	Recommendation string    `json:"recommendation"`
	Icon           string    `json:"icon"`
}

// SafetyIndex is the aggregated output of the engine: one overall score and
// level, the ranked contributors, and synthesized guidance text. It is
// recomputed fresh on every call and never persisted as authoritative state.
type SafetyIndex struct {
	OverallLevel    RiskLevel              `json:"overall_level"`
	OverallScore    float64                `json:"overall_score"`
	TopRisks        []RiskFactorAssessment `json:"top_risks"`
	AllRisks        []RiskFactorAssessment `json:"all_risks"`
	Summary         string                 `json:"summary"`
	Recommendations []string               `json:"recommendations"`
	Timestamp       time.Time              `json:"timestamp"`
}

// ForecastPoint is the projected assessment for one future snapshot.
type ForecastPoint struct {
	Time           time.Time `json:"time"`
	PredictedLevel RiskLevel `json:"predicted_level"`
	PredictedScore float64   `json:"predicted_score"`
	KeyConcern     string    `json:"key_concern"`
}

// Forecast is the short-horizon outlook: projected points in chronological
// order plus early-warning strings. When trend detection runs, the trend
// message is always the first warning.
type Forecast struct {
	Points        []ForecastPoint `json:"points"`
	EarlyWarnings []string        `json:"early_warnings"`
}

// DataQualityContext captures how a snapshot was obtained. It is produced by
// the envdata collaborator and graded by the confidence estimator; it says
// nothing about the measurement values themselves.
type DataQualityContext struct {
	DataAgeMinutes  int               `json:"data_age_minutes"`
	IsForecastBased bool              `json:"is_forecast_based"`
	Precision       LocationPrecision `json:"precision"`
	MissingMetrics  []string          `json:"missing_metrics,omitempty"`
	IsCached        bool              `json:"is_cached"`
	APIErrors       []string          `json:"api_errors,omitempty"`
}

// ConfidenceAssessment grades the trustworthiness of the inputs behind an
// assessment. Reasons are ordered by the fixed deduction sequence.
type ConfidenceAssessment struct {
	Score   int             `json:"confidence_score"`
	Level   ConfidenceLevel `json:"confidence_level"`
	Reasons []string        `json:"confidence_reasons"`
}

// FreshnessStatus reports how old a data point is in UI-friendly terms.
type FreshnessStatus struct {
	Label      FreshnessLabel `json:"freshness_label"`
	AgeMinutes int            `json:"freshness_minutes"`
	Timestamp  *time.Time     `json:"timestamp,omitempty"`
}

// HealthAlert is a proactive warning derived from a HIGH (or strong MODERATE)
// factor assessment. Consumed by the dashboard and published to the alert queue.
type HealthAlert struct {
	AlertType string    `json:"alert_type"`
	Severity  RiskLevel `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Action    string    `json:"action"`
	Icon      string    `json:"icon"`
	Timestamp time.Time `json:"timestamp"`
}

// DailySummary is the full-day guidance package for one location.
type DailySummary struct {
	Date            string      `json:"date"`
	Location        string      `json:"location"`
	SafetyIndex     SafetyIndex `json:"safety_index"`
	Forecast        Forecast    `json:"forecast"`
	MorningAdvice   string      `json:"morning_advice"`
	AfternoonAdvice string      `json:"afternoon_advice"`
	EveningAdvice   string      `json:"evening_advice"`
}

// AlertMessage is the envelope published to the alert queue by the data
// poller. TraceID correlates the message with poller logs.
type AlertMessage struct {
	TraceID    string        `json:"trace_id"`
	City       string        `json:"city"`
	Latitude   float64       `json:"latitude"`
	Longitude  float64       `json:"longitude"`
	AgeGroup   AgeGroup      `json:"age_group"`
	Alerts     []HealthAlert `json:"alerts"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

// AssessmentRecord is the advisory history row stored by the db layer.
// Payload holds the zstd-compressed SafetyIndex JSON; the engine never reads
// history back to produce an assessment.
type AssessmentRecord struct {
	ID           string         `json:"id"`
	City         string         `json:"city"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	AgeGroup     AgeGroup       `json:"age_group"`
	Activity     ActivityIntent `json:"activity"`
	OverallScore float64        `json:"overall_score"`
	OverallLevel RiskLevel      `json:"overall_level"`
	Payload      []byte         `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
}
