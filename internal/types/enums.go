package types

// RiskLevel is the three-step severity scale used by every factor assessment
// and by the aggregated safety index.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

// Shared discretization breakpoints. Every scorer and the aggregator MUST
// derive levels through LevelForScore; no component may assign a level
// inconsistent with its score.
const (
	LevelBreakModerate = 30.0
	LevelBreakHigh     = 60.0
)

// LevelForScore maps a 0-100 risk score onto the shared RiskLevel scale.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < LevelBreakModerate:
		return RiskLow
	case score < LevelBreakHigh:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// AgeGroup identifies the target population for an assessment.
type AgeGroup string

const (
	AgeElderly AgeGroup = "elderly"
	AgeAdult   AgeGroup = "adult"
)

// ActivityIntent describes what the user plans to do; it drives exposure
// multipliers and context-dependent thresholds in the scorers.
type ActivityIntent string

const (
	ActivityWalking     ActivityIntent = "walking"
	ActivityOutdoorWork ActivityIntent = "outdoor_work"
	ActivityRest        ActivityIntent = "rest"
	ActivityExercise    ActivityIntent = "exercise"
	ActivityCommute     ActivityIntent = "commute"
)

// ConfidenceLevel grades how trustworthy the input data behind an assessment is.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// LocationPrecision describes how precisely the environmental data matches the
// requested coordinates.
type LocationPrecision string

const (
	PrecisionPinned    LocationPrecision = "pinned"
	PrecisionCityLevel LocationPrecision = "city-level"
	PrecisionFallback  LocationPrecision = "fallback"
)

// FreshnessLabel is the human-facing staleness grade for a data point.
type FreshnessLabel string

const (
	FreshnessFresh         FreshnessLabel = "Fresh"
	FreshnessSlightlyStale FreshnessLabel = "Slightly Stale"
	FreshnessStale         FreshnessLabel = "Stale"
)

// DataSource identifies which upstream provider produced a measurement set.
type DataSource string

const (
	SourceOpenWeather DataSource = "openweather"
	SourceAQICN       DataSource = "aqicn"
	SourceOpenMeteo   DataSource = "open-meteo"
	SourceSensor      DataSource = "sensor"
	SourceNone        DataSource = "none"
)
