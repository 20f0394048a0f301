package risk

import (
	"fmt"
	"time"

	"eldersafe/internal/types"
)

// Confidence deductions. Each penalty names the condition that triggered it
// so the reasons read as a direct explanation of the score.
const (
	penaltyAgeOver2h      = 30
	penaltyAgeOver1h      = 20
	penaltyForecastBased  = 15
	penaltyFallbackCoords = 20
	penaltyCityLevel      = 15
	penaltyPerMissing     = 10
	penaltyMissingCap     = 30
	penaltyCachedData     = 20
	penaltyPerAPIError    = 10
	penaltyAPIErrorCap    = 20
	confidenceHighFloor   = 80
	confidenceMediumFloor = 60
)

// Freshness bands in minutes.
const (
	freshnessFreshMax   = 30
	freshnessSlightMax  = 120
	freshnessUnknownAge = 999
)

// Confidence scores how trustworthy the current guidance is, starting from
// 100 and deducting for each data-quality defect. Reasons list every applied
// deduction, or a single positive note when nothing was deducted.
func Confidence(dq types.DataQualityContext) types.ConfidenceAssessment {
	score := 100
	var reasons []string

	switch {
	case dq.DataAgeMinutes > 120:
		score -= penaltyAgeOver2h
		reasons = append(reasons, "Data is over 2 hours old")
	case dq.DataAgeMinutes > 60:
		score -= penaltyAgeOver1h
		reasons = append(reasons, "Data is over 1 hour old")
	}

	if dq.IsForecastBased {
		score -= penaltyForecastBased
		reasons = append(reasons, "Based on forecast, not live observation")
	}

	switch dq.Precision {
	case types.PrecisionFallback:
		score -= penaltyFallbackCoords
		reasons = append(reasons, "Using fallback location data")
	case types.PrecisionCityLevel:
		score -= penaltyCityLevel
		reasons = append(reasons, "City-level data (not exact pin)")
	}

	if n := len(dq.MissingMetrics); n > 0 {
		penalty := n * penaltyPerMissing
		if penalty > penaltyMissingCap {
			penalty = penaltyMissingCap
		}
		score -= penalty
		if n == 1 {
			reasons = append(reasons, fmt.Sprintf("%s data unavailable", dq.MissingMetrics[0]))
		} else {
			reasons = append(reasons, fmt.Sprintf("%d metrics unavailable", n))
		}
	}

	if dq.IsCached {
		score -= penaltyCachedData
		reasons = append(reasons, "Using cached data")
	}

	if n := len(dq.APIErrors); n > 0 {
		penalty := n * penaltyPerAPIError
		if penalty > penaltyAPIErrorCap {
			penalty = penaltyAPIErrorCap
		}
		score -= penalty
		reasons = append(reasons, fmt.Sprintf("%d data source(s) had errors", n))
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var level types.ConfidenceLevel
	switch {
	case score >= confidenceHighFloor:
		level = types.ConfidenceHigh
	case score >= confidenceMediumFloor:
		level = types.ConfidenceMedium
	default:
		level = types.ConfidenceLow
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "All data sources are live and recent")
	}

	return types.ConfidenceAssessment{
		Score:   score,
		Level:   level,
		Reasons: reasons,
	}
}

// Freshness labels how recent a data point is. A nil timestamp reports the
// sentinel age and Stale.
func Freshness(timestamp *time.Time, now time.Time) types.FreshnessStatus {
	if timestamp == nil {
		return types.FreshnessStatus{
			Label:      types.FreshnessStale,
			AgeMinutes: freshnessUnknownAge,
		}
	}

	minutes := int(now.Sub(*timestamp).Minutes())
	if minutes < 0 {
		minutes = 0
	}

	var label types.FreshnessLabel
	switch {
	case minutes <= freshnessFreshMax:
		label = types.FreshnessFresh
	case minutes <= freshnessSlightMax:
		label = types.FreshnessSlightlyStale
	default:
		label = types.FreshnessStale
	}

	ts := timestamp.UTC()
	return types.FreshnessStatus{
		Label:      label,
		AgeMinutes: minutes,
		Timestamp:  &ts,
	}
}

// Disclaimer returns the one-line caveat to attach to guidance at the given
// confidence level. High confidence needs none.
func Disclaimer(level types.ConfidenceLevel) string {
	switch level {
	case types.ConfidenceHigh:
		return ""
	case types.ConfidenceMedium:
		return "This guidance is based on moderate-confidence data from nearby sources."
	default:
		return "This guidance is based on limited data; exercise extra caution and verify conditions locally."
	}
}
