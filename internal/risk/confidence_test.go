package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eldersafe/internal/types"
)

func TestConfidence_PerfectData(t *testing.T) {
	got := Confidence(types.DataQualityContext{Precision: types.PrecisionPinned})

	assert.Equal(t, 100, got.Score)
	assert.Equal(t, types.ConfidenceHigh, got.Level)
	assert.Equal(t, []string{"All data sources are live and recent"}, got.Reasons)
}

func TestConfidence_StaleData(t *testing.T) {
	got := Confidence(types.DataQualityContext{
		DataAgeMinutes: 150,
		Precision:      types.PrecisionPinned,
	})

	assert.Equal(t, 70, got.Score)
	assert.Equal(t, types.ConfidenceMedium, got.Level)
	assert.Contains(t, got.Reasons, "Data is over 2 hours old")
}

func TestConfidence_AgeOverOneHour(t *testing.T) {
	got := Confidence(types.DataQualityContext{
		DataAgeMinutes: 90,
		Precision:      types.PrecisionPinned,
	})

	assert.Equal(t, 80, got.Score)
	assert.Contains(t, got.Reasons, "Data is over 1 hour old")
}

func TestConfidence_SingleMissingMetricNamed(t *testing.T) {
	got := Confidence(types.DataQualityContext{
		Precision:      types.PrecisionPinned,
		MissingMetrics: []string{"uv_index"},
	})

	assert.Equal(t, 90, got.Score)
	assert.Equal(t, types.ConfidenceHigh, got.Level)
	assert.Contains(t, got.Reasons, "uv_index data unavailable")
}

func TestConfidence_MissingMetricsCapped(t *testing.T) {
	got := Confidence(types.DataQualityContext{
		Precision:      types.PrecisionPinned,
		MissingMetrics: []string{"pm25", "pm10", "uv_index", "noise_db", "rainfall"},
	})

	assert.Equal(t, 70, got.Score)
	assert.Contains(t, got.Reasons, "5 metrics unavailable")
}

func TestConfidence_CityLevelPrecision(t *testing.T) {
	got := Confidence(types.DataQualityContext{Precision: types.PrecisionCityLevel})

	assert.Equal(t, 85, got.Score)
	assert.Contains(t, got.Reasons, "City-level data (not exact pin)")
}

func TestConfidence_FallbackPrecision(t *testing.T) {
	got := Confidence(types.DataQualityContext{Precision: types.PrecisionFallback})

	assert.Equal(t, 80, got.Score)
	assert.Contains(t, got.Reasons, "Using fallback location data")
}

func TestConfidence_EverythingWrong(t *testing.T) {
	got := Confidence(types.DataQualityContext{
		DataAgeMinutes:  300,
		IsForecastBased: true,
		Precision:       types.PrecisionFallback,
		MissingMetrics:  []string{"pm25", "pm10", "uv_index", "noise_db"},
		IsCached:        true,
		APIErrors:       []string{"openweather", "aqicn", "open-meteo"},
	})

	assert.Equal(t, 0, got.Score)
	assert.Equal(t, types.ConfidenceLow, got.Level)
	require.Len(t, got.Reasons, 6)
	assert.Contains(t, got.Reasons, "3 data source(s) had errors")
}

func TestConfidence_APIErrorsCapped(t *testing.T) {
	withTwo := Confidence(types.DataQualityContext{
		Precision: types.PrecisionPinned,
		APIErrors: []string{"openweather", "aqicn"},
	})
	withThree := Confidence(types.DataQualityContext{
		Precision: types.PrecisionPinned,
		APIErrors: []string{"openweather", "aqicn", "open-meteo"},
	})

	assert.Equal(t, withTwo.Score, withThree.Score)
}

func TestConfidence_LevelBoundaries(t *testing.T) {
	// 80 is the HIGH floor, 60 the MEDIUM floor.
	atHighFloor := Confidence(types.DataQualityContext{
		Precision: types.PrecisionFallback,
	})
	assert.Equal(t, types.ConfidenceHigh, atHighFloor.Level)

	atMediumFloor := Confidence(types.DataQualityContext{
		DataAgeMinutes: 90,
		Precision:      types.PrecisionFallback,
	})
	assert.Equal(t, 60, atMediumFloor.Score)
	assert.Equal(t, types.ConfidenceMedium, atMediumFloor.Level)
}

func TestFreshness_Bands(t *testing.T) {
	tests := []struct {
		name    string
		ageMins int
		want    types.FreshnessLabel
	}{
		{"fresh at ten minutes", 10, types.FreshnessFresh},
		{"fresh at boundary", 30, types.FreshnessFresh},
		{"slightly stale after boundary", 31, types.FreshnessSlightlyStale},
		{"slightly stale at two hours", 120, types.FreshnessSlightlyStale},
		{"stale beyond two hours", 121, types.FreshnessStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := testNow.Add(-time.Duration(tt.ageMins) * time.Minute)
			got := Freshness(&ts, testNow)

			assert.Equal(t, tt.want, got.Label)
			assert.Equal(t, tt.ageMins, got.AgeMinutes)
			require.NotNil(t, got.Timestamp)
		})
	}
}

func TestFreshness_NilTimestamp(t *testing.T) {
	got := Freshness(nil, testNow)

	assert.Equal(t, types.FreshnessStale, got.Label)
	assert.Equal(t, freshnessUnknownAge, got.AgeMinutes)
	assert.Nil(t, got.Timestamp)
}

func TestFreshness_FutureTimestampClampsToZero(t *testing.T) {
	future := testNow.Add(10 * time.Minute)
	got := Freshness(&future, testNow)

	assert.Equal(t, 0, got.AgeMinutes)
	assert.Equal(t, types.FreshnessFresh, got.Label)
}

func TestDisclaimer_ByLevel(t *testing.T) {
	assert.Empty(t, Disclaimer(types.ConfidenceHigh))
	assert.Contains(t, Disclaimer(types.ConfidenceMedium), "moderate-confidence")
	assert.Contains(t, Disclaimer(types.ConfidenceLow), "exercise extra caution")
}
