package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eldersafe/internal/types"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testEngine() *Engine {
	return NewEngine(fixedClock{now: testNow})
}

func calmSnapshot(ts time.Time) types.EnvironmentSnapshot {
	return types.EnvironmentSnapshot{
		PM25:        10,
		PM10:        20,
		AQI:         35,
		Temperature: 26,
		FeelsLike:   26,
		Humidity:    50,
		WindSpeed:   2,
		UVIndex:     1,
		NoiseDB:     40,
		Timestamp:   ts,
	}
}

func harshSnapshot(ts time.Time) types.EnvironmentSnapshot {
	return types.EnvironmentSnapshot{
		PM25:        250,
		PM10:        350,
		AQI:         320,
		Temperature: 43,
		FeelsLike:   47,
		Humidity:    80,
		UVIndex:     9,
		Rainfall:    12,
		WaterLevel:  8,
		NoiseDB:     85,
		Timestamp:   ts,
	}
}

func hourly(n int, build func(time.Time) types.EnvironmentSnapshot) []types.EnvironmentSnapshot {
	start := time.Date(2026, 4, 12, 6, 0, 0, 0, time.UTC)
	snaps := make([]types.EnvironmentSnapshot, n)
	for i := range snaps {
		snaps[i] = build(start.Add(time.Duration(i) * time.Hour))
	}
	return snaps
}

func TestOutlook_EmptyHorizon(t *testing.T) {
	got := testEngine().Outlook(nil, types.DefaultPopulation())

	assert.Empty(t, got.Points)
	assert.Empty(t, got.EarlyWarnings)
}

func TestOutlook_PointsPreserveInputOrder(t *testing.T) {
	horizon := hourly(6, calmSnapshot)
	got := testEngine().Outlook(horizon, types.DefaultPopulation())

	require.Len(t, got.Points, 6)
	for i, p := range got.Points {
		assert.Equal(t, horizon[i].Timestamp, p.Time, "point %d", i)
	}
}

func TestOutlook_WorseningTrendFirst(t *testing.T) {
	horizon := append(hourly(3, calmSnapshot), hourly(3, harshSnapshot)...)
	got := testEngine().Outlook(horizon, types.DefaultPopulation())

	require.NotEmpty(t, got.EarlyWarnings)
	assert.Equal(t, trendWorsening, got.EarlyWarnings[0])
}

func TestOutlook_HighRiskPeriodsWarned(t *testing.T) {
	horizon := hourly(4, harshSnapshot)
	got := testEngine().Outlook(horizon, types.DefaultPopulation())

	require.NotEmpty(t, got.EarlyWarnings)
	// Stable trend first, then one warning per HIGH point.
	assert.Equal(t, trendStable, got.EarlyWarnings[0])
	assert.Len(t, got.EarlyWarnings, 5)
	assert.Contains(t, got.EarlyWarnings[1], "High risk expected around")
	assert.Contains(t, got.EarlyWarnings[1], "Plan to stay indoors")
}

func TestOutlook_NoTrendBelowFourPoints(t *testing.T) {
	horizon := hourly(3, calmSnapshot)
	got := testEngine().Outlook(horizon, types.DefaultPopulation())

	for _, w := range got.EarlyWarnings {
		assert.NotContains(t, w, "over the next 24 hours")
	}
}

func TestOutlook_KeyConcernFromTopRisk(t *testing.T) {
	horizon := hourly(1, harshSnapshot)
	got := testEngine().Outlook(horizon, types.DefaultPopulation())

	require.Len(t, got.Points, 1)
	assert.NotEqual(t, "None", got.Points[0].KeyConcern)
	assert.Equal(t, types.RiskHigh, got.Points[0].PredictedLevel)
}

func TestDetectTrend_Improving(t *testing.T) {
	points := []types.ForecastPoint{
		{PredictedScore: 80}, {PredictedScore: 75},
		{PredictedScore: 20}, {PredictedScore: 15},
	}
	trend, ok := detectTrend(points)

	require.True(t, ok)
	assert.Equal(t, trendImproving, trend)
}

func TestDetectTrend_StableWithinDelta(t *testing.T) {
	points := []types.ForecastPoint{
		{PredictedScore: 40}, {PredictedScore: 42},
		{PredictedScore: 45}, {PredictedScore: 44},
	}
	trend, ok := detectTrend(points)

	require.True(t, ok)
	assert.Equal(t, trendStable, trend)
}

func TestDetectTrend_OddPointCountSplitsFloorHalf(t *testing.T) {
	// Five points: first half is the first two, second half the last three.
	points := []types.ForecastPoint{
		{PredictedScore: 10}, {PredictedScore: 10},
		{PredictedScore: 30}, {PredictedScore: 30}, {PredictedScore: 30},
	}
	trend, ok := detectTrend(points)

	require.True(t, ok)
	assert.Equal(t, trendWorsening, trend)
}

func TestDetectTrend_TooFewPoints(t *testing.T) {
	_, ok := detectTrend([]types.ForecastPoint{{PredictedScore: 10}, {PredictedScore: 90}})

	assert.False(t, ok)
}
