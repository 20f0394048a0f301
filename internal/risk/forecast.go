package risk

import (
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"eldersafe/internal/types"
)

const (
	// Trend detection needs enough points for a meaningful half-split.
	trendMinPoints = 4
	trendDelta     = 10.0

	// maxOutlookWorkers caps concurrent per-point scoring.
	maxOutlookWorkers = 8

	warningTimeLayout = "03 PM, Jan 02"

	trendWorsening = "📈 Conditions are expected to worsen over the next 24 hours."
	trendImproving = "📉 Conditions are expected to improve over the next 24 hours."
	trendStable    = "➡️ Conditions are expected to remain stable over the next 24 hours."
)

// Outlook scores every snapshot on the forecast horizon and derives early
// warnings. Points are scored concurrently but returned in input order, and
// the trend line is always the first warning when one can be computed.
func (e *Engine) Outlook(horizon []types.EnvironmentSnapshot, pop types.PopulationContext) types.Forecast {
	points := make([]types.ForecastPoint, len(horizon))

	var g errgroup.Group
	g.SetLimit(maxOutlookWorkers)
	for i, snap := range horizon {
		i, snap := i, snap
		g.Go(func() error {
			index := e.AssessAll(snap, pop)
			keyConcern := "None"
			if len(index.TopRisks) > 0 {
				keyConcern = index.TopRisks[0].Name
			}
			points[i] = types.ForecastPoint{
				Time:           snap.Timestamp,
				PredictedLevel: index.OverallLevel,
				PredictedScore: index.OverallScore,
				KeyConcern:     keyConcern,
			}
			return nil
		})
	}
	_ = g.Wait() // per-point scoring cannot fail

	warnings := make([]string, 0, len(points)+1)
	for _, p := range points {
		if p.PredictedLevel == types.RiskHigh {
			warnings = append(warnings, fmt.Sprintf(
				"⚠️ High risk expected around %s — main concern: %s. Plan to stay indoors.",
				p.Time.Format(warningTimeLayout), strings.ToLower(p.KeyConcern),
			))
		}
	}

	if trend, ok := detectTrend(points); ok {
		warnings = append([]string{trend}, warnings...)
	}

	return types.Forecast{
		Points:        points,
		EarlyWarnings: warnings,
	}
}

// detectTrend compares the mean predicted score of the first and second
// halves of the horizon. The first half takes floor(n/2) points.
func detectTrend(points []types.ForecastPoint) (string, bool) {
	if len(points) < trendMinPoints {
		return "", false
	}

	half := len(points) / 2
	var firstSum, secondSum float64
	for _, p := range points[:half] {
		firstSum += p.PredictedScore
	}
	for _, p := range points[half:] {
		secondSum += p.PredictedScore
	}
	firstAvg := firstSum / float64(half)
	secondAvg := secondSum / float64(len(points)-half)

	switch {
	case secondAvg > firstAvg+trendDelta:
		return trendWorsening, true
	case secondAvg < firstAvg-trendDelta:
		return trendImproving, true
	default:
		return trendStable, true
	}
}
