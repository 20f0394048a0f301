package risk

import "math"

// linearSegment is one piece of a piecewise-linear scoring curve. The segment
// covers inputs in (lower, upper], where lower is the previous segment's
// upper bound (0 for the first segment). base is the score at the segment's
// lower bound; slope is score units per input unit.
type linearSegment struct {
	upper float64
	base  float64
	slope float64
}

// piecewiseCurve maps a non-negative hazard input onto a monotonically
// increasing 0-100 score. The final segment's upper bound is +Inf; max caps
// the open-ended tail.
type piecewiseCurve struct {
	segments []linearSegment
	max      float64
}

// score evaluates the curve at v. Inputs below zero score zero; inputs beyond
// the last breakpoint are capped at max.
func (c piecewiseCurve) score(v float64) float64 {
	if v <= 0 {
		return 0
	}
	lower := 0.0
	for _, s := range c.segments {
		if v <= s.upper {
			return math.Min(s.base+(v-lower)*s.slope, c.max)
		}
		lower = s.upper
	}
	return c.max
}

// maxInput is the open upper bound used by the terminal segment of every curve.
var maxInput = math.Inf(1)

// clampScore restricts a raw score to the [0,100] range shared by all scorers.
func clampScore(v float64) float64 {
	return math.Min(math.Max(v, 0), 100)
}

// round1 rounds to one decimal place, the precision every assessment reports.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// icons for the three risk levels; fixed vocabulary consumed by clients.
const (
	iconLow      = "🟢"
	iconModerate = "🟡"
	iconHigh     = "🔴"
)
