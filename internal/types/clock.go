package types

import "time"

// Clock abstracts time.Now for deterministic testing of age-sensitive logic
// (freshness labels, confidence deductions, forecast timestamps).
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by the system clock.
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time { return time.Now().UTC() }
