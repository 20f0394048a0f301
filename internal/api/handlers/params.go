// Package handlers contains the HTTP handler implementations for the
// ElderSafe API. Each handler receives its collaborators through locally
// defined interfaces so tests can inject mocks without importing the
// concrete packages.
package handlers

import (
	"net/http"
	"strconv"

	"eldersafe/internal/config"
	"eldersafe/internal/core"
	"eldersafe/internal/types"
)

// requestValidator checks struct-level constraints on decoded request bodies.
// Enumerated fields (age group, activity) are validated by resolvePopulation
// instead, which produces field-specific error codes.
var requestValidator = core.NewValidator()

// location is the resolved request location after defaulting.
type location struct {
	Latitude  float64
	Longitude float64
	City      string
	// UsedDefault is true when the request carried no coordinates and the
	// configured fallback location was substituted.
	UsedDefault bool
}

// resolveLocation applies the configured fallback when lat/lon are absent and
// validates coordinate ranges. lat and lon are nil when the request did not
// supply them.
func resolveLocation(lat, lon *float64, city string, loc config.LocationConfig) (location, error) {
	out := location{City: city}

	if lat == nil || lon == nil {
		out.Latitude = loc.DefaultLatitude
		out.Longitude = loc.DefaultLongitude
		out.UsedDefault = true
		if out.City == "" {
			out.City = loc.DefaultCity
		}
		return out, nil
	}

	if *lat < -90 || *lat > 90 {
		return location{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidLat,
			"latitude must be between -90 and 90",
			nil,
			map[string]any{"latitude": *lat},
		)
	}
	if *lon < -180 || *lon > 180 {
		return location{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidLon,
			"longitude must be between -180 and 180",
			nil,
			map[string]any{"longitude": *lon},
		)
	}

	out.Latitude = *lat
	out.Longitude = *lon
	if out.City == "" {
		out.City = loc.DefaultCity
	}
	return out, nil
}

// queryLocation resolves the location from lat/lon/city query parameters.
func queryLocation(r *http.Request, loc config.LocationConfig) (location, error) {
	q := r.URL.Query()

	var lat, lon *float64
	if s := q.Get("lat"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return location{}, types.NewAppError(
				types.ErrCodeValidationInvalidLat,
				"lat must be a valid number",
				err,
			)
		}
		lat = &v
	}
	if s := q.Get("lon"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return location{}, types.NewAppError(
				types.ErrCodeValidationInvalidLon,
				"lon must be a valid number",
				err,
			)
		}
		lon = &v
	}

	// A single coordinate is as good as none.
	if (lat == nil) != (lon == nil) {
		return location{}, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"lat and lon must be supplied together",
			nil,
		)
	}

	return resolveLocation(lat, lon, q.Get("city"), loc)
}

// queryPopulation resolves age_group and activity query parameters, applying
// the elderly/walking defaults.
func queryPopulation(r *http.Request) (types.PopulationContext, error) {
	return resolvePopulation(r.URL.Query().Get("age_group"), r.URL.Query().Get("activity"))
}

// resolvePopulation validates raw age group and activity values, defaulting
// empty values to elderly/walking.
func resolvePopulation(ageGroup, activity string) (types.PopulationContext, error) {
	pop := types.DefaultPopulation()

	switch ageGroup {
	case "":
	case string(types.AgeElderly):
		pop.AgeGroup = types.AgeElderly
	case string(types.AgeAdult):
		pop.AgeGroup = types.AgeAdult
	default:
		return types.PopulationContext{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidAge,
			"age_group must be one of: elderly, adult",
			nil,
			map[string]any{"age_group": ageGroup},
		)
	}

	switch activity {
	case "":
	case string(types.ActivityWalking):
		pop.Activity = types.ActivityWalking
	case string(types.ActivityOutdoorWork):
		pop.Activity = types.ActivityOutdoorWork
	case string(types.ActivityRest):
		pop.Activity = types.ActivityRest
	case string(types.ActivityExercise):
		pop.Activity = types.ActivityExercise
	case string(types.ActivityCommute):
		pop.Activity = types.ActivityCommute
	default:
		return types.PopulationContext{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidIntent,
			"activity must be one of: walking, outdoor_work, rest, exercise, commute",
			nil,
			map[string]any{"activity": activity},
		)
	}

	return pop, nil
}

// qualityWarnings turns provider failures into response meta warnings so
// clients can surface degraded data without parsing the quality block.
func qualityWarnings(quality types.DataQualityContext) []string {
	return quality.APIErrors
}
