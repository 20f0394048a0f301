package external

import (
	"context"
	"time"

	"eldersafe/internal/types"
)

// ---------------------------------------------------------------------------
// Upstream provider contracts
//
// Each interface abstracts one environmental data vendor. Implementations
// translate between domain observation types and vendor-specific wire
// formats, and route all HTTP traffic through BaseClient.
// ---------------------------------------------------------------------------

// WeatherObservation is the normalized output of a weather provider: current
// conditions for one location, in metric units.
type WeatherObservation struct {
	Temperature float64   // °C
	FeelsLike   float64   // °C
	Humidity    float64   // relative %
	WindSpeed   float64   // m/s
	Rainfall    float64   // mm over the last reporting window
	Visibility  float64   // km
	Description string    // e.g. "hazy", "light rain"
	Timestamp   time.Time // provider observation time, UTC
}

// AirQualityObservation is the normalized output of an air quality provider.
// AQI is always on the US EPA 0-500 scale; providers that report a coarser
// index compute it from the PM2.5 concentration instead.
type AirQualityObservation struct {
	AQI     int
	PM25    float64 // µg/m³
	PM10    float64 // µg/m³
	NO2     float64
	SO2     float64
	CO      float64
	O3      float64
	Station string // nearest monitoring station, when the provider reports one
	Source  types.DataSource
}

// WeatherProvider abstracts the weather vendor (OpenWeatherMap).
type WeatherProvider interface {
	// CurrentWeather fetches current conditions for the given coordinates.
	CurrentWeather(ctx context.Context, lat, lon float64) (*WeatherObservation, error)

	// ForecastWeather fetches the short-horizon forecast as a chronological
	// series of observations, one per provider time step (3h for OpenWeatherMap).
	ForecastWeather(ctx context.Context, lat, lon float64) ([]WeatherObservation, error)
}

// AirQualityProvider abstracts an air quality vendor (AQICN primary,
// OpenWeatherMap Air Pollution as fallback).
type AirQualityProvider interface {
	// AirQuality fetches pollutant concentrations and the EPA AQI for the
	// monitoring station nearest to the given coordinates.
	AirQuality(ctx context.Context, lat, lon float64) (*AirQualityObservation, error)
}

// UVProvider abstracts the UV index vendor (Open-Meteo).
type UVProvider interface {
	// CurrentUVIndex fetches the current UV index for the given coordinates.
	CurrentUVIndex(ctx context.Context, lat, lon float64) (float64, error)
}
