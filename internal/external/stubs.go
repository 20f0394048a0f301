package external

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"time"

	"eldersafe/internal/types"
)

// ---------------------------------------------------------------------------
// Stub Implementations
//
// Stub providers allow the application to boot in local/test mode without
// real provider credentials. They log all calls and return deterministic,
// location-aware demo data so the risk pipeline still produces varied and
// plausible output.
// ---------------------------------------------------------------------------

// StubWeatherProvider implements WeatherProvider with hazy-metro demo
// conditions. Used when config.IsTestMode is true or APP_ENV=local.
type StubWeatherProvider struct {
	logger *slog.Logger
}

// NewStubWeatherProvider creates a new StubWeatherProvider.
func NewStubWeatherProvider(logger *slog.Logger) *StubWeatherProvider {
	return &StubWeatherProvider{logger: logger}
}

func (s *StubWeatherProvider) CurrentWeather(ctx context.Context, lat, lon float64) (*WeatherObservation, error) {
	s.logger.InfoContext(ctx, "stub: CurrentWeather called",
		"lat", lat,
		"lon", lon,
	)
	return &WeatherObservation{
		Temperature: 33.5,
		FeelsLike:   37.2,
		Humidity:    72,
		WindSpeed:   4.2,
		Rainfall:    0,
		Visibility:  4,
		Description: "hazy",
		Timestamp:   time.Now().UTC(),
	}, nil
}

func (s *StubWeatherProvider) ForecastWeather(ctx context.Context, lat, lon float64) ([]WeatherObservation, error) {
	s.logger.InfoContext(ctx, "stub: ForecastWeather called",
		"lat", lat,
		"lon", lon,
	)

	base := time.Now().UTC()
	points := make([]WeatherObservation, 0, forecastStepCount)

	for i := 0; i < forecastStepCount; i++ {
		ts := base.Add(time.Duration(i) * 3 * time.Hour)
		hour := float64(ts.Hour())

		// Diurnal curve: temperature peaks near 2 PM, humidity near 4 AM.
		tempBase := 28 + 7*math.Max(0, 1-math.Abs(hour-14)/10)
		humidityBase := 65 + 15*math.Max(0, 1-math.Abs(hour-4)/8)

		rainfall := 0.0
		desc := "partly cloudy"
		if i >= 6 && i <= 8 {
			rainfall = 0.5
		}
		if i >= 10 {
			desc = "light rain"
		}

		points = append(points, WeatherObservation{
			Temperature: round1(tempBase + float64(i%3)*0.5),
			FeelsLike:   round1(tempBase + 3 + float64(i%3)),
			Humidity:    math.Min(humidityBase, 95),
			WindSpeed:   3 + float64(i%4),
			Rainfall:    rainfall,
			Description: desc,
			Timestamp:   ts,
		})
	}

	return points, nil
}

// StubAirQualityProvider implements AirQualityProvider with coordinate-hashed
// demo values in the typical Indian metro range, so each location gets a
// distinct but stable reading.
type StubAirQualityProvider struct {
	logger *slog.Logger
}

// NewStubAirQualityProvider creates a new StubAirQualityProvider.
func NewStubAirQualityProvider(logger *slog.Logger) *StubAirQualityProvider {
	return &StubAirQualityProvider{logger: logger}
}

func (s *StubAirQualityProvider) AirQuality(ctx context.Context, lat, lon float64) (*AirQualityObservation, error) {
	s.logger.InfoContext(ctx, "stub: AirQuality called",
		"lat", lat,
		"lon", lon,
	)

	seed := coordSeed(lat, lon)

	// AQI in the 60-220 range, with pollutant concentrations correlated to it.
	aqi := 60 + int(seed%161)
	pm25 := round1(float64(aqi)*0.45 + float64(seed%20))
	pm10 := round1(pm25*1.6 + float64(seed%30))

	return &AirQualityObservation{
		AQI:     aqi,
		PM25:    pm25,
		PM10:    pm10,
		NO2:     round1(10 + float64(seed%40)),
		SO2:     round1(3 + float64(seed%15)),
		CO:      math.Round((0.3+float64(seed%10)*0.1)*100) / 100,
		O3:      round1(15 + float64(seed%45)),
		Station: "demo",
		Source:  types.SourceNone,
	}, nil
}

// StubUVProvider implements UVProvider using the solar-position estimate, so
// stub UV still tracks time of day and latitude.
type StubUVProvider struct {
	logger *slog.Logger
}

// NewStubUVProvider creates a new StubUVProvider.
func NewStubUVProvider(logger *slog.Logger) *StubUVProvider {
	return &StubUVProvider{logger: logger}
}

func (s *StubUVProvider) CurrentUVIndex(ctx context.Context, lat, lon float64) (float64, error) {
	uv := EstimateUVIndex(lat, lon, time.Now())
	s.logger.InfoContext(ctx, "stub: CurrentUVIndex called",
		"lat", lat,
		"lon", lon,
		"uv_index", uv,
	)
	return uv, nil
}

// coordSeed derives a stable seed from coordinates rounded to ~111m, so
// nearby lookups land on the same demo values.
func coordSeed(lat, lon float64) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%.3f,%.3f", lat, lon)
	return h.Sum64()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Compile-time interface compliance checks.
var (
	_ WeatherProvider    = (*StubWeatherProvider)(nil)
	_ AirQualityProvider = (*StubAirQualityProvider)(nil)
	_ UVProvider         = (*StubUVProvider)(nil)
)
