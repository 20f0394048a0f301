package external

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"eldersafe/internal/config"
)

// testLogger returns a logger suitable for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testConfig(env string, testMode bool) *config.Config {
	cfg := &config.Config{
		Environment: env,
		IsTestMode:  testMode,
	}
	cfg.Providers.OpenWeatherAPIKey = "ow-key"
	cfg.Providers.AQICNToken = "aqicn-token"
	cfg.Providers.OpenWeatherBaseURL = "https://api.openweathermap.org"
	cfg.Providers.AQICNBaseURL = "https://api.waqi.info"
	cfg.Providers.OpenMeteoBaseURL = "https://api.open-meteo.com"
	cfg.Providers.RequestTimeout = 10 * time.Second
	return cfg
}

func TestNewClientRegistry_TestModeUsesStubs(t *testing.T) {
	cfg := testConfig("prod", true)

	reg := NewClientRegistry(cfg, testLogger())

	if _, ok := reg.Weather.(*StubWeatherProvider); !ok {
		t.Errorf("expected StubWeatherProvider, got %T", reg.Weather)
	}
	if _, ok := reg.AirQuality.(*StubAirQualityProvider); !ok {
		t.Errorf("expected StubAirQualityProvider, got %T", reg.AirQuality)
	}
	if _, ok := reg.UV.(*StubUVProvider); !ok {
		t.Errorf("expected StubUVProvider, got %T", reg.UV)
	}
}

func TestNewClientRegistry_LocalEnvUsesStubs(t *testing.T) {
	cfg := testConfig("local", false)

	reg := NewClientRegistry(cfg, testLogger())

	if _, ok := reg.Weather.(*StubWeatherProvider); !ok {
		t.Errorf("expected StubWeatherProvider in local env, got %T", reg.Weather)
	}
}

func TestNewClientRegistry_ProductionWiring(t *testing.T) {
	cfg := testConfig("prod", false)

	reg := NewClientRegistry(cfg, testLogger())

	if _, ok := reg.Weather.(*OpenWeatherClient); !ok {
		t.Errorf("expected OpenWeatherClient, got %T", reg.Weather)
	}
	if _, ok := reg.AirQuality.(*FallbackAirQuality); !ok {
		t.Errorf("expected FallbackAirQuality chain, got %T", reg.AirQuality)
	}
	if _, ok := reg.UV.(*OpenMeteoClient); !ok {
		t.Errorf("expected OpenMeteoClient, got %T", reg.UV)
	}
}

func TestNewClientRegistry_NilLogger(t *testing.T) {
	cfg := testConfig("prod", true)

	reg := NewClientRegistry(cfg, nil)
	if reg == nil {
		t.Fatal("expected registry with nil logger")
	}
}

func TestStubWeatherProvider_Deterministic(t *testing.T) {
	stub := NewStubWeatherProvider(testLogger())

	obs, err := stub.CurrentWeather(context.Background(), 18.52, 73.85)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if obs.Temperature != 33.5 || obs.Humidity != 72 {
		t.Errorf("unexpected stub conditions: %+v", obs)
	}

	points, err := stub.ForecastWeather(context.Background(), 18.52, 73.85)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(points) != 16 {
		t.Fatalf("expected 16 forecast points (48h at 3h steps), got %d", len(points))
	}
	for i := 1; i < len(points); i++ {
		if !points[i].Timestamp.After(points[i-1].Timestamp) {
			t.Fatalf("forecast points out of order at index %d", i)
		}
	}
}

func TestStubAirQualityProvider_StablePerLocation(t *testing.T) {
	stub := NewStubAirQualityProvider(testLogger())

	a, err := stub.AirQuality(context.Background(), 18.5204, 73.8567)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	b, _ := stub.AirQuality(context.Background(), 18.5204, 73.8567)
	if a.AQI != b.AQI || a.PM25 != b.PM25 {
		t.Error("expected identical demo values for identical coordinates")
	}

	if a.AQI < 60 || a.AQI > 220 {
		t.Errorf("demo AQI outside expected metro range: %d", a.AQI)
	}

	// A distant location should (almost certainly) hash differently.
	c, _ := stub.AirQuality(context.Background(), 28.61, 77.21)
	if a.AQI == c.AQI && a.PM25 == c.PM25 && a.PM10 == c.PM10 {
		t.Error("expected different demo values for a different city")
	}
}

func TestStubUVProvider_ReturnsEstimate(t *testing.T) {
	stub := NewStubUVProvider(testLogger())

	uv, err := stub.CurrentUVIndex(context.Background(), 18.52, 73.85)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if uv < 0 || uv > 12 {
		t.Errorf("stub UV out of range: %v", uv)
	}
}
