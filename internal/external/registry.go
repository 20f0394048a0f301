package external

import (
	"log/slog"
	"net/http"

	"eldersafe/internal/config"
)

// ---------------------------------------------------------------------------
// Client Registry
//
// Central factory that instantiates all upstream provider clients based on
// configuration. In test/local mode, returns stub implementations that log
// actions without requiring real credentials. In production mode, returns
// real clients with strict per-provider timeouts.
// ---------------------------------------------------------------------------

// ClientRegistry holds all upstream provider interfaces. It is the single
// point of access for the rest of the application to reach third-party data
// sources (OpenWeatherMap, AQICN, Open-Meteo).
type ClientRegistry struct {
	Weather    WeatherProvider
	AirQuality AirQualityProvider
	UV         UVProvider
}

// NewClientRegistry initializes all provider clients.
// If cfg.IsTestMode is true or cfg.Environment is "local", the registry is
// populated with stub implementations that return deterministic demo data.
// Otherwise, real clients are initialized with the configured timeouts, and
// air quality is served by the AQICN-first, OpenWeatherMap-second chain.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	useStubs := cfg.IsTestMode || cfg.Environment == "local"

	if useStubs {
		logger.Info("initializing provider clients in STUB mode",
			"is_test_mode", cfg.IsTestMode,
			"environment", cfg.Environment,
		)
		return newStubRegistry(logger)
	}

	logger.Info("initializing provider clients in PRODUCTION mode",
		"environment", cfg.Environment,
	)
	return newProductionRegistry(cfg, logger)
}

// newStubRegistry creates a ClientRegistry populated entirely with stub
// implementations. This allows the application to boot locally without any
// provider credentials.
func newStubRegistry(logger *slog.Logger) *ClientRegistry {
	stubLogger := logger.With("mode", "stub")

	return &ClientRegistry{
		Weather:    NewStubWeatherProvider(stubLogger),
		AirQuality: NewStubAirQualityProvider(stubLogger),
		UV:         NewStubUVProvider(stubLogger),
	}
}

// newProductionRegistry creates a ClientRegistry with real provider clients.
// All three vendors share the same request timeout budget from config.
func newProductionRegistry(cfg *config.Config, logger *slog.Logger) *ClientRegistry {
	httpClient := &http.Client{Timeout: cfg.Providers.RequestTimeout}

	openWeather := NewOpenWeatherClient(httpClient, OpenWeatherClientConfig{
		APIKey:  cfg.Providers.OpenWeatherAPIKey.Unmask(),
		BaseURL: cfg.Providers.OpenWeatherBaseURL,
		Logger:  logger.With("client", "openweather"),
	})

	aqicn := NewAQICNClient(httpClient, AQICNClientConfig{
		Token:   cfg.Providers.AQICNToken.Unmask(),
		BaseURL: cfg.Providers.AQICNBaseURL,
		Logger:  logger.With("client", "aqicn"),
	})

	openMeteo := NewOpenMeteoClient(httpClient, OpenMeteoClientConfig{
		BaseURL: cfg.Providers.OpenMeteoBaseURL,
		Logger:  logger.With("client", "open-meteo"),
	})

	return &ClientRegistry{
		Weather: openWeather,
		// AQICN resolves the nearest monitoring station; the OpenWeatherMap
		// Air Pollution endpoint covers locations without one.
		AirQuality: NewFallbackAirQuality(aqicn, openWeather, logger.With("client", "air-quality-chain")),
		UV:         openMeteo,
	}
}
