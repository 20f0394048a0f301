// Package envdata assembles environment snapshots from the upstream provider
// clients: concurrent fetch of weather, air quality, and UV, optional sensor
// overlay, per-provider TTL caching, and data quality bookkeeping for the
// confidence estimator. Partial provider failure is tolerated; missing
// values default to zero and are recorded in the quality context.
package envdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"eldersafe/internal/external"
	"eldersafe/internal/types"
)

// CollectorConfig tunes snapshot collection.
type CollectorConfig struct {
	// CollectTimeout bounds one full fan-out; individual providers share it.
	CollectTimeout time.Duration

	// CacheTTL is the weather cache lifetime. Air quality and UV change
	// more slowly and are cached for 1.5x and 2x respectively.
	CacheTTL time.Duration
}

// CollectParams identifies what to collect and how the location was chosen.
type CollectParams struct {
	Latitude  float64
	Longitude float64
	City      string

	// Sensor carries optional on-site readings that overlay provider data.
	Sensor *types.SensorReadings

	// UsedDefaultLocation is set when the caller fell back to the configured
	// default city instead of the user's coordinates. Downgrades precision.
	UsedDefaultLocation bool
}

// Collector fans out to the provider registry and merges the results into a
// single EnvironmentSnapshot plus the DataQualityContext describing how the
// snapshot was obtained. It never fails: a fully degraded collection yields
// a zero snapshot with fallback precision, and the risk engine's degenerate
// handling takes it from there.
type Collector struct {
	weather  external.WeatherProvider
	air      external.AirQualityProvider
	uv       external.UVProvider
	smoother *SensorSmoother
	clock    types.Clock
	logger   *slog.Logger
	cfg      CollectorConfig

	weatherCache  *ttlCache[external.WeatherObservation]
	forecastCache *ttlCache[[]external.WeatherObservation]
	airCache      *ttlCache[external.AirQualityObservation]
	uvCache       *ttlCache[float64]
}

// NewCollector creates a Collector over the given provider registry.
func NewCollector(reg *external.ClientRegistry, cfg CollectorConfig, clock types.Clock, logger *slog.Logger) *Collector {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	return &Collector{
		weather:       reg.Weather,
		air:           reg.AirQuality,
		uv:            reg.UV,
		smoother:      NewSensorSmoother(logger.With("component", "sensor-smoother")),
		clock:         clock,
		logger:        logger,
		cfg:           cfg,
		weatherCache:  newTTLCache[external.WeatherObservation](cfg.CacheTTL, clock),
		forecastCache: newTTLCache[[]external.WeatherObservation](cfg.CacheTTL, clock),
		airCache:      newTTLCache[external.AirQualityObservation](cfg.CacheTTL*3/2, clock),
		uvCache:       newTTLCache[float64](cfg.CacheTTL*2, clock),
	}
}

// Collect assembles the current snapshot for one location. Weather, air
// quality, and UV are fetched concurrently under the collect timeout; each
// provider checks its cache first. Sensor readings, when supplied, are
// smoothed and overlay the provider values. Ambient noise is estimated from
// location and time of day when no sensor reports it.
func (c *Collector) Collect(ctx context.Context, params CollectParams) (types.EnvironmentSnapshot, types.DataQualityContext) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CollectTimeout)
	defer cancel()

	var (
		weather       external.WeatherObservation
		weatherOK     bool
		weatherCached bool
		weatherErr    error

		air       external.AirQualityObservation
		airOK     bool
		airCached bool
		airErr    error

		uv       float64
		uvOK     bool
		uvCached bool
		uvErr    error
	)

	// Each goroutine writes only its own result set, so no mutex is needed.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		key := coordKey(params.Latitude, params.Longitude, 2)
		if cached, ok := c.weatherCache.get(key); ok {
			weather, weatherOK, weatherCached = cached, true, true
			return nil
		}
		obs, err := c.weather.CurrentWeather(gctx, params.Latitude, params.Longitude)
		if err != nil {
			weatherErr = err
			return nil
		}
		c.weatherCache.put(key, *obs)
		weather, weatherOK = *obs, true
		return nil
	})

	g.Go(func() error {
		key := coordKey(params.Latitude, params.Longitude, 3)
		if cached, ok := c.airCache.get(key); ok {
			air, airOK, airCached = cached, true, true
			return nil
		}
		obs, err := c.air.AirQuality(gctx, params.Latitude, params.Longitude)
		if err != nil {
			airErr = err
			return nil
		}
		c.airCache.put(key, *obs)
		air, airOK = *obs, true
		return nil
	})

	g.Go(func() error {
		key := coordKey(params.Latitude, params.Longitude, 2)
		if cached, ok := c.uvCache.get(key); ok {
			uv, uvOK, uvCached = cached, true, true
			return nil
		}
		idx, err := c.uv.CurrentUVIndex(gctx, params.Latitude, params.Longitude)
		if err != nil {
			uvErr = err
			return nil
		}
		c.uvCache.put(key, idx)
		uv, uvOK = idx, true
		return nil
	})

	// Provider errors are recorded, not returned, so Wait cannot fail.
	_ = g.Wait()

	now := c.clock.Now().UTC()

	snap := types.EnvironmentSnapshot{Timestamp: now}
	quality := types.DataQualityContext{Precision: types.PrecisionPinned}

	if weatherOK {
		snap.Temperature = weather.Temperature
		snap.FeelsLike = weather.FeelsLike
		snap.Humidity = weather.Humidity
		snap.WindSpeed = weather.WindSpeed
		snap.Rainfall = weather.Rainfall
		snap.Visibility = weather.Visibility
		snap.WeatherDesc = weather.Description
		if !weather.Timestamp.IsZero() {
			age := now.Sub(weather.Timestamp)
			if age > 0 {
				quality.DataAgeMinutes = int(age.Minutes())
			}
		}
	} else {
		quality.MissingMetrics = append(quality.MissingMetrics,
			"temperature", "humidity", "wind_speed", "rainfall")
		quality.APIErrors = append(quality.APIErrors, providerError("weather", weatherErr))
	}

	if airOK {
		snap.AQI = air.AQI
		snap.PM25 = air.PM25
		snap.PM10 = air.PM10
	} else {
		quality.MissingMetrics = append(quality.MissingMetrics, "aqi", "pm25", "pm10")
		quality.APIErrors = append(quality.APIErrors, providerError("air_quality", airErr))
	}

	if uvOK {
		snap.UVIndex = uv
	} else {
		quality.MissingMetrics = append(quality.MissingMetrics, "uv_index")
		quality.APIErrors = append(quality.APIErrors, providerError("uv", uvErr))
	}

	quality.IsCached = weatherCached || airCached || uvCached

	// Sensor overlay takes priority over provider values.
	if params.Sensor != nil {
		smoothed := c.smoother.Ingest(*params.Sensor)
		if smoothed.PM25 != nil {
			snap.PM25 = *smoothed.PM25
		}
		if smoothed.PM10 != nil {
			snap.PM10 = *smoothed.PM10
		}
		if smoothed.Temperature != nil {
			// Shift feels-like by the same delta the sensor applies.
			snap.FeelsLike += *smoothed.Temperature - snap.Temperature
			snap.Temperature = *smoothed.Temperature
		}
		if smoothed.Humidity != nil {
			snap.Humidity = *smoothed.Humidity
		}
		if smoothed.NoiseDB != nil {
			snap.NoiseDB = *smoothed.NoiseDB
		}
		if smoothed.WaterLevel != nil {
			snap.WaterLevel = *smoothed.WaterLevel
		}
	}

	if snap.NoiseDB == 0 {
		snap.NoiseDB = EstimateNoise(params.Latitude, params.Longitude, now)
	}

	switch {
	case !weatherOK && !airOK && !uvOK:
		quality.Precision = types.PrecisionFallback
	case params.UsedDefaultLocation:
		quality.Precision = types.PrecisionCityLevel
	}

	c.logger.InfoContext(ctx, "collected environment snapshot",
		"city", params.City,
		"lat", params.Latitude,
		"lon", params.Longitude,
		"precision", string(quality.Precision),
		"cached", quality.IsCached,
		"missing_metrics", len(quality.MissingMetrics),
	)

	return snap, quality
}

// CollectForecast fetches the provider forecast and converts it into a
// chronological snapshot sequence for the risk engine's outlook. Air quality
// and noise have no forecast source, so the current values carry forward
// across the horizon, matching how the index treats slow-moving factors.
func (c *Collector) CollectForecast(ctx context.Context, params CollectParams) ([]types.EnvironmentSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CollectTimeout)
	defer cancel()

	key := coordKey(params.Latitude, params.Longitude, 2)

	points, ok := c.forecastCache.get(key)
	if !ok {
		fetched, err := c.weather.ForecastWeather(ctx, params.Latitude, params.Longitude)
		if err != nil {
			return nil, err
		}
		c.forecastCache.put(key, fetched)
		points = fetched
	}

	current, _ := c.Collect(ctx, params)

	horizon := make([]types.EnvironmentSnapshot, 0, len(points))
	for _, p := range points {
		horizon = append(horizon, types.EnvironmentSnapshot{
			Temperature: p.Temperature,
			FeelsLike:   p.FeelsLike,
			Humidity:    p.Humidity,
			WindSpeed:   p.WindSpeed,
			Rainfall:    p.Rainfall,
			WeatherDesc: p.Description,
			AQI:         current.AQI,
			PM25:        current.PM25,
			PM10:        current.PM10,
			UVIndex:     current.UVIndex,
			NoiseDB:     current.NoiseDB,
			WaterLevel:  current.WaterLevel,
			Timestamp:   p.Timestamp,
		})
	}

	return horizon, nil
}

func providerError(provider string, err error) string {
	if err == nil {
		return provider + ": no data"
	}
	return fmt.Sprintf("%s: %v", provider, err)
}

// coordKey buckets coordinates for cache lookup; 2 decimals is ~1.1 km,
// 3 decimals ~111 m.
func coordKey(lat, lon float64, decimals int) string {
	return fmt.Sprintf("%.*f,%.*f", decimals, lat, decimals, lon)
}
