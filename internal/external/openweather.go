package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eldersafe/internal/types"
)

// openWeatherAPIBase is the default OpenWeatherMap API base URL.
// Overridable in tests via OpenWeatherClientConfig.BaseURL.
const openWeatherAPIBase = "https://api.openweathermap.org"

// forecastStepCount requests 16 three-hour steps, covering 48 hours.
const forecastStepCount = 16

// OpenWeatherClientConfig holds the configuration for creating an
// OpenWeatherClient.
type OpenWeatherClientConfig struct {
	APIKey  string
	BaseURL string // Override for testing; defaults to openWeatherAPIBase
	Logger  *slog.Logger
}

// owmWeatherResponse is the subset of the /data/2.5/weather response the
// platform consumes. Rainfall may arrive under "1h" or "3h" depending on
// the station; visibility is meters.
type owmWeatherResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain       map[string]float64 `json:"rain"`
	Weather    []owmWeatherDesc   `json:"weather"`
	Visibility float64            `json:"visibility"`
	DT         int64              `json:"dt"`
}

type owmWeatherDesc struct {
	Description string `json:"description"`
}

// owmForecastResponse is the /data/2.5/forecast response envelope.
type owmForecastResponse struct {
	List []owmWeatherResponse `json:"list"`
}

// owmAirPollutionResponse is the /data/2.5/air_pollution response envelope.
type owmAirPollutionResponse struct {
	List []struct {
		Components struct {
			PM25 float64 `json:"pm2_5"`
			PM10 float64 `json:"pm10"`
			NO2  float64 `json:"no2"`
			SO2  float64 `json:"so2"`
			CO   float64 `json:"co"`
			O3   float64 `json:"o3"`
		} `json:"components"`
	} `json:"list"`
}

// OpenWeatherClient implements WeatherProvider against the OpenWeatherMap
// REST API through BaseClient. It also implements AirQualityProvider via the
// Air Pollution endpoint, which serves as the fallback behind AQICN; that
// endpoint reports raw concentrations only, so the EPA AQI is computed from
// the PM2.5 breakpoint table.
type OpenWeatherClient struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// NewOpenWeatherClient creates a new OpenWeatherClient. The httpClient timeout
// should match the provider budget (10 seconds by default).
func NewOpenWeatherClient(httpClient *http.Client, cfg OpenWeatherClientConfig) *OpenWeatherClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openWeatherAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"openweather",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		"ElderSafe/1.0",
	)

	return &OpenWeatherClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// NewOpenWeatherClientWithBase creates an OpenWeatherClient with a
// pre-configured BaseClient. Useful for tests that need to control retry
// behavior.
func NewOpenWeatherClientWithBase(base *BaseClient, cfg OpenWeatherClientConfig) *OpenWeatherClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openWeatherAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenWeatherClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// CurrentWeather fetches current conditions from /data/2.5/weather in metric
// units and normalizes them to a WeatherObservation.
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, lat, lon float64) (*WeatherObservation, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lon", fmt.Sprintf("%.4f", lon))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	var raw owmWeatherResponse
	if err := c.getJSON(ctx, "/data/2.5/weather", q, &raw, "CurrentWeather"); err != nil {
		return nil, err
	}

	obs := owmToObservation(raw, "1h")
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}

	c.logger.InfoContext(ctx, "fetched current weather",
		"lat", lat,
		"lon", lon,
		"temperature", obs.Temperature,
		"humidity", obs.Humidity,
	)

	return &obs, nil
}

// ForecastWeather fetches the 48-hour forecast from /data/2.5/forecast as 16
// three-hour steps and normalizes each step to a WeatherObservation.
func (c *OpenWeatherClient) ForecastWeather(ctx context.Context, lat, lon float64) ([]WeatherObservation, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lon", fmt.Sprintf("%.4f", lon))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	q.Set("cnt", fmt.Sprintf("%d", forecastStepCount))

	var raw owmForecastResponse
	if err := c.getJSON(ctx, "/data/2.5/forecast", q, &raw, "ForecastWeather"); err != nil {
		return nil, err
	}

	points := make([]WeatherObservation, 0, len(raw.List))
	for _, item := range raw.List {
		points = append(points, owmToObservation(item, "3h"))
	}

	c.logger.InfoContext(ctx, "fetched weather forecast",
		"lat", lat,
		"lon", lon,
		"points", len(points),
	)

	return points, nil
}

// AirQuality fetches pollutant concentrations from /data/2.5/air_pollution
// and computes the EPA AQI from PM2.5. This is the fallback path when AQICN
// has no station coverage; the observation is tagged with SourceOpenWeather
// so the confidence estimator can grade it accordingly.
func (c *OpenWeatherClient) AirQuality(ctx context.Context, lat, lon float64) (*AirQualityObservation, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", lat))
	q.Set("lon", fmt.Sprintf("%.4f", lon))
	q.Set("appid", c.apiKey)

	var raw owmAirPollutionResponse
	if err := c.getJSON(ctx, "/data/2.5/air_pollution", q, &raw, "AirQuality"); err != nil {
		return nil, err
	}

	if len(raw.List) == 0 {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamAirQuality,
			"OpenWeatherMap air pollution response contained no measurements",
			nil,
		)
	}

	comp := raw.List[0].Components
	obs := &AirQualityObservation{
		AQI:    AQIFromPM25(comp.PM25),
		PM25:   comp.PM25,
		PM10:   comp.PM10,
		NO2:    comp.NO2,
		SO2:    comp.SO2,
		CO:     comp.CO,
		O3:     comp.O3,
		Source: types.SourceOpenWeather,
	}

	c.logger.InfoContext(ctx, "fetched air pollution fallback",
		"lat", lat,
		"lon", lon,
		"pm25", obs.PM25,
		"computed_aqi", obs.AQI,
	)

	return obs, nil
}

// getJSON performs a GET through BaseClient and decodes the JSON body.
func (c *OpenWeatherClient) getJSON(ctx context.Context, path string, q url.Values, out any, operation string) error {
	reqURL := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("failed to create OpenWeatherMap %s request", operation),
			err,
		)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return c.wrapError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.handleErrorResponse(resp, operation)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("failed to decode OpenWeatherMap %s response", operation),
			err,
		)
	}

	return nil
}

// handleErrorResponse reads and logs the error body from a non-2xx response,
// then returns an appropriate AppError.
func (c *OpenWeatherClient) handleErrorResponse(resp *http.Response, operation string) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	bodyStr := string(bodyBytes)

	c.logger.Error("OpenWeatherMap API error",
		"operation", operation,
		"status_code", resp.StatusCode,
		"response_body", bodyStr,
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return types.NewAppError(
			types.ErrCodeUpstreamWeather,
			"OpenWeatherMap authentication failed (401)",
			fmt.Errorf("OpenWeatherMap %s returned 401: %s", operation, bodyStr),
		)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("OpenWeatherMap client error (%d): %s", resp.StatusCode, operation),
			fmt.Errorf("OpenWeatherMap %s returned %d: %s", operation, resp.StatusCode, bodyStr),
		)
	default:
		return types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("OpenWeatherMap server error (%d): %s", resp.StatusCode, operation),
			fmt.Errorf("OpenWeatherMap %s returned %d: %s", operation, resp.StatusCode, bodyStr),
		)
	}
}

// wrapError converts errors from BaseClient.Do into weather-domain errors.
func (c *OpenWeatherClient) wrapError(operation string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("OpenWeatherMap %s: %s", operation, appErr.Message),
			appErr.Err,
		)
	}

	return types.NewAppError(
		types.ErrCodeUpstreamWeather,
		fmt.Sprintf("OpenWeatherMap %s failed", operation),
		err,
	)
}

// owmToObservation normalizes one OpenWeatherMap weather item. rainKey selects
// which accumulation window to read first ("1h" for current conditions, "3h"
// for forecast steps); stations reporting only the other window still count.
func owmToObservation(raw owmWeatherResponse, rainKey string) WeatherObservation {
	rainfall := 0.0
	if raw.Rain != nil {
		if v, ok := raw.Rain[rainKey]; ok {
			rainfall = v
		} else if v, ok := raw.Rain["3h"]; ok {
			rainfall = v
		}
	}

	desc := ""
	if len(raw.Weather) > 0 {
		desc = raw.Weather[0].Description
	}

	var ts time.Time
	if raw.DT > 0 {
		ts = time.Unix(raw.DT, 0).UTC()
	}

	return WeatherObservation{
		Temperature: raw.Main.Temp,
		FeelsLike:   raw.Main.FeelsLike,
		Humidity:    raw.Main.Humidity,
		WindSpeed:   raw.Wind.Speed,
		Rainfall:    rainfall,
		Visibility:  raw.Visibility / 1000, // meters to km
		Description: desc,
		Timestamp:   ts,
	}
}

// pm25Breakpoint is one row of the US EPA PM2.5-to-AQI conversion table.
type pm25Breakpoint struct {
	pmLo, pmHi   float64
	aqiLo, aqiHi float64
}

var pm25Breakpoints = []pm25Breakpoint{
	{0.0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 350.4, 301, 400},
	{350.5, 500.4, 401, 500},
}

// AQIFromPM25 converts a PM2.5 concentration (µg/m³) to the US EPA AQI using
// the standard breakpoint table. Concentrations beyond the table saturate
// at 500.
func AQIFromPM25(pm25 float64) int {
	for _, bp := range pm25Breakpoints {
		if pm25 <= bp.pmHi {
			aqi := (bp.aqiHi-bp.aqiLo)/(bp.pmHi-bp.pmLo)*(pm25-bp.pmLo) + bp.aqiLo
			return int(math.Round(aqi))
		}
	}
	return 500
}

// Compile-time interface compliance checks.
var (
	_ WeatherProvider    = (*OpenWeatherClient)(nil)
	_ AirQualityProvider = (*OpenWeatherClient)(nil)
)
