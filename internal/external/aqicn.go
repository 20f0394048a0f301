package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eldersafe/internal/types"
)

// aqicnAPIBase is the default AQICN (World Air Quality Index) API base URL.
// Overridable in tests via AQICNClientConfig.BaseURL.
const aqicnAPIBase = "https://api.waqi.info"

// AQICNClientConfig holds the configuration for creating an AQICNClient.
type AQICNClientConfig struct {
	Token   string
	BaseURL string // Override for testing; defaults to aqicnAPIBase
	Logger  *slog.Logger
}

// aqicnFeedResponse is the /feed/geo:{lat};{lon}/ response envelope. The
// station AQI lives at data.aqi; individual pollutants are nested under
// iaqi.{pollutant}.v.
type aqicnFeedResponse struct {
	Status string `json:"status"`
	Data   struct {
		AQI  aqicnAQI                  `json:"aqi"`
		IAQI map[string]aqicnIAQIValue `json:"iaqi"`
		City struct {
			Name string `json:"name"`
		} `json:"city"`
	} `json:"data"`
}

// aqicnAQI tolerates the feed's "-" placeholder for stations with no index,
// which arrives as a JSON string instead of a number.
type aqicnAQI int

func (a *aqicnAQI) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = aqicnAQI(n)
		return nil
	}
	*a = 0
	return nil
}

type aqicnIAQIValue struct {
	V float64 `json:"v"`
}

// AQICNClient implements AirQualityProvider against the AQICN geo feed, which
// resolves coordinates to the nearest monitoring station. It is the primary
// air quality source; the OpenWeatherMap Air Pollution endpoint backs it up.
type AQICNClient struct {
	base    *BaseClient
	token   string
	baseURL string
	logger  *slog.Logger
}

// NewAQICNClient creates a new AQICNClient.
func NewAQICNClient(httpClient *http.Client, cfg AQICNClientConfig) *AQICNClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = aqicnAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"aqicn",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		"ElderSafe/1.0",
	)

	return &AQICNClient{
		base:    base,
		token:   cfg.Token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// NewAQICNClientWithBase creates an AQICNClient with a pre-configured
// BaseClient.
func NewAQICNClientWithBase(base *BaseClient, cfg AQICNClientConfig) *AQICNClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = aqicnAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AQICNClient{
		base:    base,
		token:   cfg.Token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// AirQuality fetches the nearest-station reading from the AQICN geo feed.
// A response with status != "ok" is treated as an upstream failure so the
// fallback provider gets a chance.
func (c *AQICNClient) AirQuality(ctx context.Context, lat, lon float64) (*AirQualityObservation, error) {
	q := url.Values{}
	q.Set("token", c.token)

	reqURL := fmt.Sprintf("%s/feed/geo:%.4f;%.4f/?%s", c.baseURL, lat, lon, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create AQICN feed request",
			err,
		)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, c.wrapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.handleErrorResponse(resp)
	}

	var raw aqicnFeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode AQICN feed response",
			err,
		)
	}

	// AQICN reports errors (bad token, no station) with HTTP 200 and a
	// non-"ok" status field.
	if raw.Status != "ok" {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamAirQuality,
			fmt.Sprintf("AQICN feed returned status %q", raw.Status),
			nil,
		)
	}

	obs := &AirQualityObservation{
		AQI:     int(raw.Data.AQI),
		PM25:    iaqiValue(raw.Data.IAQI, "pm25"),
		PM10:    iaqiValue(raw.Data.IAQI, "pm10"),
		NO2:     iaqiValue(raw.Data.IAQI, "no2"),
		SO2:     iaqiValue(raw.Data.IAQI, "so2"),
		CO:      iaqiValue(raw.Data.IAQI, "co"),
		O3:      iaqiValue(raw.Data.IAQI, "o3"),
		Station: raw.Data.City.Name,
		Source:  types.SourceAQICN,
	}

	c.logger.InfoContext(ctx, "fetched AQICN station reading",
		"lat", lat,
		"lon", lon,
		"station", obs.Station,
		"aqi", obs.AQI,
	)

	return obs, nil
}

// handleErrorResponse reads and logs the error body from a non-2xx response.
func (c *AQICNClient) handleErrorResponse(resp *http.Response) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	bodyStr := string(bodyBytes)

	c.logger.Error("AQICN API error",
		"status_code", resp.StatusCode,
		"response_body", bodyStr,
	)

	return types.NewAppError(
		types.ErrCodeUpstreamAirQuality,
		fmt.Sprintf("AQICN feed returned %d", resp.StatusCode),
		fmt.Errorf("AQICN returned %d: %s", resp.StatusCode, bodyStr),
	)
}

// wrapError converts errors from BaseClient.Do into air-quality domain errors.
func (c *AQICNClient) wrapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("AQICN feed: %s", appErr.Message),
			appErr.Err,
		)
	}

	return types.NewAppError(
		types.ErrCodeUpstreamAirQuality,
		"AQICN feed request failed",
		err,
	)
}

// iaqiValue reads one pollutant value from the iaqi map, zero when absent.
func iaqiValue(iaqi map[string]aqicnIAQIValue, key string) float64 {
	if v, ok := iaqi[key]; ok {
		return v.V
	}
	return 0
}

// FallbackAirQuality chains a primary provider with a fallback: the fallback
// is consulted only when the primary fails. The returned observation keeps
// the Source tag of whichever provider answered, so downstream confidence
// grading sees the true origin.
type FallbackAirQuality struct {
	primary  AirQualityProvider
	fallback AirQualityProvider
	logger   *slog.Logger
}

// NewFallbackAirQuality creates the AQICN-first, OpenWeatherMap-second chain.
func NewFallbackAirQuality(primary, fallback AirQualityProvider, logger *slog.Logger) *FallbackAirQuality {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackAirQuality{primary: primary, fallback: fallback, logger: logger}
}

// AirQuality tries the primary provider, then the fallback. When both fail
// the primary's error is returned; the fallback failure is logged.
func (f *FallbackAirQuality) AirQuality(ctx context.Context, lat, lon float64) (*AirQualityObservation, error) {
	obs, primaryErr := f.primary.AirQuality(ctx, lat, lon)
	if primaryErr == nil {
		return obs, nil
	}

	f.logger.WarnContext(ctx, "primary air quality provider failed, trying fallback",
		"error", primaryErr,
	)

	obs, fallbackErr := f.fallback.AirQuality(ctx, lat, lon)
	if fallbackErr == nil {
		return obs, nil
	}

	f.logger.ErrorContext(ctx, "fallback air quality provider also failed",
		"error", fallbackErr,
	)

	return nil, primaryErr
}

// Compile-time interface compliance checks.
var (
	_ AirQualityProvider = (*AQICNClient)(nil)
	_ AirQualityProvider = (*FallbackAirQuality)(nil)
)
