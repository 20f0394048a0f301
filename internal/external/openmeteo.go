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

// openMeteoAPIBase is the default Open-Meteo API base URL. Open-Meteo is
// keyless; only the endpoint is configurable.
const openMeteoAPIBase = "https://api.open-meteo.com"

// OpenMeteoClientConfig holds the configuration for creating an
// OpenMeteoClient.
type OpenMeteoClientConfig struct {
	BaseURL string // Override for testing; defaults to openMeteoAPIBase
	Logger  *slog.Logger
}

// openMeteoCurrentResponse is the /v1/forecast?current=uv_index response
// envelope.
type openMeteoCurrentResponse struct {
	Current struct {
		UVIndex *float64 `json:"uv_index"`
	} `json:"current"`
}

// OpenMeteoClient implements UVProvider against the Open-Meteo forecast API,
// which serves satellite-derived UV index without an API key.
type OpenMeteoClient struct {
	base    *BaseClient
	baseURL string
	logger  *slog.Logger
}

// NewOpenMeteoClient creates a new OpenMeteoClient.
func NewOpenMeteoClient(httpClient *http.Client, cfg OpenMeteoClientConfig) *OpenMeteoClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openMeteoAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"open-meteo",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		"ElderSafe/1.0",
	)

	return &OpenMeteoClient{
		base:    base,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// NewOpenMeteoClientWithBase creates an OpenMeteoClient with a pre-configured
// BaseClient.
func NewOpenMeteoClientWithBase(base *BaseClient, cfg OpenMeteoClientConfig) *OpenMeteoClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openMeteoAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenMeteoClient{
		base:    base,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// CurrentUVIndex fetches the current UV index from /v1/forecast, rounded to
// one decimal place to match the provider's own display precision.
func (c *OpenMeteoClient) CurrentUVIndex(ctx context.Context, lat, lon float64) (float64, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current", "uv_index")
	q.Set("timezone", "auto")

	reqURL := c.baseURL + "/v1/forecast?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create Open-Meteo request",
			err,
		)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return 0, c.wrapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, c.handleErrorResponse(resp)
	}

	var raw openMeteoCurrentResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Open-Meteo response",
			err,
		)
	}

	if raw.Current.UVIndex == nil {
		return 0, types.NewAppError(
			types.ErrCodeUpstreamUV,
			"Open-Meteo response contained no uv_index",
			nil,
		)
	}

	uv := math.Round(*raw.Current.UVIndex*10) / 10

	c.logger.InfoContext(ctx, "fetched UV index",
		"lat", lat,
		"lon", lon,
		"uv_index", uv,
	)

	return uv, nil
}

// handleErrorResponse reads and logs the error body from a non-2xx response.
func (c *OpenMeteoClient) handleErrorResponse(resp *http.Response) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	bodyStr := string(bodyBytes)

	c.logger.Error("Open-Meteo API error",
		"status_code", resp.StatusCode,
		"response_body", bodyStr,
	)

	return types.NewAppError(
		types.ErrCodeUpstreamUV,
		fmt.Sprintf("Open-Meteo returned %d", resp.StatusCode),
		fmt.Errorf("Open-Meteo returned %d: %s", resp.StatusCode, bodyStr),
	)
}

// wrapError converts errors from BaseClient.Do into UV-domain errors.
func (c *OpenMeteoClient) wrapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return types.NewAppError(
			appErr.Code,
			fmt.Sprintf("Open-Meteo: %s", appErr.Message),
			appErr.Err,
		)
	}

	return types.NewAppError(
		types.ErrCodeUpstreamUV,
		"Open-Meteo request failed",
		err,
	)
}

// EstimateUVIndex approximates the UV index from the solar zenith angle at
// the given coordinates and instant. Used as the last-resort fallback when
// Open-Meteo is unreachable; accurate to roughly ±1 index point. The
// clear-sky ceiling of 12 is calibrated for tropical and subtropical
// latitudes, and a 25% haze reduction reflects typical metro conditions.
func EstimateUVIndex(lat, lon float64, now time.Time) float64 {
	now = now.UTC()

	// Approximate local solar time from longitude.
	localSolar := now.Add(time.Duration(lon / 15.0 * float64(time.Hour)))
	hourAngle := (float64(localSolar.Hour()) + float64(localSolar.Minute())/60.0 - 12.0) * 15.0

	// Solar declination from day of year.
	dayOfYear := float64(now.YearDay())
	declination := 23.45 * math.Sin(rad(360.0/365.0*(dayOfYear-81)))

	cosZenith := math.Sin(rad(lat))*math.Sin(rad(declination)) +
		math.Cos(rad(lat))*math.Cos(rad(declination))*math.Cos(rad(hourAngle))

	if cosZenith <= 0 {
		return 0 // sun below horizon
	}

	const (
		clearSkyCeiling = 12.0
		hazeFactor      = 0.75
	)

	uv := clearSkyCeiling * cosZenith * hazeFactor
	uv = math.Round(uv*10) / 10
	if uv < 0 {
		return 0
	}
	return uv
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Compile-time interface compliance check.
var _ UVProvider = (*OpenMeteoClient)(nil)
