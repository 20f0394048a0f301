package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eldersafe/internal/types"
)

// newTestOpenWeatherClient creates an OpenWeatherClient pointed at the given
// test server URL with fast retries and no real sleep.
func newTestOpenWeatherClient(t *testing.T, serverURL string) *OpenWeatherClient {
	t.Helper()
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"openweather-test",
		RetryPolicy{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: time.Millisecond},
		"ElderSafe-Test/1.0",
		WithSleepFunc(noopSleep),
	)
	return NewOpenWeatherClientWithBase(base, OpenWeatherClientConfig{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Logger:  testLogger(),
	})
}

func TestOpenWeatherCurrentWeather_Success(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = map[string]string{
			"lat":   r.URL.Query().Get("lat"),
			"lon":   r.URL.Query().Get("lon"),
			"appid": r.URL.Query().Get("appid"),
			"units": r.URL.Query().Get("units"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"main": {"temp": 33.5, "feels_like": 37.2, "humidity": 72},
			"wind": {"speed": 4.2},
			"rain": {"1h": 2.5},
			"weather": [{"description": "hazy"}],
			"visibility": 4000,
			"dt": 1756400000
		}`))
	}))
	defer server.Close()

	client := newTestOpenWeatherClient(t, server.URL)

	obs, err := client.CurrentWeather(context.Background(), 18.5204, 73.8567)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if gotQuery["lat"] != "18.5204" || gotQuery["lon"] != "73.8567" {
		t.Errorf("unexpected coordinates in query: %v", gotQuery)
	}
	if gotQuery["appid"] != "test-key" {
		t.Errorf("expected API key in query, got %q", gotQuery["appid"])
	}
	if gotQuery["units"] != "metric" {
		t.Errorf("expected metric units, got %q", gotQuery["units"])
	}

	if obs.Temperature != 33.5 {
		t.Errorf("expected temperature 33.5, got %v", obs.Temperature)
	}
	if obs.FeelsLike != 37.2 {
		t.Errorf("expected feels-like 37.2, got %v", obs.FeelsLike)
	}
	if obs.Humidity != 72 {
		t.Errorf("expected humidity 72, got %v", obs.Humidity)
	}
	if obs.WindSpeed != 4.2 {
		t.Errorf("expected wind 4.2, got %v", obs.WindSpeed)
	}
	if obs.Rainfall != 2.5 {
		t.Errorf("expected rainfall 2.5, got %v", obs.Rainfall)
	}
	if obs.Visibility != 4 {
		t.Errorf("expected visibility 4 km, got %v", obs.Visibility)
	}
	if obs.Description != "hazy" {
		t.Errorf("expected description 'hazy', got %q", obs.Description)
	}
	if obs.Timestamp.IsZero() {
		t.Error("expected non-zero observation timestamp")
	}
}

func TestOpenWeatherCurrentWeather_RainfallFallsBackTo3h(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"main": {"temp": 25}, "rain": {"3h": 6.0}}`))
	}))
	defer server.Close()

	client := newTestOpenWeatherClient(t, server.URL)

	obs, err := client.CurrentWeather(context.Background(), 18.52, 73.85)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if obs.Rainfall != 6.0 {
		t.Errorf("expected rainfall 6.0 from 3h window, got %v", obs.Rainfall)
	}
}

func TestOpenWeatherCurrentWeather_NoRainField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"main": {"temp": 25, "humidity": 40}}`))
	}))
	defer server.Close()

	client := newTestOpenWeatherClient(t, server.URL)

	obs, err := client.CurrentWeather(context.Background(), 18.52, 73.85)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if obs.Rainfall != 0 {
		t.Errorf("expected zero rainfall, got %v", obs.Rainfall)
	}
	if obs.Description != "" {
		t.Errorf("expected empty description, got %q", obs.Description)
	}
}

func TestOpenWeatherForecastWeather_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/forecast" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("cnt"); got != "16" {
			t.Errorf("expected cnt=16, got %q", got)
		}
		w.Write([]byte(`{"list": [
			{"main": {"temp": 28.0, "humidity": 65}, "rain": {"3h": 0.5}, "dt": 1756400000},
			{"main": {"temp": 30.5, "humidity": 60}, "dt": 1756410800}
		]}`))
	}))
	defer server.Close()

	client := newTestOpenWeatherClient(t, server.URL)

	points, err := client.ForecastWeather(context.Background(), 18.52, 73.85)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 forecast points, got %d", len(points))
	}
	if points[0].Temperature != 28.0 || points[0].Rainfall != 0.5 {
		t.Errorf("unexpected first point: %+v", points[0])
	}
	if !points[1].Timestamp.After(points[0].Timestamp) {
		t.Error("expected chronological forecast points")
	}
}

func TestOpenWeatherAirQuality_ComputesEPAAQI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/air_pollution" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"list": [{"components": {
			"pm2_5": 40.0, "pm10": 85.0, "no2": 22.0, "so2": 4.0, "co": 0.6, "o3": 30.0
		}}]}`))
	}))
	defer server.Close()

	client := newTestOpenWeatherClient(t, server.URL)

	obs, err := client.AirQuality(context.Background(), 18.52, 73.85)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// PM2.5 of 40 µg/m³ sits in the 35.5-55.4 band, mapping to AQI 112.
	if obs.AQI != 112 {
		t.Errorf("expected computed AQI 112, got %d", obs.AQI)
	}
	if obs.PM25 != 40.0 || obs.PM10 != 85.0 {
		t.Errorf("unexpected PM values: %+v", obs)
	}
	if obs.Source != types.SourceOpenWeather {
		t.Errorf("expected source %q, got %q", types.SourceOpenWeather, obs.Source)
	}
}

func TestOpenWeatherAirQuality_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list": []}`))
	}))
	defer server.Close()

	client := newTestOpenWeatherClient(t, server.URL)

	_, err := client.AirQuality(context.Background(), 18.52, 73.85)
	if err == nil {
		t.Fatal("expected error for empty measurement list")
	}

	var appErr *types.AppError
	if !isAppErrorWithCode(err, types.ErrCodeUpstreamAirQuality, &appErr) {
		t.Errorf("expected air quality upstream error, got: %v", err)
	}
}

func TestOpenWeatherCurrentWeather_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"cod": 401, "message": "Invalid API key"}`))
	}))
	defer server.Close()

	client := newTestOpenWeatherClient(t, server.URL)

	_, err := client.CurrentWeather(context.Background(), 18.52, 73.85)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}

	var appErr *types.AppError
	if !isAppErrorWithCode(err, types.ErrCodeUpstreamWeather, &appErr) {
		t.Errorf("expected weather upstream error, got: %v", err)
	}
}

func TestOpenWeatherCurrentWeather_ServerErrorAfterRetries(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestOpenWeatherClient(t, server.URL)

	_, err := client.CurrentWeather(context.Background(), 18.52, 73.85)
	if err == nil {
		t.Fatal("expected error for persistent 500s")
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts (1 retry), got %d", attempts)
	}
}

func TestAQIFromPM25_Breakpoints(t *testing.T) {
	cases := []struct {
		pm25 float64
		want int
	}{
		{0, 0},
		{10, 42},
		{12.0, 50},
		{35.4, 100},
		{40.0, 112},
		{55.4, 150},
		{150.4, 200},
		{250.4, 300},
		{500.4, 500},
		{600, 500},
	}

	for _, tc := range cases {
		if got := AQIFromPM25(tc.pm25); got != tc.want {
			t.Errorf("AQIFromPM25(%v) = %d, want %d", tc.pm25, got, tc.want)
		}
	}
}

// isAppError checks if err is an *types.AppError and extracts it.
func isAppError(err error, target **types.AppError) bool {
	var ae *types.AppError
	if ok := errors.As(err, &ae); ok {
		*target = ae
		return true
	}
	return false
}

// isAppErrorWithCode checks that err is an *types.AppError carrying the given code.
func isAppErrorWithCode(err error, code types.ErrorCode, target **types.AppError) bool {
	if !isAppError(err, target) {
		return false
	}
	return (*target).Code == code
}
