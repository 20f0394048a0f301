package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eldersafe/internal/config"
	"eldersafe/internal/metrics"
	"eldersafe/internal/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{Environment: "local"}
	srv, err := NewServer(cfg, slog.Default())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

// --- RequestID ---

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var captured string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = types.GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if captured == "" {
		t.Fatal("expected request ID in context")
	}
	if got := rec.Header().Get("X-Request-Id"); got != captured {
		t.Errorf("response header %q does not match context ID %q", got, captured)
	}
	if len(captured) != 32 {
		t.Errorf("expected 32-char hex ID, got %q", captured)
	}
}

func TestRequestIDMiddleware_PropagatesIncomingID(t *testing.T) {
	var captured string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = types.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "upstream-id-7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if captured != "upstream-id-7" {
		t.Errorf("expected propagated ID, got %q", captured)
	}
}

// --- Recoverer ---

func TestRecoverer_CatchesPanic(t *testing.T) {
	srv := newTestServer(t)

	handler := srv.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/risk/forecast", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-panic"))

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	var resp APIErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("expected code %s, got %s", types.ErrCodeInternalUnexpected, resp.Error.Code)
	}
	if resp.Error.RequestID != "req-panic" {
		t.Errorf("expected request_id req-panic, got %q", resp.Error.RequestID)
	}
	if strings.Contains(resp.Error.Message, "boom") {
		t.Error("panic value must not leak to clients")
	}
}

func TestRecoverer_PassThrough(t *testing.T) {
	srv := newTestServer(t)

	handler := srv.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", rec.Code)
	}
}

// --- RequestLogger ---

func TestRequestLogger_RedactsHeaders(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger, []string{"Authorization"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/v1/environment/current", nil)
	req.Header.Set("Authorization", "Bearer super-secret")
	req.Header.Set("Accept", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "super-secret") {
		t.Error("redacted header value leaked into log output")
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Error("expected [REDACTED] marker in log output")
	}
	if !strings.Contains(out, "/v1/environment/current") {
		t.Error("expected request path in log output")
	}
}

func TestRequestLogger_ErrorLevelFor5xx(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("expected ERROR level log for 502, got: %s", buf.String())
	}
}

// --- CORS ---

func TestCORS_Wildcard(t *testing.T) {
	handler := NewCORSMiddleware([]string{"*"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

func TestCORS_AllowedOriginList(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://app.eldersafe.in"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.eldersafe.in")
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.eldersafe.in" {
		t.Errorf("expected specific origin, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", got)
	}

	// A request from a different origin gets no CORS headers.
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set("Origin", "https://evil.example.com")
	handler.ServeHTTP(rec2, req2)

	if got := rec2.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for disallowed origin, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	handlerCalled := false
	handler := NewCORSMiddleware([]string{"*"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/risk/assess", nil)
	req.Header.Set("Origin", "https://app.eldersafe.in")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for preflight, got %d", rec.Code)
	}
	if handlerCalled {
		t.Error("preflight must not reach downstream handlers")
	}
}

// --- Metrics middleware ---

type recordingCollector struct {
	routes   []string
	statuses []int
}

func (c *recordingCollector) RecordRequest(_ context.Context, route string, status int, _ time.Duration) {
	c.routes = append(c.routes, route)
	c.statuses = append(c.statuses, status)
}

func (c *recordingCollector) RecordProviderFetch(context.Context, string, metrics.FetchOutcome) {}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	srv := newTestServer(t)
	collector := &recordingCollector{}
	srv.Metrics = collector

	srv.Router().Use(srv.MetricsMiddleware)
	srv.Router().Get("/v1/assessments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/assessments/abc-123", nil))

	if len(collector.routes) != 1 {
		t.Fatalf("expected 1 recorded request, got %d", len(collector.routes))
	}
	if collector.routes[0] != "/v1/assessments/{id}" {
		t.Errorf("expected route pattern, got %q", collector.routes[0])
	}
	if collector.statuses[0] != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", collector.statuses[0])
	}
}

func TestMetricsMiddleware_NilCollectorPassesThrough(t *testing.T) {
	srv := newTestServer(t)
	srv.Metrics = nil

	handler := srv.MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected pass-through 200, got %d", rec.Code)
	}
}

// --- ContextTimeout ---

func TestContextTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var hadDeadline bool
	handler := ContextTimeoutMiddleware(5 * time.Second)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hadDeadline = r.Context().Deadline()
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !hadDeadline {
		t.Error("expected request context to carry a deadline")
	}
}
