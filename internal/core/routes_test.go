package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMountRoutes_RegistrarsMounted(t *testing.T) {
	srv := newTestServer(t)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from registrar route, got %d", rec.Code)
	}
}

func TestMountRoutes_HealthMounted(t *testing.T) {
	srv := newTestServer(t)
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from health with no probes, got %d", rec.Code)
	}
}

func TestMountRoutes_RequestIDOnEveryResponse(t *testing.T) {
	srv := newTestServer(t)
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header on response")
	}
}

func TestMountRoutes_PanicInHandlerReturns500(t *testing.T) {
	srv := newTestServer(t)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/explode", func(w http.ResponseWriter, r *http.Request) {
			panic("handler bug")
		})
	})
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/explode", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 from recovered panic, got %d", rec.Code)
	}
}

func TestServer_ShutdownRunsClosersInReverseOrder(t *testing.T) {
	srv := newTestServer(t)

	var order []string
	srv.RegisterCloser(func() error {
		order = append(order, "pool")
		return nil
	})
	srv.RegisterCloser(func() error {
		order = append(order, "cache")
		return nil
	})

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	if len(order) != 2 || order[0] != "cache" || order[1] != "pool" {
		t.Errorf("expected reverse-order close, got %v", order)
	}
}

func TestServer_ShutdownReturnsFirstError(t *testing.T) {
	srv := newTestServer(t)

	srv.RegisterCloser(func() error { return nil })
	srv.RegisterCloser(func() error { return errors.New("pool close failed") })

	err := srv.Shutdown(context.Background())
	if err == nil {
		t.Fatal("expected shutdown error")
	}
}

func TestNewServer_NilConfig(t *testing.T) {
	if _, err := NewServer(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
