package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eldersafe/internal/config"
	"eldersafe/internal/core"
	"eldersafe/internal/envdata"
	"eldersafe/internal/risk"
	"eldersafe/internal/types"
)

// DashboardHandler serves the aggregated views consumed by the caregiver
// dashboard: the full-day summary and the active alert list.
type DashboardHandler struct {
	collector SnapshotCollector
	engine    *risk.Engine
	cfg       *config.Config
	logger    *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(
	collector SnapshotCollector,
	engine *risk.Engine,
	cfg *config.Config,
	logger *slog.Logger,
) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		collector: collector,
		engine:    engine,
		cfg:       cfg,
		logger:    logger,
	}
}

// RegisterRoutes mounts the dashboard endpoints onto the mux.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard/summary", h.HandleSummary)
	r.Get("/dashboard/alerts", h.HandleAlerts)
}

// HandleSummary handles GET /v1/dashboard/summary. A failed forecast fetch
// degrades to a summary without outlook data instead of failing the whole
// view; the current snapshot always renders.
func (h *DashboardHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	loc, err := queryLocation(r, h.cfg.Location)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	pop, err := queryPopulation(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	params := envdata.CollectParams{
		Latitude:            loc.Latitude,
		Longitude:           loc.Longitude,
		City:                loc.City,
		UsedDefaultLocation: loc.UsedDefault,
	}

	snap, quality := h.collector.Collect(r.Context(), params)

	horizon, err := h.collector.CollectForecast(r.Context(), params)
	if err != nil {
		h.logger.WarnContext(r.Context(), "summary rendered without outlook",
			"city", loc.City,
			"error", err,
		)
		horizon = nil
	}

	summary := h.engine.DailySummary(snap, horizon, loc.City, pop)

	resp := core.APIResponse{Data: summary}
	if warnings := qualityWarnings(quality); len(warnings) > 0 {
		resp.Meta = &core.ResponseMeta{Warnings: warnings}
	}

	core.JSON(w, r, http.StatusOK, resp)
}

// AlertsResponse is the response body for GET /v1/dashboard/alerts.
type AlertsResponse struct {
	City   string              `json:"city"`
	Alerts []types.HealthAlert `json:"alerts"`
}

// HandleAlerts handles GET /v1/dashboard/alerts. The alert list derives from
// a fresh assessment; an empty list means no factor currently warrants a
// warning.
func (h *DashboardHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	loc, err := queryLocation(r, h.cfg.Location)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	pop, err := queryPopulation(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	snap, quality := h.collector.Collect(r.Context(), envdata.CollectParams{
		Latitude:            loc.Latitude,
		Longitude:           loc.Longitude,
		City:                loc.City,
		UsedDefaultLocation: loc.UsedDefault,
	})

	index := h.engine.AssessAll(snap, pop)
	alerts := h.engine.Alerts(index)
	if alerts == nil {
		alerts = []types.HealthAlert{}
	}

	resp := core.APIResponse{
		Data: AlertsResponse{
			City:   loc.City,
			Alerts: alerts,
		},
	}
	if warnings := qualityWarnings(quality); len(warnings) > 0 {
		resp.Meta = &core.ResponseMeta{Warnings: warnings}
	}

	core.JSON(w, r, http.StatusOK, resp)
}
