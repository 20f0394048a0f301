package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eldersafe/internal/config"
	"eldersafe/internal/core"
	"eldersafe/internal/envdata"
	"eldersafe/internal/risk"
	"eldersafe/internal/types"
)

// SnapshotCollector is the envdata contract the handlers depend on. Collect
// never fails; CollectForecast fails only when the forecast feed itself is
// unavailable.
type SnapshotCollector interface {
	Collect(ctx context.Context, params envdata.CollectParams) (types.EnvironmentSnapshot, types.DataQualityContext)
	CollectForecast(ctx context.Context, params envdata.CollectParams) ([]types.EnvironmentSnapshot, error)
}

// AssessmentStore records advisory assessment history. Implemented by
// db.AssessmentRepository; writes are best-effort from the handler's
// perspective.
type AssessmentStore interface {
	Record(ctx context.Context, rec *types.AssessmentRecord, index types.SafetyIndex) error
}

// RiskHandler serves the assessment and forecast endpoints.
type RiskHandler struct {
	collector SnapshotCollector
	engine    *risk.Engine
	history   AssessmentStore
	cfg       *config.Config
	clock     types.Clock
	logger    *slog.Logger
}

// NewRiskHandler creates a RiskHandler. history may be nil when persistence
// is disabled.
func NewRiskHandler(
	collector SnapshotCollector,
	engine *risk.Engine,
	history AssessmentStore,
	cfg *config.Config,
	clock types.Clock,
	logger *slog.Logger,
) *RiskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &RiskHandler{
		collector: collector,
		engine:    engine,
		history:   history,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
	}
}

// RegisterRoutes mounts the risk endpoints onto the mux.
func (h *RiskHandler) RegisterRoutes(r chi.Router) {
	r.Post("/risk/assess", h.HandleAssess)
	r.Get("/risk/forecast", h.HandleForecast)
}

// AssessRequest is the request body for POST /v1/risk/assess. Coordinates are
// pointers so an absent location falls back to the configured default city.
type AssessRequest struct {
	Latitude   *float64              `json:"latitude"`
	Longitude  *float64              `json:"longitude"`
	City       string                `json:"city" validate:"omitempty,max=100"`
	AgeGroup   string                `json:"age_group"`
	Activity   string                `json:"activity"`
	SensorData *types.SensorReadings `json:"sensor_data"`
}

// AssessResponse is the response body for POST /v1/risk/assess.
type AssessResponse struct {
	SafetyIndex types.SafetyIndex          `json:"safety_index"`
	Confidence  types.ConfidenceAssessment `json:"confidence"`
	Freshness   types.FreshnessStatus      `json:"freshness"`
	Disclaimer  string                     `json:"disclaimer,omitempty"`
}

// HandleAssess handles POST /v1/risk/assess:
//  1. Decode and validate the request body.
//  2. Resolve location (configured default when coordinates are absent).
//  3. Collect the environment snapshot (partial provider failure tolerated).
//  4. Score all factors, grade confidence and freshness.
//  5. Record advisory history (best-effort).
func (h *RiskHandler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := requestValidator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	loc, err := resolveLocation(req.Latitude, req.Longitude, req.City, h.cfg.Location)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	pop, err := resolvePopulation(req.AgeGroup, req.Activity)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	sensor := req.SensorData
	if !h.cfg.Feature.EnableSensorOverlay {
		sensor = nil
	}

	snap, quality := h.collector.Collect(r.Context(), envdata.CollectParams{
		Latitude:            loc.Latitude,
		Longitude:           loc.Longitude,
		City:                loc.City,
		Sensor:              sensor,
		UsedDefaultLocation: loc.UsedDefault,
	})

	index := h.engine.AssessAll(snap, pop)
	confidence := risk.Confidence(quality)

	ts := snap.Timestamp
	freshness := risk.Freshness(&ts, h.clock.Now())

	h.recordHistory(r.Context(), loc, pop, index)

	resp := core.APIResponse{
		Data: AssessResponse{
			SafetyIndex: index,
			Confidence:  confidence,
			Freshness:   freshness,
			Disclaimer:  risk.Disclaimer(confidence.Level),
		},
	}
	if warnings := qualityWarnings(quality); len(warnings) > 0 {
		resp.Meta = &core.ResponseMeta{Warnings: warnings}
	}

	core.JSON(w, r, http.StatusOK, resp)
}

// recordHistory persists an advisory history row. Failures are logged, never
// surfaced: history is not part of the assessment contract.
func (h *RiskHandler) recordHistory(ctx context.Context, loc location, pop types.PopulationContext, index types.SafetyIndex) {
	if h.history == nil || !h.cfg.Feature.EnableHistory {
		return
	}

	rec := &types.AssessmentRecord{
		City:         loc.City,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		AgeGroup:     pop.AgeGroup,
		Activity:     pop.Activity,
		OverallScore: index.OverallScore,
		OverallLevel: index.OverallLevel,
		CreatedAt:    h.clock.Now(),
	}

	if err := h.history.Record(ctx, rec, index); err != nil {
		h.logger.WarnContext(ctx, "failed to record assessment history",
			"city", loc.City,
			"error", err,
		)
	}
}

// HandleForecast handles GET /v1/risk/forecast. Unlike current assessment,
// the forecast endpoint fails when the forecast feed is unavailable: there is
// no meaningful degraded answer for a question about the future.
func (h *RiskHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
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

	horizon, err := h.collector.CollectForecast(r.Context(), envdata.CollectParams{
		Latitude:            loc.Latitude,
		Longitude:           loc.Longitude,
		City:                loc.City,
		UsedDefaultLocation: loc.UsedDefault,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	forecast := h.engine.Outlook(horizon, pop)

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: forecast})
}
