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

// EnvironmentHandler serves raw snapshot data for clients that render their
// own views (the mobile dashboard's "current conditions" card).
type EnvironmentHandler struct {
	collector SnapshotCollector
	cfg       *config.Config
	clock     types.Clock
	logger    *slog.Logger
}

// NewEnvironmentHandler creates an EnvironmentHandler.
func NewEnvironmentHandler(
	collector SnapshotCollector,
	cfg *config.Config,
	clock types.Clock,
	logger *slog.Logger,
) *EnvironmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &EnvironmentHandler{
		collector: collector,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
	}
}

// RegisterRoutes mounts the environment endpoints onto the mux.
func (h *EnvironmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/environment/current", h.HandleCurrent)
}

// CurrentEnvironmentResponse is the response body for
// GET /v1/environment/current.
type CurrentEnvironmentResponse struct {
	City      string                    `json:"city"`
	Snapshot  types.EnvironmentSnapshot `json:"snapshot"`
	Quality   types.DataQualityContext  `json:"data_quality"`
	Freshness types.FreshnessStatus     `json:"freshness"`
}

// HandleCurrent handles GET /v1/environment/current. Partial provider
// failure is tolerated; missing metrics are zero-valued and enumerated in
// the quality block.
func (h *EnvironmentHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	loc, err := queryLocation(r, h.cfg.Location)
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

	ts := snap.Timestamp
	resp := core.APIResponse{
		Data: CurrentEnvironmentResponse{
			City:      loc.City,
			Snapshot:  snap,
			Quality:   quality,
			Freshness: risk.Freshness(&ts, h.clock.Now()),
		},
	}
	if warnings := qualityWarnings(quality); len(warnings) > 0 {
		resp.Meta = &core.ResponseMeta{Warnings: warnings}
	}

	core.JSON(w, r, http.StatusOK, resp)
}
