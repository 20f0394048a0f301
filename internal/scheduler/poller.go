// Package scheduler implements the scheduled job services for the ElderSafe
// platform: the periodic condition poller and the maintenance multiplexer.
//
// The DataPoller runs every 15 minutes via an EventBridge rule. It collects a
// fresh environment snapshot for each monitored city, persists the snapshot
// and the resulting assessment, and publishes proactive health alerts to the
// alert queue so caregivers are notified without opening the app.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eldersafe/internal/envdata"
	"eldersafe/internal/metrics"
	"eldersafe/internal/types"
)

// PollTarget is one monitored location. The poller assesses each target with
// the elderly/walking population defaults since queue consumers have no
// per-request context.
type PollTarget struct {
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DataPollerInput is the payload for manual Lambda invocation. An empty input
// polls the configured targets; Targets overrides them for backfills and
// smoke tests. DryRun collects and assesses but skips persistence and alert
// publishing.
type DataPollerInput struct {
	Targets []PollTarget `json:"targets,omitempty"`
	DryRun  bool         `json:"dry_run,omitempty"`
}

// PollResult summarizes one poller execution.
type PollResult struct {
	Polled          int `json:"polled"`
	AlertsPublished int `json:"alerts_published"`
	Failures        int `json:"failures"`
}

// SnapshotCollector abstracts the envdata collector.
type SnapshotCollector interface {
	Collect(ctx context.Context, params envdata.CollectParams) (types.EnvironmentSnapshot, types.DataQualityContext)
}

// Assessor abstracts the risk engine operations the poller needs.
type Assessor interface {
	AssessAll(snap types.EnvironmentSnapshot, pop types.PopulationContext) types.SafetyIndex
	Alerts(index types.SafetyIndex) []types.HealthAlert
}

// SnapshotStore persists the latest snapshot per city.
type SnapshotStore interface {
	Upsert(ctx context.Context, city string, lat, lon float64, snap types.EnvironmentSnapshot, updatedAt time.Time) error
}

// HistoryStore persists assessment history rows.
type HistoryStore interface {
	Record(ctx context.Context, rec *types.AssessmentRecord, index types.SafetyIndex) error
}

// AlertSink publishes alert batches to the notification queue.
type AlertSink interface {
	Publish(ctx context.Context, msg types.AlertMessage) error
}

// DataPoller collects, assesses, and persists conditions for monitored
// cities. It is the core service behind the DataPollerFunction Lambda.
type DataPoller struct {
	collector SnapshotCollector
	assessor  Assessor
	snapshots SnapshotStore
	history   HistoryStore
	alerts    AlertSink
	metrics   metrics.MetricsCollector

	targets []PollTarget
	clock   types.Clock
	logger  *slog.Logger
}

// DataPollerConfig holds the dependencies for creating a DataPoller.
// Snapshots, History, and Alerts may be nil when the corresponding feature
// is disabled; a nil dependency skips that step.
type DataPollerConfig struct {
	Collector SnapshotCollector
	Assessor  Assessor
	Snapshots SnapshotStore
	History   HistoryStore
	Alerts    AlertSink
	Metrics   metrics.MetricsCollector
	Targets   []PollTarget
	Clock     types.Clock
	Logger    *slog.Logger
}

// NewDataPoller creates a DataPoller with the given configuration.
func NewDataPoller(cfg DataPollerConfig) *DataPoller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	collector := cfg.Metrics
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return &DataPoller{
		collector: cfg.Collector,
		assessor:  cfg.Assessor,
		snapshots: cfg.Snapshots,
		history:   cfg.History,
		alerts:    cfg.Alerts,
		metrics:   collector,
		targets:   cfg.Targets,
		clock:     clock,
		logger:    logger,
	}
}

// Poll runs one full cycle over the configured (or overridden) targets.
// Per-target failures are counted and logged but do not abort the cycle; an
// error is returned only when every target failed, so EventBridge retries
// kick in for total outages but not partial ones.
func (p *DataPoller) Poll(ctx context.Context, input DataPollerInput) (PollResult, error) {
	targets := input.Targets
	if len(targets) == 0 {
		targets = p.targets
	}
	if len(targets) == 0 {
		return PollResult{}, fmt.Errorf("no poll targets configured")
	}

	var result PollResult
	for _, target := range targets {
		published, err := p.pollTarget(ctx, target, input.DryRun)
		result.Polled++
		result.AlertsPublished += published
		if err != nil {
			result.Failures++
			p.logger.ErrorContext(ctx, "poll target failed",
				"city", target.City,
				"error", err,
			)
		}
	}

	if result.Failures == result.Polled {
		return result, fmt.Errorf("all %d poll targets failed", result.Failures)
	}

	p.logger.InfoContext(ctx, "poll cycle complete",
		"polled", result.Polled,
		"alerts_published", result.AlertsPublished,
		"failures", result.Failures,
		"dry_run", input.DryRun,
	)
	return result, nil
}

// pollTarget collects, assesses, and persists one city, returning the number
// of alerts published.
func (p *DataPoller) pollTarget(ctx context.Context, target PollTarget, dryRun bool) (int, error) {
	snap, quality := p.collector.Collect(ctx, envdata.CollectParams{
		Latitude:  target.Latitude,
		Longitude: target.Longitude,
		City:      target.City,
	})
	p.recordFetchMetrics(ctx, quality)

	pop := types.DefaultPopulation()
	index := p.assessor.AssessAll(snap, pop)
	alerts := p.assessor.Alerts(index)

	p.logger.InfoContext(ctx, "target assessed",
		"city", target.City,
		"overall_level", index.OverallLevel,
		"overall_score", index.OverallScore,
		"alerts", len(alerts),
	)

	if dryRun {
		return 0, nil
	}

	now := p.clock.Now()

	if p.snapshots != nil {
		if err := p.snapshots.Upsert(ctx, target.City, target.Latitude, target.Longitude, snap, now); err != nil {
			return 0, fmt.Errorf("upserting snapshot: %w", err)
		}
	}

	if p.history != nil {
		rec := &types.AssessmentRecord{
			City:         target.City,
			Latitude:     target.Latitude,
			Longitude:    target.Longitude,
			AgeGroup:     pop.AgeGroup,
			Activity:     pop.Activity,
			OverallScore: index.OverallScore,
			OverallLevel: index.OverallLevel,
			CreatedAt:    now,
		}
		if err := p.history.Record(ctx, rec, index); err != nil {
			return 0, fmt.Errorf("recording assessment: %w", err)
		}
	}

	if p.alerts == nil || len(alerts) == 0 {
		return 0, nil
	}

	msg := types.AlertMessage{
		City:      target.City,
		Latitude:  target.Latitude,
		Longitude: target.Longitude,
		AgeGroup:  pop.AgeGroup,
		Alerts:    alerts,
	}
	if err := p.alerts.Publish(ctx, msg); err != nil {
		return 0, fmt.Errorf("publishing alerts: %w", err)
	}
	return len(alerts), nil
}

// recordFetchMetrics emits one provider-fetch datum per upstream concern.
// Failures are detected from the "<provider>: <detail>" error strings the
// collector records.
func (p *DataPoller) recordFetchMetrics(ctx context.Context, quality types.DataQualityContext) {
	failed := make(map[string]bool, len(quality.APIErrors))
	for _, apiErr := range quality.APIErrors {
		if name, _, ok := strings.Cut(apiErr, ":"); ok {
			failed[strings.TrimSpace(name)] = true
		}
	}

	for _, provider := range []string{"weather", "air_quality", "uv"} {
		outcome := metrics.FetchSuccess
		switch {
		case failed[provider]:
			outcome = metrics.FetchFailure
		case quality.IsCached:
			outcome = metrics.FetchCached
		}
		p.metrics.RecordProviderFetch(ctx, provider, outcome)
	}
}
