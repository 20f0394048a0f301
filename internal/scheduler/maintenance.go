// Package scheduler implements the scheduled job services for the ElderSafe
// platform.
//
// This file implements the maintenance multiplexer behind the
// MaintenanceFunction Lambda. EventBridge rules invoke the Lambda with a
// MaintenancePayload naming the task; the service routes it to the matching
// retention job. All tasks accept a reference time so manual invocations can
// backfill deterministically.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eldersafe/internal/types"
)

// TaskType identifies which maintenance job should handle an EventBridge event.
type TaskType string

const (
	// TaskPruneHistory deletes assessment history rows older than the
	// retention window.
	TaskPruneHistory TaskType = "prune_history"
	// TaskPruneSnapshots deletes cached city snapshots that have not been
	// refreshed within the staleness window.
	TaskPruneSnapshots TaskType = "prune_snapshots"
)

// Default retention windows. RetentionDays in the payload overrides them.
const (
	defaultHistoryRetentionDays = 90
	defaultSnapshotRetention    = 24 * time.Hour
)

// MaintenancePayload is the JSON payload sent by EventBridge to the
// maintenance Lambda.
//
//	{
//	  "task": "prune_history",
//	  "reference_time": "2026-04-12T03:00:00Z",  // optional
//	  "retention_days": 30                        // optional
//	}
type MaintenancePayload struct {
	Task TaskType `json:"task"`
	// ReferenceTime allows manual invocation to specify a different "now"
	// for deterministic execution. If nil, the service clock is used.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
	// RetentionDays overrides the default retention window for prune_history.
	RetentionDays int `json:"retention_days,omitempty"`
}

// MaintenanceResult summarizes one maintenance execution.
type MaintenanceResult struct {
	Task    TaskType `json:"task"`
	Deleted int64    `json:"deleted"`
}

// HistoryPruner deletes assessment history rows before a cutoff.
type HistoryPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SnapshotPruner deletes cached snapshots not refreshed since a cutoff.
type SnapshotPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceService routes maintenance payloads to retention jobs.
type MaintenanceService struct {
	history   HistoryPruner
	snapshots SnapshotPruner
	clock     types.Clock
	logger    *slog.Logger
}

// NewMaintenanceService creates a MaintenanceService.
func NewMaintenanceService(history HistoryPruner, snapshots SnapshotPruner, clock types.Clock, logger *slog.Logger) *MaintenanceService {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &MaintenanceService{
		history:   history,
		snapshots: snapshots,
		clock:     clock,
		logger:    logger,
	}
}

// Execute runs the task named by the payload.
func (s *MaintenanceService) Execute(ctx context.Context, payload MaintenancePayload) (MaintenanceResult, error) {
	now := s.clock.Now()
	if payload.ReferenceTime != nil {
		now = *payload.ReferenceTime
	}

	switch payload.Task {
	case TaskPruneHistory:
		return s.pruneHistory(ctx, now, payload.RetentionDays)
	case TaskPruneSnapshots:
		return s.pruneSnapshots(ctx, now)
	default:
		return MaintenanceResult{}, fmt.Errorf("unknown maintenance task %q", payload.Task)
	}
}

func (s *MaintenanceService) pruneHistory(ctx context.Context, now time.Time, retentionDays int) (MaintenanceResult, error) {
	if retentionDays <= 0 {
		retentionDays = defaultHistoryRetentionDays
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	deleted, err := s.history.DeleteBefore(ctx, cutoff)
	if err != nil {
		return MaintenanceResult{Task: TaskPruneHistory}, fmt.Errorf("pruning assessment history: %w", err)
	}

	s.logger.InfoContext(ctx, "assessment history pruned",
		"cutoff", cutoff,
		"retention_days", retentionDays,
		"deleted", deleted,
	)
	return MaintenanceResult{Task: TaskPruneHistory, Deleted: deleted}, nil
}

func (s *MaintenanceService) pruneSnapshots(ctx context.Context, now time.Time) (MaintenanceResult, error) {
	cutoff := now.Add(-defaultSnapshotRetention)

	deleted, err := s.snapshots.DeleteBefore(ctx, cutoff)
	if err != nil {
		return MaintenanceResult{Task: TaskPruneSnapshots}, fmt.Errorf("pruning snapshots: %w", err)
	}

	s.logger.InfoContext(ctx, "stale snapshots pruned",
		"cutoff", cutoff,
		"deleted", deleted,
	)
	return MaintenanceResult{Task: TaskPruneSnapshots, Deleted: deleted}, nil
}
