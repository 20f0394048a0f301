package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockPruner struct {
	cutoffs []time.Time
	deleted int64
	err     error
}

func (m *mockPruner) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.cutoffs = append(m.cutoffs, cutoff)
	return m.deleted, nil
}

func TestExecute_PruneHistoryDefaultRetention(t *testing.T) {
	history := &mockPruner{deleted: 120}
	svc := NewMaintenanceService(history, &mockPruner{}, fixedClock{now: pollerNow}, nil)

	result, err := svc.Execute(context.Background(), MaintenancePayload{Task: TaskPruneHistory})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Deleted != 120 || result.Task != TaskPruneHistory {
		t.Errorf("unexpected result: %+v", result)
	}

	want := pollerNow.AddDate(0, 0, -90)
	if len(history.cutoffs) != 1 || !history.cutoffs[0].Equal(want) {
		t.Errorf("expected 90-day cutoff %v, got %v", want, history.cutoffs)
	}
}

func TestExecute_PruneHistoryRetentionOverride(t *testing.T) {
	history := &mockPruner{}
	svc := NewMaintenanceService(history, &mockPruner{}, fixedClock{now: pollerNow}, nil)

	_, err := svc.Execute(context.Background(), MaintenancePayload{
		Task:          TaskPruneHistory,
		RetentionDays: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := pollerNow.AddDate(0, 0, -30)
	if len(history.cutoffs) != 1 || !history.cutoffs[0].Equal(want) {
		t.Errorf("expected 30-day cutoff %v, got %v", want, history.cutoffs)
	}
}

func TestExecute_PruneSnapshots(t *testing.T) {
	snapshots := &mockPruner{deleted: 3}
	svc := NewMaintenanceService(&mockPruner{}, snapshots, fixedClock{now: pollerNow}, nil)

	result, err := svc.Execute(context.Background(), MaintenancePayload{Task: TaskPruneSnapshots})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", result.Deleted)
	}

	want := pollerNow.Add(-24 * time.Hour)
	if len(snapshots.cutoffs) != 1 || !snapshots.cutoffs[0].Equal(want) {
		t.Errorf("expected 24h cutoff %v, got %v", want, snapshots.cutoffs)
	}
}

func TestExecute_ReferenceTimeOverridesClock(t *testing.T) {
	history := &mockPruner{}
	svc := NewMaintenanceService(history, &mockPruner{}, fixedClock{now: pollerNow}, nil)

	ref := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)
	_, err := svc.Execute(context.Background(), MaintenancePayload{
		Task:          TaskPruneHistory,
		ReferenceTime: &ref,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ref.AddDate(0, 0, -90)
	if len(history.cutoffs) != 1 || !history.cutoffs[0].Equal(want) {
		t.Errorf("expected cutoff from reference time %v, got %v", want, history.cutoffs)
	}
}

func TestExecute_UnknownTask(t *testing.T) {
	svc := NewMaintenanceService(&mockPruner{}, &mockPruner{}, fixedClock{now: pollerNow}, nil)

	if _, err := svc.Execute(context.Background(), MaintenancePayload{Task: "sync_providers"}); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestExecute_PrunerErrorPropagates(t *testing.T) {
	history := &mockPruner{err: errors.New("db down")}
	svc := NewMaintenanceService(history, &mockPruner{}, fixedClock{now: pollerNow}, nil)

	if _, err := svc.Execute(context.Background(), MaintenancePayload{Task: TaskPruneHistory}); err == nil {
		t.Fatal("expected error from failing pruner")
	}
}
