package main

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"eldersafe/internal/envdata"
	"eldersafe/internal/scheduler"
	"eldersafe/internal/types"
)

type staticCollector struct{}

func (staticCollector) Collect(_ context.Context, _ envdata.CollectParams) (types.EnvironmentSnapshot, types.DataQualityContext) {
	return types.EnvironmentSnapshot{AQI: 42, Temperature: 27}, types.DataQualityContext{}
}

type staticAssessor struct{}

func (staticAssessor) AssessAll(_ types.EnvironmentSnapshot, _ types.PopulationContext) types.SafetyIndex {
	return types.SafetyIndex{OverallLevel: types.RiskLow, OverallScore: 10}
}

func (staticAssessor) Alerts(_ types.SafetyIndex) []types.HealthAlert { return nil }

func testPoller() *scheduler.DataPoller {
	return scheduler.NewDataPoller(scheduler.DataPollerConfig{
		Collector: staticCollector{},
		Assessor:  staticAssessor{},
		Targets:   []scheduler.PollTarget{{City: "Pune", Latitude: 18.5204, Longitude: 73.8567}},
	})
}

func TestNewHandler_Success(t *testing.T) {
	handler := newHandler(testPoller(), slog.Default())

	result, err := handler(context.Background(), scheduler.DataPollerInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "1 polled") {
		t.Errorf("unexpected result string: %q", result)
	}
}

func TestNewHandler_NoTargetsError(t *testing.T) {
	poller := scheduler.NewDataPoller(scheduler.DataPollerConfig{
		Collector: staticCollector{},
		Assessor:  staticAssessor{},
	})
	handler := newHandler(poller, slog.Default())

	if _, err := handler(context.Background(), scheduler.DataPollerInput{}); err == nil {
		t.Fatal("expected error with no targets")
	}
}

func TestIsLambdaEnvironment(t *testing.T) {
	t.Setenv("AWS_LAMBDA_RUNTIME_API", "127.0.0.1:9001")
	if !isLambdaEnvironment() {
		t.Error("expected Lambda environment with runtime API set")
	}
}
