// Package main is the entrypoint for the Maintenance Lambda function.
//
// The Lambda acts as a maintenance multiplexer: EventBridge rules send JSON
// payloads naming a TaskType, and the handler routes execution to the
// matching retention job in internal/scheduler. Consolidating low-frequency
// maintenance into one Lambda reduces cold starts and infrastructure sprawl.
//
// Outside the Lambda runtime the task name is taken from the first command
// line argument, for local runs against LocalStack:
//
//	maintenance prune_history
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"

	"eldersafe/internal/config"
	"eldersafe/internal/db"
	"eldersafe/internal/scheduler"
	"eldersafe/internal/types"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("maintenance lambda initializing (cold start)")

	var provider config.SecretProvider
	if env := os.Getenv("APP_ENV"); env != "" && env != "local" {
		provider = config.NewSSMProvider(os.Getenv("AWS_REGION"))
	}

	cfg, err := config.LoadConfig(provider)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.URL.Unmask())
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	svc := scheduler.NewMaintenanceService(
		db.NewAssessmentRepository(pool),
		db.NewSnapshotRepository(pool),
		types.RealClock{},
		logger,
	)

	handler := newHandler(svc, logger)

	if isLambdaEnvironment() {
		lambda.Start(handler)
		return
	}

	// Local mode: task name from the command line.
	if len(os.Args) < 2 {
		logger.Error("usage: maintenance <task>")
		os.Exit(1)
	}
	result, err := handler(ctx, scheduler.MaintenancePayload{
		Task: scheduler.TaskType(os.Args[1]),
	})
	if err != nil {
		logger.Error("maintenance task failed", "error", err)
		os.Exit(1)
	}
	logger.Info("maintenance task finished", "result", result)
}

// newHandler wraps MaintenanceService.Execute with invocation logging.
func newHandler(svc *scheduler.MaintenanceService, logger *slog.Logger) func(ctx context.Context, payload scheduler.MaintenancePayload) (string, error) {
	return func(ctx context.Context, payload scheduler.MaintenancePayload) (string, error) {
		logger.InfoContext(ctx, "maintenance task invoked",
			"task", payload.Task,
			"reference_time", payload.ReferenceTime,
		)

		result, err := svc.Execute(ctx, payload)
		if err != nil {
			return "", fmt.Errorf("maintenance task %q failed: %w", payload.Task, err)
		}

		return fmt.Sprintf("%s complete: %d rows deleted", result.Task, result.Deleted), nil
	}
}

// isLambdaEnvironment returns true if the process runs inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}
