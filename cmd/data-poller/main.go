// Package main is the entrypoint for the Data Poller Lambda function.
//
// The Data Poller runs every 15 minutes via an EventBridge rule. It collects
// a fresh environment snapshot for each monitored city, stores the snapshot
// and the resulting risk assessment, and publishes proactive health alerts
// to the alert queue for caregiver notification.
//
// This file handles dependency wiring (cold start) and delegates the poll
// cycle to internal/scheduler (DataPoller.Poll). Outside the Lambda runtime
// it runs a single poll cycle and exits, for local development against
// LocalStack.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"eldersafe/internal/config"
	"eldersafe/internal/db"
	"eldersafe/internal/envdata"
	"eldersafe/internal/external"
	"eldersafe/internal/metrics"
	"eldersafe/internal/queue"
	"eldersafe/internal/risk"
	"eldersafe/internal/scheduler"
	"eldersafe/internal/types"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("data poller initializing (cold start)")

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

	poller, cleanup, err := buildPoller(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire data poller", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	handler := newHandler(poller, logger)

	if isLambdaEnvironment() {
		lambda.Start(handler)
		return
	}

	// Local mode: one poll cycle, then exit.
	result, err := handler(ctx, scheduler.DataPollerInput{})
	if err != nil {
		logger.Error("poll cycle failed", "error", err)
		os.Exit(1)
	}
	logger.Info("poll cycle finished", "result", result)
}

// buildPoller wires the collector, engine, repositories, and queue publisher
// into a DataPoller. The returned cleanup closes the database pool.
func buildPoller(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*scheduler.DataPoller, func(), error) {
	sdkCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, nil, fmt.Errorf("loading AWS SDK config: %w", err)
	}

	registry := external.NewClientRegistry(cfg, logger)
	collector := envdata.NewCollector(registry, envdata.CollectorConfig{
		CollectTimeout: cfg.EnvData.CollectTimeout,
		CacheTTL:       cfg.EnvData.CacheTTL,
	}, types.RealClock{}, logger)

	pool, err := pgxpool.New(ctx, cfg.Database.URL.Unmask())
	if err != nil {
		return nil, nil, fmt.Errorf("creating database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	pollerCfg := scheduler.DataPollerConfig{
		Collector: collector,
		Assessor:  risk.NewEngine(types.RealClock{}),
		Snapshots: db.NewSnapshotRepository(pool),
		Targets: []scheduler.PollTarget{{
			City:      cfg.Location.DefaultCity,
			Latitude:  cfg.Location.DefaultLatitude,
			Longitude: cfg.Location.DefaultLongitude,
		}},
		Logger: logger,
	}

	if cfg.Feature.EnableHistory {
		pollerCfg.History = db.NewAssessmentRepository(pool)
	}

	if cfg.Feature.EnableAlertQueue {
		sqsClient := sqs.NewFromConfig(sdkCfg, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		pollerCfg.Alerts = queue.NewAlertPublisher(sqsClient, cfg.AWS, logger)
	}

	if cfg.Observability.EnableMetrics {
		cwClient := cloudwatch.NewFromConfig(sdkCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		pollerCfg.Metrics = metrics.NewCloudWatchCollector(cwClient, cfg.Observability.MetricNamespace, logger)
	}

	return scheduler.NewDataPoller(pollerCfg), pool.Close, nil
}

// newHandler wraps DataPoller.Poll with invocation logging so EventBridge
// runs and manual invocations produce the same trace shape.
func newHandler(poller *scheduler.DataPoller, logger *slog.Logger) func(ctx context.Context, input scheduler.DataPollerInput) (string, error) {
	return func(ctx context.Context, input scheduler.DataPollerInput) (string, error) {
		logger.InfoContext(ctx, "data poller invoked",
			"target_override", len(input.Targets) > 0,
			"dry_run", input.DryRun,
		)

		result, err := poller.Poll(ctx, input)
		if err != nil {
			return "", fmt.Errorf("data poller failed: %w", err)
		}

		return fmt.Sprintf("poll complete: %d polled, %d alerts published, %d failures",
			result.Polled, result.AlertsPublished, result.Failures), nil
	}
}

// isLambdaEnvironment returns true if the process runs inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}
