// Package main is the entry point for the ElderSafe API server.
//
// It loads configuration, wires the environmental data collector, the risk
// engine, the PostgreSQL-backed history repository and the HTTP chassis
// (middleware, routing, health checks), then serves requests until a
// shutdown signal arrives.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/jackc/pgx/v5/pgxpool"

	"eldersafe/internal/api/handlers"
	"eldersafe/internal/config"
	"eldersafe/internal/core"
	"eldersafe/internal/db"
	"eldersafe/internal/envdata"
	"eldersafe/internal/external"
	"eldersafe/internal/metrics"
	"eldersafe/internal/risk"
	"eldersafe/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	// SSM resolution is bypassed when APP_ENV=local, so the provider is
	// only constructed for deployed environments.
	var provider config.SecretProvider
	if env := os.Getenv("APP_ENV"); env != "" && env != "local" {
		provider = config.NewSSMProvider(os.Getenv("AWS_REGION"))
	}

	cfg, err := config.LoadConfig(provider)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("eldersafe API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	clock := types.RealClock{}

	// Upstream provider clients and the snapshot collector. In local/test
	// mode the registry serves deterministic stub data so the API runs
	// without provider credentials.
	registry := external.NewClientRegistry(cfg, logger)
	collector := envdata.NewCollector(registry, envdata.CollectorConfig{
		CollectTimeout: cfg.EnvData.CollectTimeout,
		CacheTTL:       cfg.EnvData.CacheTTL,
	}, clock, logger)

	engine := risk.NewEngine(clock)

	// Database pool for advisory history.
	pool, err := newPool(context.Background(), cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	historyRepo := db.NewAssessmentRepository(pool)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		pool.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.RegisterCloser(func() error {
		pool.Close()
		return nil
	})

	if cfg.Observability.EnableMetrics {
		cwClient, err := newCloudWatchClient(context.Background(), cfg.AWS)
		if err != nil {
			return fmt.Errorf("creating cloudwatch client: %w", err)
		}
		srv.Metrics = metrics.NewCloudWatchCollector(cwClient, cfg.Observability.MetricNamespace, logger)
	}

	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{
		ProbeName: "database",
		Fn:        pool.Ping,
	})

	riskHandler := handlers.NewRiskHandler(collector, engine, historyRepo, cfg, clock, logger)
	envHandler := handlers.NewEnvironmentHandler(collector, cfg, clock, logger)
	dashHandler := handlers.NewDashboardHandler(collector, engine, cfg, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		riskHandler.RegisterRoutes,
		envHandler.RegisterRoutes,
		dashHandler.RegisterRoutes,
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// newPool builds a pgx connection pool with the configured tuning parameters.
// The pool connects lazily; the /health database probe reports connectivity.
func newPool(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dbCfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	poolCfg.MaxConns = int32(dbCfg.MaxConns)
	poolCfg.MinConns = int32(dbCfg.MinConns)
	poolCfg.MaxConnLifetime = dbCfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = dbCfg.HealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = dbCfg.AcquireTimeout

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// newCloudWatchClient builds a CloudWatch client, honoring the LocalStack
// endpoint override when configured.
func newCloudWatchClient(ctx context.Context, awsCfg config.AWSConfig) (*cloudwatch.Client, error) {
	sdkCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsCfg.Region))
	if err != nil {
		return nil, err
	}
	return cloudwatch.NewFromConfig(sdkCfg, func(o *cloudwatch.Options) {
		if awsCfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(awsCfg.EndpointURL)
		}
	}), nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with a 10-second deadline.
	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Release server resources (database pool).
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
