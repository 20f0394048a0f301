// Package metrics publishes operational metrics to AWS CloudWatch. The
// collector is best-effort: emission failures are logged and swallowed so a
// CloudWatch outage never surfaces into a request path.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric and dimension names, shared with dashboards and alarms.
const (
	MetricRequestCount   = "RequestCount"
	MetricRequestLatency = "RequestLatency"
	MetricProviderFetch  = "ProviderFetch"

	DimRoute    = "Route"
	DimStatus   = "StatusClass"
	DimProvider = "Provider"
	DimOutcome  = "Outcome"
)

// FetchOutcome classifies a provider fetch for the ProviderFetch metric.
type FetchOutcome string

const (
	FetchSuccess FetchOutcome = "success"
	FetchFailure FetchOutcome = "failure"
	FetchCached  FetchOutcome = "cached"
)

// MetricsCollector is implemented by the CloudWatch collector and by the
// no-op collector used in tests and local runs.
type MetricsCollector interface {
	RecordRequest(ctx context.Context, route string, status int, latency time.Duration)
	RecordProviderFetch(ctx context.Context, provider string, outcome FetchOutcome)
}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var _ MetricsCollector = (*CloudWatchCollector)(nil)

// CloudWatchCollector emits request and provider metrics via PutMetricData.
type CloudWatchCollector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchCollector creates a collector publishing to the given namespace.
func NewCloudWatchCollector(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchCollector{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRequest emits RequestCount and RequestLatency for one served request.
// Status is collapsed to its class (2xx/4xx/5xx) to keep dimension
// cardinality bounded.
func (c *CloudWatchCollector) RecordRequest(ctx context.Context, route string, status int, latency time.Duration) {
	dims := []cwtypes.Dimension{
		{
			Name:  aws.String(DimRoute),
			Value: aws.String(route),
		},
		{
			Name:  aws.String(DimStatus),
			Value: aws.String(statusClass(status)),
		},
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(c.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(MetricRequestCount),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
			},
			{
				MetricName: aws.String(MetricRequestLatency),
				Value:      aws.Float64(float64(latency.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: dims,
			},
		},
	}

	if _, err := c.client.PutMetricData(ctx, input); err != nil {
		c.logger.ErrorContext(ctx, "failed to record request metrics",
			"error", err.Error(),
			"route", route,
			"status", status,
		)
	}
}

// RecordProviderFetch emits one ProviderFetch datum with Provider and
// Outcome dimensions.
func (c *CloudWatchCollector) RecordProviderFetch(ctx context.Context, provider string, outcome FetchOutcome) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(c.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(MetricProviderFetch),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(DimProvider),
						Value: aws.String(provider),
					},
					{
						Name:  aws.String(DimOutcome),
						Value: aws.String(string(outcome)),
					},
				},
			},
		},
	}

	if _, err := c.client.PutMetricData(ctx, input); err != nil {
		c.logger.ErrorContext(ctx, "failed to record provider fetch metric",
			"error", err.Error(),
			"provider", provider,
			"outcome", string(outcome),
		)
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var _ MetricsCollector = (*NoopCollector)(nil)

// NoopCollector discards all metrics. Used in local development and tests.
type NoopCollector struct{}

func (NoopCollector) RecordRequest(context.Context, string, int, time.Duration) {}
func (NoopCollector) RecordProviderFetch(context.Context, string, FetchOutcome) {}
