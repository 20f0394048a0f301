// Package queue provides the SQS producer that dispatches health alert
// envelopes to downstream notification workers.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"eldersafe/internal/config"
	"eldersafe/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AlertPublisher serializes AlertMessage envelopes and sends them to the
// alert queue. Consumers (SMS/voice notification workers) are out of process;
// the publisher's only contract is the JSON envelope and the severity
// message attribute used for consumer-side filtering.
type AlertPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewAlertPublisher creates an AlertPublisher reading the queue URL from
// AWSConfig.
func NewAlertPublisher(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *AlertPublisher {
	return &AlertPublisher{
		client:   client,
		queueURL: awsCfg.AlertQueueURL,
		logger:   logger,
	}
}

// Publish enqueues the given alerts for one location. A TraceID is generated
// when the message does not carry one, and EnqueuedAt is always stamped here
// so consumers measure queue latency against the producer clock. Messages
// with no alerts are dropped silently; an empty envelope has no consumer.
func (p *AlertPublisher) Publish(ctx context.Context, msg types.AlertMessage) error {
	if len(msg.Alerts) == 0 {
		return nil
	}

	if msg.TraceID == "" {
		msg.TraceID = uuid.NewString()
	}
	msg.EnqueuedAt = time.Now().UTC()

	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalQueue,
			"failed to marshal alert message",
			err,
		)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"severity": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(maxSeverity(msg.Alerts))),
			},
			"city": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.City),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(
			types.ErrCodeInternalQueue,
			"failed to send alert message",
			err,
		)
	}

	p.logger.InfoContext(ctx, "alert message published",
		"queue_url", p.queueURL,
		"trace_id", msg.TraceID,
		"city", msg.City,
		"alert_count", len(msg.Alerts),
		"severity", string(maxSeverity(msg.Alerts)),
	)

	return nil
}

// maxSeverity returns the highest severity among the alerts, used as the
// consumer-side filter attribute.
func maxSeverity(alerts []types.HealthAlert) types.RiskLevel {
	max := types.RiskLow
	for _, a := range alerts {
		switch a.Severity {
		case types.RiskHigh:
			return types.RiskHigh
		case types.RiskModerate:
			max = types.RiskModerate
		}
	}
	return max
}
