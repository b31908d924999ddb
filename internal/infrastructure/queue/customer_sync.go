package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/config"
)

// CustomerSyncMessage carries a buyer identity captured during checkout to
// downstream consumers (CRM, analytics). Fire-and-forget: a failed publish is
// logged and never fails the checkout.
type CustomerSyncMessage struct {
	MerchantID string `json:"merchant_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Document   string `json:"document,omitempty"`
	Source     string `json:"source"`
	OccurredAt string `json:"occurred_at"`
}

// CustomerSyncPublisher publishes customer sync messages
type CustomerSyncPublisher interface {
	PublishCustomerSync(ctx context.Context, msg *CustomerSyncMessage) error
}

// SQSPublisher publishes customer sync messages to an SQS queue
type SQSPublisher struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
}

// NewSQSPublisher creates an SQS publisher. Credentials come from the default
// AWS provider chain.
func NewSQSPublisher(ctx context.Context, cfg config.QueueConfig, logger *zap.Logger) (*SQSPublisher, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("SQS publisher created",
		zap.String("queue_url", cfg.CustomerSyncURL),
		zap.String("region", cfg.Region))

	return &SQSPublisher{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: cfg.CustomerSyncURL,
		logger:   logger,
	}, nil
}

// PublishCustomerSync sends one customer sync message
func (p *SQSPublisher) PublishCustomerSync(ctx context.Context, msg *CustomerSyncMessage) error {
	if msg.OccurredAt == "" {
		msg.OccurredAt = time.Now().Format(time.RFC3339)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal customer sync message: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		p.logger.Error("Failed to publish customer sync message",
			zap.String("merchant_id", msg.MerchantID),
			zap.Error(err))
		return fmt.Errorf("failed to publish customer sync message: %w", err)
	}

	return nil
}

// NopPublisher is the in-process fallback used when no queue is configured.
// Messages are logged and dropped; the local customer index is already
// written synchronously during checkout.
type NopPublisher struct {
	logger *zap.Logger
}

// NewNopPublisher creates the fallback publisher
func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

// PublishCustomerSync logs the message and drops it
func (p *NopPublisher) PublishCustomerSync(ctx context.Context, msg *CustomerSyncMessage) error {
	p.logger.Debug("Customer sync queue not configured, dropping message",
		zap.String("merchant_id", msg.MerchantID),
		zap.String("email", msg.Email))
	return nil
}
