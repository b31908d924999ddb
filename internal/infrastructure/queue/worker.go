package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/config"
	"github.com/clinicpay/payment-service/internal/domain/model"
	"github.com/clinicpay/payment-service/internal/domain/repository"
)

// CustomerSyncWorker consumes customer sync messages published by other
// services and folds them into the unified customer index. Incomplete
// identities (missing name, email or phone) are dropped.
type CustomerSyncWorker struct {
	client       *sqs.Client
	queueURL     string
	customerRepo repository.CustomerRepository
	logger       *zap.Logger
}

// NewCustomerSyncWorker creates a worker bound to the customer sync queue
func NewCustomerSyncWorker(ctx context.Context, cfg config.QueueConfig, customerRepo repository.CustomerRepository, logger *zap.Logger) (*CustomerSyncWorker, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &CustomerSyncWorker{
		client:       sqs.NewFromConfig(awsCfg),
		queueURL:     cfg.CustomerSyncURL,
		customerRepo: customerRepo,
		logger:       logger,
	}, nil
}

// Run polls the queue until the context is canceled. Long polling keeps the
// request count low; receive errors back off before retrying.
func (w *CustomerSyncWorker) Run(ctx context.Context) {
	w.logger.Info("Customer sync worker started",
		zap.String("queue_url", w.queueURL))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Customer sync worker stopped")
			return
		default:
		}

		output, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(w.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Failed to receive customer sync messages", zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}

		for _, message := range output.Messages {
			if err := w.handleMessage(ctx, aws.ToString(message.Body)); err != nil {
				w.logger.Error("Failed to process customer sync message",
					zap.String("message_id", aws.ToString(message.MessageId)),
					zap.Error(err))
				// Leave the message for redelivery
				continue
			}

			if _, err := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(w.queueURL),
				ReceiptHandle: message.ReceiptHandle,
			}); err != nil {
				w.logger.Warn("Failed to delete processed message",
					zap.String("message_id", aws.ToString(message.MessageId)),
					zap.Error(err))
			}
		}
	}
}

func (w *CustomerSyncWorker) handleMessage(ctx context.Context, body string) error {
	var msg CustomerSyncMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("malformed customer sync message: %w", err)
	}

	merchantID, err := uuid.Parse(msg.MerchantID)
	if err != nil {
		return fmt.Errorf("invalid merchant id %q: %w", msg.MerchantID, err)
	}

	customer := &model.Customer{
		MerchantID: merchantID,
		Name:       msg.Name,
		Email:      msg.Email,
		Phone:      msg.Phone,
		Document:   msg.Document,
	}
	if !customer.IsComplete() {
		w.logger.Debug("Dropping incomplete customer identity",
			zap.String("merchant_id", msg.MerchantID),
			zap.String("source", msg.Source))
		return nil
	}

	if _, err := w.customerRepo.Upsert(ctx, customer); err != nil {
		return err
	}

	return nil
}
