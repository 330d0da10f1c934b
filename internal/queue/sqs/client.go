package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	envConfig "github.com/DhruvAgrawal511/xeno-backend/internal/config"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
)

// MessageSender is the subset of the SQS API used to publish dead letters
type MessageSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// DeadLetterSink publishes entries that exhausted their deliveries to an SQS queue
type DeadLetterSink struct {
	client   MessageSender
	queueURL string
	log      *zap.Logger
}

var _ queue.DeadLetterSink = (*DeadLetterSink)(nil)

// NewClient creates an SQS client, pointing it at a local endpoint such as
// ElasticMQ when one is configured
func NewClient(ctx context.Context, SQSConfig envConfig.SQS, log *zap.Logger) (*sqs.Client, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(SQSConfig.Region),
	}

	var clientOpts []func(*sqs.Options)

	if SQSConfig.Endpoint != "" {
		log.Info("Configuring SQS for local development",
			zap.String("endpoint", SQSConfig.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(SQSConfig.Endpoint)
		})
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("SQS client created",
		zap.String("region", SQSConfig.Region),
		zap.String("queue_url", SQSConfig.QueueURL))

	return sqs.NewFromConfig(cfg, clientOpts...), nil
}

func NewDeadLetterSink(client MessageSender, queueURL string, log *zap.Logger) *DeadLetterSink {
	return &DeadLetterSink{client: client, queueURL: queueURL, log: log}
}

// SendDeadLetter publishes the letter as a JSON message tagged with its source
// stream and event
func (s *DeadLetterSink) SendDeadLetter(ctx context.Context, letter queue.DeadLetter) error {
	body, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: letterAttributes(letter),
	})
	if err != nil {
		s.log.Error("Failed to send dead letter to SQS",
			zap.String("stream", letter.Stream),
			zap.String("entry_id", letter.EntryID),
			zap.Error(err))
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	s.log.Warn("Entry dead-lettered to SQS",
		zap.String("stream", letter.Stream),
		zap.String("entry_id", letter.EntryID),
		zap.Int64("deliveries", letter.Deliveries))

	return nil
}

// letterAttributes skips empty values, which SQS rejects
func letterAttributes(letter queue.DeadLetter) map[string]types.MessageAttributeValue {
	attrs := make(map[string]types.MessageAttributeValue, 2)
	for name, value := range map[string]string{"Stream": letter.Stream, "Event": letter.Event} {
		if value == "" {
			continue
		}
		attrs[name] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(value),
		}
	}
	return attrs
}
