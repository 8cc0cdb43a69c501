package reconciler

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/storage/s3"
)

// sqsMaxMessages 单次 ReceiveMessage 上限.
const sqsMaxMessages = 10

// SQSAPI SQSSource 用到的客户端方法.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSSource 长轮询 SQS 队列，处理失败的消息依赖可见性超时重投.
type SQSSource struct {
	client            SQSAPI
	queueURL          string
	waitTimeSeconds   int32
	visibilityTimeout int32
}

// NewSQSClient 使用对象存储的区域与凭证创建 SQS 客户端.
func NewSQSClient(ctx context.Context, cfg *configs.ReconcilerConfig, s3cfg *configs.S3Config) (*sqs.Client, error) {
	awsCfg, err := s3.LoadAWSConfig(ctx, s3cfg.Region, s3cfg.AccessKeyID, s3cfg.SecretAccessKey)
	if err != nil {
		return nil, err
	}

	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.SQSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SQSEndpoint)
		}
	}), nil
}

// NewSQSSource 创建 SQS 来源.
func NewSQSSource(client SQSAPI, cfg *configs.ReconcilerConfig) (*SQSSource, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("reconciler.queue_url is required for sqs source")
	}

	return &SQSSource{
		client:            client,
		queueURL:          cfg.QueueURL,
		waitTimeSeconds:   cfg.WaitTimeSeconds,
		visibilityTimeout: cfg.VisibilityTimeout,
	}, nil
}

// Receive 长轮询最多 limit 条消息.
func (s *SQSSource) Receive(ctx context.Context, limit int) ([]Message, error) {
	out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: int32(min(max(limit, 1), sqsMaxMessages)),
		WaitTimeSeconds:     s.waitTimeSeconds,
		VisibilityTimeout:   s.visibilityTimeout,
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			ID:      aws.ToString(m.MessageId),
			Body:    []byte(aws.ToString(m.Body)),
			Receipt: aws.ToString(m.ReceiptHandle),
		})
	}

	return msgs, nil
}

// Delete 按 receipt handle 删除消息.
func (s *SQSSource) Delete(ctx context.Context, msg Message) error {
	handle, _ := msg.Receipt.(string)
	if handle == "" {
		return fmt.Errorf("message %s has no receipt handle", msg.ID)
	}

	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: aws.String(handle),
	})

	return err
}
