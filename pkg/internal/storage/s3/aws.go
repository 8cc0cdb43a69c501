package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/yeisme/chunkvault/pkg/configs"
	nlog "github.com/yeisme/chunkvault/pkg/log"
)

// AWSStore 基于 aws-sdk-go-v2 的对象存储实现，也可指向兼容 S3 的端点.
type AWSStore struct {
	client  *awss3.Client
	presign *awss3.PresignClient
	bucket  string
	region  string
}

// LoadAWSConfig 加载 AWS 配置，提供了访问密钥时使用静态凭证，否则走默认凭证链.
func LoadAWSConfig(ctx context.Context, region, accessKeyID, secretKey string) (aws.Config, error) {
	if region == "" {
		return aws.Config{}, fmt.Errorf("region must not be empty")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretKey != "" {
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return cfg, nil
}

// NewAWS 创建 AWS S3 客户端.
func NewAWS(ctx context.Context, cfg *configs.S3Config) (*AWSStore, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, err
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			host, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)

			scheme := "http://"
			if secure {
				scheme = "https://"
			}

			o.BaseEndpoint = aws.String(scheme + host)
		}

		o.UsePathStyle = cfg.UsePathStyle
	})

	return &AWSStore{
		client:  client,
		presign: awss3.NewPresignClient(client),
		bucket:  cfg.BucketName,
		region:  cfg.Region,
	}, nil
}

// Bucket 默认存储桶.
func (a *AWSStore) Bucket() string {
	return a.bucket
}

// NewMultipartUpload 创建分段上传.
func (a *AWSStore) NewMultipartUpload(ctx context.Context, bucket, key, contentType string) (string, error) {
	in := &awss3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	out, err := a.client.CreateMultipartUpload(ctx, in)
	if err != nil {
		return "", fmt.Errorf("new multipart upload %s: %w", key, err)
	}

	return aws.ToString(out.UploadId), nil
}

// PresignUploadPart 生成分片 PUT URL.
func (a *AWSStore) PresignUploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int,
	expiry time.Duration,
) (string, error) {
	req, err := a.presign.PresignUploadPart(ctx, &awss3.UploadPartInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(int32(partNumber)),
	}, awss3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign part %d of %s: %w", partNumber, key, err)
	}

	return req.URL, nil
}

// CompleteMultipartUpload 合并分片.
func (a *AWSStore) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string,
	parts []CompletedPart,
) (string, error) {
	cps := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		cps = append(cps, types.CompletedPart{
			PartNumber: aws.Int32(int32(p.PartNumber)),
			ETag:       aws.String(p.ETag),
		})
	}

	out, err := a.client.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: cps},
	})
	if err != nil {
		if isAWSNoSuchUpload(err) {
			return "", fmt.Errorf("%w: %s", ErrNoSuchUpload, uploadID)
		}

		return "", fmt.Errorf("complete multipart upload %s: %w", key, err)
	}

	return aws.ToString(out.ETag), nil
}

// AbortMultipartUpload 中止分段上传.
func (a *AWSStore) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	_, err := a.client.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err == nil {
		return nil
	}

	if isAWSNoSuchUpload(err) {
		return fmt.Errorf("%w: %s", ErrNoSuchUpload, uploadID)
	}

	return fmt.Errorf("abort multipart upload %s: %w", key, err)
}

// PresignGetObject 生成下载 URL.
func (a *AWSStore) PresignGetObject(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	req, err := a.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}

	return req.URL, nil
}

// EnsureBucket 存储桶不存在时创建.
func (a *AWSStore) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := a.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}

	in := &awss3.CreateBucketInput{Bucket: aws.String(bucket)}
	if a.region != "" && a.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(a.region),
		}
	}

	if _, err := a.client.CreateBucket(ctx, in); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	nlog.Logger().Info().Str("bucket", bucket).Msg("bucket created")

	return nil
}

// HealthCheck 通过 HeadBucket 验证连接.
func (a *AWSStore) HealthCheck(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	return err
}

// Close 无实际操作，接口兼容.
func (a *AWSStore) Close() error {
	return nil
}

func isAWSNoSuchUpload(err error) bool {
	var nsu *types.NoSuchUpload
	if errors.As(err, &nsu) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NoSuchUpload"
	}

	return false
}
