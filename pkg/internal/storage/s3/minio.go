package s3

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/chunkvault/pkg/configs"
	nlog "github.com/yeisme/chunkvault/pkg/log"
)

// MinioStore 基于 minio-go 的对象存储实现，分段操作使用 Core API.
type MinioStore struct {
	core   *minio.Core
	bucket string
	region string
}

// NewMinio 创建 MinIO 客户端.
func NewMinio(cfg *configs.S3Config) (*MinioStore, error) {
	endpoint, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)

	lookup := minio.BucketLookupAuto
	if cfg.UsePathStyle {
		lookup = minio.BucketLookupPath
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("chunkvault", configs.AppVersion)

	return &MinioStore{
		core:   &minio.Core{Client: cli},
		bucket: cfg.BucketName,
		region: cfg.Region,
	}, nil
}

// Bucket 默认存储桶.
func (m *MinioStore) Bucket() string {
	return m.bucket
}

// NewMultipartUpload 创建分段上传.
func (m *MinioStore) NewMultipartUpload(ctx context.Context, bucket, key, contentType string) (string, error) {
	uploadID, err := m.core.NewMultipartUpload(ctx, bucket, key, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("new multipart upload %s: %w", key, err)
	}

	return uploadID, nil
}

// PresignUploadPart 生成分片 PUT URL.
func (m *MinioStore) PresignUploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int,
	expiry time.Duration,
) (string, error) {
	params := url.Values{}
	params.Set("partNumber", strconv.Itoa(partNumber))
	params.Set("uploadId", uploadID)

	u, err := m.core.Presign(ctx, http.MethodPut, bucket, key, expiry, params)
	if err != nil {
		return "", fmt.Errorf("presign part %d of %s: %w", partNumber, key, err)
	}

	return u.String(), nil
}

// CompleteMultipartUpload 合并分片.
func (m *MinioStore) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string,
	parts []CompletedPart,
) (string, error) {
	cps := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		cps = append(cps, minio.CompletePart{PartNumber: p.PartNumber, ETag: p.ETag})
	}

	info, err := m.core.CompleteMultipartUpload(ctx, bucket, key, uploadID, cps, minio.PutObjectOptions{})
	if err != nil {
		if isMinioNoSuchUpload(err) {
			return "", fmt.Errorf("%w: %s", ErrNoSuchUpload, uploadID)
		}

		return "", fmt.Errorf("complete multipart upload %s: %w", key, err)
	}

	return info.ETag, nil
}

// AbortMultipartUpload 中止分段上传.
func (m *MinioStore) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	err := m.core.AbortMultipartUpload(ctx, bucket, key, uploadID)
	if err == nil {
		return nil
	}

	if isMinioNoSuchUpload(err) {
		return fmt.Errorf("%w: %s", ErrNoSuchUpload, uploadID)
	}

	return fmt.Errorf("abort multipart upload %s: %w", key, err)
}

// PresignGetObject 生成下载 URL.
func (m *MinioStore) PresignGetObject(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := m.core.PresignedGetObject(ctx, bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}

	return u.String(), nil
}

// EnsureBucket 存储桶不存在时创建.
func (m *MinioStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := m.core.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}

	if exists {
		return nil
	}

	if err := m.core.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	nlog.Logger().Info().Str("bucket", bucket).Msg("bucket created")

	return nil
}

// HealthCheck 通过检查默认桶验证连接.
func (m *MinioStore) HealthCheck(ctx context.Context) error {
	_, err := m.core.BucketExists(ctx, m.bucket)
	return err
}

// Close 无实际操作，接口兼容.
func (m *MinioStore) Close() error {
	return nil
}

func isMinioNoSuchUpload(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchUpload"
}
