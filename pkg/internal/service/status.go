package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/chunkvault/pkg/internal/model"
	"github.com/yeisme/chunkvault/pkg/internal/store"
	"github.com/yeisme/chunkvault/pkg/rule"
	"github.com/yeisme/chunkvault/pkg/tracing"
)

// ChunkSummary 分片进度统计.
type ChunkSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
}

// UploadStatus 上传状态查询结果.
type UploadStatus struct {
	File   *model.FileMetadata `json:"file"`
	Chunks ChunkSummary        `json:"chunks"`
}

// Status 查询文件元数据与分片进度.
func (s *UploadService) Status(ctx context.Context, fileID string) (res *UploadStatus, err error) {
	ctx, span := tracing.StartSpan(ctx, "upload.status")
	defer func() { tracing.EndSpan(span, err) }()

	if fileID == "" {
		return nil, invalid("file_id is required")
	}

	file, err := s.meta.GetFile(ctx, fileID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}

	if err != nil {
		return nil, err
	}

	chunks, err := s.meta.ListChunks(ctx, fileID)
	if err != nil {
		return nil, err
	}

	summary := ChunkSummary{Total: len(chunks)}
	for _, c := range chunks {
		switch c.Status {
		case model.ChunkStatusCompleted:
			summary.Completed++
		case model.ChunkStatusFailed:
			summary.Failed++
		default:
			summary.Pending++
		}
	}

	return &UploadStatus{File: file, Chunks: summary}, nil
}

// DownloadURL 为对象键生成限时下载 URL.
func (s *UploadService) DownloadURL(ctx context.Context, objectKey string) (url string, err error) {
	ctx, span := tracing.StartSpan(ctx, "upload.download_url")
	defer func() { tracing.EndSpan(span, err) }()

	if err := rule.ValidateVar(objectKey, "objectkey"); err != nil {
		return "", invalid("s3_key: %v", err)
	}

	return s.objects.PresignGetObject(ctx, s.objects.Bucket(), objectKey, s.cfg.DownloadExpiry)
}

// staleBatch 单次扫描的上限.
const staleBatch = 500

// ExpireStale 把创建时间早于会话 TTL 仍在 UPLOADING 的文件标记为 FAILED，返回标记数量.
// 不触碰对象存储，残留的分段上传交给存储桶生命周期规则处理.
func (s *UploadService) ExpireStale(ctx context.Context) (int, error) {
	before := s.now().Add(-s.cfg.SessionTTL)

	marked := 0

	for {
		files, err := s.meta.ListStale(ctx, before, staleBatch)
		if err != nil {
			return marked, err
		}

		for _, f := range files {
			ok, err := s.meta.MarkFailed(ctx, f.FileID)
			if err != nil {
				return marked, err
			}

			if ok {
				marked++

				s.logger.Info().
					Str("file_id", f.FileID).
					Str("object_key", f.ObjectKey).
					Dur("age", s.now().Sub(f.CreatedAt).Round(time.Second)).
					Msg("stale upload marked as failed")
			}
		}

		if len(files) < staleBatch {
			return marked, nil
		}
	}
}
