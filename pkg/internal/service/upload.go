package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/yeisme/chunkvault/pkg/chunk"
	"github.com/yeisme/chunkvault/pkg/internal/model"
	"github.com/yeisme/chunkvault/pkg/internal/storage/s3"
	"github.com/yeisme/chunkvault/pkg/internal/store"
	"github.com/yeisme/chunkvault/pkg/metrics"
	"github.com/yeisme/chunkvault/pkg/queue"
	"github.com/yeisme/chunkvault/pkg/tracing"
)

// InitiateInput initiate 参数.
type InitiateInput struct {
	FileID   string `rule:"required,fileid"`
	FileName string `rule:"required,max=512"`
	MimeType string `rule:"max=255"`
	Size     int64  `rule:"gt=0"`
	OwnerID  string `rule:"max=255"`
}

// InitiateResult initiate 结果，PresignedURLs[i] 对应分片下标 i.
type InitiateResult struct {
	UploadID      string
	ObjectKey     string
	PartSize      int64
	PartCount     int
	PresignedURLs []string
}

// Initiate 打开分段上传，为每个分片签发 PUT URL，写入会话并在一个事务内创建元数据.
// 任一步骤失败都返回 ErrInitFailed，并尽力中止已打开的分段上传.
func (s *UploadService) Initiate(ctx context.Context, in InitiateInput) (res *InitiateResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "upload.initiate")
	defer func() {
		metrics.ObserveUpload("initiate", err)
		tracing.EndSpan(span, err)
	}()

	if err := validate(in); err != nil {
		return nil, err
	}

	if in.Size > s.cfg.MaxFileSize {
		return nil, invalid("file size %d exceeds limit %d", in.Size, s.cfg.MaxFileSize)
	}

	partSize := s.cfg.PartSize

	ranges, err := chunk.Split(in.Size, partSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	bucket := s.objects.Bucket()
	objectKey := s.buildObjectKey(in.OwnerID, in.FileID, in.FileName)
	log := s.logger.With().Str("file_id", in.FileID).Str("object_key", objectKey).Logger()

	uploadID, err := s.objects.NewMultipartUpload(ctx, bucket, objectKey, in.MimeType)
	if err != nil {
		log.Error().Err(err).Msg("open multipart upload failed")
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	// 打开分段上传之后的失败都需要回收
	cleanup := func(cause error) error {
		cctx := context.WithoutCancel(ctx)

		if aerr := s.objects.AbortMultipartUpload(cctx, bucket, objectKey, uploadID); aerr != nil &&
			!errors.Is(aerr, s3.ErrNoSuchUpload) {
			log.Warn().Err(aerr).Str("upload_id", uploadID).Msg("abort nascent multipart upload failed")
		}

		if derr := s.sessions.Delete(cctx, uploadID); derr != nil {
			log.Warn().Err(derr).Str("upload_id", uploadID).Msg("delete session failed")
		}

		return fmt.Errorf("%w: %w", ErrInitFailed, cause)
	}

	urls := make([]string, len(ranges))
	for _, r := range ranges {
		u, err := s.objects.PresignUploadPart(ctx, bucket, objectKey, uploadID, r.PartNumber(), s.cfg.PresignExpiry)
		if err != nil {
			return nil, cleanup(err)
		}

		urls[r.Index] = u
	}

	metrics.PartsPresigned.Add(float64(len(urls)))

	if err := s.sessions.Set(ctx, uploadID, store.UploadSession{Bucket: bucket, ObjectKey: objectKey}, s.cfg.SessionTTL); err != nil {
		return nil, cleanup(err)
	}

	file := &model.FileMetadata{
		FileID:    in.FileID,
		FileName:  in.FileName,
		MimeType:  in.MimeType,
		ObjectKey: objectKey,
		Status:    model.FileStatusUploading,
		OwnerID:   in.OwnerID,
		CreatedAt: s.now(),
	}

	chunks := make([]model.Chunk, len(ranges))
	for i, r := range ranges {
		chunks[i] = model.Chunk{
			FileID:     in.FileID,
			ChunkIndex: r.Index,
			Size:       r.Len(),
			ObjectKey:  objectKey,
			Status:     model.ChunkStatusPending,
		}
	}

	if err := s.meta.CreateFileWithChunks(ctx, file, chunks); err != nil {
		log.Error().Err(err).Msg("create upload metadata failed")
		return nil, cleanup(err)
	}

	log.Info().Str("upload_id", uploadID).Int("parts", len(urls)).Int64("size", in.Size).Msg("upload initiated")

	s.events.UploadInitiated(ctx, queue.UploadInitiatedPayload{
		Object:    queue.ObjectRef{Bucket: bucket, ObjectKey: objectKey, Size: in.Size},
		FileID:    in.FileID,
		UploadID:  uploadID,
		FileName:  in.FileName,
		MimeType:  in.MimeType,
		OwnerID:   in.OwnerID,
		PartCount: len(urls),
		PartSize:  partSize,
	})

	return &InitiateResult{
		UploadID:      uploadID,
		ObjectKey:     objectKey,
		PartSize:      partSize,
		PartCount:     len(urls),
		PresignedURLs: urls,
	}, nil
}

// RecordChunkInput recordChunk 参数，ChunkIndex 从 0 开始.
type RecordChunkInput struct {
	FileID     string `rule:"required,max=64"`
	ChunkIndex int    `rule:"gte=0"`
	Size       int64  `rule:"gte=0"`
	ETag       string `rule:"required,max=128"`
}

// RecordChunk 记录分片的 ETag 并标记为 COMPLETED.
// 相同下标重复记录时后写覆盖；分片不存在返回 ErrNotFound.
func (s *UploadService) RecordChunk(ctx context.Context, in RecordChunkInput) (err error) {
	ctx, span := tracing.StartSpan(ctx, "upload.record_chunk")
	defer func() {
		metrics.ObserveUpload("record_chunk", err)
		tracing.EndSpan(span, err)
	}()

	if err := validate(in); err != nil {
		return err
	}

	err = s.meta.RecordChunk(ctx, in.FileID, in.ChunkIndex, in.Size, in.ETag)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: chunk %d of file %s", ErrNotFound, in.ChunkIndex, in.FileID)
	}

	if err != nil {
		return err
	}

	s.logger.Debug().
		Str("file_id", in.FileID).
		Int("chunk_index", in.ChunkIndex).
		Msg("chunk recorded")

	return nil
}

// CompleteInput complete 参数.
type CompleteInput struct {
	UploadID string             `rule:"required"`
	FileID   string             `rule:"required,max=64"`
	Parts    []s3.CompletedPart `rule:"required,min=1"`
}

// Complete 按客户端提交的分片列表合并对象，成功后删除会话并乐观地标记 UPLOADED.
// 不与 Chunk 表交叉校验，完全信任 parts.
func (s *UploadService) Complete(ctx context.Context, in CompleteInput) (err error) {
	ctx, span := tracing.StartSpan(ctx, "upload.complete")
	defer func() {
		metrics.ObserveUpload("complete", err)
		tracing.EndSpan(span, err)
	}()

	if err := validate(in); err != nil {
		return err
	}

	for _, p := range in.Parts {
		if p.PartNumber < 1 || p.ETag == "" {
			return invalid("part %d: part number must be >= 1 and etag is required", p.PartNumber)
		}
	}

	session, err := s.sessions.Get(ctx, in.UploadID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return fmt.Errorf("%w: %s", ErrSessionExpired, in.UploadID)
	}

	if err != nil {
		return err
	}

	parts := slices.Clone(in.Parts)
	slices.SortFunc(parts, func(a, b s3.CompletedPart) int { return a.PartNumber - b.PartNumber })

	log := s.logger.With().
		Str("upload_id", in.UploadID).
		Str("file_id", in.FileID).
		Str("object_key", session.ObjectKey).
		Logger()

	etag, err := s.objects.CompleteMultipartUpload(ctx, session.Bucket, session.ObjectKey, in.UploadID, parts)
	if errors.Is(err, s3.ErrNoSuchUpload) {
		return fmt.Errorf("%w: multipart upload %s", ErrNotFound, in.UploadID)
	}

	if err != nil {
		log.Error().Err(err).Msg("complete multipart upload failed")
		return err
	}

	if err := s.sessions.Delete(ctx, in.UploadID); err != nil {
		log.Warn().Err(err).Msg("delete session failed, left to expire")
	}

	// 对账器会再次确认，这里失败只记录日志
	updated, err := s.meta.MarkUploaded(ctx, in.FileID, nil)
	if err != nil {
		log.Warn().Err(err).Msg("optimistic status update failed")
	} else if !updated {
		log.Warn().Msg("no uploading metadata to mark as uploaded")
	}

	log.Info().Int("parts", len(parts)).Msg("upload completed")

	s.events.UploadCompleted(ctx, queue.UploadCompletedPayload{
		Object:   queue.ObjectRef{Bucket: session.Bucket, ObjectKey: session.ObjectKey, ETag: etag},
		FileID:   in.FileID,
		UploadID: in.UploadID,
		Parts:    len(parts),
	})

	return nil
}

// AbortInput abort 参数.
type AbortInput struct {
	UploadID string `rule:"required"`
	FileID   string `rule:"required,max=64"`
}

// Abort 按顺序删除会话、删除元数据（级联分片）、中止分段上传.
// 每一步都幂等，已经清理过的状态不算错误，可重复调用，也可与进行中的 recordChunk/complete 并发.
func (s *UploadService) Abort(ctx context.Context, in AbortInput) (err error) {
	ctx, span := tracing.StartSpan(ctx, "upload.abort")
	defer func() {
		metrics.ObserveUpload("abort", err)
		tracing.EndSpan(span, err)
	}()

	if err := validate(in); err != nil {
		return err
	}

	log := s.logger.With().Str("upload_id", in.UploadID).Str("file_id", in.FileID).Logger()

	// 元数据已删除时用会话中的坐标兜底
	session, serr := s.sessions.Get(ctx, in.UploadID)
	if serr != nil && !errors.Is(serr, store.ErrSessionNotFound) {
		log.Warn().Err(serr).Msg("read session failed")
	}

	if err := s.sessions.Delete(ctx, in.UploadID); err != nil {
		return err
	}

	file, err := s.meta.DeleteFile(ctx, in.FileID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	bucket, objectKey := session.Bucket, session.ObjectKey
	if file != nil {
		objectKey = file.ObjectKey
	}

	if bucket == "" {
		bucket = s.objects.Bucket()
	}

	if objectKey != "" {
		err := s.objects.AbortMultipartUpload(ctx, bucket, objectKey, in.UploadID)
		if err != nil && !errors.Is(err, s3.ErrNoSuchUpload) {
			log.Error().Err(err).Str("object_key", objectKey).Msg("abort multipart upload failed")
			return err
		}
	}

	log.Info().Bool("metadata_found", file != nil).Msg("upload aborted")

	s.events.UploadAborted(ctx, queue.UploadAbortedPayload{
		Object:        queue.ObjectRef{Bucket: bucket, ObjectKey: objectKey},
		FileID:        in.FileID,
		UploadID:      in.UploadID,
		MetadataFound: file != nil,
	})

	return nil
}
