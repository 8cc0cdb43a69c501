package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/chunkvault/pkg/internal/model"
	"github.com/yeisme/chunkvault/pkg/internal/storage/db"
)

// MetadataStore 基于 gorm 的文件与分片元数据存储.
// 每个写操作都是幂等的，协调器和对账器之间不加锁.
type MetadataStore struct {
	db *gorm.DB
}

// NewMetadataStore 创建元数据存储.
func NewMetadataStore(client *db.Client) *MetadataStore {
	return &MetadataStore{db: client.DB}
}

// AutoMigrate 创建或更新表结构.
func (s *MetadataStore) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

// CreateFileWithChunks 在一个事务内创建文件记录及全部分片占位.
func (s *MetadataStore) CreateFileWithChunks(ctx context.Context, file *model.FileMetadata, chunks []model.Chunk) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(file).Error; err != nil {
			return fmt.Errorf("create file metadata: %w", err)
		}

		if len(chunks) == 0 {
			return nil
		}

		if err := tx.CreateInBatches(chunks, 500).Error; err != nil {
			return fmt.Errorf("create chunks: %w", err)
		}

		return nil
	})

	return err
}

// RecordChunk 记录分片校验值并标记为 COMPLETED.
// 重复记录相同下标时后写覆盖；分片不存在或已随文件删除时返回 ErrNotFound.
// 读取与写入合并为一条 UPDATE，不会越过并发的删除.
func (s *MetadataStore) RecordChunk(ctx context.Context, fileID string, index int, size int64, checksum string) error {
	updates := map[string]any{
		"checksum": checksum,
		"status":   model.ChunkStatusCompleted,
	}
	if size > 0 {
		updates["size"] = size
	}

	res := s.db.WithContext(ctx).Model(&model.Chunk{}).
		Where("file_id = ? AND chunk_index = ?", fileID, index).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update chunk: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		return nil
	}

	// MySQL 只统计实际变化的行，值未变的重放也会得到 0
	var n int64

	err := s.db.WithContext(ctx).Model(&model.Chunk{}).
		Where("file_id = ? AND chunk_index = ?", fileID, index).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("count chunk: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: chunk %s/%d", ErrNotFound, fileID, index)
	}

	return nil
}

// GetFile 按 fileId 查询.
func (s *MetadataStore) GetFile(ctx context.Context, fileID string) (*model.FileMetadata, error) {
	var f model.FileMetadata

	err := s.db.WithContext(ctx).Where("file_id = ?", fileID).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}

	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	return &f, nil
}

// FindByObjectKey 按对象键查询.
func (s *MetadataStore) FindByObjectKey(ctx context.Context, objectKey string) (*model.FileMetadata, error) {
	var f model.FileMetadata

	err := s.db.WithContext(ctx).Where("object_key = ?", objectKey).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: object %s", ErrNotFound, objectKey)
	}

	if err != nil {
		return nil, fmt.Errorf("find by object key: %w", err)
	}

	return &f, nil
}

// MarkUploaded 将 UPLOADING 的文件标记为 UPLOADED，size 非空时一并写入.
// 只有发生状态迁移时返回 true；已经是 UPLOADED 的重复调用是空操作，FAILED 不会被改写.
func (s *MetadataStore) MarkUploaded(ctx context.Context, fileID string, size *int64) (bool, error) {
	updates := map[string]any{"status": model.FileStatusUploaded}
	if size != nil {
		updates["size"] = *size
	}

	res := s.db.WithContext(ctx).Model(&model.FileMetadata{}).
		Where("file_id = ? AND status = ?", fileID, model.FileStatusUploading).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("mark uploaded: %w", res.Error)
	}

	return res.RowsAffected > 0, nil
}

// ConfirmUploaded 记录对象存储的创建事件：状态置为 UPLOADED，写入 size 与确认时间.
// complete 已经乐观标记过的文件同样会被确认；每个文件只有第一次确认返回 true.
// FAILED 与已确认的文件不会被改写.
func (s *MetadataStore) ConfirmUploaded(ctx context.Context, fileID string, size *int64) (bool, error) {
	updates := map[string]any{
		"status":       model.FileStatusUploaded,
		"confirmed_at": time.Now(),
	}
	if size != nil {
		updates["size"] = *size
	}

	res := s.db.WithContext(ctx).Model(&model.FileMetadata{}).
		Where("file_id = ? AND status IN ? AND confirmed_at IS NULL", fileID,
			[]model.FileStatus{model.FileStatusUploading, model.FileStatusUploaded}).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("confirm uploaded: %w", res.Error)
	}

	return res.RowsAffected > 0, nil
}

// MarkFailed 将仍处于 UPLOADING 的文件标记为 FAILED.
func (s *MetadataStore) MarkFailed(ctx context.Context, fileID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.FileMetadata{}).
		Where("file_id = ? AND status = ?", fileID, model.FileStatusUploading).
		Update("status", model.FileStatusFailed)
	if res.Error != nil {
		return false, fmt.Errorf("mark failed: %w", res.Error)
	}

	return res.RowsAffected > 0, nil
}

// DeleteFile 删除文件及其分片，返回删除前读到的记录.
// 记录不存在时返回 ErrNotFound.
func (s *MetadataStore) DeleteFile(ctx context.Context, fileID string) (*model.FileMetadata, error) {
	var f model.FileMetadata

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("file_id = ?", fileID).First(&f).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: file %s", ErrNotFound, fileID)
		}

		if err != nil {
			return fmt.Errorf("get file: %w", err)
		}

		// 不依赖数据库的外键级联设置
		if err := tx.Where("file_id = ?", fileID).Delete(&model.Chunk{}).Error; err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}

		if err := tx.Where("file_id = ?", fileID).Delete(&model.FileMetadata{}).Error; err != nil {
			return fmt.Errorf("delete file: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// ListChunks 按下标升序返回文件的全部分片.
func (s *MetadataStore) ListChunks(ctx context.Context, fileID string) ([]model.Chunk, error) {
	var chunks []model.Chunk

	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	return chunks, nil
}

// ListStale 返回 createdAt 早于 before 且仍在 UPLOADING 的文件.
func (s *MetadataStore) ListStale(ctx context.Context, before time.Time, limit int) ([]model.FileMetadata, error) {
	var files []model.FileMetadata

	q := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.FileStatusUploading, before).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list stale uploads: %w", err)
	}

	return files, nil
}
