// Package model 定义持久化的上传元数据模型.
package model

import (
	"time"
)

// FileStatus 文件上传状态，只允许 UPLOADING -> {UPLOADED, FAILED}.
type FileStatus string

const (
	FileStatusUploading FileStatus = "UPLOADING"
	FileStatusUploaded  FileStatus = "UPLOADED"
	FileStatusFailed    FileStatus = "FAILED"
)

// ChunkStatus 分片状态.
type ChunkStatus string

const (
	ChunkStatusPending   ChunkStatus = "PENDING"
	ChunkStatusCompleted ChunkStatus = "COMPLETED"
	ChunkStatusFailed    ChunkStatus = "FAILED"
)

// FileMetadata 文件元数据，initiate 时创建，abort 时删除.
type FileMetadata struct {
	// 调用方生成的唯一标识
	FileID   string `gorm:"primaryKey;size:64"     json:"fileId"`
	FileName string `gorm:"size:512"               json:"fileName"`
	MimeType string `gorm:"size:255"               json:"mimeType"`
	// 确认前可能为空
	Size      *int64     `json:"size,omitempty"`
	ObjectKey string     `gorm:"size:1024;uniqueIndex"  json:"objectKey"`
	Status    FileStatus `gorm:"size:16;index"          json:"status"`
	OwnerID   string     `gorm:"size:255;index"         json:"ownerId"`
	CreatedAt time.Time  `gorm:"index"                  json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	// 对账器首次收到对象创建事件的时间
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`

	Chunks []Chunk `gorm:"foreignKey:FileID;references:FileID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 表名.
func (FileMetadata) TableName() string {
	return "file_metadata"
}

// Chunk 单个分片的状态，(FileID, ChunkIndex) 唯一.
type Chunk struct {
	FileID     string `gorm:"primaryKey;size:64"    json:"fileId"`
	ChunkIndex int    `gorm:"primaryKey;autoIncrement:false" json:"chunkIndex"`
	Size       int64  `json:"size"`
	// 与父文件相同，所有分片属于同一个分段上传
	ObjectKey string      `gorm:"size:1024"        json:"objectKey"`
	Checksum  string      `gorm:"size:128"         json:"checksum"`
	Status    ChunkStatus `gorm:"size:16;index"    json:"status"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// TableName 表名.
func (Chunk) TableName() string {
	return "chunks"
}

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{&FileMetadata{}, &Chunk{}}
}
