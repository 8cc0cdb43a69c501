// Package types 定义协调器 HTTP 接口的请求与响应结构，服务端与命令行客户端共用.
//
// 每个响应都带有 success 字段，失败时附带 error.
package types

import "time"

// Response 通用响应.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// InitiateUploadRequest 打开分片上传.
type InitiateUploadRequest struct {
	FileID   string `json:"file_id"   rule:"required,max=64"` // 调用方生成的唯一 id
	FileName string `json:"file_name" rule:"required,max=512"`
	FileType string `json:"file_type" rule:"max=255"` // MIME 类型
	FileSize int64  `json:"file_size" rule:"gt=0"`    // 字节
}

// InitiateUploadResponse presignedUrls[i] 对应分片下标 i.
type InitiateUploadResponse struct {
	Success       bool     `json:"success"`
	Error         string   `json:"error,omitempty"`
	UploadID      string   `json:"uploadId"`
	PresignedURLs []string `json:"presignedUrls"`
	// 服务端切分文件使用的分片大小，客户端必须按相同大小切分
	PartSize  int64  `json:"partSize"`
	ObjectKey string `json:"objectKey"`
}

// RecordChunkRequest 记录已上传分片，chunk_index 从 0 开始.
type RecordChunkRequest struct {
	FileID     string `json:"file_id"     rule:"required,max=64"`
	ChunkIndex *int   `json:"chunk_index" rule:"required,gte=0"`
	Size       int64  `json:"size"        rule:"gte=0"`
	ETag       string `json:"etag"        rule:"required,max=128"`
}

// CompletedPart 对象存储分片号从 1 开始.
type CompletedPart struct {
	PartNumber int    `json:"PartNumber" rule:"gte=1"`
	ETag       string `json:"ETag"       rule:"required"`
}

// CompleteUploadRequest 合并分片.
type CompleteUploadRequest struct {
	UploadID string          `json:"uploadId" rule:"required"`
	Parts    []CompletedPart `json:"parts"    rule:"required,min=1,dive"`
	FileID   string          `json:"fileId"   rule:"required,max=64"`
}

// AbortUploadRequest 放弃上传.
type AbortUploadRequest struct {
	UploadID string `json:"uploadId" rule:"required"`
	FileID   string `json:"file_id"  rule:"required,max=64"`
}

// DownloadURLRequest 获取下载地址.
type DownloadURLRequest struct {
	S3Key string `json:"s3_key" rule:"required,objectkey"`
}

// DownloadURLResponse 下载地址.
type DownloadURLResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	URL     string `json:"url"`
}

// UploadFileInfo 上传状态中的文件信息.
type UploadFileInfo struct {
	FileID    string    `json:"fileId"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	Size      *int64    `json:"size,omitempty"`
	ObjectKey string    `json:"objectKey"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChunkProgress 分片统计.
type ChunkProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
}

// UploadStatusResponse 上传状态.
type UploadStatusResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	File    UploadFileInfo `json:"file"`
	Chunks  ChunkProgress  `json:"chunks"`
}
