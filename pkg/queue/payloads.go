package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// ObjectRef 标识对象在对象存储中的位置.
type ObjectRef struct {
	Bucket    string `json:"bucket"`
	ObjectKey string `json:"object_key"`
	ETag      string `json:"etag,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

// UploadInitiatedPayload 打开分片上传.
type UploadInitiatedPayload struct {
	Object    ObjectRef `json:"object"`
	FileID    string    `json:"file_id"`
	UploadID  string    `json:"upload_id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	PartCount int       `json:"part_count"`
	PartSize  int64     `json:"part_size"`
}

// UploadCompletedPayload 分片已合并.
type UploadCompletedPayload struct {
	Object   ObjectRef `json:"object"`
	FileID   string    `json:"file_id"`
	UploadID string    `json:"upload_id"`
	Parts    int       `json:"parts"`
}

// UploadAbortedPayload 上传被放弃.
type UploadAbortedPayload struct {
	Object   ObjectRef `json:"object"`
	FileID   string    `json:"file_id"`
	UploadID string    `json:"upload_id"`
	// MetadataFound 为 false 表示元数据此前已被删除
	MetadataFound bool `json:"metadata_found"`
}

// ObjectConfirmedPayload 对账器确认对象已持久化.
type ObjectConfirmedPayload struct {
	Object ObjectRef `json:"object"`
	FileID string    `json:"file_id"`
	// Source 通知来源识别器名称，如 records、wrapped、audit
	Source string `json:"source,omitempty"`
}
