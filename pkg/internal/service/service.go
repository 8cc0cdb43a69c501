// Package service 实现上传协调器：initiate / recordChunk / complete / abort，
// 以及下载地址与上传状态查询.
//
// 协调器本身无状态，依赖通过 NewUploadService 显式注入.
// 协调器与对账器之间不加锁，正确性依赖每个变更操作的幂等性.
package service

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/storage/s3"
	"github.com/yeisme/chunkvault/pkg/internal/store"
	nlog "github.com/yeisme/chunkvault/pkg/log"
	"github.com/yeisme/chunkvault/pkg/queue"
)

// UploadService 上传协调器.
type UploadService struct {
	objects  s3.ObjectStore
	meta     *store.MetadataStore
	sessions *store.SessionStore
	events   *queue.Publisher
	cfg      configs.UploadConfig
	now      func() time.Time
	logger   zerolog.Logger
}

// Option 可选配置.
type Option func(*UploadService)

// WithClock 替换时钟，测试用.
func WithClock(now func() time.Time) Option {
	return func(s *UploadService) { s.now = now }
}

// WithEvents 设置生命周期事件发布器.
func WithEvents(p *queue.Publisher) Option {
	return func(s *UploadService) { s.events = p }
}

// NewUploadService 创建协调器.
func NewUploadService(objects s3.ObjectStore, meta *store.MetadataStore, sessions *store.SessionStore,
	cfg configs.UploadConfig, opts ...Option,
) *UploadService {
	if cfg.PartSize <= 0 {
		cfg.PartSize = configs.DefaultPartSize
	}

	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = configs.DefaultMaxFileSize
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = configs.DefaultSessionTTL
	}

	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = configs.DefaultPresignExpiry
	}

	if cfg.DownloadExpiry <= 0 {
		cfg.DownloadExpiry = configs.DefaultDownloadExpiry
	}

	s := &UploadService{
		objects:  objects,
		meta:     meta,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
		logger:   nlog.Component("coordinator"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Config 返回生效的上传参数.
func (s *UploadService) Config() configs.UploadConfig {
	return s.cfg
}

// buildObjectKey 构建对象键：{prefix}{owner}/{yyyy}/{mm}/{fileId}/{fileName}.
// fileId 保证同名文件不会互相覆盖.
func (s *UploadService) buildObjectKey(owner, fileID, fileName string) string {
	if owner == "" {
		owner = "anonymous"
	}

	datePath := s.now().UTC().Format("2006/01") // 只到月，避免目录过深

	return fmt.Sprintf("%s%s/%s/%s/%s", s.cfg.KeyPrefix, owner, datePath, fileID, sanitizeFileName(fileName))
}

// sanitizeFileName 去掉路径部分，防止通过文件名逃出前缀.
func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)

	if base == "." || base == "/" || base == ".." {
		return "file"
	}

	return base
}
