package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPartSize       int64 = 5 * 1024 * 1024        // 默认分片大小 5MiB，S3 允许的最小分片
	DefaultMaxFileSize    int64 = 5 * 1024 * 1024 * 1024 // 默认单文件上限 5GiB
	DefaultSessionTTL           = 24 * time.Hour         // 上传会话过期时间
	DefaultPresignExpiry        = time.Hour              // 分片上传 URL 有效期
	DefaultDownloadExpiry       = 15 * time.Minute       // 下载 URL 有效期
	DefaultStaleSweepCron       = "0 * * * *"            // 每小时清理过期上传
)

// UploadConfig 分片上传协议参数.
type UploadConfig struct {
	PartSize       int64         `mapstructure:"part_size"        rule:"min=1"`
	MaxFileSize    int64         `mapstructure:"max_file_size"    rule:"min=1"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	PresignExpiry  time.Duration `mapstructure:"presign_expiry"`
	DownloadExpiry time.Duration `mapstructure:"download_expiry"`
	KeyPrefix      string        `mapstructure:"key_prefix"` // 对象键前缀，可为空
	StaleSweepCron string        `mapstructure:"stale_sweep_cron"`
}

func (c *UploadConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("upload.part_size", DefaultPartSize)
	v.SetDefault("upload.max_file_size", DefaultMaxFileSize)
	v.SetDefault("upload.session_ttl", DefaultSessionTTL)
	v.SetDefault("upload.presign_expiry", DefaultPresignExpiry)
	v.SetDefault("upload.download_expiry", DefaultDownloadExpiry)
	v.SetDefault("upload.key_prefix", "")
	v.SetDefault("upload.stale_sweep_cron", DefaultStaleSweepCron)
}
