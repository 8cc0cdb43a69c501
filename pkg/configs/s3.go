package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// S3Driver 对象存储驱动.
type S3Driver string

const (
	// S3DriverMinio 使用 minio-go 客户端.
	S3DriverMinio S3Driver = "minio"
	// S3DriverAWS 使用 aws-sdk-go-v2 客户端.
	S3DriverAWS S3Driver = "aws"
)

// S3Config 对象存储配置，兼容 MinIO 与 AWS S3.
type S3Config struct {
	Driver          S3Driver      `mapstructure:"driver"            rule:"oneof=minio aws"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	BucketName      string        `mapstructure:"bucket_name"       rule:"required"`
	Region          string        `mapstructure:"region"`
	UsePathStyle    bool          `mapstructure:"use_path_style"`
	AutoCreate      bool          `mapstructure:"auto_create"` // 启动时若桶不存在则创建
	Timeout         time.Duration `mapstructure:"timeout"`
}

const (
	DefaultS3Driver          = S3DriverMinio    // 默认驱动
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3BucketName      = "chunkvault"     // 默认存储桶名称
	DefaultS3Region          = "us-east-1"      // 默认区域
	DefaultS3Timeout         = 30 * time.Second
)

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.driver", DefaultS3Driver)
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.use_path_style", true)
	v.SetDefault("s3.auto_create", true)
	v.SetDefault("s3.timeout", DefaultS3Timeout)
}
