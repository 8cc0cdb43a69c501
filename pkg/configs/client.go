package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultClientServerURL    = "http://localhost:8080"
	DefaultClientConcurrency  = 3
	DefaultClientRetryMax     = 2 // 重试 2 次，共 3 次尝试
	DefaultClientRetryWaitMin = time.Second
	DefaultClientRetryWaitMax = 4 * time.Second
	DefaultClientTimeout      = 5 * time.Minute
)

// ClientConfig 命令行上传客户端配置.
type ClientConfig struct {
	ServerURL    string        `mapstructure:"server_url"     rule:"url"`
	Concurrency  int           `mapstructure:"concurrency"    rule:"min=1,max=64"`
	RetryMax     int           `mapstructure:"retry_max"      rule:"min=0"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	Timeout      time.Duration `mapstructure:"timeout"` // 单个 HTTP 请求超时，0 表示不限制
	User         string        `mapstructure:"user"`    // 以 X-User 头发送
}

func (c *ClientConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("client.server_url", DefaultClientServerURL)
	v.SetDefault("client.concurrency", DefaultClientConcurrency)
	v.SetDefault("client.retry_max", DefaultClientRetryMax)
	v.SetDefault("client.retry_wait_min", DefaultClientRetryWaitMin)
	v.SetDefault("client.retry_wait_max", DefaultClientRetryWaitMax)
	v.SetDefault("client.timeout", DefaultClientTimeout)
	v.SetDefault("client.user", "")
}
