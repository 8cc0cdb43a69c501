package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort              = 8080
	DefaultHost              = "0.0.0.0"
	DefaultReloadConfig      = false
	DefaultDebug             = false
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 2 * time.Minute
	DefaultShutdownTimeout   = 15 * time.Second
)

// ServerConfig HTTP 服务配置.请求体只有小 JSON，分片数据直接发往对象存储.
type ServerConfig struct {
	Port              int           `mapstructure:"port"                rule:"min=1,max=65535"`
	Host              string        `mapstructure:"host"                rule:"ip"`
	ReloadConfig      bool          `mapstructure:"reload_config"`
	Debug             bool          `mapstructure:"debug"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" rule:"gte=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"       rule:"gte=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"        rule:"gte=0"`
	// ShutdownTimeout 优雅退出等待进行中请求与后台任务的上限
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" rule:"gt=0"`
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.reload_config", DefaultReloadConfig)
	v.SetDefault("server.debug", DefaultDebug)
	v.SetDefault("server.read_header_timeout", DefaultReadHeaderTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
}
