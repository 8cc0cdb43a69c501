package configs

import "github.com/spf13/viper"

// DefaultIdentityHeaders 身份请求头，按优先级排列，前两个由 oauth2-proxy 注入.
var DefaultIdentityHeaders = []string{"X-Auth-Request-Email", "X-Forwarded-Email", "X-User"}

// AuthConfig 请求方身份解析配置.
// 协调器本身不做认证，身份来自前置代理注入的请求头.
type AuthConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	IdentityHeaders []string `mapstructure:"identity_headers"`
	SkipPaths       []string `mapstructure:"skip_paths"`      // 前缀匹配
	DevAllowQuery   bool     `mapstructure:"dev_allow_query"` // 允许 ?user= 兜底
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.identity_headers", DefaultIdentityHeaders)
	v.SetDefault("auth.dev_allow_query", true)
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/api/v1/health",
		"/swagger",
	})
}
