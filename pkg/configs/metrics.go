package configs

import (
	"github.com/spf13/viper"
)

const DefaultMetricsPath = "/metrics"

// MetricsConfig Prometheus 指标配置.开启后 HTTP、协调器操作、对账器、
// gorm 连接池与 watermill 发布订阅的指标都注册到同一个 registry.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Path           string `mapstructure:"path"            rule:"omitempty,startswith=/"`
	RuntimeMetrics bool   `mapstructure:"runtime_metrics"` // go 与进程指标
	Pprof          bool   `mapstructure:"pprof"`           // 挂载 /debug/pprof
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", DefaultMetricsPath)
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
}
