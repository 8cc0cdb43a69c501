package configs

import "github.com/spf13/viper"

// EventsConfig 控制上传生命周期事件的发布开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool               `mapstructure:"enabled"` // 总开关
	Upload  UploadEventsConfig `mapstructure:"upload"`
}

// UploadEventsConfig 针对上传领域的事件开关。
type UploadEventsConfig struct {
	Initiated bool `mapstructure:"initiated"`
	Completed bool `mapstructure:"completed"`
	Aborted   bool `mapstructure:"aborted"`
	Confirmed bool `mapstructure:"confirmed"` // 对账器确认对象落盘
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认关闭，需要 MQ 时再开启
	v.SetDefault("events.enabled", false)

	v.SetDefault("events.upload.initiated", true)
	v.SetDefault("events.upload.completed", true)
	v.SetDefault("events.upload.aborted", true)
	v.SetDefault("events.upload.confirmed", true)
}
