package configs

import (
	"time"

	"github.com/spf13/viper"
)

// ReconcilerSource 对账器事件来源.
type ReconcilerSource string

const (
	ReconcilerSourceSQS ReconcilerSource = "sqs"
	ReconcilerSourceMQ  ReconcilerSource = "mq"

	DefaultReconcilerPollInterval = time.Second
	DefaultReconcilerBatchSize    = 10
	DefaultReconcilerErrorDelay   = 5 * time.Second
	DefaultReconcilerWaitTime     = 20 // SQS 长轮询秒数
	DefaultReconcilerVisibility   = 30 // SQS 可见性超时秒数
	DefaultReconcilerTopic        = "cv.storage.events"
)

// ReconcilerConfig 对象存储事件对账器配置.
type ReconcilerConfig struct {
	Enabled           bool             `mapstructure:"enabled"`
	Source            ReconcilerSource `mapstructure:"source"             rule:"oneof=sqs mq"`
	PollInterval      time.Duration    `mapstructure:"poll_interval"`
	BatchSize         int              `mapstructure:"batch_size"         rule:"min=1,max=10"`
	ErrorDelay        time.Duration    `mapstructure:"error_delay"`
	WaitTimeSeconds   int32            `mapstructure:"wait_time_seconds"  rule:"min=0,max=20"`
	VisibilityTimeout int32            `mapstructure:"visibility_timeout" rule:"min=0"`
	QueueURL          string           `mapstructure:"queue_url"`
	Topic             string           `mapstructure:"topic"`
	SQSEndpoint       string           `mapstructure:"sqs_endpoint"` // 本地 ElasticMQ/LocalStack 时设置
}

func (c *ReconcilerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("reconciler.enabled", false)
	v.SetDefault("reconciler.source", ReconcilerSourceSQS)
	v.SetDefault("reconciler.poll_interval", DefaultReconcilerPollInterval)
	v.SetDefault("reconciler.batch_size", DefaultReconcilerBatchSize)
	v.SetDefault("reconciler.error_delay", DefaultReconcilerErrorDelay)
	v.SetDefault("reconciler.wait_time_seconds", DefaultReconcilerWaitTime)
	v.SetDefault("reconciler.visibility_timeout", DefaultReconcilerVisibility)
	v.SetDefault("reconciler.queue_url", "")
	v.SetDefault("reconciler.topic", DefaultReconcilerTopic)
	v.SetDefault("reconciler.sqs_endpoint", "")
}
