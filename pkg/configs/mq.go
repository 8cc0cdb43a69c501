package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS  MQType = "nats"
	MQTypeRedis MQType = "redis"
)

const (
	DefaultMQURL           = "localhost:4222"
	DefaultMQClientName    = "chunkvault"
	DefaultMaxReconnects   = 5
	DefaultReconnectWait   = 5 * time.Second
	DefaultMaxPingsOut     = 3
	DefaultPingInterval    = 20 * time.Second
	DefaultReconnectBuffer = 32 * 1024
	DefaultConsumerAckWait = 30 * time.Second
	DefaultDurablePrefix   = "chunkvault"
	DefaultRedisStreamAddr = "localhost:6379"
)

// MQConfig 消息队列配置，只有开启 events.enabled 或 reconciler.source=mq 时才会连接.
type MQConfig struct {
	Type   MQType         `mapstructure:"type"   rule:"oneof=nats redis"`
	Common MQCommonConfig `mapstructure:"common"`
	NATS   MQNATSConfig   `mapstructure:"nats"`
	Redis  MQRedisConfig  `mapstructure:"redis"`
}

// MQCommonConfig 连接参数.
type MQCommonConfig struct {
	URL             string        `mapstructure:"url"              rule:"required"`
	ClientName      string        `mapstructure:"client_name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxReconnects   int           `mapstructure:"max_reconnects"   rule:"min=-1"` // -1 不限
	ReconnectWait   time.Duration `mapstructure:"reconnect_wait"`
	StrictConnect   bool          `mapstructure:"strict_connect"` // 启动时连不上直接失败
	MaxPingsOut     int           `mapstructure:"max_pings_out"    rule:"min=1"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	ReconnectBuffer int           `mapstructure:"reconnect_buffer" rule:"min=0"`
}

// MQNATSConfig NATS 专属配置.
type MQNATSConfig struct {
	JetStreamEnabled bool `mapstructure:"jetstream_enabled"`
	AutoProvision    bool `mapstructure:"auto_provision"`
	TrackMsgID       bool `mapstructure:"track_msg_id"`
	AckAsync         bool `mapstructure:"ack_async"`
	// DurablePrefix 同时用作 JetStream durable 前缀与队列组前缀
	DurablePrefix   string        `mapstructure:"durable_prefix"`
	ConsumerAckWait time.Duration `mapstructure:"consumer_ack_wait"`
	// LoadBalance 多个 worker 共享队列组，每条通知只被处理一次
	LoadBalance bool     `mapstructure:"load_balance"`
	JWT         string   `mapstructure:"jwt"`
	NKey        string   `mapstructure:"nkey"`
	ClusterURLs []string `mapstructure:"cluster_urls"`
}

// MQRedisConfig Redis Stream 配置.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

func (c *MQConfig) GetMQType() MQType {
	return c.Type
}

func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeNATS)

	v.SetDefault("mq.common.url", DefaultMQURL)
	v.SetDefault("mq.common.client_name", DefaultMQClientName)
	v.SetDefault("mq.common.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.common.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.common.strict_connect", false)
	v.SetDefault("mq.common.max_pings_out", DefaultMaxPingsOut)
	v.SetDefault("mq.common.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.common.reconnect_buffer", DefaultReconnectBuffer)

	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.auto_provision", true)
	v.SetDefault("mq.nats.track_msg_id", true)
	v.SetDefault("mq.nats.ack_async", true)
	v.SetDefault("mq.nats.durable_prefix", DefaultDurablePrefix)
	v.SetDefault("mq.nats.consumer_ack_wait", DefaultConsumerAckWait)
	v.SetDefault("mq.nats.load_balance", true)

	v.SetDefault("mq.redis.addr", DefaultRedisStreamAddr)
	v.SetDefault("mq.redis.db", 0)
}
