// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、上传协议与对账器指标.
//
// Example:
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.ObserveUpload("initiate", err)
//	metrics.ReconcilerMessages.WithLabelValues(metrics.OutcomeApplied).Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 注册pprof端点到 DefaultServeMux
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/chunkvault/pkg/configs"
)

// 对账器消息处理结果.
const (
	OutcomeApplied      = "applied"      // 已将元数据标记为 UPLOADED
	OutcomeUnrecognized = "unrecognized" // 无法识别的消息，直接删除
	OutcomeOrphan       = "orphan"       // 找不到对应元数据
	OutcomeFailed       = "failed"       // 处理失败，等待重投
)

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	// UploadOperations 协调器操作计数，result 为 ok 或 error.
	UploadOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chunkvault_upload_operations_total",
			Help: "Upload coordinator operations by result",
		},
		[]string{"op", "result"},
	)

	// PartsPresigned 签发的分片上传 URL 数量.
	PartsPresigned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chunkvault_parts_presigned_total",
			Help: "Presigned part upload URLs issued",
		},
	)

	// ReconcilerMessages 对账器处理的消息数.
	ReconcilerMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chunkvault_reconciler_messages_total",
			Help: "Storage event messages handled by the reconciler",
		},
		[]string{"outcome"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	runtimeOnce sync.Once
)

func init() {
	registry.MustRegister(RequestCounter, RequestDuration, ActiveConnections,
		UploadOperations, PartsPresigned, ReconcilerMessages)
}

// InitMetrics 初始化运行时指标.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled || !config.RuntimeMetrics {
		return nil
	}

	runtimeOnce.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})

	return nil
}

// StartMetricsServer 在引擎上挂载 /metrics 与可选的 pprof.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = configs.DefaultMetricsPath
	}

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// ObserveUpload 记录一次协调器操作的结果.
func ObserveUpload(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	UploadOperations.WithLabelValues(op, result).Inc()
}
