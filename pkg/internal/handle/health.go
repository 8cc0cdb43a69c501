package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/chunkvault/pkg/internal/storage"
	"github.com/yeisme/chunkvault/pkg/scheduler"
)

const timeout = 2 * time.Second

// OpsHandlers 健康检查与调度器管理.manager 与 sched 都可以为 nil.
type OpsHandlers struct {
	manager *storage.Manager
	sched   *scheduler.Scheduler
}

func NewOpsHandlers(manager *storage.Manager, sched *scheduler.Scheduler) *OpsHandlers {
	return &OpsHandlers{manager: manager, sched: sched}
}

// health 在超时内执行检查.check 为 nil 表示组件未初始化.
func health(c *gin.Context, component string, check func(ctx context.Context) error) {
	if check == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false, "component": component, "status": "unhealthy",
			"error": component + " client not initialized",
		})

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := check(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false, "component": component, "status": "unhealthy", "error": err.Error(),
		})

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "component": component, "status": "ok"})
}

// HealthDB 数据库健康检查.
//
//	@Summary	数据库健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/api/v1/health/db [get]
func (h *OpsHandlers) HealthDB(c *gin.Context) {
	var check func(context.Context) error
	if h.manager != nil && h.manager.DB != nil {
		check = h.manager.DB.Ping
	}

	health(c, "db", check)
}

// HealthS3 对象存储健康检查.
//
//	@Summary	对象存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/api/v1/health/s3 [get]
func (h *OpsHandlers) HealthS3(c *gin.Context) {
	var check func(context.Context) error
	if h.manager != nil && h.manager.S3 != nil {
		check = h.manager.S3.HealthCheck
	}

	health(c, "s3", check)
}

// HealthKV 会话 KV 健康检查.
//
//	@Summary	会话存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/api/v1/health/kv [get]
func (h *OpsHandlers) HealthKV(c *gin.Context) {
	var check func(context.Context) error
	if h.manager != nil && h.manager.KV != nil {
		kvc := h.manager.KV
		check = func(ctx context.Context) error {
			_, err := kvc.Exists(ctx, "health:probe")
			return err
		}
	}

	health(c, "kv", check)
}

// HealthMQ 消息队列健康检查，未启用事件与 mq 对账源时返回 disabled.
//
//	@Summary	消息队列健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/v1/health/mq [get]
func (h *OpsHandlers) HealthMQ(c *gin.Context) {
	if h.manager == nil || h.manager.MQ == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "component": "mq", "status": "disabled"})
		return
	}

	// publisher 与 subscriber 在创建客户端时已建立连接
	health(c, "mq", func(context.Context) error { return nil })
}
