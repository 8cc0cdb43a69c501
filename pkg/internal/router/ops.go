package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/chunkvault/pkg/internal/handle"
)

// RegisterOpsRoutes 注册健康检查与调度器管理路由：
//
//	GET    /health/{db,s3,kv,mq}
//	GET    /scheduler/jobs
//	POST   /scheduler/jobs/stop
//	DELETE /scheduler/jobs/:id
//	GET    /scheduler/queue/waiting
func RegisterOpsRoutes(g *gin.RouterGroup, h *handle.OpsHandlers) {
	health := g.Group("/health")
	{
		health.GET("/db", h.HealthDB)
		health.GET("/s3", h.HealthS3)
		health.GET("/kv", h.HealthKV)
		health.GET("/mq", h.HealthMQ)
	}

	sched := g.Group("/scheduler")
	{
		sched.GET("/jobs", h.SchedulerJobs)
		sched.POST("/jobs/stop", h.SchedulerStopJobs)
		sched.DELETE("/jobs/:id", h.SchedulerRemoveJob)
		sched.GET("/queue/waiting", h.SchedulerQueueWaiting)
	}
}
