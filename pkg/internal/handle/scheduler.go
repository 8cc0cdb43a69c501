package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeisme/chunkvault/pkg/scheduler"
)

func (h *OpsHandlers) schedulerOrFail(c *gin.Context) *scheduler.Scheduler {
	if h.sched == nil {
		fail(c, http.StatusServiceUnavailable, "scheduler not running")
	}

	return h.sched
}

// SchedulerJobs 返回所有调度器任务信息.
//
//	@Summary	任务列表
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/v1/scheduler/jobs [get]
func (h *OpsHandlers) SchedulerJobs(c *gin.Context) {
	sched := h.schedulerOrFail(c)
	if sched == nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": sched.GetJobInfos()})
}

// SchedulerStopJobs 停止所有任务.
//
//	@Summary	停止所有任务
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	types.Response
//	@Router		/api/v1/scheduler/jobs/stop [post]
func (h *OpsHandlers) SchedulerStopJobs(c *gin.Context) {
	sched := h.schedulerOrFail(c)
	if sched == nil {
		return
	}

	if err := sched.StopJobs(); err != nil {
		writeError(c, "scheduler.stop", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "jobs stopped"})
}

// SchedulerRemoveJob 根据 id 删除任务.
//
//	@Summary	删除任务
//	@Tags		调度器
//	@Produce	json
//	@Param		id	path		string	true	"任务 id"
//	@Success	200	{object}	types.Response
//	@Failure	400	{object}	types.Response
//	@Failure	404	{object}	types.Response
//	@Router		/api/v1/scheduler/jobs/{id} [delete]
func (h *OpsHandlers) SchedulerRemoveJob(c *gin.Context) {
	sched := h.schedulerOrFail(c)
	if sched == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := sched.RemoveJob(id); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			fail(c, http.StatusNotFound, err.Error())
			return
		}

		writeError(c, "scheduler.remove", err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "job removed"})
}

// SchedulerQueueWaiting 返回队列中等待的任务数.
//
//	@Summary	等待中的任务数
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/v1/scheduler/queue/waiting [get]
func (h *OpsHandlers) SchedulerQueueWaiting(c *gin.Context) {
	sched := h.schedulerOrFail(c)
	if sched == nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "waiting": sched.JobsWaitingInQueue()})
}
