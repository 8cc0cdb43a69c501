// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/log"
	"github.com/yeisme/chunkvault/pkg/scheduler"
)

// StaleExpirer 把超时未完成的上传标记为失败，service.UploadService 满足该接口.
type StaleExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// RegisterCronJobs 配置业务定时任务：
//   - 按 upload.stale_sweep_cron（默认每小时）把超过会话 TTL 仍未完成的上传标记为 FAILED
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, expirer StaleExpirer, cfg configs.UploadConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if expirer == nil {
		return errors.New("stale expirer is nil")
	}

	expr := cfg.StaleSweepCron
	if expr == "" {
		expr = configs.DefaultStaleSweepCron
	}

	return sched.AddCron(ctx, JobExpireStaleUploads, expr, ExpireStaleUploads(expirer))
}

// ExpireStaleUploads 返回清理任务.
func ExpireStaleUploads(expirer StaleExpirer) scheduler.Task {
	return func(ctx context.Context) error {
		l := log.Component("jobs").With().Str("job", JobExpireStaleUploads).Logger()

		n, err := expirer.ExpireStale(ctx)
		if err != nil {
			return err
		}

		if n > 0 {
			l.Info().Int("affected", n).Msg("expired stale uploads")
		}

		return nil
	}
}
