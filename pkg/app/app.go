// Package app 提供应用程序的初始化、组装和优雅退出.
//
// 初始化顺序：配置 -> 日志 -> 追踪 -> 监控 -> 存储 -> 元数据/会话存储 -> 协调器 -> HTTP 引擎、对账器与定时任务.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/chunkvault/pkg/api"
	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/jobs"
	"github.com/yeisme/chunkvault/pkg/internal/reconciler"
	"github.com/yeisme/chunkvault/pkg/internal/service"
	"github.com/yeisme/chunkvault/pkg/internal/storage"
	"github.com/yeisme/chunkvault/pkg/internal/store"
	"github.com/yeisme/chunkvault/pkg/log"
	"github.com/yeisme/chunkvault/pkg/metrics"
	"github.com/yeisme/chunkvault/pkg/queue"
	"github.com/yeisme/chunkvault/pkg/rule"
	"github.com/yeisme/chunkvault/pkg/scheduler"
	"github.com/yeisme/chunkvault/pkg/tracing"
)

// Mode 运行模式.
type Mode string

const (
	// ModeServe HTTP 接口，加上启用时的对账器与定时任务.
	ModeServe Mode = "serve"
	// ModeWorker 只运行对账器与定时任务.
	ModeWorker Mode = "worker"
)

// ErrSharedGroupcacheSessions 会话 KV 选用 groupcache 且配置了对等节点.
var ErrSharedGroupcacheSessions = errors.New("groupcache kv with peers cannot hold upload sessions")

type App struct {
	Engine *gin.Engine

	config     *configs.AppConfig
	mode       Mode
	manager    *storage.Manager
	uploads    *service.UploadService
	sched      *scheduler.Scheduler
	reconciler *reconciler.Reconciler
	server     *http.Server
	logger     zerolog.Logger
}

// Init 加载配置并初始化日志，debug 为 true 时覆盖 server.debug.
func Init(configPath string, debug bool) (*configs.AppConfig, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	cfg := configs.GetConfig()
	if debug {
		cfg.Server.Debug = true
	}

	log.Init()

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	return cfg, nil
}

// validateConfig 只校验当前模式用到的配置段.
func validateConfig(cfg *configs.AppConfig) error {
	sections := []any{
		cfg.Server, cfg.Log, cfg.DB, cfg.Upload, cfg.S3,
		cfg.Metrics, cfg.Tracing, cfg.CircuitBreaker, cfg.RateLimit,
	}
	if cfg.Reconciler.Enabled {
		sections = append(sections, cfg.Reconciler)
	}

	for _, s := range sections {
		if err := rule.ValidateStruct(s); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	// groupcache 的写入与删除只落在本节点，会话在多节点下无法一致地过期或撤销.
	if cfg.KV.Type == configs.KVTypeGroupcache && len(cfg.KV.Groupcache.Peers) > 0 {
		return fmt.Errorf("invalid config: %w", ErrSharedGroupcacheSessions)
	}

	return nil
}

// New 初始化追踪与监控并按模式组装应用.任何一步失败都会释放已打开的资源.
func New(ctx context.Context, cfg *configs.AppConfig, mode Mode) (_ *App, err error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if err := tracing.InitTracer(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
		_ = tracing.ShutdownTracer(ctx)

		return nil, fmt.Errorf("init metrics: %w", err)
	}

	a := &App{config: cfg, mode: mode, logger: log.Component("app")}

	defer func() {
		if err != nil {
			_ = a.closeResources(context.WithoutCancel(ctx))
		}
	}()

	a.manager, err = storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	meta := store.NewMetadataStore(a.manager.DB)
	if err = meta.AutoMigrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate metadata: %w", err)
	}

	sessions := store.NewSessionStore(a.manager.KV)

	var sink queue.Sink
	if a.manager.MQ != nil {
		sink = a.manager.MQ
	}

	events := queue.NewPublisher(sink, cfg.Events)

	a.uploads = service.NewUploadService(a.manager.S3, meta, sessions, cfg.Upload, service.WithEvents(events))

	a.sched, err = scheduler.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err = jobs.RegisterCronJobs(ctx, a.sched, a.uploads, cfg.Upload); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	if cfg.Reconciler.Enabled {
		source, err := newSource(ctx, cfg, a.manager)
		if err != nil {
			return nil, fmt.Errorf("init reconciler source: %w", err)
		}

		a.reconciler = reconciler.New(source, meta, cfg.Reconciler, reconciler.WithEvents(events))
	} else if mode == ModeWorker {
		a.logger.Warn().Msg("reconciler disabled, worker only runs scheduled jobs")
	}

	if mode == ModeServe {
		a.Engine = api.NewEngine(cfg, api.Deps{
			Uploads:   a.uploads,
			Manager:   a.manager,
			Scheduler: a.sched,
		})

		a.server = &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			Handler:           a.Engine,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
		}
	}

	return a, nil
}

// newSource 按 reconciler.source 创建通知来源.
func newSource(ctx context.Context, cfg *configs.AppConfig, mgr *storage.Manager) (reconciler.Source, error) {
	switch cfg.Reconciler.Source {
	case configs.ReconcilerSourceMQ:
		if mgr.MQ == nil {
			return nil, errors.New("mq client not initialized")
		}

		return reconciler.NewMQSource(ctx, mgr.MQ, cfg.Reconciler.Topic, cfg.Reconciler.PollInterval)
	case configs.ReconcilerSourceSQS, "":
		client, err := reconciler.NewSQSClient(ctx, &cfg.Reconciler, &cfg.S3)
		if err != nil {
			return nil, err
		}

		return reconciler.NewSQSSource(client, &cfg.Reconciler)
	default:
		return nil, fmt.Errorf("unsupported reconciler source: %s", cfg.Reconciler.Source)
	}
}

// Run 启动所有组件并阻塞到 ctx 结束或 HTTP 服务出错，然后优雅退出.
func (a *App) Run(ctx context.Context) error {
	a.sched.Start()

	if a.reconciler != nil {
		a.reconciler.Start(ctx)
	}

	serveErr := make(chan error, 1)

	if a.server != nil {
		go func() {
			a.logger.Info().Str("addr", a.server.Addr).Msg("http server listening")

			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}

			close(serveErr)
		}()
	}

	var runErr error

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.Server.ShutdownTimeout)
	defer cancel()

	return errors.Join(runErr, a.Shutdown(shutdownCtx))
}

// Shutdown 依次停止 HTTP 服务、对账器与定时任务，最后释放存储资源.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	if a.reconciler != nil {
		if err := a.reconciler.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reconciler: %w", err))
		}
	}

	errs = append(errs, a.closeResources(ctx))

	return errors.Join(errs...)
}

func (a *App) closeResources(ctx context.Context) error {
	var errs []error

	if a.sched != nil {
		if err := a.sched.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}

		a.sched = nil
	}

	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}

		a.manager = nil
	}

	if err := tracing.ShutdownTracer(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}

	return errors.Join(errs...)
}

// Uploads 返回协调器.
func (a *App) Uploads() *service.UploadService {
	return a.uploads
}

// Scheduler 返回调度器.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.sched
}
