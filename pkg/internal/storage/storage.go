// Package storage 聚合上传协议依赖的全部存储资源：对象存储、元数据库、会话 KV 与消息队列.
//
// Example:
//
// 初始化
//
//	ctx := context.Background()
//	mgr, err := storage.New(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
// 获取存储客户端
//
//	objects := mgr.S3
//	dbClient := mgr.DB
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/chunkvault/pkg/configs"
	dbc "github.com/yeisme/chunkvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/chunkvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/chunkvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/chunkvault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/chunkvault/pkg/log"
	"github.com/yeisme/chunkvault/pkg/metrics"
)

// Manager 聚合所有存储资源.
type Manager struct {
	S3 s3c.ObjectStore
	DB *dbc.Client
	KV *kvc.Client
	// MQ 仅在启用生命周期事件或对账器从 MQ 消费时初始化，否则为 nil
	MQ *mqc.Client
}

// NeedsMQ 判断当前配置是否需要消息队列.
func NeedsMQ(cfg *configs.AppConfig) bool {
	return cfg.Events.Enabled ||
		(cfg.Reconciler.Enabled && cfg.Reconciler.Source == configs.ReconcilerSourceMQ)
}

// New 按配置初始化存储资源，任何一步失败都会关闭已打开的资源.
func New(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	dbi, err := dbc.New(ctx, &cfg.DB, dbc.Options{
		Debug:          cfg.Server.Debug,
		MetricsEnabled: cfg.Metrics.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	m.DB = dbi

	s3i, err := s3c.New(ctx, &cfg.S3)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("init object store: %w", err)
	}

	m.S3 = s3i

	kvi, err := kvc.NewKVClient(ctx, &cfg.KV)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("init kv: %w", err)
	}

	m.KV = kvi

	if NeedsMQ(cfg) {
		opts := mqc.Options{}
		if cfg.Metrics.Enabled {
			opts.Registerer = metrics.GetRegistry()
		}

		mqi, err := mqc.New(ctx, &cfg.MQ, opts)
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("init mq: %w", err)
		}

		m.MQ = mqi
	}

	nlog.Logger().Info().
		Str("db", string(cfg.DB.Type)).
		Str("s3", string(cfg.S3.Driver)).
		Str("kv", string(cfg.KV.Type)).
		Bool("mq", m.MQ != nil).
		Msg("storage manager initialized")

	return m, nil
}

// Close 释放所有已初始化的资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}

// HealthCheck 检查数据库与对象存储连通性.
func (m *Manager) HealthCheck(ctx context.Context) map[string]error {
	res := map[string]error{}

	if m.DB != nil {
		res["db"] = m.DB.Ping(ctx)
	}

	if m.S3 != nil {
		res["s3"] = m.S3.HealthCheck(ctx)
	}

	if m.KV != nil {
		_, err := m.KV.Exists(ctx, "health:probe")
		res["kv"] = err
	}

	return res
}
