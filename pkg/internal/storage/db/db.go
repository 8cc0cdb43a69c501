// Package db 处理数据库存储操作，元数据表通过 gorm 访问.
package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormPrometheus "gorm.io/plugin/prometheus"

	"github.com/yeisme/chunkvault/pkg/configs"
	nlog "github.com/yeisme/chunkvault/pkg/log"
)

// DialectorFactory 由连接串构造 gorm 方言，各驱动文件在 init 中注册.
type DialectorFactory func(dsn string) gorm.Dialector

var dialectorFactories = map[configs.DBType]DialectorFactory{}

func RegisterDialectorFactory(factory DialectorFactory, dbTypes ...configs.DBType) {
	for _, t := range dbTypes {
		dialectorFactories[t] = factory
	}
}

// GetRegisteredDBTypes 返回编译进来的方言，按名字排序.
func GetRegisteredDBTypes() []configs.DBType {
	types := make([]configs.DBType, 0, len(dialectorFactories))
	for dbType := range dialectorFactories {
		types = append(types, dbType)
	}

	slices.Sort(types)

	return types
}

// withQuery 把驱动参数追加到连接串上.
func withQuery(dsn, query string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + query
	}

	return dsn + "?" + query
}

// Client 包装 GORM DB 客户端.
type Client struct {
	*gorm.DB
}

// Options 创建客户端的可选项.
type Options struct {
	Debug          bool // 输出全部 SQL
	MetricsEnabled bool // 注册 gorm prometheus 插件
}

// New 根据配置打开数据库连接并检查连通性.
func New(ctx context.Context, cfg *configs.DBConfig, opts Options) (*Client, error) {
	dsn := cfg.GetDSN()
	if dsn == "" {
		return nil, fmt.Errorf("failed to generate DSN for database type: %s", cfg.Type)
	}

	factory, exists := dialectorFactories[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := Open(factory(dsn), opts.Debug)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger := nlog.Component("db")

	if opts.MetricsEnabled {
		if err := db.RegisterGORMMetrics(cfg.Database); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	logger.Info().
		Str("type", cfg.GetDBType()).
		Str("database", cfg.Database).
		Bool("metrics", opts.MetricsEnabled).
		Msg("metadata database connected")

	return db, nil
}

// Open 使用给定 dialector 打开连接，日志输出到 zerolog.
func Open(dialector gorm.Dialector, debug bool) (*Client, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	l := nlog.Component("gorm")
	gormLogger := logger.New(
		&l,
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Client{DB: db}, nil
}

// Ping 检查数据库连通性.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close 关闭底层连接池.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// RegisterGORMMetrics 注册连接池指标，由 /metrics 统一暴露.
func (c *Client) RegisterGORMMetrics(dbName string) error {
	promConfig := gormPrometheus.Config{
		DBName:          dbName,
		RefreshInterval: 15,
	}

	if err := c.Use(gormPrometheus.New(promConfig)); err != nil {
		return fmt.Errorf("failed to register GORM prometheus plugin: %w", err)
	}

	return nil
}
