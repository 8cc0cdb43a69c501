package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/configs"
)

func TestInitConfigDefaultsWithoutFile(t *testing.T) {
	require.NoError(t, configs.InitConfig(t.TempDir()))

	cfg := configs.GetConfig()
	assert.Equal(t, configs.DefaultPartSize, cfg.Upload.PartSize)
	assert.Equal(t, 24*time.Hour, cfg.Upload.SessionTTL)
	assert.Equal(t, configs.S3DriverMinio, cfg.S3.Driver)
	assert.Equal(t, configs.KVTypeMemory, cfg.KV.Type)
	assert.Equal(t, 3, cfg.Client.Concurrency)
	assert.Equal(t, 2, cfg.Client.RetryMax)
	assert.Equal(t, 10, cfg.Reconciler.BatchSize)
	assert.Equal(t, "chunkvault", cfg.S3.BucketName)
}

func TestInitConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := []byte("upload:\n  part_size: 1024\ns3:\n  bucket_name: media\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	t.Setenv("CHUNKVAULT_RECONCILER_QUEUE_URL", "http://localhost:9324/queue/events")

	require.NoError(t, configs.InitConfig(dir))

	cfg := configs.GetConfig()
	assert.Equal(t, int64(1024), cfg.Upload.PartSize)
	assert.Equal(t, "media", cfg.S3.BucketName)
	assert.Equal(t, "http://localhost:9324/queue/events", cfg.Reconciler.QueueURL)
}

func TestDBConfigDSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  configs.DBConfig
		want string
	}{
		{"sqlite", configs.DBConfig{Type: configs.SQLite, Database: "meta"}, "file:meta.db"},
		{"postgres", configs.DBConfig{
			Type: configs.Pg, Host: "db", Port: 5432, User: "cv", Password: "p@ss",
			Database: "chunkvault", SSLMode: "disable",
		}, "postgres://cv:p%40ss@db:5432/chunkvault?sslmode=disable"},
		{"mysql", configs.DBConfig{
			Type: configs.MariaDB, Host: "db", Port: 3306, User: "cv", Password: "x", Database: "cv",
		}, "cv:x@tcp(db:3306)/cv?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"override", configs.DBConfig{Type: configs.Pg, DSN: "postgres://elsewhere/db"}, "postgres://elsewhere/db"},
		{"unknown", configs.DBConfig{Type: "oracle"}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cfg.GetDSN())
		})
	}
}
