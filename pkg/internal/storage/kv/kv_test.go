package kv_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/storage/kv"
)

func TestMemoryKVGetSetDelete(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, &configs.KVConfig{Type: configs.KVTypeMemory})
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Get(ctx, "upload.session.missing")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "upload.session.a", []byte("v1"), time.Hour))

	got, err := store.Get(ctx, "upload.session.a")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	ok, err := store.Exists(ctx, "upload.session.a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "upload.session.a"))
	require.NoError(t, store.Delete(ctx, "upload.session.a"))

	_, err = store.Get(ctx, "upload.session.a")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestMemoryKVExpiry(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewMemoryKVWithCapacity(16)
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "ttl", []byte("x"), 24*time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []byte("y"), 0))

	now = now.Add(24*time.Hour - time.Second)
	_, err = store.Get(ctx, "ttl")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = store.Get(ctx, "ttl")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)

	got, err := store.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), got)
}

func TestMemoryKVEvictsOldest(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewMemoryKVWithCapacity(2)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, store.Set(ctx, "c", []byte("3"), 0))

	_, err = store.Get(ctx, "a")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestMemoryKVKeysGlob(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewMemoryKVWithCapacity(16)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "upload.session.1", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "upload.session.2", []byte("2"), 0))
	require.NoError(t, store.Set(ctx, "other", []byte("3"), 0))

	keys, err := store.Keys(ctx, "upload.session.*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"upload.session.1", "upload.session.2"}, keys)

	all, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGroupcacheKVDeleteIsVisible(t *testing.T) {
	ctx := context.Background()

	cfg := &configs.KVConfig{
		Type: configs.KVTypeGroupcache,
		Groupcache: configs.GroupcacheKVConfig{
			Name:       "test-groupcache-delete",
			CacheBytes: 1 << 20,
		},
	}

	store, err := kv.NewKVStore(ctx, cfg)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Delete(ctx, "k"))

	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestUnsupportedType(t *testing.T) {
	_, err := kv.NewKVStore(context.Background(), &configs.KVConfig{Type: "etcd"})
	require.Error(t, err)
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), &configs.KVConfig{Type: configs.KVTypeMemory})
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	benchKV(b, "memory", store)
	benchKVParallel(b, "memory", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_REDIS_BENCH=1 and REDIS_ADDR set (default 127.0.0.1:6379).
func BenchmarkRedisKV(b *testing.B) {
	if os.Getenv("ENABLE_REDIS_BENCH") == "" {
		b.Skip("set ENABLE_REDIS_BENCH=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	cfg := &configs.KVConfig{Type: configs.KVTypeRedis, Redis: configs.RedisKVConfig{Addr: addr}}

	store, err := kv.NewKVStore(context.Background(), cfg)
	if err != nil {
		b.Skipf("redis not available: %v", err)
		return
	}

	benchKV(b, "redis", store)
	benchKVParallel(b, "redis", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_NATS_BENCH=1 and NATS_URL set (default nats://127.0.0.1:4222)
func BenchmarkNATSKV(b *testing.B) {
	if os.Getenv("ENABLE_NATS_BENCH") == "" {
		b.Skip("set ENABLE_NATS_BENCH=1 to enable")
	}

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}

	cfg := &configs.KVConfig{Type: configs.KVTypeNATS, NATS: configs.NATSKVConfig{URL: url, Bucket: "bench-sessions"}}

	store, err := kv.NewKVStore(context.Background(), cfg)
	if err != nil {
		b.Skipf("nats not available: %v", err)
		return
	}

	benchKV(b, "nats", store)
	benchKVParallel(b, "nats", store)
	_ = store.Close()
}

// benchKV 模拟会话的 Set/Get/Delete 生命周期.
func benchKV(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	payload := []byte(`{"bucket":"chunkvault","objectKey":"alice/2025/01/01JABCDEF/video.mp4"}`)

	for _, ttl := range []time.Duration{0, 24 * time.Hour} {
		b.Run(fmt.Sprintf("%s/ttl=%s", name, ttl), func(b *testing.B) {
			b.ReportAllocs()

			for i := 0; b.Loop(); i++ {
				// Use hyphens to ensure keys are valid for NATS KV
				key := fmt.Sprintf("bench-%s-%d", name, i)
				if err := store.Set(ctx, key, payload, ttl); err != nil {
					b.Fatalf("set failed: %v", err)
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Fatalf("get failed: %v", err)
				}

				if err := store.Delete(ctx, key); err != nil {
					b.Fatalf("delete failed: %v", err)
				}
			}
		})
	}
}

// benchKVParallel 执行并行的 Set/Get/Delete 基准测试.
func benchKVParallel(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	payload := []byte(`{"bucket":"chunkvault","objectKey":"bench"}`)

	var ctr uint64

	b.Run(fmt.Sprintf("%s/parallel", name), func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				i := atomic.AddUint64(&ctr, 1)

				key := fmt.Sprintf("bench-%s-p-%d", name, i)
				if err := store.Set(ctx, key, payload, time.Hour); err != nil {
					b.Fatalf("set failed: %v", err)
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Fatalf("get failed: %v", err)
				}

				if err := store.Delete(ctx, key); err != nil {
					b.Fatalf("delete failed: %v", err)
				}
			}
		})
	})
}
