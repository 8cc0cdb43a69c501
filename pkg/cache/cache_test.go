package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/chunkvault/pkg/cache"
	"github.com/yeisme/chunkvault/pkg/internal/storage/kv"
)

// testSession 测试用的会话结构体.
type testSession struct {
	Bucket    string `json:"bucket"`
	ObjectKey string `json:"objectKey"`
}

func newTestCache(t *testing.T, prefix string) (*cache.Cache, kv.KVStore) {
	t.Helper()

	store, err := kv.NewMemoryKVWithCapacity(64)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	return cache.NewCache(store, prefix), store
}

// TestCache_SetGet 测试读写与前缀.
func TestCache_SetGet(t *testing.T) {
	c, store := newTestCache(t, "upload.session.")
	ctx := context.Background()

	want := testSession{Bucket: "chunkvault", ObjectKey: "alice/2025/01/f1/a.bin"}
	if err := cache.Set(ctx, c, "u1", want, time.Hour); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	got, err := cache.Get[testSession](ctx, c, "u1")
	if err != nil {
		t.Fatalf("Failed to get cache: %v", err)
	}

	if got != want {
		t.Errorf("Retrieved %+v does not match original %+v", got, want)
	}

	// 底层键带前缀
	if ok, _ := store.Exists(ctx, "upload.session.u1"); !ok {
		t.Error("Expected prefixed key in underlying store")
	}
}

// TestCache_Miss 测试未命中返回 ErrKeyNotFound.
func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t, "p:")

	_, err := cache.Get[testSession](context.Background(), c, "missing")
	if !errors.Is(err, kv.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

// TestCache_Delete 测试删除与 Exists.
func TestCache_Delete(t *testing.T) {
	c, _ := newTestCache(t, "p:")
	ctx := context.Background()

	if err := cache.Set(ctx, c, "k", 42, 0); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	if ok, err := c.Exists(ctx, "k"); err != nil || !ok {
		t.Fatalf("Key should exist before deletion: %v", err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Failed to delete cache: %v", err)
	}

	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Error("Key should not exist after deletion")
	}
}

// TestCache_KeysAndClear 测试命名空间隔离.
func TestCache_KeysAndClear(t *testing.T) {
	store, err := kv.NewMemoryKVWithCapacity(64)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}

	ctx := context.Background()
	a := cache.NewCache(store, "a:")
	b := cache.NewCache(store, "b:")

	for _, k := range []string{"1", "2", "3"} {
		if err := cache.Set(ctx, a, k, k, 0); err != nil {
			t.Fatalf("Failed to set: %v", err)
		}
	}

	if err := cache.Set(ctx, b, "1", "keep", 0); err != nil {
		t.Fatalf("Failed to set: %v", err)
	}

	keys, err := a.Keys(ctx)
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}

	if len(keys) != 3 {
		t.Errorf("Expected 3 keys, got %d", len(keys))
	}

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Failed to clear cache: %v", err)
	}

	if keys, _ := a.Keys(ctx); len(keys) != 0 {
		t.Errorf("Expected 0 keys after clear, got %d", len(keys))
	}

	if v, err := cache.Get[string](ctx, b, "1"); err != nil || v != "keep" {
		t.Errorf("Other namespace should be untouched, got %q, %v", v, err)
	}
}
