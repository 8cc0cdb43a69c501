package kv

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yeisme/chunkvault/pkg/configs"
)

// MemoryKV 基于有界 LRU 的进程内 KV 实现，单实例部署与测试使用.
type MemoryKV struct {
	data *lru.Cache[string, []byte]
	now  func() time.Time
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(_ context.Context, cfg *configs.KVConfig) (KVStore, error) {
	capacity := configs.DefaultMemoryKVCapacity
	if cfg != nil && cfg.Memory.Capacity > 0 {
		capacity = cfg.Memory.Capacity
	}

	return NewMemoryKVWithCapacity(capacity)
}

// NewMemoryKVWithCapacity 创建指定容量的内存 KV.
func NewMemoryKVWithCapacity(capacity int) (*MemoryKV, error) {
	cache, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}

	return &MemoryKV{data: cache, now: time.Now}, nil
}

// SetClock 替换时间来源，测试过期行为时使用.
func (m *MemoryKV) SetClock(now func() time.Time) {
	m.now = now
}

// load 读取并解码，过期的键会被移除.
func (m *MemoryKV) load(key string) ([]byte, bool, error) {
	raw, ok := m.data.Get(key)
	if !ok {
		return nil, false, nil
	}

	val, expired, _, err := decodeWithTTL(raw, m.now())
	if err != nil {
		return nil, false, err
	}

	if expired {
		m.data.Remove(key)
		return nil, false, nil
	}

	return val, true, nil
}

// Get 获取键的值.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	val, ok, err := m.load(key)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, notFound(key)
	}

	// 返回副本
	result := make([]byte, len(val))
	copy(result, val)

	return result, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := encodeWithTTLAt(value, ttl, m.now())
	if err != nil {
		return err
	}

	// 复制值，避免调用方后续修改切片
	data := make([]byte, len(encoded))
	copy(data, encoded)

	m.data.Add(key, data)

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.data.Remove(key)
	return nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok, err := m.load(key)
	return ok, err
}

// Keys 获取匹配模式的键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0)

	for _, k := range m.data.Keys() {
		if !matchKey(pattern, k) {
			continue
		}

		if _, ok, err := m.load(k); err == nil && ok {
			keys = append(keys, k)
		}
	}

	return keys, nil
}

// Close 清空数据.
func (m *MemoryKV) Close() error {
	m.data.Purge()
	return nil
}

func init() {
	RegisterKVFactory(configs.KVTypeMemory, NewMemoryKV)
}
