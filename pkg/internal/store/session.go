package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/chunkvault/pkg/cache"
	"github.com/yeisme/chunkvault/pkg/internal/storage/kv"
)

// SessionKeyPrefix 会话在 KV 中的键前缀.
const SessionKeyPrefix = "upload.session."

// UploadSession 进行中的分段上传在对象存储中的坐标，按 uploadId 保存.
type UploadSession struct {
	Bucket    string `json:"bucket"`
	ObjectKey string `json:"objectKey"`
}

// SessionStore 基于 KV 的上传会话存储.
type SessionStore struct {
	cache *cache.Cache
}

// NewSessionStore 创建会话存储.
func NewSessionStore(store kv.KVStore) *SessionStore {
	return &SessionStore{cache: cache.NewCache(store, SessionKeyPrefix)}
}

// Set 写入会话.
func (s *SessionStore) Set(ctx context.Context, uploadID string, session UploadSession, ttl time.Duration) error {
	if err := cache.Set(ctx, s.cache, uploadID, session, ttl); err != nil {
		return fmt.Errorf("set session %s: %w", uploadID, err)
	}

	return nil
}

// Get 读取会话，不存在或过期时返回 ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, uploadID string) (UploadSession, error) {
	session, err := cache.Get[UploadSession](ctx, s.cache, uploadID)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return UploadSession{}, fmt.Errorf("%w: %s", ErrSessionNotFound, uploadID)
	}

	if err != nil {
		return UploadSession{}, fmt.Errorf("get session %s: %w", uploadID, err)
	}

	return session, nil
}

// Delete 删除会话，不存在不是错误.
func (s *SessionStore) Delete(ctx context.Context, uploadID string) error {
	if err := s.cache.Delete(ctx, uploadID); err != nil {
		return fmt.Errorf("delete session %s: %w", uploadID, err)
	}

	return nil
}

// List 返回当前全部会话 id，调试用.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	return s.cache.Keys(ctx)
}
