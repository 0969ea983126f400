package storage

import (
	"context"
	"log/slog"
	"sync"

	"go_lms_backend/internal/config"
	"go_lms_backend/internal/middleware"
	"go_lms_backend/internal/model"

	"github.com/google/uuid"
)

// ObjectStore はテキストペイロードの外部保管を抽象化するインターフェースです。
// Put は保存したペイロードへの不透明なキーを返し、Get はキーから本文を復元します。
type ObjectStore interface {
	Put(ctx context.Context, text string) (string, error)
	Get(ctx context.Context, key string) (string, error)
}

// NewObjectStore は設定に応じて ObjectStore の実装を切り替えるファクトリです。
func NewObjectStore(cfg *config.Config) ObjectStore {
	switch cfg.Storage.Type {
	case "s3":
		slog.Info("Using S3ObjectStore", "bucket", cfg.Storage.Bucket, "region", cfg.Storage.Region)
		return NewS3ObjectStore(cfg)
	case "memory":
		slog.Info("Using MemoryObjectStore")
		return NewMemoryObjectStore()
	default:
		slog.Warn("Unknown storage type specified, defaulting to MemoryObjectStore.", "type", cfg.Storage.Type)
		return NewMemoryObjectStore()
	}
}

// --- MemoryObjectStore ---

// MemoryObjectStore はプロセス内メモリに保存する開発・テスト用の実装です。
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]string
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: make(map[string]string),
	}
}

func (s *MemoryObjectStore) Put(ctx context.Context, text string) (string, error) {
	key := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = text

	logger := middleware.GetLogger(ctx)
	logger.Debug("Stored payload in memory store", "key", key, "size", len(text))
	return key, nil
}

func (s *MemoryObjectStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text, ok := s.objects[key]
	if !ok {
		return "", model.ErrNotFound
	}
	return text, nil
}
