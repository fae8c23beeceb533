package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qs3c/powerplan_server/config"
)

const (
	BackendOSS    = "oss"
	BackendS3     = "s3"
	BackendMemory = "memory"

	ContentTypePDF = "application/pdf"
)

var ErrObjectNotFound = errors.New("object not found")

// Store 账单归档使用的对象存储
type Store interface {
	// Put 上传对象，返回访问 URL
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// SignedURL 生成临时下载地址
	SignedURL(ctx context.Context, key string, expire time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// New 按配置创建存储后端
func New(ctx context.Context, cfg *config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case BackendOSS:
		return NewOSSStore(&cfg.OSS)
	case BackendS3:
		return NewS3Store(ctx, &cfg.S3)
	case "", BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// BillObjectKey 归档账单的对象路径 bills/<userId>/<uuid>/<name>
func BillObjectKey(userID int64, name string) string {
	return fmt.Sprintf("bills/%d/%s/%s", userID, uuid.NewString(), name)
}

// MemoryStore 进程内存储，用于本地开发和测试
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = buf
	return "memory://" + key, nil
}

func (m *MemoryStore) SignedURL(_ context.Context, key string, expire time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", ErrObjectNotFound
	}
	return fmt.Sprintf("memory://%s?expires=%d", key, int64(expire.Seconds())), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Get 读取对象，测试用
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
