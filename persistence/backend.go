package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lixenwraith/airbladder/config"
)

// ErrNotFound is returned when a backend holds no value for a key
var ErrNotFound = errors.New("not found")

// Backend stores opaque documents by key
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// Open builds the backend selected by the storage config
func Open(cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileBackend(cfg.Path, logger)
	case config.BackendSQLite:
		return NewSQLiteBackend(cfg.Path, logger)
	case config.BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// MemoryBackend keeps documents in process memory
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// Load implements Backend
func (m *MemoryBackend) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save implements Backend
func (m *MemoryBackend) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

// Close implements Backend
func (m *MemoryBackend) Close() error {
	return nil
}
