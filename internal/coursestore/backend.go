package coursestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Backend persists the raw bytes of one storage key.
type Backend interface {
	Load(key string) ([]byte, bool, error)
	Store(key string, data []byte) error
}

// FileBackend keeps one file per key under a base directory. Writes go
// through a temp file and rename so a crash never leaves a half-written
// document behind.
type FileBackend struct {
	Dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("coursestore: create dir: %w", err)
	}
	return &FileBackend{Dir: dir}, nil
}

func (b *FileBackend) path(key string) string {
	name := strings.ReplaceAll(key, string(os.PathSeparator), "_") + ".json"
	return filepath.Join(b.Dir, name)
}

func (b *FileBackend) Load(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *FileBackend) Store(key string, data []byte) error {
	dst := b.path(key)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// MemoryBackend is used by tests and by redis-less development setups.
// StoreErr, when set, makes every write fail to exercise the persistence
// failure path.
type MemoryBackend struct {
	mu       sync.Mutex
	data     map[string][]byte
	StoreErr error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Load(key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (b *MemoryBackend) Store(key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.StoreErr != nil {
		return b.StoreErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	b.data[key] = cp
	return nil
}
