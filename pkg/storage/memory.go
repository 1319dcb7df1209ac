package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStorage keeps evidence in process. It backs local development when
// Cloudinary is not configured, and tests.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	seq     int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (m *MemoryStorage) Store(ctx context.Context, r io.Reader, fileName string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ref := fmt.Sprintf("mem://%d/%s", m.seq, fileName)
	m.objects[ref] = data
	return ref, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
