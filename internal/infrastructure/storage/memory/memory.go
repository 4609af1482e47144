package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/storage"
)

// Storage in-memory хранилище ключ-значение, используется в тестах и как запасной вариант
type Storage struct {
	mu     sync.RWMutex
	values map[string][]byte
	*storage.Notifier
}

// New создает пустое хранилище
func New() *Storage {
	return &Storage{
		values:   make(map[string][]byte),
		Notifier: storage.NewNotifier(),
	}
}

func (m *Storage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return nil, document.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *Storage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.values[key] = append([]byte(nil), value...)
	m.mu.Unlock()

	m.Publish(document.Change{Key: key, Op: document.ChangeSet})
	return nil
}

func (m *Storage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	_, ok := m.values[key]
	delete(m.values, key)
	m.mu.Unlock()

	if ok {
		m.Publish(document.Change{Key: key, Op: document.ChangeRemove})
	}
	return nil
}

func (m *Storage) List(_ context.Context, prefix string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte)
	for key, value := range m.values {
		if strings.HasPrefix(key, prefix) {
			out[key] = append([]byte(nil), value...)
		}
	}
	return out, nil
}
