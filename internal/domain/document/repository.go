package document

import "context"

// KV интерфейс хранилища ключ-значение хоста.
// Get и Remove отсутствующего ключа: Get возвращает ErrNotFound, Remove ошибки не возвращает.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	Subscribe(fn func(Change)) (cancel func())
}
