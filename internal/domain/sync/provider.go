package sync

import "context"

// Provider удаленное файловое хранилище с оптимистичной блокировкой по SHA
type Provider interface {
	// CheckAuth проверяет, что учетные данные принимаются для настроенного репозитория
	CheckAuth(ctx context.Context) error

	// Get читает объект вместе с текущим SHA. ErrRemoteNotFound, если объекта нет.
	Get(ctx context.Context, id string) (*RemoteObject, error)

	// Put создает (sha пустой) или обновляет объект и возвращает новый SHA.
	// ErrConflict, если sha устарел.
	Put(ctx context.Context, id string, content []byte, sha string) (string, error)

	// Delete удаляет объект. ErrRemoteNotFound, если объекта уже нет.
	Delete(ctx context.Context, id, sha string) error

	// List возвращает все объекты хранилища
	List(ctx context.Context) ([]*RemoteObject, error)

	// History возвращает последние изменения, новые первыми
	History(ctx context.Context, limit int) ([]Commit, error)
}

// ProviderFactory создает провайдер для конфигурации
type ProviderFactory func(cfg Config) Provider

// TokenSealer шифрует токен перед записью в хранилище
type TokenSealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}
