package storage

import (
	"sync"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
)

// Notifier рассылает уведомления об изменениях ключей подписчикам
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(document.Change)
}

// NewNotifier создает пустой Notifier
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(document.Change))}
}

// Subscribe регистрирует подписчика и возвращает функцию отписки
func (n *Notifier) Subscribe(fn func(document.Change)) (cancel func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Publish синхронно вызывает всех подписчиков
func (n *Notifier) Publish(change document.Change) {
	n.mu.RLock()
	subs := make([]func(document.Change), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
}
