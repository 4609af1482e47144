package background

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

const (
	errInvalidMessage = "Invalid message"
	errUnknownType    = "Unknown message type"
)

// Message запрос к фоновому процессу
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HandlerFunc обработчик одного типа сообщений
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (Response, error)

// Router реестр обработчиков по типу сообщения
type Router struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	log      *slog.Logger
}

// NewRouter создает пустой реестр
func NewRouter(log *slog.Logger) *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		log:      log.With("component", "message_router"),
	}
}

// Register регистрирует обработчик. Повторная регистрация заменяет прежний.
func (r *Router) Register(msgType string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[msgType] = h
}

// Types возвращает зарегистрированные типы сообщений
func (r *Router) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Dispatch находит обработчик и всегда возвращает ответ: ошибки и паники
// обработчика превращаются в {success:false, error}.
func (r *Router) Dispatch(ctx context.Context, msg Message) (resp Response) {
	if msg.Type == "" {
		return Fail(errInvalidMessage)
	}

	r.mu.RLock()
	h, ok := r.handlers[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.log.Warn("unknown message type", "type", msg.Type)
		return Fail(errUnknownType)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("message handler panicked", "type", msg.Type, "panic", rec)
			resp = Fail(fmt.Sprint(rec))
		}
	}()

	r.log.Debug("dispatching message", "type", msg.Type)
	resp, err := h(ctx, msg.Payload)
	if err != nil {
		r.log.Warn("message handler failed", "type", msg.Type, logger.Err(err))
		return Fail(err.Error())
	}

	return resp
}
