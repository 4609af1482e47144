package events

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
	dsync "github.com/atharvakadlag/excalisave/internal/domain/sync"
	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	maxMessageSize = 512
	sendBuffer     = 64
)

const (
	TypeChange   = "change"
	TypeConflict = "conflict"
)

// Event кадр потока изменений
type Event struct {
	Type     string                `json:"type"`
	Key      string                `json:"key,omitempty"`
	Op       document.ChangeOp     `json:"op,omitempty"`
	Conflict *dsync.ConflictRecord `json:"conflict,omitempty"`
}

// ChangeEvent событие изменения ключа хранилища
func ChangeEvent(c document.Change) Event {
	return Event{Type: TypeChange, Key: c.Key, Op: c.Op}
}

// ConflictEvent событие обнаруженного конфликта
func ConflictEvent(rec dsync.ConflictRecord) Event {
	return Event{Type: TypeConflict, Key: rec.ID, Conflict: &rec}
}

type client struct {
	id        string
	conn      *websocket.Conn
	send      chan Event
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub рассылает события всем подключенным websocket-клиентам
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	origins  map[string]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub создает пустой Hub. Браузерные подключения принимаются только с того же хоста
// или из allowedOrigins (например, chrome-extension://<id>).
func NewHub(log *slog.Logger, allowedOrigins ...string) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		origins: make(map[string]struct{}, len(allowedOrigins)),
		log:     log.With(slog.String("component", "events_hub")),
	}
	for _, origin := range allowedOrigins {
		if origin = normalizeOrigin(origin); origin != "" {
			h.origins[origin] = struct{}{}
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin пропускает клиентов без Origin (CLI), тот же хост и разрешенные источники
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if _, ok := h.origins[normalizeOrigin(origin)]; ok {
		return true
	}

	u, err := url.Parse(origin)
	if err == nil && u.Host != "" && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	h.log.Warn("events connection from foreign origin rejected", "origin", origin)
	return false
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
}

// Clients количество подключенных клиентов
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish отправляет событие всем клиентам. Медленный клиент с полным буфером отключается.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow events client", "client_id", c.id)
		h.unregister(c)
	}
}

// Close отключает всех клиентов
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("events client connected", "client_id", c.id)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.close()
		h.log.Debug("events client disconnected", "client_id", c.id)
	}
}

// ServeHTTP переводит соединение в websocket и подписывает его на события
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logger.Err(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, sendBuffer),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

// readPump только обслуживает pong и обнаруживает закрытие соединения
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("events client read error", "client_id", c.id, logger.Err(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				h.log.Debug("events write failed", "client_id", c.id, logger.Err(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
