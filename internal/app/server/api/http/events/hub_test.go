package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
	dsync "github.com/atharvakadlag/excalisave/internal/domain/sync"
)

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_PublishChange(t *testing.T) {
	// Arrange
	hub := NewHub(slog.Default())
	conn := dial(t, hub)

	// Act
	hub.Publish(ChangeEvent(document.Change{Key: "drawing:1", Op: document.ChangeSet}))

	// Assert
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, TypeChange, ev.Type)
	assert.Equal(t, "drawing:1", ev.Key)
	assert.Equal(t, document.ChangeSet, ev.Op)
}

func TestHub_PublishConflict(t *testing.T) {
	hub := NewHub(slog.Default())
	conn := dial(t, hub)

	hub.Publish(ConflictEvent(dsync.ConflictRecord{ID: "drawing:1"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, TypeConflict, ev.Type)
	require.NotNil(t, ev.Conflict)
	assert.Equal(t, "drawing:1", ev.Conflict.ID)
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub(slog.Default())
	conn := dial(t, hub)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(slog.Default())
	conn := dial(t, hub)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, hub.Clients())
}

func TestHub_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  func(srvURL string) string
		wantOK  bool
	}{
		{name: "no origin", origin: func(string) string { return "" }, wantOK: true},
		{name: "same host", origin: func(srvURL string) string { return srvURL }, wantOK: true},
		{name: "foreign site", origin: func(string) string { return "https://evil.example" }, wantOK: false},
		{
			name:    "allowed extension",
			allowed: []string{"chrome-extension://abcdef/"},
			origin:  func(string) string { return "chrome-extension://ABCDEF" },
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			hub := NewHub(slog.Default(), tt.allowed...)
			srv := httptest.NewServer(hub)
			t.Cleanup(srv.Close)
			t.Cleanup(hub.Close)

			header := http.Header{}
			if origin := tt.origin(srv.URL); origin != "" {
				header.Set("Origin", origin)
			}

			// Act
			conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)

			// Assert
			if tt.wantOK {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Zero(t, hub.Clients())
		})
	}
}
