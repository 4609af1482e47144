package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/events"
	"github.com/atharvakadlag/excalisave/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Env:  config.EnvLocal,
		HTTP: config.HTTP{Address: "127.0.0.1:0"},
		Store: config.Store{
			Driver:   config.DriverMemory,
			DataPath: filepath.Join(dir, "excalisave.db"),
		},
		GitHub: config.GitHub{APIURL: "http://127.0.0.1:1", Timeout: time.Second},
		Secret: config.Secret{KeyPath: filepath.Join(dir, "secret.key")},
	}
}

func send(t *testing.T, url, body string) map[string]any {
	t.Helper()
	resp, err := http.Post(url+"/api/v1/messages", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_SaveAndStream(t *testing.T) {
	// Arrange
	srv, err := New(context.Background(), testConfig(t), slog.Default())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = srv.shutdown() })

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/v1/events", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Act
	saved := send(t, ts.URL, `{"type":"SAVE_NEW_DRAWING","payload":{"name":"Board","excalidraw":"[]"}}`)
	listed := send(t, ts.URL, `{"type":"GET_DRAWINGS"}`)
	auth := send(t, ts.URL, `{"type":"CHECK_GITHUB_AUTH"}`)

	// Assert
	assert.Equal(t, true, saved["success"])
	id, _ := saved["id"].(string)
	require.NotEmpty(t, id)

	drawings, _ := listed["drawings"].([]any)
	assert.Len(t, drawings, 1)
	assert.Equal(t, false, auth["isAuthenticated"])

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev events.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.TypeChange, ev.Type)
	assert.Equal(t, id, ev.Key)
}

func TestServer_Run_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watch.Dir = t.TempDir()
	cfg.Watch.Interval = 10 * time.Millisecond

	srv, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_SQLiteStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.DataPath = filepath.Join(t.TempDir(), "nested", "excalisave.db")

	srv, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.shutdown() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	saved := send(t, ts.URL, `{"type":"SAVE_NEW_DRAWING","payload":{"name":"Persisted"}}`)
	assert.Equal(t, true, saved["success"])
}

func TestServer_WatcherImportsWithSync(t *testing.T) {
	// Arrange
	cfg := testConfig(t)
	cfg.Watch.Dir = t.TempDir()
	cfg.Watch.Interval = time.Second
	cfg.Watch.Sync = true

	srv, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.shutdown() })
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	path := filepath.Join(cfg.Watch.Dir, "Board.excalidraw")
	export := `{"type":"excalidraw","elements":[{"id":"a","type":"text","text":"hi"}],"appState":{}}`
	require.NoError(t, os.WriteFile(path, []byte(export), 0o644))

	// Act
	require.NotNil(t, srv.watcher)
	require.NoError(t, srv.watcher.Import(context.Background(), path))

	// Assert
	listed := send(t, ts.URL, `{"type":"GET_DRAWINGS"}`)
	drawings, _ := listed["drawings"].([]any)
	require.Len(t, drawings, 1)
	drawing, _ := drawings[0].(map[string]any)
	assert.Equal(t, "Board", drawing["name"])
	assert.Equal(t, true, drawing["sync"])
}

func TestServer_EventsAllowedOrigins(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTP.AllowedOrigins = []string{"chrome-extension://excalisave"}

	srv, err := New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.shutdown() })
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events"

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"chrome-extension://excalisave"}})
	require.NoError(t, err)
	conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
