package document_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/storage/memory"
)

// MockKV is a mock implementation of the KV interface for testing
type MockKV struct {
	mock.Mock
}

func (m *MockKV) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	value, _ := args.Get(0).([]byte)
	return value, args.Error(1)
}

func (m *MockKV) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKV) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockKV) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	args := m.Called(ctx, prefix)
	values, _ := args.Get(0).(map[string][]byte)
	return values, args.Error(1)
}

func (m *MockKV) Subscribe(fn func(document.Change)) func() {
	m.Called(fn)
	return func() {}
}

func TestStore_SetGet(t *testing.T) {
	store := document.NewStore(memory.New(), slog.Default())
	ctx := context.Background()

	doc := &document.Document{Name: "Sketch", Payload: document.Payload{Excalidraw: `[]`}}
	require.NoError(t, store.Set(ctx, "drawing:1", doc))
	assert.Equal(t, "drawing:1", doc.ID)

	got, err := store.Get(ctx, "drawing:1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestStore_InvalidKeys(t *testing.T) {
	store := document.NewStore(memory.New(), slog.Default())
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{name: "get folders key", call: func() error { _, err := store.Get(ctx, document.FoldersKey); return err }},
		{name: "get bare prefix", call: func() error { _, err := store.Get(ctx, "drawing:"); return err }},
		{name: "set foreign key", call: func() error { return store.Set(ctx, "settings", &document.Document{}) }},
		{name: "set mismatched id", call: func() error {
			return store.Set(ctx, "drawing:1", &document.Document{ID: "drawing:2"})
		}},
		{name: "remove foreign key", call: func() error { return store.Remove(ctx, "githubConfig") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), document.ErrInvalidID)
		})
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	store := document.NewStore(memory.New(), slog.Default())

	_, err := store.Get(context.Background(), "drawing:missing")

	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestStore_GetAll_SkipsUnreadable(t *testing.T) {
	kv := new(MockKV)
	store := document.NewStore(kv, slog.Default())

	kv.On("List", mock.Anything, document.KeyPrefix).Return(map[string][]byte{
		"drawing:1": []byte(`{"id":"drawing:1","name":"ok","data":{"excalidraw":"[]"}}`),
		"drawing:2": []byte(`not json`),
	}, nil)

	docs, err := store.GetAll(context.Background())

	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, "ok", docs["drawing:1"].Name)
	kv.AssertExpectations(t)
}

func TestStore_Folders_EmptyWhenMissing(t *testing.T) {
	store := document.NewStore(memory.New(), slog.Default())

	folders, err := store.Folders(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, folders)
	assert.Empty(t, folders)
}

func TestStore_EnsureSyncFolder_Idempotent(t *testing.T) {
	store := document.NewStore(memory.New(), slog.Default())
	ctx := context.Background()

	first, err := store.EnsureSyncFolder(ctx)
	require.NoError(t, err)
	second, err := store.EnsureSyncFolder(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, document.SyncFolderName, first.Name)

	folders, err := store.Folders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}

func TestStore_IndexSync(t *testing.T) {
	store := document.NewStore(memory.New(), slog.Default())
	ctx := context.Background()

	require.NoError(t, store.SaveFolders(ctx, []document.Folder{{ID: "folder:work", Name: "Work", DrawingIDs: []string{"drawing:1"}}}))

	require.NoError(t, store.IndexSync(ctx, true, "drawing:1", "drawing:2", "drawing:1"))
	folders, err := store.Folders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, []string{"drawing:1"}, folders[0].DrawingIDs)
	assert.Equal(t, []string{"drawing:1", "drawing:2"}, folders[1].DrawingIDs)

	require.NoError(t, store.IndexSync(ctx, false, "drawing:1"))
	folders, err = store.Folders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"drawing:1"}, folders[0].DrawingIDs)
	assert.Equal(t, []string{"drawing:2"}, folders[1].DrawingIDs)

	require.NoError(t, store.Unindex(ctx, "drawing:2"))
	folders, err = store.Folders(ctx)
	require.NoError(t, err)
	assert.Empty(t, folders[1].DrawingIDs)
}

func TestStore_IndexSync_Concurrent(t *testing.T) {
	// Arrange
	store := document.NewStore(memory.New(), slog.Default())
	ctx := context.Background()
	const n = 50

	// Act
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.IndexSync(ctx, true, fmt.Sprintf("drawing:%d", i)))
		}(i)
	}
	wg.Wait()

	// Assert
	folders, err := store.Folders(ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Len(t, folders[0].DrawingIDs, n)
}

func TestStore_OnChange(t *testing.T) {
	store := document.NewStore(memory.New(), slog.Default())
	ctx := context.Background()

	var changes []document.Change
	cancel := store.OnChange(func(c document.Change) { changes = append(changes, c) })

	require.NoError(t, store.Set(ctx, "drawing:1", &document.Document{Name: "a"}))
	require.NoError(t, store.Remove(ctx, "drawing:1"))
	require.NoError(t, store.Remove(ctx, "drawing:1"))
	cancel()
	require.NoError(t, store.Set(ctx, "drawing:2", &document.Document{Name: "b"}))

	assert.Equal(t, []document.Change{
		{Key: "drawing:1", Op: document.ChangeSet},
		{Key: "drawing:1", Op: document.ChangeRemove},
	}, changes)
	assert.True(t, changes[0].IsDocument())
}
