package document_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/storage/memory"
)

func newService(t *testing.T) (*document.Service, *document.Store) {
	t.Helper()
	store := document.NewStore(memory.New(), slog.Default())
	return document.NewService(store, slog.Default()), store
}

func syncFolderIDs(t *testing.T, store *document.Store) []string {
	t.Helper()
	folder, err := store.EnsureSyncFolder(context.Background())
	require.NoError(t, err)
	return folder.DrawingIDs
}

func TestService_Create(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	// Act
	doc, err := service.Create(ctx, document.SaveRequest{
		Name:       "Architecture Diagram",
		Sync:       true,
		Excalidraw: `[]`,
	})

	// Assert
	require.NoError(t, err)
	assert.True(t, document.IsDocumentKey(doc.ID))
	assert.False(t, doc.CreatedAt.IsZero())

	stored, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Architecture Diagram", stored.Name)
	assert.Equal(t, []string{doc.ID}, syncFolderIDs(t, store))
}

func TestService_Create_InvalidID(t *testing.T) {
	service, _ := newService(t)

	_, err := service.Create(context.Background(), document.SaveRequest{ID: "folder:1"})

	assert.ErrorIs(t, err, document.ErrInvalidID)
}

func TestService_Update_MergesFields(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, document.SaveRequest{
		ID:              "drawing:1",
		Name:            "Old",
		PreviewImage:    "data:image/png;base64,AAA",
		BackgroundColor: "#fff",
		Excalidraw:      `[{"type":"text","text":"v1"}]`,
		VersionFiles:    "1",
	})
	require.NoError(t, err)
	assert.Empty(t, syncFolderIDs(t, store))

	updated, err := service.Update(ctx, document.SaveRequest{
		ID:         "drawing:1",
		Sync:       true,
		Excalidraw: `[{"type":"text","text":"v2"}]`,
	})

	require.NoError(t, err)
	assert.Equal(t, "Old", updated.Name)
	assert.Equal(t, "data:image/png;base64,AAA", updated.PreviewImage)
	assert.Equal(t, "#fff", updated.BackgroundColor)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, `[{"type":"text","text":"v2"}]`, updated.Payload.Excalidraw)
	assert.Empty(t, updated.Payload.VersionFiles)
	assert.True(t, updated.SyncEnabled)
	assert.Equal(t, []string{"drawing:1"}, syncFolderIDs(t, store))

	// Флаг синхронизации не сбрасывается сохранением без него
	again, err := service.Update(ctx, document.SaveRequest{ID: "drawing:1", Excalidraw: `[]`})
	require.NoError(t, err)
	assert.True(t, again.SyncEnabled)
}

func TestService_Update_Missing(t *testing.T) {
	service, _ := newService(t)

	_, err := service.Update(context.Background(), document.SaveRequest{ID: "drawing:missing"})

	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestService_SetSync(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()
	_, err := service.Create(ctx, document.SaveRequest{ID: "drawing:1", Excalidraw: `[]`})
	require.NoError(t, err)

	doc, err := service.SetSync(ctx, "drawing:1", true)
	require.NoError(t, err)
	assert.True(t, doc.SyncEnabled)
	assert.Equal(t, []string{"drawing:1"}, syncFolderIDs(t, store))

	doc, err = service.SetSync(ctx, "drawing:1", false)
	require.NoError(t, err)
	assert.False(t, doc.SyncEnabled)
	assert.Empty(t, syncFolderIDs(t, store))
}

func TestService_Delete(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()
	_, err := service.Create(ctx, document.SaveRequest{ID: "drawing:1", Sync: true, Excalidraw: `[]`})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, "drawing:1"))
	require.NoError(t, service.Delete(ctx, "drawing:1"))

	_, err = service.Get(ctx, "drawing:1")
	assert.ErrorIs(t, err, document.ErrNotFound)
	assert.Empty(t, syncFolderIDs(t, store))
}

func TestService_List_NewestFirst(t *testing.T) {
	_, store := newService(t)
	ctx := context.Background()
	service := document.NewService(store, slog.Default())

	for _, id := range []string{"drawing:a", "drawing:b", "drawing:c"} {
		_, err := service.Create(ctx, document.SaveRequest{ID: id, Excalidraw: `[]`})
		require.NoError(t, err)
	}

	docs, err := service.List(ctx)

	require.NoError(t, err)
	require.Len(t, docs, 3)
	for i := 1; i < len(docs); i++ {
		prev, cur := docs[i-1], docs[i]
		assert.False(t, prev.CreatedAt.Before(cur.CreatedAt))
		if prev.CreatedAt.Equal(cur.CreatedAt) {
			assert.Less(t, prev.ID, cur.ID)
		}
	}
}

func TestService_UsedFileIDs(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	requests := []document.SaveRequest{
		{ID: "drawing:1", Excalidraw: `[{"type":"image","fileId":"f1"},{"type":"text","text":"x"},{"type":"image","fileId":"f2"}]`},
		{ID: "drawing:2", Excalidraw: `[{"type":"image","fileId":"f2"},{"type":"image","fileId":"f3"}]`},
		{ID: "drawing:3", Excalidraw: `not json`},
	}
	for _, req := range requests {
		_, err := service.Create(ctx, req)
		require.NoError(t, err)
	}

	ids, err := service.UsedFileIDs(ctx)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"f1", "f2", "f3"}, ids)
}
