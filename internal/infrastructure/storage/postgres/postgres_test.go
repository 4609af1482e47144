package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
)

// Интеграционный тест, нужен живой PostgreSQL в TEST_DATABASE_URI
func TestStorage_Integration(t *testing.T) {
	uri := os.Getenv("TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	ctx := context.Background()
	s, err := New(ctx, uri, slog.Default())
	require.NoError(t, err)
	defer s.Close()

	var changes []document.Change
	cancel := s.Subscribe(func(c document.Change) { changes = append(changes, c) })
	defer cancel()

	key := document.KeyPrefix + "integration"
	require.NoError(t, s.Set(ctx, key, []byte(`{"id":"drawing:integration"}`)))

	value, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"drawing:integration"}`, string(value))

	all, err := s.List(ctx, document.KeyPrefix)
	require.NoError(t, err)
	assert.Contains(t, all, key)

	require.NoError(t, s.Remove(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, document.ErrNotFound)

	assert.Equal(t, []document.Change{
		{Key: key, Op: document.ChangeSet},
		{Key: key, Op: document.ChangeRemove},
	}, changes)
}
