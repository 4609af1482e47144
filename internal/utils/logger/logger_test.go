package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	crdb "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		env            string
		expectedLevel  slog.Level
		expectedPretty bool
	}{
		{
			name:           "local environment",
			env:            config.EnvLocal,
			expectedLevel:  slog.LevelDebug,
			expectedPretty: true,
		},
		{
			name:           "dev environment",
			env:            config.EnvDev,
			expectedLevel:  slog.LevelDebug,
			expectedPretty: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.env)
			require.NotNil(t, logger)
			ctx := context.Background()
			assert.Equal(t, tt.expectedLevel <= 0, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.expectedLevel <= slog.LevelInfo, logger.Enabled(ctx, slog.LevelInfo))
		})
	}
}

func TestSetupPrettySlog(t *testing.T) {
	logger := setupPrettySlog()
	require.NotNil(t, logger)

	ctx := context.Background()
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))
}

func TestNewLoggerLevels(t *testing.T) {
	ctx := context.Background()

	// Prod - только INFO и выше
	prodLogger := New(config.EnvProd)
	assert.False(t, prodLogger.Enabled(ctx, slog.LevelDebug))
	assert.True(t, prodLogger.Enabled(ctx, slog.LevelInfo))

	// Dev - DEBUG и выше
	devLogger := New(config.EnvDev)
	assert.True(t, devLogger.Enabled(ctx, slog.LevelDebug))
	assert.True(t, devLogger.Enabled(ctx, slog.LevelInfo))

	// Local - DEBUG (pretty)
	localLogger := New(config.EnvLocal)
	assert.True(t, localLogger.Enabled(ctx, slog.LevelDebug))
}

func TestNewWithLevel(t *testing.T) {
	ctx := context.Background()

	warnLogger := NewWithLevel(config.EnvDev, "warn")
	assert.False(t, warnLogger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, warnLogger.Enabled(ctx, slog.LevelWarn))

	// Неизвестный уровень - уровень окружения
	fallback := NewWithLevel(config.EnvProd, "verbose")
	assert.False(t, fallback.Enabled(ctx, slog.LevelDebug))
	assert.True(t, fallback.Enabled(ctx, slog.LevelInfo))
}

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	h := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}.NewPrettyHandler(&buf)
	log := slog.New(h).With("component", "test")

	log.Info("document synced", "id", "drawing:1", "error", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "document synced")
	assert.Contains(t, out, `"component": "test"`)
	assert.Contains(t, out, `"id": "drawing:1"`)
	assert.Contains(t, out, `"error": "boom"`)
}

func TestErr(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	errNotFound := crdb.New("document not found")

	log.Warn("lookup failed", Err(crdb.Wrap(errNotFound, "read drawing:1")))

	out := buf.String()
	assert.Contains(t, out, `error="read drawing:1: document not found"`)
	assert.NotContains(t, out, "logger_test.go")
	assert.Equal(t, "error", Err(nil).Key)
	assert.Empty(t, Err(nil).Value.String())
}
