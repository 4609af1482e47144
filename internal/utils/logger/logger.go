package logger

import (
	"os"
	"strings"

	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/config"
)

// New создает логгер для окружения: local -> цветной вывод, dev -> JSON debug, prod -> JSON info
func New(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return setupPrettySlog()
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// NewWithLevel как New, но уровень из LOG_LEVEL имеет приоритет над уровнем окружения
func NewWithLevel(env, level string) *slog.Logger {
	lvl, ok := parseLevel(level)
	if !ok {
		return New(env)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if env == config.EnvLocal {
		return slog.New(PrettyHandlerOptions{SlogOpts: opts}.NewPrettyHandler(os.Stdout))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// Err атрибут ошибки с одним текстом, без стека cockroachdb/errors
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func setupPrettySlog() *slog.Logger {
	opts := PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
	}
	return slog.New(opts.NewPrettyHandler(os.Stdout))
}
