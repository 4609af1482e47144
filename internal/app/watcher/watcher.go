package watcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/app/background"
	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

// Extension расширение файлов, экспортированных редактором
const Extension = ".excalidraw"

var ErrNotExport = errors.New("file is not an excalidraw export")

// Dispatcher маршрутизатор сообщений фонового процесса
type Dispatcher interface {
	Dispatch(ctx context.Context, msg background.Message) background.Response
}

// Lookup проверка существования документа
type Lookup interface {
	Get(ctx context.Context, id string) (*document.Document, error)
}

// Options настройки наблюдателя
type Options struct {
	Dir          string
	StartupDelay time.Duration
	Interval     time.Duration
	// Sync включает синхронизацию для впервые импортированных документов
	Sync bool
}

// Watcher следит за экспортами редактора и сохраняет их через маршрутизатор.
// Изменения копятся в наборе dirty и сбрасываются раз в Interval.
type Watcher struct {
	opts   Options
	router Dispatcher
	docs   Lookup
	log    *slog.Logger

	mu    sync.Mutex
	dirty map[string]struct{}
}

func New(opts Options, router Dispatcher, docs Lookup, log *slog.Logger) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	return &Watcher{
		opts:   opts,
		router: router,
		docs:   docs,
		log:    log.With(slog.String("component", "watcher"), slog.String("dir", opts.Dir)),
		dirty:  make(map[string]struct{}),
	}
}

// DocumentID стабильный идентификатор документа для файла
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return document.KeyPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(path))).String()
}

// Run блокируется до отмены ctx
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create fsnotify watcher")
	}
	defer fsw.Close()

	if err := fsw.Add(w.opts.Dir); err != nil {
		return errors.Wrapf(err, "watch %s", w.opts.Dir)
	}

	ready := time.Now().Add(w.opts.StartupDelay)
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	w.log.Info("watching for exported drawings", "startup_delay", w.opts.StartupDelay, "interval", w.opts.Interval)

	for {
		select {
		case <-ctx.Done():
			w.Flush(context.WithoutCancel(ctx))
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), Extension) {
				continue
			}
			if time.Now().Before(ready) {
				w.log.Debug("ignoring change during startup", "file", event.Name)
				continue
			}
			w.Mark(event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", logger.Err(err))

		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// Mark помечает файл для импорта при следующем сбросе
func (w *Watcher) Mark(path string) {
	w.mu.Lock()
	w.dirty[path] = struct{}{}
	w.mu.Unlock()
}

// Flush импортирует помеченные файлы и возвращает число сохраненных документов
func (w *Watcher) Flush(ctx context.Context) int {
	w.mu.Lock()
	paths := make([]string, 0, len(w.dirty))
	for p := range w.dirty {
		paths = append(paths, p)
	}
	w.dirty = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(paths)
	saved := 0
	for _, p := range paths {
		if err := w.Import(ctx, p); err != nil {
			w.log.Warn("failed to import drawing", "file", p, logger.Err(err))
			continue
		}
		saved++
	}
	return saved
}

// export формат файла .excalidraw
type export struct {
	Type     string          `json:"type"`
	Elements json.RawMessage `json:"elements"`
	AppState json.RawMessage `json:"appState"`
	Files    json.RawMessage `json:"files"`
}

// Import сохраняет файл как новый или существующий документ
func (w *Watcher) Import(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read export")
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "stat export")
	}

	var exp export
	if err := json.Unmarshal(data, &exp); err != nil {
		return errors.Wrapf(ErrNotExport, "%v", err)
	}
	if exp.Type != "excalidraw" || len(exp.Elements) == 0 {
		return errors.Wrapf(ErrNotExport, "type %q", exp.Type)
	}

	var state struct {
		ViewBackgroundColor string `json:"viewBackgroundColor"`
	}
	if len(exp.AppState) > 0 {
		_ = json.Unmarshal(exp.AppState, &state)
	}

	version := strconv.FormatInt(info.ModTime().UnixMilli(), 10)
	req := document.SaveRequest{
		ID:               DocumentID(path),
		Name:             strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Sync:             w.opts.Sync,
		BackgroundColor:  state.ViewBackgroundColor,
		Excalidraw:       string(exp.Elements),
		ExcalidrawState:  string(exp.AppState),
		VersionFiles:     version,
		VersionDataState: version,
	}

	msgType := background.SaveDrawing
	if _, err := w.docs.Get(ctx, req.ID); errors.Is(err, document.ErrNotFound) {
		msgType = background.SaveNewDrawing
	} else if err != nil {
		return errors.Wrap(err, "lookup drawing")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "encode drawing")
	}

	resp := w.router.Dispatch(ctx, background.Message{Type: msgType, Payload: payload})
	if !resp.Success {
		return errors.Newf("%s: %s", msgType, resp.Error)
	}

	w.log.Debug("drawing imported", "file", path, "id", req.ID, "type", msgType)
	return nil
}
