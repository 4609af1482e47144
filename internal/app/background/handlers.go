package background

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/domain/search"
	"github.com/atharvakadlag/excalisave/internal/domain/sync"
)

// Syncer операции движка синхронизации, доступные обработчикам
type Syncer interface {
	Configure(ctx context.Context, cfg sync.Config) sync.Result
	RemoveConfiguration(ctx context.Context) sync.Result
	Configuration() *sync.Config
	IsAuthenticated(ctx context.Context) bool
	UpdateDocument(ctx context.Context, doc *document.Document) sync.Result
	DeleteDocument(ctx context.Context, doc *document.Document) sync.Result
	PullAll(ctx context.Context) sync.PullResult
	GetChangeHistory(ctx context.Context, limit int) []sync.Commit
	ResolvePending(ctx context.Context, id string, keepLocal bool) sync.Result
	PendingConflicts() []sync.ConflictRecord
}

// Handlers обработчики сообщений поверх сервисов документов, поиска и синхронизации
type Handlers struct {
	docs   *document.Service
	search *search.Service
	engine Syncer
	log    *slog.Logger
}

// NewHandlers создает обработчики
func NewHandlers(docs *document.Service, search *search.Service, engine Syncer, log *slog.Logger) *Handlers {
	return &Handlers{
		docs:   docs,
		search: search,
		engine: engine,
		log:    log.With("component", "message_handlers"),
	}
}

// Register регистрирует все обработчики в роутере
func (h *Handlers) Register(r *Router) {
	r.Register(SaveNewDrawing, h.saveNewDrawing)
	r.Register(SaveDrawing, h.saveDrawing)
	r.Register(SyncDrawing, h.syncDrawing)
	r.Register(SetDrawingSync, h.setDrawingSync)
	r.Register(DeleteDrawing, h.deleteDrawing)
	r.Register(DeleteDrawingSync, h.deleteDrawingSync)
	r.Register(GetDrawings, h.getDrawings)
	r.Register(SearchDrawings, h.searchDrawings)
	r.Register(CleanupFiles, h.cleanupFiles)
	r.Register(ConfigureGitHubProvider, h.configureGitHubProvider)
	r.Register(RemoveGitHubProvider, h.removeGitHubProvider)
	r.Register(GetGitHubConfig, h.getGitHubConfig)
	r.Register(CheckGitHubAuth, h.checkGitHubAuth)
	r.Register(GetChangeHistory, h.getChangeHistory)
	r.Register(PullAll, h.pullAll)
	r.Register(GetConflicts, h.getConflicts)
	r.Register(ResolveConflict, h.resolveConflict)
}

func decode(payload json.RawMessage, out any) error {
	if len(payload) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.Wrapf(ErrInvalidPayload, "%v", err)
	}
	return nil
}

func decodeOptional(payload json.RawMessage, out any) error {
	if len(payload) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return nil
	}
	return decode(payload, out)
}

func fromResult(res sync.Result) Response {
	resp := Response{Success: res.Success, Error: res.Error}.With("status", res.Status)
	if res.Conflict != nil {
		resp = resp.With("conflict", res.Conflict)
	}
	return resp
}

// lookup возвращает документ или ErrDrawingNotFound
func (h *Handlers) lookup(ctx context.Context, id string) (*document.Document, error) {
	doc, err := h.docs.Get(ctx, id)
	if errors.Is(err, document.ErrNotFound) || errors.Is(err, document.ErrInvalidID) {
		h.log.Warn("drawing not found", "id", id)
		return nil, ErrDrawingNotFound
	}
	return doc, err
}

func (h *Handlers) saveNewDrawing(ctx context.Context, payload json.RawMessage) (Response, error) {
	var req document.SaveRequest
	if err := decode(payload, &req); err != nil {
		return Response{}, err
	}

	doc, err := h.docs.Create(ctx, req)
	if err != nil {
		return Response{}, err
	}

	res := h.engine.UpdateDocument(ctx, doc)
	return OK().With("id", doc.ID).With("sync", res), nil
}

func (h *Handlers) saveDrawing(ctx context.Context, payload json.RawMessage) (Response, error) {
	var req document.SaveRequest
	if err := decode(payload, &req); err != nil {
		return Response{}, err
	}

	doc, err := h.docs.Update(ctx, req)
	if errors.Is(err, document.ErrNotFound) || errors.Is(err, document.ErrInvalidID) {
		h.log.Warn("drawing not found", "id", req.ID)
		return Response{}, ErrDrawingNotFound
	}
	if err != nil {
		return Response{}, err
	}

	res := h.engine.UpdateDocument(ctx, doc)
	return OK().With("id", doc.ID).With("sync", res), nil
}

func (h *Handlers) syncDrawing(ctx context.Context, payload json.RawMessage) (Response, error) {
	var req IDPayload
	if err := decode(payload, &req); err != nil {
		return Response{}, err
	}

	doc, err := h.lookup(ctx, req.ID)
	if err != nil {
		return Response{}, err
	}

	return fromResult(h.engine.UpdateDocument(ctx, doc)), nil
}

func (h *Handlers) setDrawingSync(ctx context.Context, payload json.RawMessage) (Response, error) {
	var req SetSyncPayload
	if err := decode(payload, &req); err != nil {
		return Response{}, err
	}

	if _, err := h.lookup(ctx, req.ID); err != nil {
		return Response{}, err
	}

	doc, err := h.docs.SetSync(ctx, req.ID, req.Sync)
	if err != nil {
		return Response{}, err
	}

	resp := OK().With("drawing", doc)
	if doc.SyncEnabled {
		resp = resp.With("sync", h.engine.UpdateDocument(ctx, doc))
	}
	return resp, nil
}

func (h *Handlers) deleteDrawing(ctx context.Context, payload json.RawMessage) (Response, error) {
	var req IDPayload
	if err := decode(payload, &req); err != nil {
		return Response{}, err
	}

	doc, err := h.lookup(ctx, req.ID)
	if errors.Is(err, ErrDrawingNotFound) {
		return OK(), nil
	}
	if err != nil {
		return Response{}, err
	}

	// Сначала удаленная копия, затем локальная
	res := h.engine.DeleteDocument(ctx, doc)
	if !res.Success && res.Status == sync.StatusFailed {
		h.log.Warn("remote delete failed, removing local copy anyway", "id", doc.ID, "error", res.Error)
	}

	if err := h.docs.Delete(ctx, doc.ID); err != nil {
		return Response{}, err
	}

	return OK().With("sync", res), nil
}

func (h *Handlers) deleteDrawingSync(ctx context.Context, payload json.RawMessage) (Response, error) {
	var req IDPayload
	if err := decode(payload, &req); err != nil {
		return Response{}, err
	}

	doc, err := h.lookup(ctx, req.ID)
	if errors.Is(err, ErrDrawingNotFound) {
		doc = &document.Document{ID: req.ID}
	} else if err != nil {
		return Response{}, err
	}

	// Удаленная копия удаляется независимо от флага sync
	target := doc.Clone()
	target.SyncEnabled = true
	return fromResult(h.engine.DeleteDocument(ctx, target)), nil
}

func (h *Handlers) getDrawings(ctx context.Context, _ json.RawMessage) (Response, error) {
	docs, err := h.docs.List(ctx)
	if err != nil {
		return Response{}, err
	}
	return OK().With("drawings", docs), nil
}

func (h *Handlers) searchDrawings(ctx context.Context, payload json.RawMessage) (Response, error) {
	var req SearchPayload
	if err := decodeOptional(payload, &req); err != nil {
		return Response{}, err
	}

	docs, err := h.search.Search(ctx, req.Query)
	if err != nil {
		return Response{}, err
	}
	return OK().With("drawings", docs), nil
}

func (h *Handlers) cleanupFiles(ctx context.Context, _ json.RawMessage) (Response, error) {
	ids, err := h.docs.UsedFileIDs(ctx)
	if err != nil {
		return Response{}, err
	}

	h.log.Debug("used file ids collected", "count", len(ids))
	return OK().With("fileIds", ids), nil
}

func (h *Handlers) configureGitHubProvider(ctx context.Context, payload json.RawMessage) (Response, error) {
	var cfg sync.Config
	if err := decode(payload, &cfg); err != nil {
		return Response{}, err
	}

	res := h.engine.Configure(ctx, cfg)
	if !res.Success {
		return fromResult(res), nil
	}

	pulled := h.engine.PullAll(ctx)
	return OK().
		With("status", res.Status).
		With("pulled", pulled.Pulled).
		With("skipped", pulled.Skipped), nil
}

func (h *Handlers) removeGitHubProvider(ctx context.Context, _ json.RawMessage) (Response, error) {
	return fromResult(h.engine.RemoveConfiguration(ctx)), nil
}

func (h *Handlers) getGitHubConfig(_ context.Context, _ json.RawMessage) (Response, error) {
	cfg := h.engine.Configuration()
	if cfg == nil {
		return OK().With("config", nil), nil
	}
	return OK().With("config", cfg.Masked()), nil
}

func (h *Handlers) checkGitHubAuth(ctx context.Context, _ json.RawMessage) (Response, error) {
	return OK().With("isAuthenticated", h.engine.IsAuthenticated(ctx)), nil
}

func (h *Handlers) getChangeHistory(ctx context.Context, payload json.RawMessage) (Response, error) {
	var req HistoryPayload
	if err := decodeOptional(payload, &req); err != nil {
		return Response{}, err
	}
	return OK().With("commits", h.engine.GetChangeHistory(ctx, req.Limit)), nil
}

func (h *Handlers) pullAll(ctx context.Context, _ json.RawMessage) (Response, error) {
	res := h.engine.PullAll(ctx)
	return fromResult(res.Result).
		With("pulled", res.Pulled).
		With("skipped", res.Skipped).
		With("ids", res.IDs), nil
}

func (h *Handlers) getConflicts(_ context.Context, _ json.RawMessage) (Response, error) {
	return OK().With("conflicts", h.engine.PendingConflicts()), nil
}

func (h *Handlers) resolveConflict(ctx context.Context, payload json.RawMessage) (Response, error) {
	var req ResolvePayload
	if err := decode(payload, &req); err != nil {
		return Response{}, err
	}
	return fromResult(h.engine.ResolvePending(ctx, req.ID, req.KeepLocal)), nil
}
