package sync

import (
	"context"
	"encoding/json"
	gosync "sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

// Documents доступ движка к локальным документам
type Documents interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	Set(ctx context.Context, id string, doc *document.Document) error
	EnsureSyncFolder(ctx context.Context) (*document.Folder, error)
	IndexSync(ctx context.Context, enabled bool, ids ...string) error
}

// EngineConfig необязательные зависимости движка
type EngineConfig struct {
	Validator *document.Validator
	Sealer    TokenSealer
}

// Engine решает, когда и как документ уходит в удаленное хранилище,
// и держит неразрешенные конфликты до выбора пользователя.
type Engine struct {
	settings  document.KV
	docs      Documents
	factory   ProviderFactory
	validator *document.Validator
	sealer    TokenSealer
	log       *slog.Logger
	now       func() time.Time

	mu        gosync.RWMutex
	config    *Config
	provider  Provider
	pending   map[string]*ConflictRecord
	listeners map[int]func(ConflictRecord)
	nextID    int
}

// NewEngine создает движок и подгружает сохраненную конфигурацию
func NewEngine(ctx context.Context, settings document.KV, docs Documents, factory ProviderFactory, log *slog.Logger, cfg *EngineConfig) *Engine {
	if cfg == nil {
		cfg = &EngineConfig{}
	}
	if cfg.Validator == nil {
		cfg.Validator = document.MustValidator()
	}

	e := &Engine{
		settings:  settings,
		docs:      docs,
		factory:   factory,
		validator: cfg.Validator,
		sealer:    cfg.Sealer,
		log:       log.With("component", "sync_engine"),
		now:       time.Now,
		pending:   make(map[string]*ConflictRecord),
		listeners: make(map[int]func(ConflictRecord)),
	}

	if err := e.Reload(ctx); err != nil {
		e.log.Warn("failed to load remote configuration", logger.Err(err))
	}

	return e
}

// Reload перечитывает конфигурацию из хранилища и пересоздает провайдер
func (e *Engine) Reload(ctx context.Context) error {
	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cfg == nil || cfg.Validate() != nil {
		e.config = nil
		e.provider = nil
		return nil
	}

	e.config = cfg
	e.provider = e.factory(*cfg)
	e.log.Debug("remote configuration loaded", "owner", cfg.RepoOwner, "repo", cfg.RepoName)
	return nil
}

// Configure проверяет новую конфигурацию и применяет ее целиком или не применяет вовсе
func (e *Engine) Configure(ctx context.Context, cfg Config) Result {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return failure(err)
	}

	// 1. Проверяем доступ кандидатом, ничего не меняя
	candidate := e.factory(cfg)
	if err := candidate.CheckAuth(ctx); err != nil {
		e.log.Warn("remote provider probe failed", "owner", cfg.RepoOwner, "repo", cfg.RepoName, logger.Err(err))
		return failure(err)
	}

	// 2. Сохраняем конфигурацию
	if err := e.saveConfig(ctx, cfg); err != nil {
		return failure(errors.Wrap(err, "save remote configuration"))
	}

	// 3. Подменяем провайдер
	e.mu.Lock()
	e.config = &cfg
	e.provider = candidate
	e.pending = make(map[string]*ConflictRecord)
	e.mu.Unlock()

	if _, err := e.docs.EnsureSyncFolder(ctx); err != nil {
		e.log.Warn("failed to ensure sync folder", logger.Err(err))
	}

	e.log.Info("remote provider configured", "owner", cfg.RepoOwner, "repo", cfg.RepoName)
	return ok(StatusOK)
}

// RemoveConfiguration удаляет сохраненную конфигурацию и отключает провайдер
func (e *Engine) RemoveConfiguration(ctx context.Context) Result {
	if err := e.settings.Remove(ctx, ConfigKey); err != nil {
		return failure(errors.Wrap(err, "remove remote configuration"))
	}

	e.mu.Lock()
	e.config = nil
	e.provider = nil
	e.pending = make(map[string]*ConflictRecord)
	e.mu.Unlock()

	e.log.Info("remote provider removed")
	return ok(StatusOK)
}

// Configuration возвращает текущую конфигурацию или nil
func (e *Engine) Configuration() *Config {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.config == nil {
		return nil
	}
	cfg := *e.config
	return &cfg
}

// IsAuthenticated проверяет, принимает ли провайдер текущие учетные данные
func (e *Engine) IsAuthenticated(ctx context.Context) bool {
	p := e.currentProvider()
	if p == nil {
		return false
	}
	return p.CheckAuth(ctx) == nil
}

// UpdateDocument отправляет документ в удаленное хранилище с проверкой SHA
func (e *Engine) UpdateDocument(ctx context.Context, doc *document.Document) Result {
	if doc == nil {
		return failure(errors.Wrap(document.ErrInvalidID, "nil document"))
	}
	if !doc.SyncEnabled {
		return quiet(StatusNotSynced)
	}

	// Документ с неразрешенным конфликтом не отправляется до выбора пользователя,
	// но локальная сторона конфликта обновляется до последней правки
	if rec := e.refreshPending(doc); rec != nil {
		return Result{Status: StatusConflict, Error: ErrConflict.Error(), Conflict: rec, err: ErrConflict}
	}

	p, res, ready := e.gate(ctx)
	if !ready {
		return res
	}

	return e.push(ctx, p, doc)
}

func (e *Engine) push(ctx context.Context, p Provider, doc *document.Document) Result {
	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return failure(errors.Wrap(err, "encode document"))
	}

	// Читаем актуальный SHA непосредственно перед записью
	sha := ""
	remote, err := p.Get(ctx, doc.ID)
	switch {
	case err == nil:
		sha = remote.SHA
	case errors.Is(err, ErrRemoteNotFound):
	default:
		e.log.Warn("failed to read remote document", "id", doc.ID, logger.Err(err))
		return failure(err)
	}

	if _, err := p.Put(ctx, doc.ID, content, sha); err != nil {
		if errors.Is(err, ErrConflict) {
			return e.conflict(ctx, p, doc)
		}
		e.log.Warn("failed to write remote document", "id", doc.ID, logger.Err(err))
		return failure(err)
	}

	e.log.Debug("document synced", "id", doc.ID, "created", sha == "")
	return ok(StatusSynced)
}

func (e *Engine) conflict(ctx context.Context, p Provider, local *document.Document) Result {
	remote, err := p.Get(ctx, local.ID)
	if err != nil {
		return failure(errors.Wrapf(err, "conflict on %s, remote version unavailable", local.ID))
	}

	remoteDoc, err := e.validator.Decode(remote.Content)
	if err != nil {
		return failure(errors.Wrapf(err, "conflict on %s, remote version unreadable", local.ID))
	}

	rec := &ConflictRecord{
		ID:         local.ID,
		Local:      local.Clone(),
		Remote:     remoteDoc,
		DetectedAt: e.now().UTC(),
	}

	e.mu.Lock()
	e.pending[local.ID] = rec
	listeners := make([]func(ConflictRecord), 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(*rec)
	}

	e.log.Info("conflict detected", "id", local.ID)
	out := *rec
	return Result{Status: StatusConflict, Error: ErrConflict.Error(), Conflict: &out, err: ErrConflict}
}

// DeleteDocument удаляет удаленную копию. Отсутствие объекта считается успехом.
func (e *Engine) DeleteDocument(ctx context.Context, doc *document.Document) Result {
	if doc == nil {
		return failure(errors.Wrap(document.ErrInvalidID, "nil document"))
	}
	if !doc.SyncEnabled {
		return quiet(StatusNotSynced)
	}

	p, res, ready := e.gate(ctx)
	if !ready {
		return res
	}

	remote, err := p.Get(ctx, doc.ID)
	if errors.Is(err, ErrRemoteNotFound) {
		e.dropPending(doc.ID)
		return ok(StatusOK)
	}
	if err != nil {
		return failure(err)
	}

	if err := p.Delete(ctx, doc.ID, remote.SHA); err != nil && !errors.Is(err, ErrRemoteNotFound) {
		e.log.Warn("failed to delete remote document", "id", doc.ID, logger.Err(err))
		return failure(err)
	}

	e.dropPending(doc.ID)
	e.log.Debug("remote document deleted", "id", doc.ID)
	return ok(StatusOK)
}

// PullAll перезаписывает локальные документы удаленными версиями
func (e *Engine) PullAll(ctx context.Context) PullResult {
	p, res, ready := e.gate(ctx)
	if !ready {
		return PullResult{Result: res}
	}

	objects, err := p.List(ctx)
	if err != nil {
		e.log.Warn("failed to list remote documents", logger.Err(err))
		return PullResult{Result: failure(err)}
	}

	result := PullResult{Result: ok(StatusOK), IDs: make([]string, 0, len(objects))}
	for _, obj := range objects {
		doc, err := e.validator.Decode(obj.Content)
		if err == nil && obj.ID != "" && doc.ID != obj.ID {
			err = errors.Wrapf(document.ErrMalformedPayload, "id %q stored as %q", doc.ID, obj.ID)
		}
		if err != nil {
			e.log.Warn("skipping malformed remote document", "id", obj.ID, logger.Err(err))
			result.Skipped++
			continue
		}

		doc.SyncEnabled = true
		if err := e.docs.Set(ctx, doc.ID, doc); err != nil {
			e.log.Warn("failed to store pulled document", "id", doc.ID, logger.Err(err))
			result.Skipped++
			continue
		}

		e.dropPending(doc.ID)
		result.IDs = append(result.IDs, doc.ID)
	}
	result.Pulled = len(result.IDs)

	// Индексируем только после записи самих документов
	if len(result.IDs) > 0 {
		if err := e.docs.IndexSync(ctx, true, result.IDs...); err != nil {
			e.log.Warn("failed to index pulled documents", logger.Err(err))
		}
	}

	e.log.Info("pull finished", "pulled", result.Pulled, "skipped", result.Skipped)
	return result
}

// GetChangeHistory возвращает последние изменения удаленного хранилища, новые первыми.
// Без конфигурации или доступа возвращает пустой список.
func (e *Engine) GetChangeHistory(ctx context.Context, limit int) []Commit {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	p, _, ready := e.gate(ctx)
	if !ready {
		return []Commit{}
	}

	commits, err := p.History(ctx, limit)
	if err != nil {
		e.log.Warn("failed to fetch change history", logger.Err(err))
		return []Commit{}
	}
	if len(commits) > limit {
		commits = commits[:limit]
	}

	return commits
}

// ResolveConflict записывает выбранную сторону локально и повторяет отправку со свежим SHA.
// Локальная сторона берется из хранилища, чтобы не потерять правки, сделанные после конфликта.
// Повторная отправка сама может закончиться новым конфликтом.
func (e *Engine) ResolveConflict(ctx context.Context, rec ConflictRecord, keepLocal bool) Result {
	chosen := rec.Remote
	if keepLocal {
		current, err := e.latestLocal(ctx, rec)
		if err != nil {
			return failure(err)
		}
		chosen = current
	}
	if chosen == nil {
		return failure(errors.Wrapf(ErrNoConflict, "conflict %s has no chosen side", rec.ID))
	}

	doc := chosen.Clone()
	doc.ID = rec.ID
	doc.SyncEnabled = true

	if err := e.docs.Set(ctx, doc.ID, doc); err != nil {
		return failure(errors.Wrap(err, "store resolved document"))
	}

	e.dropPending(rec.ID)
	e.log.Info("conflict resolved", "id", rec.ID, "keep_local", keepLocal)

	return e.UpdateDocument(ctx, doc)
}

// ResolvePending разрешает ожидающий конфликт по id документа
func (e *Engine) ResolvePending(ctx context.Context, id string, keepLocal bool) Result {
	rec := e.pendingConflict(id)
	if rec == nil {
		return failure(errors.Wrapf(ErrNoConflict, "%s", id))
	}
	return e.ResolveConflict(ctx, *rec, keepLocal)
}

// PendingConflicts возвращает неразрешенные конфликты
func (e *Engine) PendingConflicts() []ConflictRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]ConflictRecord, 0, len(e.pending))
	for _, rec := range e.pending {
		out = append(out, *rec)
	}
	return out
}

// OnConflict подписывает на новые конфликты
func (e *Engine) OnConflict(fn func(ConflictRecord)) (cancel func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// gate отсекает операции без конфигурации или доступа
func (e *Engine) gate(ctx context.Context) (Provider, Result, bool) {
	p := e.currentProvider()
	if p == nil {
		return nil, quiet(StatusNotConfigured), false
	}

	if err := p.CheckAuth(ctx); err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			err = errors.Wrap(ErrUnauthenticated, err.Error())
		}
		return nil, failure(err), false
	}

	return p, Result{}, true
}

func (e *Engine) currentProvider() Provider {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.provider
}

func (e *Engine) pendingConflict(id string) *ConflictRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.pending[id]
	if !ok {
		return nil
	}
	out := *rec
	return &out
}

// refreshPending подменяет локальную сторону ожидающего конфликта на doc
func (e *Engine) refreshPending(doc *document.Document) *ConflictRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.pending[doc.ID]
	if !ok {
		return nil
	}
	rec.Local = doc.Clone()
	out := *rec
	return &out
}

// latestLocal возвращает текущую локальную версию документа из конфликта
func (e *Engine) latestLocal(ctx context.Context, rec ConflictRecord) (*document.Document, error) {
	current, err := e.docs.Get(ctx, rec.ID)
	switch {
	case err == nil:
		return current, nil
	case errors.Is(err, document.ErrNotFound):
		return rec.Local, nil
	default:
		return nil, errors.Wrapf(err, "read local version of %s", rec.ID)
	}
}

func (e *Engine) dropPending(id string) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

func (e *Engine) loadConfig(ctx context.Context) (*Config, error) {
	raw, err := e.settings.Get(ctx, ConfigKey)
	if errors.Is(err, document.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read remote configuration")
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(document.ErrMalformedPayload, "remote configuration: %v", err)
	}

	if e.sealer != nil && cfg.Token != "" {
		token, err := e.sealer.Open(cfg.Token)
		if err != nil {
			return nil, errors.Wrap(err, "open stored token")
		}
		cfg.Token = token
	}

	return &cfg, nil
}

func (e *Engine) saveConfig(ctx context.Context, cfg Config) error {
	stored := cfg
	if e.sealer != nil {
		sealed, err := e.sealer.Seal(cfg.Token)
		if err != nil {
			return errors.Wrap(err, "seal token")
		}
		stored.Token = sealed
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return e.settings.Set(ctx, ConfigKey, raw)
}
