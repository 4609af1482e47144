package client

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/app/background"
	"github.com/atharvakadlag/excalisave/internal/app/client/config"
	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/events"
	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/health"
	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/domain/sync"
)

// App клиент фонового процесса: типизированные обертки над сообщениями
type App struct {
	config     *config.Config
	log        *slog.Logger
	httpClient *httpClient
}

// Failure ответ фонового процесса с success=false
type Failure struct {
	Type    string
	Message string
	Status  sync.Status
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return fmt.Sprintf("%s: %s", f.Type, f.Status)
	}
	return fmt.Sprintf("%s: %s", f.Type, f.Message)
}

func New(cfg *config.Config, log *slog.Logger) *App {
	return &App{
		config:     cfg,
		log:        log,
		httpClient: NewHTTPClient(cfg, log),
	}
}

// Config возвращает конфигурацию клиента
func (a *App) Config() *config.Config {
	return a.config
}

// Context контекст с таймаутом запроса, отменяемый по SIGINT/SIGTERM
func (a *App) Context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// call отправляет сообщение и превращает success=false в *Failure
func (a *App) call(ctx context.Context, msgType string, payload any) (background.Response, error) {
	resp, err := a.httpClient.Send(ctx, msgType, payload)
	if err != nil {
		return resp, err
	}
	if !resp.Success {
		f := &Failure{Type: msgType, Message: resp.Error}
		_ = resp.Decode("status", &f.Status)
		return resp, f
	}
	return resp, nil
}

// Health состояние фонового процесса
func (a *App) Health(ctx context.Context) (*health.Response, error) {
	return a.httpClient.HealthCheck(ctx)
}

// ConfigureResult итог настройки провайдера
type ConfigureResult struct {
	Pulled  int
	Skipped int
}

// Configure сохраняет учетные данные GitHub и загружает удаленные документы
func (a *App) Configure(ctx context.Context, cfg sync.Config) (*ConfigureResult, error) {
	resp, err := a.call(ctx, background.ConfigureGitHubProvider, cfg)
	if err != nil {
		return nil, err
	}

	var res ConfigureResult
	if err := resp.Decode("pulled", &res.Pulled); err != nil {
		return nil, err
	}
	if err := resp.Decode("skipped", &res.Skipped); err != nil {
		return nil, err
	}
	return &res, nil
}

// RemoveConfiguration удаляет учетные данные
func (a *App) RemoveConfiguration(ctx context.Context) error {
	_, err := a.call(ctx, background.RemoveGitHubProvider, nil)
	return err
}

// ProviderConfig конфигурация с замаскированным токеном или nil
func (a *App) ProviderConfig(ctx context.Context) (*sync.Config, error) {
	resp, err := a.call(ctx, background.GetGitHubConfig, nil)
	if err != nil {
		return nil, err
	}

	var cfg *sync.Config
	if err := resp.Decode("config", &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsAuthenticated принимает ли GitHub сохраненный токен
func (a *App) IsAuthenticated(ctx context.Context) (bool, error) {
	resp, err := a.call(ctx, background.CheckGitHubAuth, nil)
	if err != nil {
		return false, err
	}

	var ok bool
	err = resp.Decode("isAuthenticated", &ok)
	return ok, err
}

// Drawings список документов
func (a *App) Drawings(ctx context.Context) ([]document.Document, error) {
	return a.drawings(ctx, background.GetDrawings, nil)
}

// Search поиск документов с ранжированием
func (a *App) Search(ctx context.Context, query string) ([]document.Document, error) {
	return a.drawings(ctx, background.SearchDrawings, background.SearchPayload{Query: query})
}

func (a *App) drawings(ctx context.Context, msgType string, payload any) ([]document.Document, error) {
	resp, err := a.call(ctx, msgType, payload)
	if err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0)
	if err := resp.Decode("drawings", &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Save сохраняет новый документ и возвращает его id вместе с итогом синхронизации
func (a *App) Save(ctx context.Context, req document.SaveRequest) (string, *sync.Result, error) {
	resp, err := a.call(ctx, background.SaveNewDrawing, req)
	if err != nil {
		return "", nil, err
	}

	var id string
	if err := resp.Decode("id", &id); err != nil {
		return "", nil, err
	}
	var res *sync.Result
	err = resp.Decode("sync", &res)
	return id, res, err
}

// SetSync включает или выключает синхронизацию документа
func (a *App) SetSync(ctx context.Context, id string, enabled bool) (*sync.Result, error) {
	resp, err := a.call(ctx, background.SetDrawingSync, background.SetSyncPayload{ID: id, Sync: enabled})
	if err != nil {
		return nil, err
	}

	var res *sync.Result
	err = resp.Decode("sync", &res)
	return res, err
}

// Push отправляет документ в GitHub
func (a *App) Push(ctx context.Context, id string) (*sync.Result, error) {
	return a.result(ctx, background.SyncDrawing, background.IDPayload{ID: id})
}

// Delete удаляет документ локально и в GitHub
func (a *App) Delete(ctx context.Context, id string) error {
	_, err := a.call(ctx, background.DeleteDrawing, background.IDPayload{ID: id})
	return err
}

// DeleteRemote удаляет только удаленную копию
func (a *App) DeleteRemote(ctx context.Context, id string) (*sync.Result, error) {
	return a.result(ctx, background.DeleteDrawingSync, background.IDPayload{ID: id})
}

// Resolve разрешает конфликт выбором локальной или удаленной версии
func (a *App) Resolve(ctx context.Context, id string, keepLocal bool) (*sync.Result, error) {
	return a.result(ctx, background.ResolveConflict, background.ResolvePayload{ID: id, KeepLocal: keepLocal})
}

func (a *App) result(ctx context.Context, msgType string, payload any) (*sync.Result, error) {
	resp, err := a.call(ctx, msgType, payload)
	res := &sync.Result{Success: resp.Success, Error: resp.Error}
	_ = resp.Decode("status", &res.Status)
	_ = resp.Decode("conflict", &res.Conflict)
	return res, err
}

// Pull загружает все документы из GitHub
func (a *App) Pull(ctx context.Context) (*sync.PullResult, error) {
	resp, err := a.call(ctx, background.PullAll, nil)
	if err != nil {
		return nil, err
	}

	res := &sync.PullResult{Result: sync.Result{Success: resp.Success}}
	for key, out := range map[string]any{
		"status":  &res.Status,
		"pulled":  &res.Pulled,
		"skipped": &res.Skipped,
		"ids":     &res.IDs,
	} {
		if err := resp.Decode(key, out); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// History история коммитов репозитория
func (a *App) History(ctx context.Context, limit int) ([]sync.Commit, error) {
	resp, err := a.call(ctx, background.GetChangeHistory, background.HistoryPayload{Limit: limit})
	if err != nil {
		return nil, err
	}

	commits := make([]sync.Commit, 0)
	err = resp.Decode("commits", &commits)
	return commits, err
}

// Conflicts неразрешенные конфликты
func (a *App) Conflicts(ctx context.Context) ([]sync.ConflictRecord, error) {
	resp, err := a.call(ctx, background.GetConflicts, nil)
	if err != nil {
		return nil, err
	}

	conflicts := make([]sync.ConflictRecord, 0)
	err = resp.Decode("conflicts", &conflicts)
	return conflicts, err
}

// UsedFiles fileId изображений, на которые ссылаются документы
func (a *App) UsedFiles(ctx context.Context) ([]string, error) {
	resp, err := a.call(ctx, background.CleanupFiles, nil)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	err = resp.Decode("fileIds", &ids)
	return ids, err
}

// Events подписка на поток изменений
func (a *App) Events(ctx context.Context, fn func(events.Event)) error {
	return a.httpClient.Events(ctx, fn)
}
