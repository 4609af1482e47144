package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/app/background"
	"github.com/atharvakadlag/excalisave/internal/app/server/api"
	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/events"
	"github.com/atharvakadlag/excalisave/internal/app/watcher"
	"github.com/atharvakadlag/excalisave/internal/config"
	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/domain/search"
	dsync "github.com/atharvakadlag/excalisave/internal/domain/sync"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/github"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/storage/memory"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/storage/postgres"
	"github.com/atharvakadlag/excalisave/internal/infrastructure/storage/sqlite"
	"github.com/atharvakadlag/excalisave/internal/utils/crypto"
	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

const shutdownTimeout = 10 * time.Second

// Server фоновый процесс: хранилище, движок синхронизации, HTTP API и наблюдатель
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	closer  io.Closer
	router  *background.Router
	engine  *dsync.Engine
	hub     *events.Hub
	http    *http.Server
	watcher *watcher.Watcher
	cancels []func()
}

// New собирает все компоненты фонового процесса
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	kv, closer, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	sealer, err := crypto.LoadOrCreate(cfg.Secret.KeyPath, cfg.Secret.Passphrase)
	if err != nil {
		_ = closer.Close()
		return nil, errors.Wrap(err, "load secret key")
	}

	store := document.NewStore(kv, log)
	docs := document.NewService(store, log)
	factory := github.Factory(github.Options{
		BaseURL:       cfg.GitHub.APIURL,
		Timeout:       cfg.GitHub.Timeout,
		RatePerSecond: cfg.GitHub.RatePerSecond,
		MaxRetries:    cfg.GitHub.MaxRetries,
	}, log)
	engine := dsync.NewEngine(ctx, kv, store, factory, log, &dsync.EngineConfig{Sealer: sealer})

	router := background.NewRouter(log)
	background.NewHandlers(docs, search.NewService(docs, log), engine, log).Register(router)

	hub := events.NewHub(log, cfg.HTTP.AllowedOrigins...)
	s := &Server{
		cfg:    cfg,
		log:    log.With("component", "server"),
		closer: closer,
		router: router,
		engine: engine,
		hub:    hub,
	}

	s.cancels = append(s.cancels,
		store.OnChange(func(c document.Change) {
			if c.IsDocument() {
				hub.Publish(events.ChangeEvent(c))
			}
		}),
		engine.OnConflict(func(rec dsync.ConflictRecord) {
			hub.Publish(events.ConflictEvent(rec))
		}),
	)

	s.http = &http.Server{
		Addr: cfg.HTTP.Address,
		Handler: api.New(api.Deps{
			Router:   router,
			Prober:   engine,
			Events:   hub,
			APIToken: cfg.HTTP.APIToken,
		}, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Watch.Dir != "" {
		s.watcher = watcher.New(watcher.Options{
			Dir:          cfg.Watch.Dir,
			StartupDelay: cfg.Watch.StartupDelay,
			Interval:     cfg.Watch.Interval,
			Sync:         cfg.Watch.Sync,
		}, router, docs, log)
	}

	return s, nil
}

// Handler HTTP-обработчик API
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run обслуживает запросы до отмены ctx и корректно завершает работу
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.log.Info("HTTP API listening", "address", s.cfg.HTTP.Address, "auth", s.cfg.HTTP.APIToken != "")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http server")
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watchDone := make(chan struct{})
	if s.watcher != nil {
		go func() {
			defer close(watchDone)
			if err := s.watcher.Run(watchCtx); err != nil {
				errCh <- errors.Wrap(err, "watcher")
			}
		}()
	} else {
		close(watchDone)
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("shutting down")
	case runErr = <-errCh:
		s.log.Error("component failed", logger.Err(runErr))
	}

	stopWatch()
	<-watchDone
	return errors.CombineErrors(runErr, s.shutdown())
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, c := range s.cancels {
		c()
	}
	s.hub.Close()

	err := s.http.Shutdown(ctx)
	return errors.CombineErrors(err, s.closer.Close())
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (document.KV, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		st, err := postgres.New(ctx, cfg.Store.DatabaseURI, log)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open postgres store")
		}
		return st, st, nil

	case config.DriverMemory:
		log.Warn("using in-memory store, documents are lost on exit")
		return memory.New(), nopCloser{}, nil

	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Store.DataPath), 0o700); err != nil {
			return nil, nil, errors.Wrap(err, "create data dir")
		}
		st, err := sqlite.New(cfg.Store.DataPath, log)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open sqlite store")
		}
		return st, st, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
