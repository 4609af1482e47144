// GET  /api/v1/health    # Состояние процесса и провайдера (публичный)
// POST /api/v1/messages  # Сообщение {type, payload} маршрутизатору (auth)
// GET  /api/v1/events    # Поток изменений и конфликтов по websocket (auth)

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/app/background"
	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/events"
	healthAPI "github.com/atharvakadlag/excalisave/internal/app/server/api/http/health"
	messagesAPI "github.com/atharvakadlag/excalisave/internal/app/server/api/http/messages"
	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/middleware"
	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/middleware/auth"
	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/middleware/logger"
)

// Deps зависимости HTTP API фонового процесса
type Deps struct {
	Router   *background.Router
	Prober   healthAPI.Prober
	Events   *events.Hub
	APIToken string
}

type Handlers struct {
	Health   *healthAPI.Handler
	Messages *messagesAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register и websocket-потоком событий
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Excalisave API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	authMW := auth.New(deps.APIToken, log)
	h := handlers(deps, authMW, log)
	h.Health.SetupRoutes(API)
	h.Messages.SetupRoutes(API)

	mux.Method("GET", "/api/v1/events", authMW.Handler(deps.Events))

	return mux
}

func handlers(deps Deps, authMW *auth.Auth, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(deps.Prober, deps.Router, log, middlewares.GetAllAndClear())

	middlewares.Add(authMW.Middleware(), loggerMW.Middleware())
	messagesHandler := messagesAPI.NewHandler(deps.Router, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:   healthHandler,
		Messages: messagesHandler,
	}
}
