package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Prober проверка учетных данных удаленного хранилища
type Prober interface {
	IsAuthenticated(ctx context.Context) bool
}

// Registry список поддерживаемых типов сообщений
type Registry interface {
	Types() []string
}

type Handler struct {
	prober     Prober
	registry   Registry
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(prober Prober, registry Registry, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		prober:     prober,
		registry:   registry,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	return &Output{
		Body: Response{
			Status:        "OK",
			Authenticated: h.prober.IsAuthenticated(ctx),
			MessageTypes:  h.registry.Types(),
		},
	}, nil
}
