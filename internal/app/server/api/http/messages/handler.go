package messages

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/app/background"
)

// Dispatcher маршрутизатор сообщений
type Dispatcher interface {
	Dispatch(ctx context.Context, msg background.Message) background.Response
}

type Handler struct {
	router     Dispatcher
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(router Dispatcher, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		router:     router,
		log:        log.With(slog.String("component", "messages_handler")),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.dispatchOp(), h.dispatch)
}

func (h *Handler) dispatch(ctx context.Context, input *Input) (*Output, error) {
	resp := h.router.Dispatch(ctx, input.Body.message())
	if !resp.Success && resp.Error != "" {
		h.log.Debug("message failed", "type", input.Body.Type, "error", resp.Error)
	}

	return &Output{Body: newMessageResponse(resp)}, nil
}
