package messages

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) dispatchOp() huma.Operation {
	return huma.Operation{
		OperationID: "dispatch-message",
		Method:      http.MethodPost,
		Path:        "/api/v1/messages",
		Summary:     "Dispatch a background message",
		Description: "Routes {type, payload} to the registered handler. Failures are reported in the body with success=false.",
		Tags:        []string{"messages"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
