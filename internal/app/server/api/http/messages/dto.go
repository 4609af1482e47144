package messages

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"

	"github.com/atharvakadlag/excalisave/internal/app/background"
)

// Input запрос к маршрутизатору сообщений
type Input struct {
	Body MessageRequest
}

// Output ответ маршрутизатора
type Output struct {
	Body MessageResponse
}

// MessageRequest сообщение с произвольным payload
type MessageRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Schema описывает payload как произвольное значение.
// Поле type не обязательно: без него маршрутизатор сам вернет "Invalid message".
func (MessageRequest) Schema(huma.Registry) *huma.Schema {
	s := &huma.Schema{
		Type: huma.TypeObject,
		Properties: map[string]*huma.Schema{
			"type": {
				Type:        huma.TypeString,
				Description: "Message type, e.g. SAVE_DRAWING",
			},
			"payload": {
				Description: "Message-specific payload",
			},
		},
		AdditionalProperties: true,
	}
	s.PrecomputeMessages()
	return s
}

func (r MessageRequest) message() background.Message {
	return background.Message{Type: r.Type, Payload: r.Payload}
}

// MessageResponse плоский ответ: success, error и поля конкретного обработчика
type MessageResponse map[string]any

func newMessageResponse(resp background.Response) MessageResponse {
	out := make(MessageResponse, len(resp.Fields)+2)
	for k, v := range resp.Fields {
		out[k] = v
	}
	out["success"] = resp.Success
	if resp.Error != "" {
		out["error"] = resp.Error
	} else {
		delete(out, "error")
	}
	return out
}

func (MessageResponse) Schema(huma.Registry) *huma.Schema {
	s := &huma.Schema{
		Type: huma.TypeObject,
		Properties: map[string]*huma.Schema{
			"success": {Type: huma.TypeBoolean},
			"error":   {Type: huma.TypeString},
		},
		Required:             []string{"success"},
		AdditionalProperties: true,
	}
	s.PrecomputeMessages()
	return s
}
