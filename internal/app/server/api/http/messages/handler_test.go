package messages

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/app/background"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, msg background.Message) background.Response {
	args := m.Called(ctx, msg)
	return args.Get(0).(background.Response)
}

func TestHandler_dispatch(t *testing.T) {
	tests := []struct {
		name     string
		input    MessageRequest
		response background.Response
		want     MessageResponse
	}{
		{
			name:     "success with fields",
			input:    MessageRequest{Type: "SAVE_DRAWING", Payload: json.RawMessage(`{"id":"drawing:1"}`)},
			response: background.OK().With("id", "drawing:1"),
			want:     MessageResponse{"success": true, "id": "drawing:1"},
		},
		{
			name:     "failure is still a response",
			input:    MessageRequest{Type: "NOPE"},
			response: background.Fail("Unknown message type"),
			want:     MessageResponse{"success": false, "error": "Unknown message type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			router := &MockDispatcher{}
			router.On("Dispatch", mock.Anything, background.Message{Type: tt.input.Type, Payload: tt.input.Payload}).
				Return(tt.response).Once()
			handler := NewHandler(router, slog.Default(), huma.Middlewares{})

			// Act
			output, err := handler.dispatch(context.Background(), &Input{Body: tt.input})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.want, output.Body)
			router.AssertExpectations(t)
		})
	}
}

func TestHandler_Route(t *testing.T) {
	// Arrange
	router := background.NewRouter(slog.Default())
	router.Register("PING", func(_ context.Context, payload json.RawMessage) (background.Response, error) {
		var in struct {
			N int `json:"n"`
		}
		if err := json.Unmarshal(payload, &in); err != nil {
			return background.Response{}, err
		}
		return background.OK().With("n", in.N+1), nil
	})

	_, api := humatest.New(t)
	NewHandler(router, slog.Default(), huma.Middlewares{}).SetupRoutes(api)

	// Act
	ok := api.Post("/api/v1/messages", map[string]any{"type": "PING", "payload": map[string]int{"n": 41}})
	missing := api.Post("/api/v1/messages", map[string]any{"payload": 1})

	// Assert
	require.Equal(t, http.StatusOK, ok.Code)
	assert.JSONEq(t, `{"success":true,"n":42}`, ok.Body.String())

	require.Equal(t, http.StatusOK, missing.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid message"}`, missing.Body.String())
}
