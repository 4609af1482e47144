package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/app/background"
	"github.com/atharvakadlag/excalisave/internal/app/client/config"
	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/events"
	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/health"
)

type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	eventsURL string
	token     string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 4,
		},
	}

	return &httpClient{
		client:    client,
		log:       log,
		baseURL:   cfg.BaseURL(),
		eventsURL: cfg.EventsURL(),
		token:     cfg.APIToken,
		userAgent: "Excalisave-Client/1.0",
	}
}

// HealthCheck проверяет доступность фонового процесса
func (h *httpClient) HealthCheck(ctx context.Context) (*health.Response, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return nil, fmt.Errorf("сервер недоступен: %w", err)
	}

	var out health.Response
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Send отправляет сообщение маршрутизатору. Ответ с success=false не является ошибкой транспорта.
func (h *httpClient) Send(ctx context.Context, msgType string, payload any) (background.Response, error) {
	msg := struct {
		Type    string `json:"type"`
		Payload any    `json:"payload,omitempty"`
	}{Type: msgType, Payload: payload}

	resp, err := h.doRequest(ctx, http.MethodPost, "/api/v1/messages", msg)
	if err != nil {
		return background.Response{}, err
	}

	var out background.Response
	if err := h.parseResponse(resp, &out); err != nil {
		return background.Response{}, err
	}
	return out, nil
}

// Events читает поток событий до отмены ctx или закрытия соединения
func (h *httpClient) Events(ctx context.Context, fn func(events.Event)) error {
	header := http.Header{}
	header.Set("User-Agent", h.userAgent)
	if h.token != "" {
		header.Set("Authorization", "Bearer "+h.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, h.eventsURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("подключение к потоку событий: статус %d", resp.StatusCode)
		}
		return fmt.Errorf("подключение к потоку событий: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		var ev events.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("чтение события: %w", err)
		}
		fn(ev)
	}
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
		"size", len(body),
	)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil {
			if errResp.Error != "" {
				return fmt.Errorf("ошибка сервера: %s", errResp.Error)
			}
			if errResp.Detail != "" {
				return fmt.Errorf("ошибка сервера: %s", errResp.Detail)
			}
		}
		return fmt.Errorf("ошибка сервера: статус %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}
