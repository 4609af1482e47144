package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	gh "github.com/google/go-github/v66/github"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"

	dsync "github.com/atharvakadlag/excalisave/internal/domain/sync"
)

const (
	DefaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github.v3+json"
	userAgent      = "excalisave"
)

// Options параметры HTTP-клиента GitHub
type Options struct {
	BaseURL       string
	HTTPClient    *http.Client
	Timeout       time.Duration
	RatePerSecond float64
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
}

// HTTPError ответ GitHub, который не удалось отнести к известной категории
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("github: status %d: %s", e.StatusCode, e.Message)
}

// transport подписывает запросы токеном, ограничивает частоту и повторяет GET на 429/5xx
type transport struct {
	base       http.RoundTripper
	token      string
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        *slog.Logger
}

func newTransport(token string, opts Options, base http.RoundTripper, log *slog.Logger) *transport {
	if base == nil {
		base = http.DefaultTransport
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}

	return &transport{
		base:       base,
		token:      token,
		limiter:    limiter,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		log:        log,
	}
}

// newClient собирает go-github клиент поверх transport
func newClient(token string, opts Options, log *slog.Logger) *gh.Client {
	httpClient := &http.Client{}
	var base http.RoundTripper
	if opts.HTTPClient != nil {
		*httpClient = *opts.HTTPClient
		base = opts.HTTPClient.Transport
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = opts.Timeout
		if httpClient.Timeout <= 0 {
			httpClient.Timeout = 20 * time.Second
		}
	}
	httpClient.Transport = newTransport(token, opts, base, log)

	client := gh.NewClient(httpClient)
	client.UserAgent = userAgent

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL != "" && baseURL != DefaultBaseURL {
		parsed, err := url.Parse(baseURL + "/")
		if err != nil {
			log.Warn("invalid github api url, using default", "url", opts.BaseURL)
		} else {
			client.BaseURL = parsed
		}
	}

	return client
}

// RoundTrip повторяются только GET-запросы: запись с SHA нельзя безопасно отправить дважды
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	retryable := req.Method == http.MethodGet
	requestID := uuid.NewString()

	for attempt := 0; ; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		r := req.Clone(ctx)
		r.Header.Set("Authorization", "token "+t.token)
		r.Header.Set("Accept", acceptHeader)
		r.Header.Set("X-Request-Id", requestID)

		resp, err := t.base.RoundTrip(r)
		if err != nil {
			if retryable && attempt < t.maxRetries && ctx.Err() == nil {
				if waitErr := waitWithContext(ctx, t.retryDelay(attempt+1, "")); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			return nil, err
		}

		if retryable && shouldRetry(resp.StatusCode) && attempt < t.maxRetries {
			t.log.Debug("retrying github request", "method", req.Method, "status", resp.StatusCode, "attempt", attempt+1, "request_id", requestID)
			retryAfter := resp.Header.Get("Retry-After")
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if waitErr := waitWithContext(ctx, t.retryDelay(attempt+1, retryAfter)); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		return resp, nil
	}
}

func shouldRetry(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

// mapError переводит ответ go-github в ошибки движка синхронизации
func mapError(resp *gh.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp == nil || resp.Response == nil {
		return errors.Wrap(err, "github request")
	}

	message := err.Error()
	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Message != "" {
		message = errResp.Message
	}
	return mapStatus(resp.StatusCode, message)
}

func mapStatus(status int, message string) error {
	switch {
	case status == http.StatusConflict:
		return errors.Wrap(dsync.ErrConflict, message)
	case status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(message), "sha"):
		return errors.Wrap(dsync.ErrConflict, message)
	case status == http.StatusNotFound:
		return errors.Wrap(dsync.ErrRemoteNotFound, message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.Wrap(dsync.ErrUnauthenticated, message)
	default:
		return &HTTPError{StatusCode: status, Message: message}
	}
}

func (t *transport) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		if retryAfter > t.maxDelay {
			return t.maxDelay
		}
		return retryAfter
	}
	delay := t.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= t.maxDelay {
			return t.maxDelay
		}
	}
	if delay > t.maxDelay {
		return t.maxDelay
	}
	return delay
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if ts, err := time.Parse(time.RFC1123, header); err == nil {
		if delta := time.Until(ts); delta > 0 {
			return delta
		}
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
