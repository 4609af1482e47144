package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

const bearerPrefix = "Bearer "

// Auth проверяет статический токен API. Пустой токен отключает проверку.
type Auth struct {
	token string
	log   *slog.Logger
}

func New(token string, log *slog.Logger) *Auth {
	return &Auth{
		token: token,
		log:   log.With(slog.String("component", "auth_middleware")),
	}
}

// Enabled сообщает, задан ли токен
func (a *Auth) Enabled() bool {
	return a.token != ""
}

// Allow проверяет заголовок Authorization или параметр token.
// Параметр нужен клиентам websocket, которые не умеют ставить заголовки.
func (a *Auth) Allow(header, query string) bool {
	if !a.Enabled() {
		return true
	}

	presented := query
	if strings.HasPrefix(header, bearerPrefix) {
		presented = header[len(bearerPrefix):]
	}
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.token)) == 1
}

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if !a.Allow(ctx.Header("Authorization"), "") {
			a.log.Warn("unauthorized request", "path", ctx.URL().Path)
			ctx.SetStatus(http.StatusUnauthorized)
			ctx.SetHeader("Content-Type", "application/json")

			if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
				"error": "Unauthorized",
			}); err != nil {
				a.log.Error("failed to encode auth error", logger.Err(err))
			}
			return
		}

		next(ctx)
	}
}

// Handler оборачивает обычный http.Handler той же проверкой
func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Allow(r.Header.Get("Authorization"), r.URL.Query().Get("token")) {
			a.log.Warn("unauthorized request", "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
