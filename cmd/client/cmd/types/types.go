package types

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atharvakadlag/excalisave/internal/app/client"
)

type contextKey string

// ClientAppKey ключ, под которым в контексте команды лежит *client.App
const ClientAppKey contextKey = "app"

// WithApp кладет приложение в контекст
func WithApp(ctx context.Context, app *client.App) context.Context {
	return context.WithValue(ctx, ClientAppKey, app)
}

// App достает приложение из контекста команды
func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}
