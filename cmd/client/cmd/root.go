// cmd/client/cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atharvakadlag/excalisave/cmd/client/cmd/conflict"
	"github.com/atharvakadlag/excalisave/cmd/client/cmd/drawing"
	"github.com/atharvakadlag/excalisave/cmd/client/cmd/github"
	"github.com/atharvakadlag/excalisave/cmd/client/cmd/types"
	"github.com/atharvakadlag/excalisave/internal/app/client"
	"github.com/atharvakadlag/excalisave/internal/app/client/config"
	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

var (
	debug     bool
	serverURL string
	apiToken  string
)

var rootCmd = &cobra.Command{
	Use:   "excalisave",
	Short: "Excalisave - клиент фонового процесса синхронизации рисунков",
	Long: `Excalisave управляет локальными рисунками Excalidraw и их синхронизацией
с репозиторием GitHub через фоновый процесс excalisave-server.

Все команды отправляют сообщения в HTTP API фонового процесса.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Флаги командной строки важнее конфигурации
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}
	if apiToken != "" {
		cfg.APIToken = apiToken
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log := logger.NewWithLevel(cfg.Env, level)

	cmd.SetContext(types.WithApp(cmd.Context(), client.New(cfg, log)))
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес фонового процесса (host:port)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "токен HTTP API фонового процесса")

	rootCmd.AddCommand(drawing.DrawingsCmd)
	rootCmd.AddCommand(github.GitHubCmd)
	rootCmd.AddCommand(conflict.ConflictsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(eventsCmd)
}
