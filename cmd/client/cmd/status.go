package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/atharvakadlag/excalisave/cmd/client/cmd/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние фонового процесса",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		fmt.Printf("🌐 Фоновый процесс %s: ", app.Config().ServerAddress)
		h, err := app.Health(ctx)
		if err != nil {
			color.Red("❌ %v", err)
			return nil
		}
		color.Green("✅ %s", h.Status)

		fmt.Print("🔐 GitHub: ")
		if h.Authenticated {
			color.Green("✅ токен принят")
		} else {
			color.Yellow("⚠️  не настроен или токен отклонен")
		}

		fmt.Printf("📨 Типов сообщений: %d\n", len(h.MessageTypes))
		return nil
	},
}
