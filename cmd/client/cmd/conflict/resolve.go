package conflict

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/atharvakadlag/excalisave/cmd/client/cmd/types"
	"github.com/atharvakadlag/excalisave/internal/domain/sync"
)

var keep string

var ResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Разрешить конфликт",
	Long: `--keep local перезаписывает GitHub локальной версией.
--keep remote заменяет локальный рисунок версией из GitHub.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var keepLocal bool
		switch keep {
		case "local":
			keepLocal = true
		case "remote":
		default:
			return fmt.Errorf("--keep должен быть local или remote")
		}

		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		res, err := app.Resolve(ctx, args[0], keepLocal)
		if res != nil && res.Status == sync.StatusConflict {
			color.Red("⚔️  GitHub снова изменился, конфликт обновлен")
			return nil
		}
		if err != nil {
			return fmt.Errorf("ошибка разрешения конфликта: %w", err)
		}

		color.Green("✅ Конфликт разрешен (%s)", keep)
		return nil
	},
}

func init() {
	ResolveCmd.Flags().StringVar(&keep, "keep", "", "какую версию оставить: local или remote")
	_ = ResolveCmd.MarkFlagRequired("keep")
}
