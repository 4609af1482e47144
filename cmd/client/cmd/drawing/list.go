package drawing

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atharvakadlag/excalisave/cmd/client/cmd/types"
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список рисунков, новые первыми",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		docs, err := app.Drawings(ctx)
		if err != nil {
			return fmt.Errorf("ошибка получения списка рисунков: %w", err)
		}
		return printDrawings(docs)
	},
}

var SearchCmd = &cobra.Command{
	Use:   "search <запрос>",
	Short: "Нечеткий поиск по названию и тексту рисунков",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		docs, err := app.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("ошибка поиска: %w", err)
		}
		return printDrawings(docs)
	},
}
