package drawing

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/atharvakadlag/excalisave/cmd/client/cmd/types"
	"github.com/atharvakadlag/excalisave/internal/app/client"
)

var disableSync bool

var SyncCmd = &cobra.Command{
	Use:   "sync <id>",
	Short: "Включить или выключить синхронизацию рисунка",
	Long: `Включает синхронизацию рисунка с GitHub и сразу отправляет его.
С флагом --off синхронизация выключается, удаленная копия остается в репозитории.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		res, err := app.SetSync(ctx, args[0], !disableSync)
		if err != nil {
			return fmt.Errorf("ошибка изменения синхронизации: %w", err)
		}

		if disableSync {
			fmt.Println("✓ Синхронизация выключена")
			return nil
		}
		fmt.Println("✓ Синхронизация включена")
		printResult(res)
		return nil
	},
}

var PushCmd = &cobra.Command{
	Use:   "push <id>",
	Short: "Отправить рисунок в GitHub",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		res, err := app.Push(ctx, args[0])
		var failure *client.Failure
		if err != nil && !errors.As(err, &failure) {
			return fmt.Errorf("ошибка отправки: %w", err)
		}
		if failure != nil && failure.Status == "" {
			return failure
		}

		printResult(res)
		return nil
	},
}

var PullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Загрузить все рисунки из GitHub",
	Long:  `Перезаписывает локальные рисунки удаленными версиями. Нечитаемые файлы пропускаются.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		res, err := app.Pull(ctx)
		if err != nil {
			return fmt.Errorf("ошибка загрузки: %w", err)
		}

		color.Green("✅ Загружено: %d", res.Pulled)
		if res.Skipped > 0 {
			color.Yellow("⚠️  Пропущено: %d", res.Skipped)
		}
		return nil
	},
}

var remoteOnly bool

var DeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Удалить рисунок",
	Long: `Удаляет рисунок локально и из GitHub.
С флагом --remote-only удаляется только удаленная копия.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		if remoteOnly {
			res, err := app.DeleteRemote(ctx, args[0])
			if err != nil {
				return fmt.Errorf("ошибка удаления удаленной копии: %w", err)
			}
			printResult(res)
			return nil
		}

		if err := app.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("ошибка удаления: %w", err)
		}
		fmt.Println("✓ Рисунок удален")
		return nil
	},
}

var CleanupCmd = &cobra.Command{
	Use:   "files",
	Short: "Список используемых файлов изображений",
	Long:  `Печатает fileId изображений, на которые ссылается хотя бы один рисунок. Остальные файлы можно удалить.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		ids, err := app.UsedFiles(ctx)
		if err != nil {
			return fmt.Errorf("ошибка получения списка файлов: %w", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	SyncCmd.Flags().BoolVar(&disableSync, "off", false, "выключить синхронизацию")
	DeleteCmd.Flags().BoolVar(&remoteOnly, "remote-only", false, "удалить только копию в GitHub")
}
