package conflict

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/atharvakadlag/excalisave/cmd/client/cmd/types"
)

// ConflictsCmd - родительская команда для работы с конфликтами
var ConflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Неразрешенные конфликты синхронизации",
	Long: `Конфликт возникает, когда рисунок в GitHub изменился после последнего чтения.
Пока конфликт не разрешен, рисунок не отправляется.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		conflicts, err := app.Conflicts(ctx)
		if err != nil {
			return fmt.Errorf("ошибка получения конфликтов: %w", err)
		}
		if len(conflicts) == 0 {
			color.Green("✅ Конфликтов нет")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tЛокально\tВ GitHub\tОбнаружен\t\n")
		for _, c := range conflicts {
			local, remote := "-", "-"
			if c.Local != nil {
				local = c.Local.Name
			}
			if c.Remote != nil {
				remote = c.Remote.Name
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", c.ID, local, remote, c.DetectedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	ConflictsCmd.AddCommand(ResolveCmd)
}
