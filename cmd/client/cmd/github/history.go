package github

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atharvakadlag/excalisave/cmd/client/cmd/types"
)

var historyLimit int

var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Последние коммиты репозитория",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		commits, err := app.History(ctx, historyLimit)
		if err != nil {
			return fmt.Errorf("ошибка получения истории: %w", err)
		}
		if len(commits) == 0 {
			fmt.Println("История пуста или GitHub не настроен")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "SHA\tДата\tАвтор\tРисунок\tСообщение\t\n")
		for _, c := range commits {
			sha := c.ID
			if len(sha) > 7 {
				sha = sha[:7]
			}
			message, _, _ := strings.Cut(c.Message, "\n")
			drawing := c.DrawingID
			if drawing == "" {
				drawing = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
				sha,
				c.Author.Date.Local().Format("2006-01-02 15:04"),
				c.Author.Name,
				drawing,
				message,
			)
		}
		return w.Flush()
	},
}

func init() {
	HistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "количество коммитов (максимум 100)")
}
