package drawing

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/atharvakadlag/excalisave/internal/domain/document"
	"github.com/atharvakadlag/excalisave/internal/domain/sync"
)

// DrawingsCmd - родительская команда для операций с рисунками
var DrawingsCmd = &cobra.Command{
	Use:     "drawings",
	Aliases: []string{"d"},
	Short:   "Управление рисунками",
	Long:    `Просмотр, поиск, синхронизация и удаление рисунков.`,
}

var outputFormat string

func printDrawings(docs []document.Document) error {
	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(docs)
	}

	if len(docs) == 0 {
		fmt.Println("Рисунки не найдены")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tНазвание\tSync\tСоздан\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t\n")
	for _, doc := range docs {
		syncMark := "✗"
		if doc.SyncEnabled {
			syncMark = "✓"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			doc.ID,
			truncate(doc.Name, 40),
			syncMark,
			doc.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	fmt.Printf("\nВсего рисунков: %d\n", len(docs))
	return nil
}

func printResult(res *sync.Result) {
	if res == nil {
		return
	}

	switch res.Status {
	case sync.StatusSynced, sync.StatusOK:
		color.Green("✅ %s", res.Status)
	case sync.StatusConflict:
		color.Red("⚔️  Конфликт: удаленная версия изменилась")
		fmt.Println("   Используйте 'excalisave conflicts resolve <id> --keep local|remote'")
	case sync.StatusNotSynced:
		fmt.Println("Синхронизация рисунка выключена")
	case sync.StatusNotConfigured:
		color.Yellow("⚠️  GitHub не настроен. Выполните: excalisave github configure")
	case sync.StatusUnauthenticated:
		color.Yellow("⚠️  GitHub отклонил токен. Выполните: excalisave github configure")
	default:
		color.Red("❌ %s: %s", res.Status, res.Error)
	}
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

func init() {
	DrawingsCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "table", "формат вывода (table, json)")

	DrawingsCmd.AddCommand(ListCmd)
	DrawingsCmd.AddCommand(SearchCmd)
	DrawingsCmd.AddCommand(SyncCmd)
	DrawingsCmd.AddCommand(PushCmd)
	DrawingsCmd.AddCommand(PullCmd)
	DrawingsCmd.AddCommand(DeleteCmd)
	DrawingsCmd.AddCommand(CleanupCmd)
}
