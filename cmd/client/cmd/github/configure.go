package github

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/atharvakadlag/excalisave/cmd/client/cmd/types"
	"github.com/atharvakadlag/excalisave/internal/domain/sync"
)

var (
	repoOwner string
	repoName  string
)

var ConfigureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Подключить репозиторий GitHub",
	Long: `Сохраняет токен и репозиторий в фоновом процессе.

Токен проверяется запросом к репозиторию. После успешной настройки
все рисунки из репозитория загружаются локально.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		fmt.Println("=== Настройка GitHub ===")
		fmt.Println()

		reader := bufio.NewReader(os.Stdin)
		if repoOwner == "" {
			repoOwner = prompt(reader, "Владелец репозитория: ")
		}
		if repoName == "" {
			repoName = prompt(reader, "Имя репозитория: ")
		}

		fmt.Print("Токен GitHub: ")
		token, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("ошибка чтения токена: %w", err)
		}
		fmt.Println()

		fmt.Println("Проверка токена...")
		ctx, cancel := app.Context()
		defer cancel()

		res, err := app.Configure(ctx, sync.Config{
			Token:     string(token),
			RepoOwner: repoOwner,
			RepoName:  repoName,
		})
		if err != nil {
			return fmt.Errorf("ошибка настройки: %w", err)
		}

		fmt.Println()
		color.Green("✅ Репозиторий %s/%s подключен", repoOwner, repoName)
		fmt.Printf("Загружено рисунков: %d\n", res.Pulled)
		if res.Skipped > 0 {
			color.Yellow("⚠️  Пропущено нечитаемых файлов: %d", res.Skipped)
		}
		return nil
	},
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

var RemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Отключить GitHub",
	Long:  `Удаляет сохраненные учетные данные. Локальные рисунки и файлы в репозитории не затрагиваются.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		if err := app.RemoveConfiguration(ctx); err != nil {
			return fmt.Errorf("ошибка удаления настроек: %w", err)
		}
		fmt.Println("✓ Настройки GitHub удалены")
		return nil
	},
}

var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Текущие настройки и проверка токена",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := app.Context()
		defer cancel()

		cfg, err := app.ProviderConfig(ctx)
		if err != nil {
			return fmt.Errorf("ошибка получения настроек: %w", err)
		}
		if cfg == nil {
			color.Yellow("⚠️  GitHub не настроен. Выполните: excalisave github configure")
			return nil
		}

		fmt.Printf("Репозиторий: %s/%s\n", cfg.RepoOwner, cfg.RepoName)
		fmt.Printf("Токен:       %s\n", cfg.Token)

		fmt.Print("🔐 Проверка: ")
		ok, err := app.IsAuthenticated(ctx)
		switch {
		case err != nil:
			color.Red("❌ %v", err)
		case ok:
			color.Green("✅ принят")
		default:
			color.Red("❌ отклонен")
		}
		return nil
	},
}

func init() {
	ConfigureCmd.Flags().StringVar(&repoOwner, "owner", "", "владелец репозитория")
	ConfigureCmd.Flags().StringVar(&repoName, "repo", "", "имя репозитория")
}
