package github

import (
	"github.com/spf13/cobra"
)

// GitHubCmd - родительская команда для настройки удаленного хранилища
var GitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Настройка синхронизации с GitHub",
	Long:  `Подключение репозитория, проверка токена и история изменений.`,
}

func init() {
	GitHubCmd.AddCommand(ConfigureCmd)
	GitHubCmd.AddCommand(RemoveCmd)
	GitHubCmd.AddCommand(ShowCmd)
	GitHubCmd.AddCommand(HistoryCmd)
}
