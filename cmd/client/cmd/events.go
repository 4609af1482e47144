package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/atharvakadlag/excalisave/cmd/client/cmd/types"
	"github.com/atharvakadlag/excalisave/internal/app/server/api/http/events"
)

var eventsJSON bool

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Поток изменений и конфликтов",
	Long:  `Подписывается на websocket-поток фонового процесса и печатает события до Ctrl+C.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		encoder := json.NewEncoder(os.Stdout)
		return app.Events(ctx, func(ev events.Event) {
			if eventsJSON {
				_ = encoder.Encode(ev)
				return
			}

			switch ev.Type {
			case events.TypeConflict:
				color.Red("⚔️  конфликт %s", ev.Key)
			default:
				fmt.Printf("• %s %s\n", ev.Op, ev.Key)
			}
		})
	},
}

func init() {
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "вывод событий в формате JSON")
}
