package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atharvakadlag/excalisave/internal/app/server"
	"github.com/atharvakadlag/excalisave/internal/config"
	"github.com/atharvakadlag/excalisave/internal/utils/logger"
)

func main() {
	conf := config.MustLoad()
	log := logger.NewWithLevel(conf.Env, conf.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, conf, log)
	if err != nil {
		log.Error("failed to start", logger.Err(err))
		fmt.Fprintf(os.Stderr, "Ошибка запуска: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped with error", logger.Err(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}
