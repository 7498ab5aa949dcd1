package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/machimap/machimap/runner"
)

func main() {
	_ = godotenv.Load() // load .env when present

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := runner.ParseConfig()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	defer func() { _ = log.Sync() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan

		log.Info("received signal, shutting down")

		cancel()
	}()

	app, err := runner.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))

		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("exiting with error", zap.Error(err))

		_ = app.Close(ctx)

		os.Exit(1)
	}

	_ = app.Close(ctx)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
