package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sessiond/config"
	"sessiond/internal/app"
	"sessiond/internal/lib/logger/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const _shutdownPeriod = 15 * time.Second

func main() {
	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	log.Info("sessiond", "env", cfg.Env)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storageApp, err := app.NewStorageApp(cfg.StoragePath)
	if err != nil {
		panic(err)
	}

	application := app.New(log, cfg.HTTP.Port, cfg.HTTP.Timeout, storageApp, cfg.SessionTTL, cfg.RememberTTL)

	go func() {
		log.Info("server starting", "port", cfg.HTTP.Port)
		application.HTTPServer.MustRun()
	}()

	// Waiting for SIGINT (pkill -2) or SIGTERM
	<-rootCtx.Done()
	stop()

	log.Info("received shutdown signal, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), _shutdownPeriod)
	defer cancel()

	if err := application.HTTPServer.Stop(shutdownCtx); err != nil {
		log.Error("stopping http server", sl.Err(err))
	}

	if err := storageApp.Stop(); err != nil {
		log.Error("closing storage", sl.Err(err))
	}

	log.Info("server shut down gracefully")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
