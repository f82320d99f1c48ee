package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rafaelperez-debug/assistente-ia-map/internal/app"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/config"
	"github.com/rafaelperez-debug/assistente-ia-map/internal/httpx"
)

func main() {
	cfg := config.FromEnv()

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	r := httpx.NewRouter(logger, httpx.Deps{
		Pipeline:   a.Pipeline,
		Downloader: a.Downloader,
		Tel:        a.Tel,
		APIKey:     cfg.ServiceAPIKey,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	logger.Info("starting server", slog.String("port", cfg.Port), slog.String("root", cfg.AppRoot))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
