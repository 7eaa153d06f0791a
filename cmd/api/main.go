package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/odonto-crm/internal/app/bootstrap"
	appconfig "github.com/wolfman30/odonto-crm/internal/config"
	"github.com/wolfman30/odonto-crm/pkg/logging"
)

func main() {
	// Local development keeps secrets in .env
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "failed to read .env:", err)
	}

	cfg := appconfig.Load()

	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting odonto-crm API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.ClinicTimezone,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	app := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{})
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close redis", "error", err)
		}
	}()
	if app.Redis == nil {
		logger.Info("redis disabled, availability and postal code caches are off")
	}
	go app.RateLimiter.Run(ctx)

	srv := newServer(cfg, app.Handler)

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	// Month overviews fan out one upstream call per day.
	writeTimeout := 15 * time.Second
	if upstream := 2 * cfg.UpstreamTimeout; upstream > writeTimeout {
		writeTimeout = upstream
	}
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// loadDotEnv loads path into the environment; a missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
