package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quickfi/internal/app"
	"quickfi/internal/platform/config"
	"quickfi/internal/platform/logger"
	"quickfi/internal/platform/middleware"
	"quickfi/internal/screening/handler"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	log.Info("initializing quickfi screening",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown cleanup failed", "error", err)
		}
	}()
	go a.RecordPoolStats(ctx, 15*time.Second)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.ContentTypeJSON)
	a.Health.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	handler.New(a.Service, log).Register(r)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Screening runs synchronously, so writes wait for the run budget.
		WriteTimeout: cfg.Pipeline.RunTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	log.Info("starting http server", "addr", cfg.Server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return
	}

	log.Info("server stopped")
}
