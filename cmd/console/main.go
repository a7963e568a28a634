// Command console runs the admin console's in-process backend: the entity
// store with its persistence, the deferred-task scheduler and the simulated
// realtime generator.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sarkhq/console/internal/app"
	"github.com/sarkhq/console/internal/app/metrics"
	"github.com/sarkhq/console/internal/app/storage/kv"
	"github.com/sarkhq/console/internal/app/storage/persist"
	"github.com/sarkhq/console/internal/config"
	"github.com/sarkhq/console/pkg/logger"
)

func main() {
	var (
		configFile = flag.String("config", "", "YAML configuration file (overrides CONSOLE_CONFIG_FILE)")
		wipe       = flag.Bool("wipe", false, "Delete all persisted data before starting")
		dump       = flag.Bool("dump", false, "Print the dashboard and current snapshot as JSON and exit")
	)
	flag.Parse()

	if *configFile != "" {
		if err := os.Setenv(config.FileEnv, *configFile); err != nil {
			log.Fatalf("set config file: %v", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logr := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := kv.Open(ctx, kv.Options{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		Redis: kv.RedisOptions{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			Prefix:   cfg.Storage.Prefix,
		},
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
	if err != nil {
		logr.WithError(err).Fatal("open storage backend")
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logr.WithError(err).Warn("close storage backend")
		}
	}()

	if *wipe {
		if err := persist.Clear(ctx, backend); err != nil {
			logr.WithError(err).Fatal("wipe persisted data")
		}
		logr.Info("persisted data wiped")
	}

	application, err := app.New(ctx, cfg, backend, logr)
	if err != nil {
		logr.WithError(err).Fatal("initialise application")
	}

	if *dump {
		dashboard, err := application.Views.Dashboard(ctx)
		if err != nil {
			logr.WithError(err).Fatal("compute dashboard")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"currentUser": application.Session.CurrentUser(),
			"dashboard":   dashboard,
			"snapshot":    application.Snapshot(),
		}); err != nil {
			logr.WithError(err).Fatal("encode dump")
		}
		return
	}

	if err := application.Start(ctx); err != nil {
		logr.WithError(err).Fatal("start application")
	}
	logr.WithField("driver", cfg.Storage.Driver).
		WithField("services", application.Services()).
		Info("console started")

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logr.WithError(err).Error("metrics server failed")
			}
		}()
		logr.WithField("addr", cfg.Metrics.Addr).Info("metrics listening")
	}

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logr.WithError(err).Warn("shutdown metrics server")
		}
	}
	if err := application.Stop(shutdownCtx); err != nil {
		logr.WithError(err).Error("stop application")
	}
}
