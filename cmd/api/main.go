// Command api is the Scoracle Games settlement API server. Besides serving
// HTTP it delivers the settlement event outbox to Kafka and live websocket
// subscribers.
//
// Usage:
//
//	scoracle-games-api
//	API_PORT=8080 scoracle-games-api

// @title Scoracle Games Settlement API
// @version 1.0.0
// @description Settles Last Man Standing and Race to 33 game instances against football results, and serves their entries and standings.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Scoracle
// @license.name MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/scoracle-games/internal/api"
	"github.com/albapepper/scoracle-games/internal/api/handler"
	"github.com/albapepper/scoracle-games/internal/app"
	"github.com/albapepper/scoracle-games/internal/config"
	"github.com/albapepper/scoracle-games/internal/db"
	"github.com/albapepper/scoracle-games/internal/listener"
	"github.com/albapepper/scoracle-games/internal/notify"

	_ "github.com/albapepper/scoracle-games/docs" // swagger docs
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(level, logger); err != nil {
		logger.Error("API exited", "error", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred closes happen before main exits.
func run(level *slog.LevelVar, logger *slog.Logger) error {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Debug {
		level.Set(slog.LevelDebug)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("Database connected", "min_conns", cfg.DBPoolMinConns, "max_conns", cfg.DBPoolMaxConns)

	a, err := app.Build(ctx, cfg, pool, logger)
	if err != nil {
		return fmt.Errorf("build settlement engine: %w", err)
	}
	defer a.Close()

	// Live events
	hub := notify.NewHub(logger)
	go hub.Run(ctx)

	sinks := notify.Fanout{api.CacheInvalidator{Cache: a.Cache}, hub}
	if cfg.KafkaEnabled {
		kafka, err := notify.DialKafka(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer kafka.Close()
		sinks = append(sinks, kafka)
		logger.Info("Kafka publisher ready", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	dispatcher := notify.NewDispatcher(
		notify.NewPgQueue(pool, 5*time.Minute),
		sinks,
		notify.DispatchConfig{Interval: cfg.DispatchInterval},
		logger,
	)
	go dispatcher.Run(ctx)

	// Committed events wake the dispatcher instead of waiting for its ticker.
	go listener.Start(ctx, cfg.DatabaseURL, notify.Channel, func(string) { dispatcher.Wake() }, logger)

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort),
		Handler: api.NewRouter(handler.Deps{
			Store:     a.Store,
			Settler:   a.Engine,
			Lifecycle: a.Lifecycle,
			Enroller:  a.Resolver,
			GameTypes: a.Rules.Slugs(),
			DB:        pool,
			Hub:       hub,
			Cache:     a.Cache,
			Logger:    logger,
		}, cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.LeaseTTL + 10*time.Second, // POST settle runs a whole pass
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Serving", "addr", srv.Addr, "environment", cfg.Environment, "kafka", cfg.KafkaEnabled)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
