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

	"github.com/opsline/opsline-go/internal/platform/env"
	"github.com/opsline/opsline-go/internal/platform/httpserver"
	"github.com/opsline/opsline-go/internal/platform/metrics"
	"github.com/opsline/opsline-go/internal/platform/postgres"
	"github.com/opsline/opsline-go/internal/platform/session"
	"github.com/opsline/opsline-go/internal/seed"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("WATEROPS_HTTP_ADDR", ":8081")
	backend := env.String("WATEROPS_STORAGE", "memory")
	shutdownTimeout, err := env.Duration("WATEROPS_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	var store storage
	switch backend {
	case "memory":
		store = newMemoryStorage()
	case "postgres":
		dbCfg, err := postgres.ConfigFromEnv()
		if err != nil {
			logger.Error("invalid database config", "error", err)
			os.Exit(2)
		}
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			logger.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := newPostgresStorage(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		store = pg
	default:
		logger.Error("unknown storage backend", "backend", backend)
		os.Exit(2)
	}

	sessionCfg, err := session.ConfigFromEnv("waterops")
	if err != nil {
		logger.Error("invalid session config", "error", err)
		os.Exit(2)
	}
	sessions, err := session.NewManager(sessionCfg)
	if err != nil {
		logger.Error("session manager", "error", err)
		os.Exit(2)
	}

	api := newWaterOpsAPI(logger, store, sessions)

	// seed only the throwaway backend; Postgres data persists across runs
	if backend == "memory" {
		seedEnabled, err := seed.Enabled("waterops")
		if err != nil {
			logger.Error("invalid env", "error", err)
			os.Exit(2)
		}
		if seedEnabled {
			if err := api.loadSeed(ctx); err != nil {
				logger.Error("seed failed", "error", err)
				os.Exit(1)
			}
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("waterops"))
	mux.HandleFunc("/readyz", httpserver.Readyz("waterops"))
	mux.Handle("/metrics", metrics.Handler())
	api.register(mux)

	cfg := httpserver.Config{
		Service:         "waterops",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "waterops", mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
