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
	"github.com/opsline/opsline-go/internal/seed"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("PROCESSMAP_HTTP_ADDR", ":8083")
	shutdownTimeout, err := env.Duration("PROCESSMAP_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	api := newProcessMapAPI(logger)

	seedEnabled, err := seed.Enabled("processmap")
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	if seedEnabled {
		if err := api.loadSeed(); err != nil {
			logger.Error("seed failed", "error", err)
			os.Exit(1)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("processmap"))
	mux.HandleFunc("/readyz", httpserver.Readyz("processmap"))
	mux.Handle("/metrics", metrics.Handler())
	api.register(mux)

	cfg := httpserver.Config{
		Service:         "processmap",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "processmap", mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
