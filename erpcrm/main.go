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

	addr := env.String("ERPCRM_HTTP_ADDR", ":8082")
	shutdownTimeout, err := env.Duration("ERPCRM_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	api := newERPCRMAPI(logger)

	seedEnabled, err := seed.Enabled("erpcrm")
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
	mux.HandleFunc("/healthz", httpserver.Healthz("erpcrm"))
	mux.HandleFunc("/readyz", httpserver.Readyz("erpcrm"))
	mux.Handle("/metrics", metrics.Handler())
	api.register(mux)

	cfg := httpserver.Config{
		Service:         "erpcrm",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "erpcrm", mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
