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
	"github.com/opsline/opsline-go/internal/platform/objectstore"
	"github.com/opsline/opsline-go/internal/platform/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("SQLREPORT_HTTP_ADDR", ":8085")
	dbPath := env.String("SQLREPORT_DB_PATH", "sqlreport.db")
	shutdownTimeout, err := env.Duration("SQLREPORT_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	archiveEnabled, err := env.Bool("SQLREPORT_ARCHIVE", false)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	// sandbox is built on a read-write connection, then served on a
	// read-only one
	rw, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		logger.Error("open sandbox", "error", err)
		os.Exit(1)
	}
	if err := setupSandbox(ctx, rw); err != nil {
		logger.Error("seed sandbox", "error", err)
		os.Exit(1)
	}
	if err := rw.Close(); err != nil {
		logger.Error("close sandbox writer", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.OpenReadOnly(ctx, dbPath)
	if err != nil {
		logger.Error("open sandbox read-only", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var archive *exportArchive
	if archiveEnabled {
		cfg, err := objectstore.ConfigFromEnv()
		if err != nil {
			logger.Error("invalid object store config", "error", err)
			os.Exit(2)
		}
		client, err := objectstore.NewMinIOClient(cfg)
		if err != nil {
			logger.Error("object store client", "error", err)
			os.Exit(1)
		}
		if err := objectstore.EnsureBuckets(ctx, client, cfg); err != nil {
			logger.Error("object store buckets", "error", err)
			os.Exit(1)
		}
		archive = &exportArchive{client: client, bucket: cfg.BucketExports}
		logger.Info("export archive enabled", "bucket", cfg.BucketExports)
	}

	api := newSQLReportAPI(logger, db, archive)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("sqlreport"))
	mux.HandleFunc("/readyz", httpserver.Readyz("sqlreport"))
	mux.Handle("/metrics", metrics.Handler())
	api.register(mux)

	cfg := httpserver.Config{
		Service:         "sqlreport",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "sqlreport", mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
