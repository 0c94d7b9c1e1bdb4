// Package server initializes and runs the document transformation
// service: database, storage backend, processing pipeline, HTTP API,
// signal handling, and the background expiry sweep.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmogilev/docmill/internal/logging"
	"github.com/dmogilev/docmill/internal/pdfx/executor"
	"github.com/dmogilev/docmill/internal/pdfx/extract"
	"github.com/dmogilev/docmill/internal/pdfx/unlock"
	"github.com/dmogilev/docmill/internal/server/artifacts"
	"github.com/dmogilev/docmill/internal/server/blob"
	"github.com/dmogilev/docmill/internal/server/config"
	"github.com/dmogilev/docmill/internal/server/httpapi"
	"github.com/dmogilev/docmill/internal/server/notify"
	"github.com/dmogilev/docmill/internal/server/pipeline"
	"github.com/dmogilev/docmill/internal/server/quota"
	"github.com/dmogilev/docmill/internal/server/repositories/repomanager"
)

// sweepBatchSize bounds one expiry sweep pass.
const sweepBatchSize = 500

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	httpSrv   *httpapi.Server
	artifacts *artifacts.Service
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	governor := quota.NewGovernor(db, rm, cfg.FreeDailyLimit, logger)
	artifactSvc := artifacts.NewService(db, rm, store, logger)
	gate := unlock.NewGate(logger)
	registry := executor.NewRegistry(logger, extract.NewChain(logger, extract.DefaultTiers()...))
	pl := pipeline.New(governor, gate, registry, artifactSvc, cfg.TempDir, logger)
	notifier := notify.NewLogNotifier(logger)

	httpSrv := httpapi.NewServer(
		cfg.HTTPAddr,
		cfg.PublicBaseURL,
		[]byte(cfg.SecretKey),
		pl,
		artifactSvc,
		notifier,
		logger,
	)

	return &App{
		config:    cfg,
		logger:    logger,
		db:        db,
		httpSrv:   httpSrv,
		artifacts: artifactSvc,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.StorageBackend {
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Options{
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
		})
	case "local", "":
		return blob.NewLocalStore(cfg.LocalStorageDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "http server listening", "addr", app.config.HTTPAddr)
	if err := app.httpSrv.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startExpirySweep reaps expired artifacts on a ticker. Lazy expiry on
// resolve is the correctness mechanism; the sweep just frees storage.
func (app *App) startExpirySweep(ctx context.Context) {
	interval := app.config.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.artifacts.SweepExpired(ctx, sweepBatchSize); err != nil {
				app.logger.Warn(ctx, "expiry sweep failed", "error", err)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startExpirySweep(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
}
