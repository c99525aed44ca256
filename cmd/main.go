package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/okian/quizrec/internal/adapters/engine"
	"github.com/okian/quizrec/internal/adapters/http/api"
	"github.com/okian/quizrec/internal/adapters/source"
	app "github.com/okian/quizrec/internal/app"
	"github.com/okian/quizrec/internal/config"
	"github.com/okian/quizrec/pkg/logger"
	"github.com/okian/quizrec/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 120 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	mongoDialTimeout  = 15 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	for _, path := range []string{cfg.SnapshotPath, cfg.ModelPath} {
		if path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				os.Stderr.WriteString("failed to create data directory: " + err.Error() + "\n")
				return
			}
		}
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithTopN(cfg.TopN),
		app.WithMaxBatchSize(cfg.MaxBatchSize),
		app.WithEngineTimeout(time.Duration(cfg.EngineTimeoutMS) * time.Millisecond),
		app.WithSnapshotPath(cfg.SnapshotPath),
		app.WithModelPath(cfg.ModelPath),
		app.WithEngine(engine.NewALS(
			engine.WithFactors(cfg.EngineFactors),
			engine.WithIterations(cfg.EngineIterations),
			engine.WithRegularization(cfg.EngineRegularization),
			engine.WithAlpha(cfg.EngineAlpha),
			engine.WithWorkers(cfg.EngineWorkers),
		)),
	}

	if cfg.MongoURI != "" {
		dialCtx, cancel := context.WithTimeout(ctx, mongoDialTimeout)
		src, err := source.NewMongoSource(dialCtx, cfg.MongoURI, cfg.MongoDatabase)
		cancel()
		if err != nil {
			os.Stderr.WriteString("failed to connect to mongo: " + err.Error() + "\n")
			return
		}
		defer func() { _ = src.Close(context.Background()) }()
		opts = append(opts, app.WithSource(src))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
