// Command configsvc runs the configuration store's HTTP server: it loads
// configuration, opens the document store adapter, wires the change event
// sink, starts the periodic backup scheduler if configured, and serves
// until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hypertrace/config-service-go/internal/backup"
	"github.com/hypertrace/config-service-go/internal/config"
	"github.com/hypertrace/config-service-go/internal/docstore/postgres"
	"github.com/hypertrace/config-service-go/internal/events"
	"github.com/hypertrace/config-service-go/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to TOML configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	adapter, err := postgres.New(cfg.DatabaseURL, postgres.Options{MaxPoolSize: cfg.MaxPoolSize})
	if err != nil {
		logger.Error("failed to open document store", "err", err)
		os.Exit(1)
	}

	var sink events.Sink
	var publisher *events.NATSPublisher
	if cfg.PublishChangeEvents && cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to connect to NATS", "err", err)
			os.Exit(1)
		}
		publisher = pub
		sink = events.NewNATSSink(pub, logger)
		logger.Info("change events enabled", "nats_url", cfg.NATSURL)
	} else {
		sink = events.NoopSink{}
		logger.Info("change events disabled")
	}

	srv := server.New(adapter, sink)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.NewHTTPHandler(cfg.AuthToken),
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "err", err)
		}
	}()

	var scheduler *backup.Scheduler
	if cfg.BackupInterval > 0 {
		var dests []backup.Destination

		if cfg.BackupS3Bucket != "" {
			s3Dest, err := backup.NewS3Destination(context.Background(), cfg.BackupS3Bucket, cfg.BackupS3Prefix, cfg.BackupS3Region, cfg.BackupS3Endpoint)
			if err != nil {
				logger.Error("failed to create S3 backup destination", "err", err)
			} else {
				dests = append(dests, s3Dest)
				logger.Info("backup S3 destination enabled", "bucket", cfg.BackupS3Bucket, "prefix", cfg.BackupS3Prefix)
			}
		}

		if cfg.BackupGitRepo != "" {
			dests = append(dests, backup.NewGitDestination(cfg.BackupGitRepo, cfg.BackupGitFile, cfg.BackupGitBranch))
			logger.Info("backup git destination enabled", "repo", cfg.BackupGitRepo, "file", cfg.BackupGitFile)
		}

		if len(dests) > 0 {
			scheduler = backup.NewScheduler(adapter, dests, cfg.BackupInterval, nil, logger)
			scheduler.Start()
			logger.Info("backup scheduler started", "interval", cfg.BackupInterval)
		}
	}

	logger.Info("configsvc started", "http_addr", cfg.HTTPAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	if scheduler != nil {
		scheduler.Stop()
		logger.Info("backup scheduler stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
	logger.Info("HTTP server stopped")

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("error closing NATS publisher", "err", err)
		}
	}

	if err := adapter.Close(); err != nil {
		logger.Error("error closing document store", "err", err)
	}

	logger.Info("shutdown complete")
}
