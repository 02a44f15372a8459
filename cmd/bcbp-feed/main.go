// Package main provides bcbp-feed, the NATS consumer for boarding pass scans.
//
// It queue-subscribes to the scan subject, decodes each scan, archives it to
// SQLite (when storage.sqlitePath is set), stores decoded passes in PostgreSQL,
// records scan events in ClickHouse (with --store) and republishes each
// result to the output subject.
//
// Usage:
//
//	bcbp-feed [--config PATH] [--nats-url URL] [--subject S] [--store] [--metrics-addr :9102]
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"bcbp_parser/internal/codec"
	"bcbp_parser/internal/config"
	"bcbp_parser/internal/feed"
	"bcbp_parser/internal/logger"
	"bcbp_parser/internal/metrics"
	_ "bcbp_parser/internal/parsers" // register all parsers via init()
	"bcbp_parser/internal/registry"
	"bcbp_parser/internal/storage"
)

func main() {
	configPath := pflag.String("config", "", "YAML configuration file")
	natsURL := pflag.String("nats-url", "", "NATS server URL (overrides config)")
	subject := pflag.String("subject", "", "Subject to consume scans from (overrides config)")
	useStore := pflag.Bool("store", false, "Store passes in PostgreSQL and scan events in ClickHouse")
	metricsAddr := pflag.String("metrics-addr", ":9102", "Address for the /metrics endpoint (empty disables)")
	batchSize := pflag.Int("batch-size", 500, "Scan events buffered before a ClickHouse insert")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *natsURL != "" {
		cfg.NATS.URL = *natsURL
	}
	if *subject != "" {
		cfg.NATS.Subject = *subject
	}

	log, err := logger.New(cfg.Logs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, *useStore, *metricsAddr, *batchSize, log); err != nil {
		log.Fatal("feed stopped", zap.Error(err))
	}
	log.Info("feed stopped")
}

func run(cfg *config.Config, useStore bool, metricsAddr string, batchSize int, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(cfg.Metrics.Namespace, reg)

	format, err := codec.ParseFormat(cfg.NATS.OutputFormat)
	if err != nil {
		return err
	}

	registry.Default().Sort()

	opts := feed.Options{
		Registry:      registry.Default(),
		OutputSubject: cfg.NATS.OutputSubject,
		OutputFormat:  format,
		Metrics:       m,
		Logger:        log.Named("feed"),
		BatchSize:     batchSize,
	}

	backends := storage.BackendSQLite
	if useStore {
		backends = storage.BackendAll
	}
	db, err := storage.Open(ctx, cfg.Storage, backends)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.CreateSchemas(ctx); err != nil {
		return err
	}
	// Unopened stores stay unset.
	if db.Archive != nil {
		opts.Archive = db.Archive
		log.Info("archiving scans", zap.String("path", cfg.Storage.SQLitePath))
	}
	if db.PG != nil {
		opts.Passes = db.PG
	}
	if db.CH != nil {
		opts.Events = db.CH
	}

	nc, err := feed.Connect(cfg.NATS.URL, "bcbp-feed", log)
	if err != nil {
		return err
	}
	defer nc.Close()
	opts.Publisher = nc

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return feed.New(opts).Run(ctx, nc, cfg.NATS.Subject, cfg.NATS.Queue)
}
