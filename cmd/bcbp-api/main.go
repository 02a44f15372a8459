// Package main provides the bcbp-api server.
//
// This is a standalone REST API server that decodes and encodes boarding pass
// payloads, and stores decoded passes in PostgreSQL for PNR lookups.
//
// Usage:
//
//	bcbp-api [options]
//
// Options:
//
//	--config PATH       YAML configuration file
//	--port N            HTTP port (default: 8081, env: API_PORT)
//	--auth              Enable API key authentication (env: API_AUTH)
//	--api-keys KEYS     Comma-separated list of valid API keys (env: API_KEYS)
//	--no-store          Run without PostgreSQL; /passes endpoints return 503
//
// API Endpoints:
//
//	GET /api/v1/health
//	    Health check endpoint.
//
//	POST /api/v1/decode
//	    Decode a payload. Body: {"data": "M1..."}
//
//	POST /api/v1/encode
//	    Encode a record. Body: {"record": {...}, "conditional": false}
//
//	POST /api/v1/passes
//	    Decode and store a payload. Body: {"data": "M1...", "source": "..."}
//
//	GET /api/v1/passes/{pnr}
//	    Get all stored passes for a PNR.
//
//	GET /api/v1/pass/{id}
//	    Get one stored pass.
//
//	GET /metrics
//	    Prometheus metrics.
//
// Authentication:
//
//	When --auth is enabled, requests must include an API key via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
//	  - ?api_key=<key> query parameter
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"bcbp_parser/internal/api"
	"bcbp_parser/internal/config"
	"bcbp_parser/internal/logger"
	"bcbp_parser/internal/metrics"
	"bcbp_parser/internal/storage"
)

func main() {
	configPath := pflag.String("config", "", "YAML configuration file")
	port := pflag.Int("port", 0, "HTTP port for API server (overrides config)")
	authEnabled := pflag.Bool("auth", false, "Enable API key authentication")
	apiKeys := pflag.String("api-keys", "", "Comma-separated list of valid API keys (when auth enabled)")
	noStore := pflag.Bool("no-store", false, "Run without PostgreSQL")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.API.Port = *port
	}
	if *authEnabled {
		cfg.API.AuthEnabled = true
	}
	if *apiKeys != "" {
		cfg.API.APIKeys = nil
		for _, k := range strings.Split(*apiKeys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.API.APIKeys = append(cfg.API.APIKeys, k)
			}
		}
	}

	if cfg.API.AuthEnabled && len(cfg.API.APIKeys) == 0 {
		fmt.Fprintln(os.Stderr, "Error: --auth requires --api-keys")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open PostgreSQL database.
	var store api.PassStore
	if !*noStore {
		pg, err := storage.OpenPostgres(ctx, cfg.Storage.Postgres)
		if err != nil {
			log.Fatal("Error opening PostgreSQL", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatal("Error creating PostgreSQL schema", zap.Error(err))
		}
		store = pg
	}

	m := metrics.New(cfg.Metrics.Namespace, prometheus.NewRegistry())

	// Create and run server.
	server := api.NewServer(store, api.Config{
		Port:         cfg.API.Port,
		AuthEnabled:  cfg.API.AuthEnabled,
		APIKeys:      cfg.API.APIKeys,
		ReadTimeout:  cfg.API.ReadTimeoutDuration(),
		WriteTimeout: cfg.API.WriteTimeoutDuration(),
	}, m, log)

	if err := server.Run(ctx); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
	log.Info("API stopped")
}
