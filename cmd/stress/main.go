// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command stress starts the Aleutian Stress API server.
//
// Aleutian Stress estimates the structural fragility of a triangle-soup
// solid under a hanging load:
//   - Soup indexing with quantized spatial adjacency
//   - Per-vertex shape descriptors (normals, sharpness, wall thickness)
//   - Anchor partitioning and lever-arm geometry
//   - Fragility scoring and a safe/warning/danger verdict
//
// Usage:
//
//	go run ./cmd/stress
//	go run ./cmd/stress -port 9090 -config stress.yaml
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/stress/health
//
//	# Analyze a single triangle hanging one unit past the edge
//	curl -X POST http://localhost:8080/v1/stress/analyze \
//	  -H "Content-Type: application/json" \
//	  -d '{"positions": [0,0,0, 1,0,0, 0,0,1], "hanging_point": [1,0,0], "trial_weight": 5}'
//
//	# Current tunables
//	curl http://localhost:8080/v1/stress/config | jq
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/AleutianAI/AleutianStress/pkg/logging"
	"github.com/AleutianAI/AleutianStress/services/stress"
	"github.com/AleutianAI/AleutianStress/services/stress/config"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	configPath := flag.String("config", "", "Path to a YAML tunables file (watched for changes)")
	logDir := flag.String("log-dir", "", "Directory for JSON log files (empty disables file logging)")
	flag.Parse()

	level := logging.LevelInfo
	if *debug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  *logDir,
		Service: "stress",
	})
	defer logger.Close()
	slog := logger.Slog()

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Load tunables
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("Failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
		slog.Info("Config loaded", "path", *configPath)
	}

	// Wire the OTel meter provider to the Prometheus exporter so the
	// engine's metrics land on /metrics.
	promExporter, err := otelprom.New()
	if err != nil {
		slog.Error("Failed to create Prometheus exporter", "error", err)
		os.Exit(1)
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter))
	otel.SetMeterProvider(meterProvider)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = meterProvider.Shutdown(ctx)
	}()

	// Create the engine and handlers
	engine := stress.NewEngine(cfg, slog)
	handlers := stress.NewHandlers(engine)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	stress.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Hot-reload the tunables file
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if *configPath != "" {
		watcher, err := config.NewWatcher(*configPath, engine.SetConfig)
		if err != nil {
			slog.Warn("Config watcher unavailable, edits require a restart", "error", err)
		} else {
			go watcher.Start(watchCtx)
		}
	}

	printBanner(*port, cfg.CacheEnabled)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: router,
	}

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down Aleutian Stress server")
		engine.Close()
		stopWatch()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
	}()

	slog.Info("Starting Aleutian Stress server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}

func printBanner(port int, cacheEnabled bool) {
	cacheStatus := "DISABLED (set cache_enabled in config)"
	if cacheEnabled {
		cacheStatus = "ENABLED"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                      ALEUTIAN STRESS SERVER                       ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Structural fragility analysis for triangle-soup solids.          ║
║  Result Cache: %-48s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/stress/health                 │  ║
║  │                                                             │  ║
║  │ # Analyze a soup against a 5-unit trial weight              │  ║
║  │ curl -X POST http://localhost:%d/v1/stress/analyze \      │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"positions": [...], "hanging_point": [1,0,0],        │  ║
║  │        "trial_weight": 5}'                                  │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── POST /v1/stress/analyze - Full fragility analysis            ║
║  ├── GET  /v1/stress/live    - Websocket interactive session      ║
║  ├── GET  /v1/stress/config  - Current tunables                   ║
║  ├── GET  /v1/stress/health, /v1/stress/ready                     ║
║  └── GET  /metrics           - Prometheus metrics                 ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, cacheStatus, port, port)
}
