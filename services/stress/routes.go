// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stress

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all stress routes with the router.
//
// Description:
//
//	Registers all /v1/stress/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/stress/analyze - Run a fragility analysis
//	GET  /v1/stress/live - Websocket session for interactive re-analysis
//	GET  /v1/stress/config - Current engine tunables
//	GET  /v1/stress/health - Health check
//	GET  /v1/stress/ready - Readiness check
//
// Example:
//
//	engine := stress.NewEngine(config.Default(), slog.Default())
//	handlers := stress.NewHandlers(engine)
//
//	v1 := router.Group("/v1")
//	stress.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	s := rg.Group("/stress")
	{
		// Analysis
		s.POST("/analyze", handlers.HandleAnalyze)

		// Interactive sessions
		s.GET("/live", handlers.HandleLive)

		// Introspection
		s.GET("/config", handlers.HandleConfig)

		// Health checks
		s.GET("/health", handlers.HandleHealth)
		s.GET("/ready", handlers.HandleReady)
	}
}
