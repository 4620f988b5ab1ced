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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for analysis operations.
var (
	tracer = otel.Tracer("aleutian.stress")
	meter  = otel.Meter("aleutian.stress")
)

// Metrics for analysis operations.
var (
	analyzeLatency   metric.Float64Histogram
	analyzeTotal     metric.Int64Counter
	verticesAnalyzed metric.Int64Histogram
	verdictsByBand   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		analyzeLatency, err = meter.Float64Histogram(
			"stress_analyze_duration_seconds",
			metric.WithDescription("Duration of fragility analysis runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analyzeTotal, err = meter.Int64Counter(
			"stress_analyze_total",
			metric.WithDescription("Total number of fragility analysis runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		verticesAnalyzed, err = meter.Int64Histogram(
			"stress_vertices_analyzed",
			metric.WithDescription("Number of vertex occurrences analyzed per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		verdictsByBand, err = meter.Int64Counter(
			"stress_verdicts_by_band_total",
			metric.WithDescription("Total verdicts issued by safety band"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startAnalyzeSpan creates a span for an analysis run.
func startAnalyzeSpan(ctx context.Context, runID string, triangleCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Analyze",
		trace.WithAttributes(
			attribute.String("stress.run_id", runID),
			attribute.Int("stress.triangles", triangleCount),
		),
	)
}

// recordAnalyzeMetrics records metrics for one analysis run.
func recordAnalyzeMetrics(ctx context.Context, duration time.Duration, vertexCount int, band string, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("success", success),
	)

	analyzeLatency.Record(ctx, duration.Seconds(), attrs)
	analyzeTotal.Add(ctx, 1, attrs)
	verticesAnalyzed.Record(ctx, int64(vertexCount))

	if band != "" {
		verdictsByBand.Add(ctx, 1, metric.WithAttributes(
			attribute.String("band", band),
		))
	}
}
