// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianStress/pkg/logging"
	"github.com/AleutianAI/AleutianStress/pkg/validation"
	"github.com/AleutianAI/AleutianStress/services/stress"
	"github.com/AleutianAI/AleutianStress/services/stress/config"
	"github.com/AleutianAI/AleutianStress/services/stress/geom"
)

// soupDocument is the on-disk soup format: either this object or a bare
// JSON array of coordinates.
type soupDocument struct {
	Positions []float64      `json:"positions"`
	Transform geom.Transform `json:"transform"`
}

// runAnalyze implements `stressctl analyze`.
func runAnalyze(cmd *cobra.Command, args []string) error {
	doc, err := loadSoup(soupFile)
	if err != nil {
		return err
	}

	hang, err := parseHangPoint(hangFlag)
	if err != nil {
		return err
	}
	if err := validation.ValidatePositive("weight", weightFlag); err != nil {
		return err
	}

	cfg := config.Default()
	if configFlag != "" {
		cfg, err = config.Load(configFlag)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	level := logging.LevelWarn
	if quietFlag {
		level = logging.LevelError
	}
	logger := logging.New(logging.Config{Level: level, Service: "stressctl"})
	defer logger.Close()

	engine := stress.NewEngine(cfg, logger.Slog())
	defer engine.Close()

	resp, err := engine.Analyze(context.Background(), &stress.AnalyzeRequest{
		Positions:      doc.Positions,
		Transform:      doc.Transform,
		HangingPoint:   hang,
		TrialWeight:    weightFlag,
		IncludeRecords: recordsFlag,
	})
	if err != nil {
		return err
	}

	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		printPretty(resp)
	} else {
		printPlain(resp)
	}
	return nil
}

// loadSoup reads the soup file, accepting both the object form and a bare
// coordinate array.
func loadSoup(path string) (*soupDocument, error) {
	clean, err := validation.SanitizePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read soup file: %w", err)
	}

	var doc soupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		var bare []float64
		if err2 := json.Unmarshal(data, &bare); err2 != nil {
			return nil, fmt.Errorf("parse soup file %s: %w", clean, err)
		}
		doc.Positions = bare
	}
	if err := validation.ValidateSoupLength(doc.Positions); err != nil {
		return nil, err
	}
	return &doc, nil
}

// parseHangPoint parses the --hang flag ("x,y,z").
func parseHangPoint(s string) ([3]float64, error) {
	var hang [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return hang, fmt.Errorf("--hang wants x,y,z, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return hang, fmt.Errorf("--hang component %d: %w", i, err)
		}
		if !validation.Finite(v) {
			return hang, fmt.Errorf("--hang component %d must be finite", i)
		}
		hang[i] = v
	}
	return hang, nil
}

// printPretty renders the verdict for an interactive terminal.
func printPretty(resp *stress.AnalyzeResponse) {
	v := resp.Verdict

	icon := map[string]string{
		"safe":    "✔",
		"warning": "⚠",
		"danger":  "✘",
	}[string(v.Safety)]

	fmt.Printf("\n%s  %s\n\n", icon, strings.ToUpper(string(v.Safety)))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Max safe weight\t%.2f\n", v.MaxSafeWeight)
	fmt.Fprintf(w, "Lever arm\t%.2f\n", v.LeverArm)
	fmt.Fprintf(w, "Critical ratio\t%.3f\n", v.CriticalRatio)
	fmt.Fprintf(w, "Medium ratio\t%.3f\n", v.MediumRatio)
	fmt.Fprintf(w, "Critical point\t(%.3f, %.3f, %.3f)\n",
		v.CriticalPoint.X, v.CriticalPoint.Y, v.CriticalPoint.Z)
	fmt.Fprintf(w, "Triangles\t%d (%d degenerate dropped)\n",
		resp.Stats.TriangleCount, resp.Stats.DegenerateCount)
	fmt.Fprintf(w, "Vertices\t%d (%d free)\n", resp.Stats.VertexCount, resp.Stats.FreeCount)
	fmt.Fprintf(w, "Duration\t%.1f ms\n", resp.Stats.DurationMs)
	w.Flush()
	fmt.Printf("\n%s\n", v.Advisory)

	if len(resp.Records) > 0 {
		fmt.Println()
		rw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(rw, "IDX\tSCORE\tANCHORED\tGEOM\tTHICK\tPOS\tHEIGHT\tLEVER")
		for _, r := range resp.Records {
			fmt.Fprintf(rw, "%d\t%.3f\t%v\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
				r.OccurrenceIndex, r.Score, r.InAnchorZone,
				r.Factors.Geometry, r.Factors.Thickness, r.Factors.Position,
				r.Factors.Height, r.Factors.Lever)
		}
		rw.Flush()
	}
}

// printPlain emits machine-friendly JSON when stdout is not a terminal.
func printPlain(resp *stress.AnalyzeResponse) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}
