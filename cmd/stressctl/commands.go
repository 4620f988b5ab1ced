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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	soupFile    string
	hangFlag    string
	weightFlag  float64
	configFlag  string
	recordsFlag bool
	quietFlag   bool
	writeFlag   string

	rootCmd = &cobra.Command{
		Use:   "stressctl",
		Short: "A cli for the Aleutian Stress fragility analyzer",
		Long: `Stressctl runs the structural fragility pipeline in-process:
				soup indexing, shape analysis, anchor partitioning, scoring,
				and the safe/warning/danger verdict.`,
		SilenceUsage: true,
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a triangle soup against a trial weight",
		RunE:  runAnalyze, // Defined in cmd_analyze.go
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print or scaffold the default tunables",
		RunE:  runConfig, // Defined in cmd_config.go
	}
)

func init() {
	analyzeCmd.Flags().StringVarP(&soupFile, "file", "f", "", "JSON file with the triangle soup (required)")
	analyzeCmd.Flags().StringVar(&hangFlag, "hang", "", "Hanging point as x,y,z (required)")
	analyzeCmd.Flags().Float64VarP(&weightFlag, "weight", "w", 0, "Trial weight to classify (required)")
	analyzeCmd.Flags().StringVarP(&configFlag, "config", "c", "", "YAML tunables file (defaults apply if omitted)")
	analyzeCmd.Flags().BoolVar(&recordsFlag, "records", false, "Print the per-vertex fragility records")
	analyzeCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
	_ = analyzeCmd.MarkFlagRequired("file")
	_ = analyzeCmd.MarkFlagRequired("hang")
	_ = analyzeCmd.MarkFlagRequired("weight")

	configCmd.Flags().StringVar(&writeFlag, "write", "", "Write the default tunables to this path instead of stdout")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
}
