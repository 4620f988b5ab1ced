// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command stressctl runs fragility analyses from the command line without a
// server round trip.
//
// Usage:
//
//	stressctl analyze -f soup.json --hang 6,-1,0 --weight 5
//	stressctl analyze -f soup.json --hang 6,-1,0 --weight 5 --records
//	stressctl config
//	stressctl config --write stress.yaml
package main

import (
	"os"
)

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
