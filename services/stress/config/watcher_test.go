// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stress.yaml")
	if err := os.WriteFile(path, []byte("sharp_angle_deg: 45\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan Config, 4)
	w, err := NewWatcher(path, func(cfg Config) {
		reloaded <- cfg
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Give the watcher a moment to register before touching the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("sharp_angle_deg: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.SharpAngleDeg != 30 {
			t.Errorf("reloaded SharpAngleDeg = %v, want 30", cfg.SharpAngleDeg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatcher_SkipsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stress.yaml")
	if err := os.WriteFile(path, []byte("sharp_angle_deg: 45\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan Config, 4)
	w, err := NewWatcher(path, func(cfg Config) {
		reloaded <- cfg
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("sharp_angle_deg: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The broken write must not reach the callback. A valid write after it
	// must.
	time.Sleep(200 * time.Millisecond)
	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid file reached the callback: %+v", cfg)
	default:
	}

	if err := os.WriteFile(path, []byte("sharp_angle_deg: 60\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-reloaded:
		if cfg.SharpAngleDeg != 60 {
			t.Errorf("reloaded SharpAngleDeg = %v, want 60", cfg.SharpAngleDeg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed after repairing the file")
	}
}
