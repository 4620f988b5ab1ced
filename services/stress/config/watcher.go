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
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk, so tunable
// adjustments reach a running server without a restart.
//
// # Thread Safety
//
// Safe for concurrent use. Start should only be called once.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onReload func(Config)
}

// NewWatcher creates a watcher for the given config file.
//
// Inputs:
//   - path: config file to watch.
//   - onReload: called with the freshly loaded config after each change.
//     Invalid files are logged and skipped; the previous config stays live.
//
// Outputs:
//   - *Watcher: ready to Start.
//   - error: non-nil if the underlying fsnotify watcher cannot be created.
func NewWatcher(path string, onReload func(Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, watcher: w, onReload: onReload}, nil
}

// Start blocks watching the file until ctx is cancelled. Run in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	defer w.watcher.Close()

	if err := w.watcher.Add(w.path); err != nil {
		slog.Warn("Failed to watch config file", "path", w.path, "error", err)
		return
	}
	slog.Debug("Watching config file", "path", w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				slog.Warn("Config reload failed, keeping previous tunables",
					"path", w.path, "error", err)
				continue
			}
			slog.Info("Config reloaded", "path", w.path)
			w.onReload(cfg)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Config watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}
