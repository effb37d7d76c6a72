package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// settleDelay coalesces the burst of events a single save produces.
const settleDelay = 100 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	path    string
	logger  *zap.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher watches path. The parent directory is watched rather than the
// file so that editors which replace the file on save are still picked up.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("could not watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{path: path, logger: logger, watcher: fw}, nil
}

// Run delivers each reloaded config to onChange until ctx is done. overlay,
// when non-nil, is applied before validation so the same overrides used at
// startup still win. Edits that do not validate are logged and skipped.
func (w *Watcher) Run(ctx context.Context, overlay func(*Config), onChange func(*Config)) error {
	defer w.watcher.Close()

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			settle.Reset(settleDelay)

		case <-settle.C:
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn("ignoring config change", zap.String("path", w.path), zap.Error(err))
				continue
			}
			if overlay != nil {
				overlay(cfg)
			}
			if err := cfg.Validate(); err != nil {
				w.logger.Warn("ignoring invalid config change", zap.String("path", w.path), zap.Error(err))
				continue
			}

			w.logger.Info("config reloaded", zap.String("path", w.path))
			onChange(cfg)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
