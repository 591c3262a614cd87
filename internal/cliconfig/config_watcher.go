package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tracklab-io/statefeed/internal/ports"
)

// debounceDelay coalesces the event bursts editors produce on save.
const debounceDelay = 200 * time.Millisecond

// ThresholdTarget is anything whose trigger threshold can be swapped at
// runtime; the diff handler satisfies it.
type ThresholdTarget interface {
	SetThreshold(float64)
	Threshold() float64
}

// ConfigWatcher monitors the config file via fsnotify and applies
// threshold changes to a running receiver without a restart.
type ConfigWatcher struct {
	path   string
	target ThresholdTarget
	logger ports.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

// NewConfigWatcher creates a watcher for the config file at path.
func NewConfigWatcher(path string, target ThresholdTarget, logger ports.Logger) *ConfigWatcher {
	return &ConfigWatcher{path: path, target: target, logger: logger}
}

// Run watches until ctx is canceled. A watcher setup failure is logged
// and Run returns; live reload is best-effort and never takes the
// receiver down.
func (w *ConfigWatcher) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("config watcher disabled", ports.Err(err))
		return
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file on save, which
	// would invalidate a watch on the file itself.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Warn("config watcher disabled",
			ports.String("path", w.path),
			ports.Err(err),
		)
		return
	}

	w.logger.Info("watching config", ports.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", ports.Err(err))
		}
	}
}

func (w *ConfigWatcher) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

func (w *ConfigWatcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload failed",
			ports.String("path", w.path),
			ports.Err(err),
		)
		return
	}

	if fc.Threshold < 0 {
		w.logger.Warn("ignoring negative threshold from config reload",
			ports.Float64("threshold", fc.Threshold),
		)
		return
	}
	old := w.target.Threshold()
	if fc.Threshold == old {
		return
	}
	w.target.SetThreshold(fc.Threshold)
	w.logger.Info("threshold updated",
		ports.Float64("old", old),
		ports.Float64("new", fc.Threshold),
	)
}
