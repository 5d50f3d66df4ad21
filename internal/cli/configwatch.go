package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// configWatcher calls onChange after the config file has been written.
// The parent directory is watched so editors that replace the file by
// rename are noticed too.
type configWatcher struct {
	path     string
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

func newConfigWatcher(path string, debounce time.Duration, onChange func(), logger *slog.Logger) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &configWatcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		watcher:  w,
	}, nil
}

// Run processes events until ctx is done.
func (cw *configWatcher) Run(ctx context.Context) {
	defer cw.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			cw.mu.Lock()
			if cw.timer != nil {
				cw.timer.Stop()
			}
			cw.mu.Unlock()
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cw.schedule()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warn("config watcher error", "error", err)
		}
	}
}

// schedule collapses a burst of writes into one reload.
func (cw *configWatcher) schedule() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debounce, cw.onChange)
}
