package compiler

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"
	"github.com/latr-engine/latr/config"
	"github.com/latr-engine/latr/log"
	"github.com/pkg/errors"
)

// DefaultWatchDebounce is the quiet period after the last model file change
// before a rebuild is triggered.
const DefaultWatchDebounce = 250 * time.Millisecond

// A Watcher triggers rebuilds when .tri files in the configured model folders
// change.
type Watcher struct {
	logger   log.Logger
	fsw      *fsnotify.Watcher
	clock    clock.Clock
	debounce time.Duration
}

// NewWatcher starts watching the model folders of cfg.
func NewWatcher(cfg *config.ModelConfig, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "compiler: could not create file watcher")
	}

	for _, dir := range cfg.ModelFolders() {
		if err = fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "compiler: could not watch %s", dir)
		}
	}

	return &Watcher{
		logger:   log.New("model watcher"),
		fsw:      fsw,
		clock:    clock.New(),
		debounce: debounce,
	}, nil
}

// Run invokes rebuild after each burst of model file changes until ctx is
// cancelled. Rebuild errors are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context, rebuild func(context.Context) error) error {
	defer w.fsw.Close()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !isModelEvent(evt) {
				continue
			}
			w.logger.Debugf("detected change: %s", evt)
			fire = w.clock.After(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warningf("watch error: %v", err)
		case <-fire:
			fire = nil
			w.logger.Notice("model files changed; rebuilding")
			if err := rebuild(ctx); err != nil {
				w.logger.Errorf("rebuild failed: %v", err)
			}
		}
	}
}

func isModelEvent(evt fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(evt.Name), triExtension) {
		return false
	}
	return evt.Has(fsnotify.Create) || evt.Has(fsnotify.Write) || evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename)
}
