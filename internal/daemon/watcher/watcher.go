// Package watcher reloads daemon settings when incidentd.yml changes.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/opswatch/incidentd/config"
	"github.com/opswatch/incidentd/logging"
)

// ConfigWatcher watches the configuration file and re-applies the logging
// level on change. Listen-address changes still need a restart; only
// settings that can move safely at runtime are picked up.
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	debounce   time.Duration
	lastChange time.Time
	mu         sync.Mutex
	logger     *logrus.Entry
	onReload   func(cfg *config.Config)
}

// New creates a ConfigWatcher for the given config file. The onReload
// callback (optional) runs after each successful reload.
func New(configPath string, onReload func(cfg *config.Config)) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory rather than the file: editors replace files on
	// save, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return nil, err
	}

	return &ConfigWatcher{
		watcher:    watcher,
		configPath: configPath,
		debounce:   100 * time.Millisecond,
		logger:     logging.NewLogger("config-watcher"),
		onReload:   onReload,
	}, nil
}

// Start begins watching for config changes. It blocks until the context is
// cancelled.
func (w *ConfigWatcher) Start(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.handleChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Watcher error")
		}
	}
}

func (w *ConfigWatcher) handleChange() {
	w.mu.Lock()
	if time.Since(w.lastChange) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.lastChange = time.Now()
	w.mu.Unlock()

	cfg, err := config.Load(w.configPath)
	if err != nil {
		w.logger.WithError(err).Warn("Ignoring config change: reload failed")
		return
	}

	var logCfg logging.Config
	if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
		w.logger.WithError(err).Warn("Ignoring config change: bad logging section")
		return
	}
	if logCfg.Level != "" {
		if err := logging.SetLevel(logCfg.Level); err != nil {
			w.logger.WithError(err).Warn("Ignoring invalid log level")
		} else {
			w.logger.WithField("level", logCfg.Level).Info("Log level updated")
		}
	}

	if w.onReload != nil {
		w.onReload(cfg)
	}
}
