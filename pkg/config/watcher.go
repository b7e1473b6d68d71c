package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"termibot/pkg/logger"
)

// ChangeHandler is called with the reloaded configuration. The *Config
// handed out at startup is never modified; handlers pick what they can apply
// live from the new value.
type ChangeHandler func(*Config) error

// Watcher reloads the configuration file when it changes.
type Watcher struct {
	loader   *Loader
	log      *logger.Logger
	handlers []ChangeHandler
	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a watcher for the file loader was loaded from.
func NewWatcher(loader *Loader, log *logger.Logger) *Watcher {
	return &Watcher{
		loader: loader,
		log:    log.Named("config"),
	}
}

// AddHandler registers a handler called after every valid reload.
func (w *Watcher) AddHandler(handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start begins watching the config file. Running on defaults and the
// environment alone leaves nothing to watch, and Start does nothing.
func (w *Watcher) Start() error {
	path := w.loader.GetConfigPath()
	if path == "" {
		w.log.Debug("No config file in use, not watching")
		return nil
	}

	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return fmt.Errorf("watcher already started")
	}
	w.watching = true
	w.mu.Unlock()

	w.loader.viper.OnConfigChange(func(e fsnotify.Event) {
		w.reload(e.Name)
	})
	w.loader.viper.WatchConfig()

	w.log.Info("Watching config file", zap.String("path", path))
	return nil
}

// Stop stops delivering changes. viper keeps its fsnotify goroutine until
// the process exits.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watching = false
}

// reload decodes what viper just re-read. An invalid file is logged and
// ignored, keeping the last good configuration in effect.
func (w *Watcher) reload(path string) {
	w.mu.RLock()
	watching := w.watching
	handlers := make([]ChangeHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	if !watching {
		return
	}

	cfg, err := w.loader.Decode()
	if err == nil {
		err = ValidateConfig(cfg)
	}
	if err != nil {
		w.log.Error("Ignoring invalid config change", zap.String("path", path), zap.Error(err))
		return
	}

	w.log.Info("Configuration reloaded", zap.String("path", path))
	for _, handler := range handlers {
		if err := handler(cfg); err != nil {
			w.log.Error("Config change handler failed", zap.Error(err))
		}
	}
}
