package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called after the configuration file was reloaded.
type ChangeCallback func(oldConfig, newConfig *Config)

// Watcher reloads a configuration file whenever it changes.
type Watcher struct {
	configFile string
	logger     *slog.Logger
	debounce   time.Duration

	config   *Config
	configMu sync.RWMutex

	fsWatcher *fsnotify.Watcher

	callbacks   []ChangeCallback
	callbacksMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher loads the configuration file and prepares to watch it.
func NewWatcher(configFile string, logger *slog.Logger) (*Watcher, error) {
	configFile, err := filepath.Abs(configFile)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", configFile, err)
	}

	config, err := Load(configFile)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create file watcher: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		configFile: configFile,
		logger:     logger,
		debounce:   200 * time.Millisecond,
		config:     config,
		fsWatcher:  fsWatcher,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start starts watching. The directory of the file is watched so that
// editors that replace the file on save are followed.
func (w *Watcher) Start() error {
	err := w.fsWatcher.Add(filepath.Dir(w.configFile))
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", w.configFile, err)
	}

	w.wg.Add(1)
	go w.watchLoop()

	return nil
}

// Stop stops watching and waits for the watching goroutine to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()

	return err
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.configMu.RLock()
	defer w.configMu.RUnlock()

	return w.config
}

// OnChange registers a callback for configuration changes. Callbacks run in
// registration order on the watching goroutine.
func (w *Watcher) OnChange(callback ChangeCallback) {
	w.callbacksMu.Lock()
	defer w.callbacksMu.Unlock()

	w.callbacks = append(w.callbacks, callback)
}

// Reload reads the file again and notifies the callbacks.
func (w *Watcher) Reload() error {
	newConfig, err := Load(w.configFile)
	if err != nil {
		return err
	}

	w.configMu.Lock()
	oldConfig := w.config
	w.config = newConfig
	w.configMu.Unlock()

	w.notifyCallbacks(oldConfig, newConfig)

	w.logger.Info("configuration reloaded", "file", w.configFile)

	return nil
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	var pending <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.configFile {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending = time.After(w.debounce)
			}

		case <-pending:
			pending = nil

			if err := w.Reload(); err != nil {
				w.logger.Warn("failed to reload configuration",
					"file", w.configFile, "error", err)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}

			w.logger.Warn("configuration watcher error", "error", err)
		}
	}
}

func (w *Watcher) notifyCallbacks(oldConfig, newConfig *Config) {
	w.callbacksMu.RLock()
	callbacks := make([]ChangeCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.callbacksMu.RUnlock()

	for _, callback := range callbacks {
		w.runCallback(callback, oldConfig, newConfig)
	}
}

func (w *Watcher) runCallback(cb ChangeCallback, oldConfig, newConfig *Config) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("configuration callback panicked", "panic", r)
		}
	}()

	cb(oldConfig, newConfig)
}
