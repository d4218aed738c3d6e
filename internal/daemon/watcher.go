package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/toastd/internal/config"
)

// ConfigWatcher reloads the config file when it changes on disk and reports
// edits to user theme files. Callbacks run on the watcher's goroutine.
type ConfigWatcher struct {
	mu     sync.Mutex
	logger *slog.Logger

	path      string
	themesDir string
	debounce  time.Duration

	watcher *fsnotify.Watcher
	current *config.Config
	pending map[string]*time.Timer

	onReload func(cfg *config.Config)
	onError  func(err error)
	onTheme  func()

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewConfigWatcher watches the config file at path and the .css files in themesDir.
// themesDir may be empty.
func NewConfigWatcher(path, themesDir string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = config.Path()
	}
	return &ConfigWatcher{
		logger:    logger,
		path:      path,
		themesDir: themesDir,
		debounce:  200 * time.Millisecond,
		pending:   make(map[string]*time.Timer),
	}
}

// SetDebounce sets how long a burst of events must settle before reloading.
func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// SetReloadCallback sets the callback for a successfully reloaded config.
func (w *ConfigWatcher) SetReloadCallback(fn func(cfg *config.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// SetErrorCallback sets the callback for a config that failed to load or validate.
// The previous config stays current.
func (w *ConfigWatcher) SetErrorCallback(fn func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// SetThemeCallback sets the callback for changes to theme files.
func (w *ConfigWatcher) SetThemeCallback(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTheme = fn
}

// Start begins watching. The config directory is created if missing so that
// a config written later is still picked up.
func (w *ConfigWatcher) Start(ctx context.Context, initial *config.Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch directories rather than files so editors that replace the file still notify.
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if w.themesDir != "" {
		if err := fw.Add(w.themesDir); err != nil {
			w.logger.Debug("not watching themes directory", "path", w.themesDir, "error", err)
		}
	}

	w.watcher = fw
	w.current = initial
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.watch(ctx, fw, w.stopCh, w.doneCh)

	w.logger.Debug("config watcher started", "path", w.path, "themes", w.themesDir)
	return nil
}

// Stop stops watching and waits for the watch goroutine to exit.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	for key, t := range w.pending {
		t.Stop()
		delete(w.pending, key)
	}
	fw, done := w.watcher, w.doneCh
	w.mu.Unlock()

	<-done
	_ = fw.Close()
	w.logger.Debug("config watcher stopped")
}

// Current returns the last config that loaded successfully.
func (w *ConfigWatcher) Current() *config.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *ConfigWatcher) watch(ctx context.Context, fw *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	configName := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}

			switch {
			case filepath.Dir(event.Name) == filepath.Dir(w.path) && filepath.Base(event.Name) == configName:
				w.schedule("config", w.reload)
			case w.themesDir != "" && filepath.Dir(event.Name) == w.themesDir && strings.HasSuffix(event.Name, ".css"):
				w.schedule("theme", w.themeChanged)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// schedule runs fn once events for key have been quiet for the debounce period.
func (w *ConfigWatcher) schedule(key string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if t, ok := w.pending[key]; ok {
		t.Stop()
	}
	w.pending[key] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, key)
		running := w.running
		w.mu.Unlock()
		if running {
			fn()
		}
	})
}

func (w *ConfigWatcher) reload() {
	cfg, err := config.Load(w.path)

	w.mu.Lock()
	onReload, onError := w.onReload, w.onError
	if err == nil {
		w.current = cfg
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("config file changed but failed to load", "path", w.path, "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	w.logger.Info("config reloaded", "path", w.path)
	if onReload != nil {
		onReload(cfg)
	}
}

func (w *ConfigWatcher) themeChanged() {
	w.mu.Lock()
	onTheme := w.onTheme
	w.mu.Unlock()

	w.logger.Debug("theme file changed", "dir", w.themesDir)
	if onTheme != nil {
		onTheme()
	}
}
