package governance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a changed document is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce collapses bursts of file events. Defaults to DefaultDebounce.
	Debounce time.Duration

	// Logger receives watcher diagnostics. It must not be a governed logger.
	Logger *zap.Logger

	// OnReload is called after every reload attempt with the active config
	// and the reload error, if any.
	OnReload func(cfg *Config, err error)
}

// Watcher reloads a Store when its governance document changes on disk.
type Watcher struct {
	path    string
	store   *Store
	opts    WatcherOptions
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for the document at path.
func NewWatcher(path string, store *Store, opts WatcherOptions) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("governance watcher: empty document path")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve document path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:    abs,
		store:   store,
		opts:    opts,
		watcher: fw,
	}, nil
}

// Run watches until ctx is cancelled. The parent directory is watched so
// that atomic replace-by-rename saves are seen.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.opts.Logger.Info("Governance document watcher started",
		zap.String("path", w.path),
		zap.Duration("debounce", w.opts.Debounce),
	)

	for {
		select {
		case <-ctx.Done():
			w.opts.Logger.Info("Governance document watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.opts.Logger.Debug("Governance document event",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()),
			)
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.opts.Logger.Error("Governance document watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return name == w.path
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := w.store.Reload(func() (*Config, error) {
		return ReloadFile(w.path)
	})

	if err != nil {
		w.opts.Logger.Error("Governance reload failed, keeping previous config",
			zap.String("path", w.path),
			zap.String("active_version", cfg.Version()),
			zap.Error(err),
		)
	} else {
		w.opts.Logger.Info("Governance config reloaded",
			zap.String("path", w.path),
			zap.String("version", cfg.Version()),
			zap.String("source", cfg.Source()),
			zap.Int("rules", len(cfg.Rules())),
		)
	}

	if w.opts.OnReload != nil {
		w.opts.OnReload(cfg, err)
	}
}

func (w *Watcher) close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		w.opts.Logger.Warn("Failed to close fsnotify watcher", zap.Error(err))
	}
}
