package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithOverrides sets bindings that are re-applied on top of every reload, so a
// file edit cannot undo a command-line flag.
func WithOverrides(b Bindings) WatcherOption {
	return func(w *Watcher) {
		w.overrides = b
	}
}

// WithReloadHook registers a callback invoked after every reload attempt.
func WithReloadHook(hook func(Bindings, error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = hook
	}
}

// Watcher re-binds the console section of a configuration file into a
// Resolver whenever the file changes.
type Watcher struct {
	path      string
	resolver  *Resolver
	logger    *zap.Logger
	overrides Bindings
	onReload  func(Bindings, error)

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	stop    sync.Once
}

// NewWatcher creates a Watcher for path. Call Start to begin watching.
func NewWatcher(path string, resolver *Resolver, logger *zap.Logger, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		path:     abs,
		resolver: resolver,
		logger:   logger,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start watches the file's directory, which also catches editors that replace
// the file by rename.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.wg.Add(1)
	go w.run()

	w.logger.Info("configuration watcher started", zap.String("file", w.path))
	return nil
}

// Stop ends the watch loop and releases the underlying watcher.
func (w *Watcher) Stop() error {
	var err error
	w.stop.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
		w.logger.Info("configuration watcher stopped")
	})
	return err
}

// Reload reads the file and binds its console section into the Resolver.
func (w *Watcher) Reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.notify(Bindings{}, err)
		return fmt.Errorf("read file: %w", err)
	}

	bindings, err := decodeBindings(data)
	if err != nil {
		w.notify(Bindings{}, err)
		return err
	}

	merged := bindings.Merge(w.overrides)
	Bind(w.resolver, merged)
	w.notify(merged, nil)
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("configuration file changed",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()),
			)
			if err := w.Reload(); err != nil {
				w.logger.Warn("configuration reload failed", zap.Error(err))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("configuration watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) notify(b Bindings, err error) {
	if w.onReload != nil {
		w.onReload(b, err)
	}
}
