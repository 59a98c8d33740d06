package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store holds the current settings. It is safe for concurrent use; the zero
// value holds zero settings, so use NewStore.
type Store struct {
	mu       sync.RWMutex
	settings Settings
	loadErr  error
	reloads  int
}

// NewStore returns a store holding s.
func NewStore(s Settings) *Store {
	return &Store{settings: s}
}

// Current returns a copy of the current settings.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Clone keeps an empty list empty: nil comment prefixes mean defaults.
	cur := s.settings
	cur.TailCommand = slices.Clone(s.settings.TailCommand)
	cur.CommentPrefixes = slices.Clone(s.settings.CommentPrefixes)
	return cur
}

// Update replaces the settings. When err is non-nil the previous settings are
// kept and the error is recorded.
func (s *Store) Update(settings Settings, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.loadErr = err
		return
	}
	s.settings = settings
	s.loadErr = nil
	s.reloads++
}

// LastError returns the error of the most recent failed reload, if any.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Reloads returns how many successful updates the store has seen.
func (s *Store) Reloads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reloads
}

const reloadDebounce = 50 * time.Millisecond

// Watcher reloads a settings file into a Store whenever the file changes.
type Watcher struct {
	path     string
	store    *Store
	logger   *slog.Logger
	onChange func(Settings)

	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewWatcher creates a watcher for the settings file at path. onChange may be
// nil; it runs on the watcher goroutine after every successful reload.
func NewWatcher(path string, store *Store, logger *slog.Logger, onChange func(Settings)) (*Watcher, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     resolved,
		store:    store,
		logger:   logger,
		onChange: onChange,
		stopped:  make(chan struct{}),
	}, nil
}

// Start begins watching. The parent directory is watched rather than the
// file so that editors replacing the file by rename are noticed.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx, fsw)
	return nil
}

// Stop ends watching and waits for the watcher goroutine to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.stopped
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.stopped)
	defer fsw.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				pending = time.After(reloadDebounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher error", "path", w.path, "error", err)

		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	settings, err := Load(w.path)
	w.store.Update(settings, err)
	if err != nil {
		w.logger.Error("settings reload failed, keeping previous settings", "path", w.path, "error", err)
		return
	}
	w.logger.Info("settings reloaded", "path", w.path, "host", settings.Host, "port", settings.Port)
	if w.onChange != nil {
		w.onChange(settings)
	}
}
