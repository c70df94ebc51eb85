package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatching is returned by Watch when the loader is already watching.
var ErrWatching = errors.New("config: already watching")

// Loader owns the active configuration of a running probe and swaps it when
// the file on disk changes.
type Loader struct {
	path     string
	debounce time.Duration

	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)
	watcher  *fsnotify.Watcher

	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoader returns a loader for the file at path. The file need not exist.
func NewLoader(path string) *Loader {
	return &Loader{
		path:     path,
		debounce: 100 * time.Millisecond,
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Load reads the file, applies IMECTX_* overrides and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.read()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) read() (*Config, error) {
	cfg, err := loadConfigFromFile(l.path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Config returns the active configuration, or nil before the first Load.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Reload rereads the file. On failure the active configuration is kept and
// no callback runs.
func (l *Loader) Reload() error {
	cfg, err := l.read()
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	l.mu.Lock()
	l.config = cfg
	callbacks := append([]func(*Config){}, l.onChange...)
	l.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	return nil
}

// OnChange registers cb to run after every successful reload.
func (l *Loader) OnChange(cb func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, cb)
}

// Errors delivers reload and watcher failures. Failures are dropped while
// one is pending.
func (l *Loader) Errors() <-chan error {
	return l.errs
}

// Watch reloads the configuration whenever the file changes, until ctx is
// done or the loader is closed. The parent directory is watched so editors
// that replace the file are seen.
func (l *Loader) Watch(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		return ErrWatching
	}
	select {
	case <-l.done:
		return fmt.Errorf("watch config: loader closed")
	default:
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	l.watcher = w

	go l.watch(ctx, w)
	return nil
}

func (l *Loader) watch(ctx context.Context, w *fsnotify.Watcher) {
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !l.affects(ev) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(l.debounce, func() {
				if ctx.Err() != nil || l.closed() {
					return
				}
				if err := l.Reload(); err != nil {
					l.report(err)
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.report(err)
		}
	}
}

// affects reports whether ev can change the contents of the config file.
func (l *Loader) affects(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != filepath.Base(l.path) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

func (l *Loader) report(err error) {
	select {
	case l.errs <- err:
	default:
	}
}

func (l *Loader) closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Close stops watching. It is safe to call more than once.
func (l *Loader) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		l.mu.Lock()
		w := l.watcher
		l.mu.Unlock()
		if w != nil {
			err = w.Close()
		}
	})
	return err
}
