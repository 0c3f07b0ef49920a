// Package watch reports changes to controller inputs and the configuration file,
// collapsing bursts of file events into one callback.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"

	"github.com/artpar/ctrlgen/core/events"
	"github.com/artpar/ctrlgen/core/schema"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches directories for controller inputs and individual files such as
// the configuration file.
type Watcher struct {
	logger   zerolog.Logger
	debounce time.Duration
	clock    clockz.Clock
	fsw      *fsnotify.Watcher

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

// New creates a watcher. A non-positive debounce selects DefaultDebounce.
func New(debounce time.Duration, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		logger:   logger,
		debounce: debounce,
		clock:    clockz.RealClock,
		fsw:      fsw,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}, nil
}

// SetClock replaces the clock driving the debounce timer.
func (w *Watcher) SetClock(clock clockz.Clock) {
	w.clock = clock
}

// Add watches paths. A directory is watched recursively for inputs; a file is
// watched itself, whatever its name.
func (w *Watcher) Add(paths ...string) error {
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("absolute path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			w.mu.Lock()
			w.files[abs] = true
			w.mu.Unlock()
			// Watch the directory: editors replace files on save.
			if err := w.addDir(filepath.Dir(abs)); err != nil {
				return err
			}
			continue
		}

		if err := w.addTree(abs); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.addDir(p)
	})
}

func (w *Watcher) addDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}
	w.dirs[dir] = true
	w.logger.Debug().Str("dir", dir).Msg("watching directory")
	return nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor"
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers changed paths to fn until ctx is done. Changes are collected until no
// event arrived for the debounce period; fn then receives every changed path once,
// sorted. fn runs on the watcher goroutine, so events arriving meanwhile wait.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context, paths []string)) error {
	d := newDebouncer(w.clock, w.debounce)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				d.add(event.Name)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-d.C():
			paths := d.take()
			if len(paths) == 0 {
				continue
			}
			capitan.Emit(ctx, events.WatchTriggered, events.KeyFiles.Field(len(paths)))
			fn(ctx, paths)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDir(info.Name()) {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new directory")
			}
			return false
		}
	}

	w.mu.Lock()
	explicit := w.files[event.Name]
	w.mu.Unlock()
	return explicit || schema.IsInput(filepath.Base(event.Name))
}

// debouncer collects paths and restarts its timer on every addition.
type debouncer struct {
	clock    clockz.Clock
	duration time.Duration

	mu      sync.Mutex
	timer   clockz.Timer
	pending map[string]bool
}

func newDebouncer(clock clockz.Clock, d time.Duration) *debouncer {
	t := clock.NewTimer(d)
	t.Stop()
	return &debouncer{
		clock:    clock,
		duration: d,
		timer:    t,
		pending:  make(map[string]bool),
	}
}

// C fires once the debounce period passed since the last add.
func (d *debouncer) C() <-chan time.Time {
	return d.timer.C()
}

func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = true
	if !d.timer.Stop() {
		select {
		case <-d.timer.C():
		default:
		}
	}
	d.timer.Reset(d.duration)
}

func (d *debouncer) take() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	clear(d.pending)
	sort.Strings(paths)
	return paths
}

func (d *debouncer) stop() {
	d.timer.Stop()
}
