// Package watcher batches filesystem events for the watch-rebuild loop.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultInterval is how often accumulated events are delivered.
const DefaultInterval = time.Second

// ignoredDirs are never subscribed to.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Event is a single filesystem change.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// IsModify reports whether the event changed data, a name or metadata.
// Creation and removal alone do not count.
func (e Event) IsModify() bool {
	return e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Rename) || e.Op.Has(fsnotify.Chmod)
}

// Source delivers batches of filesystem events.
type Source interface {
	Events() <-chan []Event
	Close() error
}

// Config configures a Watcher.
type Config struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Watcher subscribes to a set of paths recursively and delivers the events
// collected during each interval as one batch. Intervals without events
// produce no batch.
type Watcher struct {
	fs       *fsnotify.Watcher
	interval time.Duration
	batches  chan []Event
	logger   *slog.Logger

	mu      sync.Mutex
	pending []Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts watching paths. Directories are watched recursively and
// subdirectories created later are picked up as they appear.
func New(paths []string, config Config) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("no paths to watch")
	}
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}

	w := &Watcher{
		fs:       fw,
		interval: config.Interval,
		batches:  make(chan []Event, 1),
		logger:   config.Logger.With("component", "watcher"),
	}

	for _, p := range paths {
		if err := w.add(p); err != nil {
			fw.Close()
			return nil, err
		}
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.wg.Add(2)
	go w.collect()
	go w.deliver()
	return w, nil
}

// Events returns the batch channel. It is closed by Close.
func (w *Watcher) Events() <-chan []Event {
	return w.batches
}

// Close stops watching and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fs.Close()
	w.wg.Wait()
	close(w.batches)
	return err
}

// add subscribes to path and, for directories, every directory below it.
func (w *Watcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	if !info.IsDir() {
		return w.fs.Add(path)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && ignoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fs.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) collect() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !ignoredDirs[info.Name()] {
					if err := w.add(ev.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
					}
				}
			}
			w.mu.Lock()
			w.pending = append(w.pending, Event{Path: ev.Name, Op: ev.Op})
			w.mu.Unlock()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) deliver() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			batch := w.pending
			w.pending = nil
			w.mu.Unlock()
			if len(batch) == 0 {
				continue
			}
			select {
			case w.batches <- batch:
			case <-w.ctx.Done():
				return
			}
		}
	}
}
