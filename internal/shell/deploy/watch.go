package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/dploy/internal/shell/watcher"
)

// ErrNoWatchPaths is returned by Watch when the app declares nothing to watch.
var ErrNoWatchPaths = errors.New("no watch paths configured")

// SourceFactory subscribes to the given paths.
type SourceFactory func(paths []string) (watcher.Source, error)

// WatchOptions configures the watch-rebuild loop.
type WatchOptions struct {
	NewSource SourceFactory

	// Shutdown receives one message when the user asks to stop.
	Shutdown <-chan struct{}

	// Now defaults to time.Now.
	Now func() time.Time
}

// ShouldRebuild reports whether a batch of events triggers a rebuild: it must
// contain a modification and the cooldown since the last rebuild must be over.
func ShouldRebuild(batch []watcher.Event, lastRebuild, now time.Time, cooldown time.Duration) bool {
	if now.Sub(lastRebuild) < cooldown {
		return false
	}
	for _, ev := range batch {
		if ev.IsModify() {
			return true
		}
	}
	return false
}

// Watch deploys everything, follows the app logs, and rebuilds only the app
// whenever watched files change. It returns nil on shutdown and the error of
// a failed rebuild otherwise.
func (d *Deployer) Watch(ctx context.Context, opts WatchOptions) error {
	paths := d.ctx.Config().Watch
	if len(paths) == 0 {
		return ErrNoWatchPaths
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := d.Deploy(ctx); err != nil {
		return err
	}

	logs := d.followAppLogs(ctx)
	defer func() {
		if err := logs.Stop(); err != nil {
			d.logger.Warn("log stream ended with error", "error", err)
		}
	}()

	source, err := opts.NewSource(paths)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer source.Close()

	d.logger.Info("watching for changes", "paths", paths, "cooldown", d.cooldown)
	lastRebuild := opts.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-opts.Shutdown:
			d.logger.Info("shutting down watch")
			return nil
		case batch, ok := <-source.Events():
			if !ok {
				return nil
			}
			select {
			case <-opts.Shutdown:
				d.logger.Info("shutting down watch")
				return nil
			default:
			}

			now := opts.Now()
			if !ShouldRebuild(batch, lastRebuild, now, d.cooldown) {
				d.logger.Debug("ignoring changes", "events", len(batch))
				continue
			}

			d.logger.Info("changes detected, rebuilding app", "events", len(batch))
			if err := logs.Stop(); err != nil {
				d.logger.Warn("log stream ended with error", "error", err)
			}
			if err := d.ReconcileApp(ctx); err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
			logs = d.followAppLogs(ctx)
			lastRebuild = opts.Now()
		}
	}
}
