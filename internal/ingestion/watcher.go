package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Benny93/netscope/internal/metrics"
)

// DefaultDebounce is the quiet period after the last write before a reload.
const DefaultDebounce = 500 * time.Millisecond

// ChangeHandler receives the freshly loaded graph after each change.
type ChangeHandler func(ctx context.Context, res *LoadResult) error

// WatchFile reloads the edge list at path whenever it changes and hands the
// result to onChange. Bursts of events are coalesced into one reload.
// Blocks until the context is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors which replace the file on save are still observed.
func (l *Loader) WatchFile(ctx context.Context, path string, debounce time.Duration, onChange ChangeHandler) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	pending := false
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop()
	defer batchTimer.Stop()

	l.logger.Info("watching edge list", zap.String("path", abs))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRelevantEvent(event, abs) {
				continue
			}
			pending = true
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("watch error", zap.Error(err))

		case <-batchTimer.C:
			if !pending {
				continue
			}
			pending = false

			res, err := l.LoadFile(ctx, abs)
			if err != nil {
				// The file may be mid-rewrite or deleted; wait for the next event.
				l.logger.Warn("reload failed", zap.String("path", abs), zap.Error(err))
				continue
			}
			metrics.GraphReloads.Inc()
			l.logger.Info("edge list reloaded",
				zap.String("path", abs),
				zap.Int("nodes", res.Graph.NodeCount()),
				zap.Int("edges", res.Graph.EdgeCount()),
			)
			if err := onChange(ctx, res); err != nil {
				return err
			}
		}
	}
}

// isRelevantEvent reports whether event touches the watched file with an
// operation that can change its content.
func isRelevantEvent(event fsnotify.Event, target string) bool {
	if filepath.Clean(event.Name) != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
