package ingestion

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProgressCallback is called with a phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// BatchResult holds every edge list loaded from a directory.
type BatchResult struct {
	Root    string
	Files   []FileEntry
	Results []*LoadResult
}

// LoadDir walks root for edge-list files and loads each of them. Files are
// loaded concurrently; results keep the walk order.
func (l *Loader) LoadDir(ctx context.Context, root string, progress ProgressCallback) (*BatchResult, error) {
	if progress != nil {
		progress("Walking files", 0.0)
	}

	patterns, err := LoadIgnorePatterns(root)
	if err != nil {
		return nil, fmt.Errorf("reading ignore files: %w", err)
	}
	entries, err := WalkEdgeLists(root, patterns)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	if progress != nil {
		progress("Walking files", 1.0)
		progress("Loading edge lists", 0.0)
	}

	batch := &BatchResult{
		Root:    root,
		Files:   entries,
		Results: make([]*LoadResult, len(entries)),
	}

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, entry := range entries {
		g.Go(func() error {
			res, err := l.LoadFile(gctx, entry.Path)
			if err != nil {
				return err
			}
			res.Source = entry.RelPath
			batch.Results[i] = res

			if progress != nil {
				mu.Lock()
				done++
				progress("Loading edge lists", float64(done)/float64(len(entries)))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("loaded edge lists", zap.String("root", root), zap.Int("files", len(entries)))
	if progress != nil {
		progress("Loading edge lists", 1.0)
	}
	return batch, nil
}
