package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/netscope/internal/analysis"
	"github.com/Benny93/netscope/internal/graph"
	"github.com/Benny93/netscope/internal/metrics"
	"github.com/Benny93/netscope/internal/storage"
)

// Options selects the analyses of one run and bounds their execution.
type Options struct {
	// Kinds to run; empty means every analysis.
	Kinds []analysis.Kind

	Analysis analysis.Options

	// Timeout bounds each analysis separately; zero disables it.
	Timeout time.Duration

	// Parallelism caps concurrent analyses; values below one mean one.
	Parallelism int

	// Refresh bypasses cached reports.
	Refresh bool
}

// Runner executes analyses concurrently over a shared snapshot.
type Runner struct {
	logger *zap.Logger
	store  storage.StorageBackend
	now    func() time.Time
}

// NewRunner creates a runner. store may be nil to disable caching.
func NewRunner(logger *zap.Logger, store storage.StorageBackend) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, store: store, now: time.Now}
}

// Run analyzes g. Individual analysis failures are recorded in the report;
// an error is returned only when ctx ends or the selection is invalid.
func (r *Runner) Run(ctx context.Context, g *graph.Graph, source string, opts Options) (*Report, error) {
	snap := g.Snapshot()

	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = analysis.AllKinds()
	}
	for _, k := range kinds {
		if _, err := k.MarshalText(); err != nil {
			return nil, err
		}
	}

	metrics.ObserveGraph(snap.NodeCount(), snap.EdgeCount())
	fingerprint := snap.Fingerprint()
	key := Key(fingerprint, snap.OrderFingerprint(), kinds, opts.Analysis)

	if r.store != nil && !opts.Refresh {
		if cached, ok := r.lookup(ctx, key); ok {
			cached.Source = source
			cached.Revision = snap.Revision
			return cached, nil
		}
	}

	rep := &Report{
		ID:          uuid.New(),
		Source:      source,
		Fingerprint: fingerprint,
		Revision:    snap.Revision,
		Nodes:       snap.NodeCount(),
		Edges:       snap.EdgeCount(),
		Weighted:    opts.Analysis.Weighted,
		GeneratedAt: r.now().UTC(),
		Kinds:       kinds,
		Results:     make(map[analysis.Kind]analysis.Result, len(kinds)),
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(opts.Parallelism, 1))

	for _, kind := range kinds {
		eg.Go(func() error {
			res, err := r.runOne(egCtx, kind, snap, opts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if rep.Errors == nil {
					rep.Errors = make(map[analysis.Kind]string)
				}
				rep.Errors[kind] = err.Error()
			} else {
				rep.Results[kind] = res
			}

			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.logger.Info("analysis complete",
		zap.String("source", source),
		zap.Int("nodes", rep.Nodes),
		zap.Int("edges", rep.Edges),
		zap.Int("analyses", len(kinds)),
		zap.Int("failed", len(rep.Errors)),
	)

	if r.store != nil {
		r.save(ctx, g, key, rep)
	}
	return rep, nil
}

func (r *Runner) runOne(ctx context.Context, kind analysis.Kind, snap *graph.Snapshot, opts Options) (analysis.Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := analysis.RunSnapshot(ctx, kind, snap, opts.Analysis)
	elapsed := time.Since(start)
	metrics.ObserveAnalysis(kind.String(), elapsed, err)

	if err != nil {
		r.logger.Warn("analysis failed",
			zap.String("analysis", kind.String()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	r.logger.Debug("analysis finished",
		zap.String("analysis", kind.String()),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

// lookup returns a cached report. Any storage or decode problem is a miss.
func (r *Runner) lookup(ctx context.Context, key string) (*Report, bool) {
	rec, err := r.store.GetReport(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		metrics.ObserveCache(false)
		return nil, false
	}

	var rep Report
	if err := json.Unmarshal(rec.Data, &rep); err != nil {
		r.logger.Warn("discarding unreadable cached report", zap.String("key", key), zap.Error(err))
		metrics.ObserveCache(false)
		return nil, false
	}
	metrics.ObserveCache(true)
	rep.Cached = true
	r.logger.Debug("report served from cache", zap.String("key", key))
	return &rep, true
}

// save stores the graph and a report without failures. Storage errors are
// logged and never fail the run.
func (r *Runner) save(ctx context.Context, g *graph.Graph, key string, rep *Report) {
	if rep.Failed() {
		return
	}
	data, err := json.Marshal(rep)
	if err != nil {
		r.logger.Warn("encoding report for cache", zap.Error(err))
		return
	}

	if err := r.store.PutGraph(ctx, storage.NewGraphRecord(g, rep.Source)); err != nil {
		r.logger.Warn("caching graph", zap.Error(err))
	}
	rec := &storage.ReportRecord{
		Key:         key,
		Fingerprint: rep.Fingerprint,
		Source:      rep.Source,
		Data:        data,
	}
	if err := r.store.PutReport(ctx, rec); err != nil {
		r.logger.Warn("caching report", zap.String("key", key), zap.Error(err))
	}
}
