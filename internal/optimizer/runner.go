package optimizer

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/iamNilotpal/vectorcollection/internal/holder"
)

// Runner drives a fixed set of optimizers against a holder, bounding
// how many Optimize builds run concurrently via
// options.OptimizerConfig.MaxOptimizationThreads — spec.md §5:
// "segment operations themselves are parallel"; the optimizer's build
// phase is the one place this package deliberately caps concurrency,
// since each build phase can hold a full copy of a segment's vectors
// in memory.
type Runner struct {
	optimizers []Optimizer
	sem        *semaphore.Weighted
	log        *zap.SugaredLogger
}

// NewRunner builds a Runner over optimizers, allowing at most
// maxConcurrent Optimize calls to run their build phase at once.
func NewRunner(optimizers []Optimizer, maxConcurrent int, log *zap.SugaredLogger) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{optimizers: optimizers, sem: semaphore.NewWeighted(int64(maxConcurrent)), log: log}
}

// RunOnce evaluates every optimizer's CheckCondition against h and runs
// Optimize for each that found candidates, bounded by the runner's
// concurrency cap and cancellable via ctx — spec.md §5: "Optimizations
// are cancellable before the swap step; past the swap, they are
// committed" (ctx cancellation here only ever prevents a not-yet-started
// Optimize call from acquiring the semaphore; an in-flight one runs to
// completion, matching that contract).
func (r *Runner) RunOnce(ctx context.Context, h *holder.Holder) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, opt := range r.optimizers {
		opt := opt
		candidates := opt.CheckCondition(h)
		if len(candidates) == 0 {
			continue
		}

		g.Go(func() error {
			if err := r.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer r.sem.Release(1)

			if err := opt.Optimize(h, candidates); err != nil {
				r.log.Warnw("optimizer run failed", "error", err)
				return err
			}
			return nil
		})
	}

	return g.Wait()
}
