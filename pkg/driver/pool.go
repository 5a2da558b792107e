package driver

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// pool bounds how many files are processed concurrently, replacing the
// teacher's implicit single-threaded findPeakFiles + sequential
// TranspileFiles loop with genuine per-file parallelism — spec.md §5 calls
// for a bounded worker pool, single-threaded per file. golang.org/x/sync's
// errgroup and semaphore are a direct requirement of the corpus's gopls
// module, doing exactly this job there across package-load workers.
type pool struct {
	sem *semaphore.Weighted
	grp *errgroup.Group
	ctx context.Context
}

// newPool returns a pool that runs at most jobs goroutines at once, all
// children of ctx so one file's fatal error (via errgroup's own
// cancellation) or the caller's cancel signal stops the rest from
// starting new work.
func newPool(ctx context.Context, jobs int) *pool {
	if jobs < 1 {
		jobs = 1
	}
	grp, gctx := errgroup.WithContext(ctx)
	return &pool{sem: semaphore.NewWeighted(int64(jobs)), grp: grp, ctx: gctx}
}

// Go schedules fn to run once a slot is free. A semaphore acquisition
// failure (context cancellation) is returned as the task's own error so
// it surfaces through Wait rather than panicking.
func (p *pool) Go(fn func(ctx context.Context) error) {
	p.grp.Go(func() error {
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return err
		}
		defer p.sem.Release(1)
		return fn(p.ctx)
	})
}

// Wait blocks until every scheduled task has returned, yielding the first
// non-nil error if any (mirroring errgroup.Group.Wait's contract).
func (p *pool) Wait() error { return p.grp.Wait() }
