package syncer

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syncpair/syncpair/internal/executor"
	"github.com/syncpair/syncpair/internal/logging"
	"github.com/syncpair/syncpair/internal/planner"
	"github.com/syncpair/syncpair/internal/provider"
)

// runPool executes actions against exec through a bounded errgroup, up to
// threads concurrent workers. A per-goroutine failure is
// recorded and the goroutine returns nil so the rest of the batch keeps
// running; only external cancellation (ctx.Done) stops the group early.
// Actions are submitted in path-sorted order for deterministic logs; there is
// no ordering guarantee between concurrently-running actions.
func runPool(ctx context.Context, threads int, actions []planner.SyncAction, exec *executor.Executor, src, dst provider.Provider, log *logging.Logger) []error {
	if threads < 1 {
		threads = 1
	}
	sorted := append([]planner.SyncAction(nil), actions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)

	var mu sync.Mutex
	var errs []error

	// Clone pairs are created lazily by a shared sync.Pool: an action takes
	// an idle pair (cloning a new one only when none is idle) and hands it
	// back when done, so no pair is used by two actions at once. A pair is
	// not bound to any particular goroutine.
	clones := &sync.Pool{
		New: func() any {
			c, err := newClonePair(src, dst)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			return c
		},
	}

	for _, a := range sorted {
		if ctx.Err() != nil {
			break // cancelled: submit no further actions
		}
		action := a
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					errs = append(errs, asError(r))
					mu.Unlock()
				}
			}()

			raw := clones.Get()
			c, ok := raw.(*clonePair)
			if !ok || c == nil {
				return nil // clone failure already recorded above
			}
			defer clones.Put(c)

			if execErr := exec.Execute(gctx, action, c.src, c.dst); execErr != nil {
				log.Warn("action failed: %s %s: %v", kindLabel(action.Kind), action.Path, execErr)
				mu.Lock()
				errs = append(errs, execErr)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait() // workers never return a non-nil error; failures are recorded above

	if ctx.Err() != nil {
		mu.Lock()
		errs = append(errs, ctx.Err())
		mu.Unlock()
	}
	return errs
}

type clonePair struct {
	src, dst provider.Provider
}

func newClonePair(src, dst provider.Provider) (*clonePair, error) {
	srcClone, err := src.Clone()
	if err != nil {
		return nil, err
	}
	dstClone, err := dst.Clone()
	if err != nil {
		return nil, err
	}
	return &clonePair{src: srcClone, dst: dstClone}, nil
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{r}
}

type panicError struct{ v any }

func (p *panicError) Error() string { return "panic in worker: " + formatPanic(p.v) }

func formatPanic(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic"
}
