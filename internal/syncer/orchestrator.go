// Package syncer ties the core components together into a single sync run:
// the orchestrator loads the snapshot, drives the diff engine and planner,
// runs the executor across a bounded worker pool, and persists the new
// snapshot.
package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/syncpair/syncpair/internal/diffengine"
	"github.com/syncpair/syncpair/internal/executor"
	"github.com/syncpair/syncpair/internal/filter"
	"github.com/syncpair/syncpair/internal/hashing"
	"github.com/syncpair/syncpair/internal/logging"
	"github.com/syncpair/syncpair/internal/pathnorm"
	"github.com/syncpair/syncpair/internal/planner"
	"github.com/syncpair/syncpair/internal/provider"
	"github.com/syncpair/syncpair/internal/syncerr"
	"github.com/syncpair/syncpair/internal/syncstate"
)

// Pair describes one source/destination sync configuration.
type Pair struct {
	Source      provider.Provider
	Destination provider.Provider
	Filter      *filter.Filter
	FilterExpr  string // raw --filter text, used only to derive the snapshot filename
	StateDir    string
	Depth       int
	Threads     int
	DryRun      bool
	Log         *logging.Logger
}

// Run performs one full synchronization: load the prior snapshot, enumerate
// both sides, diff each against its half of the snapshot, plan and execute
// the reconciling actions, then persist the new snapshot.
func (p *Pair) Run(ctx context.Context) (*Report, error) {
	runID := uuid.New().String()
	p.Log.Info("starting sync run %s (%s -> %s)", runID, p.Source.Label(), p.Destination.Label())

	statePath, err := p.statePath()
	if err != nil {
		return nil, fmt.Errorf("syncer: compute state path: %w", err)
	}

	baseline, loadErr := syncstate.LoadOrEmpty(statePath)
	if loadErr != nil {
		p.Log.Info("no usable snapshot at %s (%v), starting from an empty baseline", statePath, loadErr)
	}

	srcRaw, err := p.Source.Enumerate(ctx, p.Depth)
	if err != nil {
		return nil, syncerr.WrapProvider("enumerate", p.Source.Label(), err)
	}
	dstRaw, err := p.Destination.Enumerate(ctx, p.Depth)
	if err != nil {
		return nil, syncerr.WrapProvider("enumerate", p.Destination.Label(), err)
	}

	srcRaw = filter.Apply(p.Filter, srcRaw)
	dstRaw = filter.Apply(p.Filter, dstRaw)

	caseInsensitive := !p.Source.IsCaseSensitive() || !p.Destination.IsCaseSensitive()

	srcCurrent, err := normalizeState(srcRaw, caseInsensitive)
	if err != nil {
		return nil, err
	}
	dstCurrent, err := normalizeState(dstRaw, caseInsensitive)
	if err != nil {
		return nil, err
	}

	srcBaseline, err := normalizeState(baseline.Source, caseInsensitive)
	if err != nil {
		return nil, err
	}
	dstBaseline, err := normalizeState(baseline.Destination, caseInsensitive)
	if err != nil {
		return nil, err
	}

	srcDiff := diffengine.Compute(srcCurrent, srcBaseline, p.Log)
	dstDiff := diffengine.Compute(dstCurrent, dstBaseline, p.Log)

	actions, undecided := planner.Plan(srcDiff, dstDiff)
	if len(undecided) > 0 {
		sort.Strings(undecided)
		for _, path := range undecided {
			p.Log.Error("planner: no decision for path %s", path)
		}
		return nil, syncerr.WrapSync("planner: %d path(s) had no resolvable action", len(undecided))
	}

	report := newReport()
	report.RunID = runID
	report.DryRun = p.DryRun
	for _, a := range actions {
		report.record(a)
	}

	if p.DryRun {
		for _, a := range actions {
			p.Log.Info("would apply %s %s", kindLabel(a.Kind), a.Path)
		}
		return report, nil
	}

	exec := executor.New(srcCurrent, dstCurrent)
	errs := runPool(ctx, p.Threads, actions, exec, p.Source, p.Destination, p.Log)
	report.Errors = errs

	if len(errs) > 0 {
		if ctx.Err() != nil {
			return report, syncerr.WrapCancelled(ctx.Err())
		}
		return report, syncerr.WrapSync("%d action(s) failed", len(errs))
	}

	if err := checkConvergence(exec.SrcState, exec.DstState); err != nil {
		return report, err
	}

	newState := &syncstate.SyncPairState{Source: exec.SrcState, Destination: exec.DstState}
	if err := syncstate.Save(statePath, newState); err != nil {
		return report, fmt.Errorf("syncer: persist snapshot: %w", err)
	}

	for kind, n := range report.Counts {
		p.Log.Info("%s: %d", kindLabel(kind), n)
	}
	p.Log.Info("sync run %s completed successfully", runID)
	return report, nil
}

// checkConvergence is the post-execution correctness check: both sides must
// agree on exactly the same set of paths.
func checkConvergence(src, dst *syncstate.StorageState) error {
	srcSet, dstSet := src.PathSet(), dst.PathSet()
	if len(srcSet) != len(dstSet) {
		return syncerr.WrapSync("correctness check failed: source has %d paths, destination has %d", len(srcSet), len(dstSet))
	}
	for p := range srcSet {
		if _, ok := dstSet[p]; !ok {
			return syncerr.WrapSync("correctness check failed: %s present on source only", p)
		}
	}
	return nil
}

// normalizeState rebuilds raw (keyed by a provider's own relative paths)
// into a StorageState keyed by normalized path, failing if two distinct
// original paths collapse onto the same normalized key.
func normalizeState(raw *syncstate.StorageState, caseInsensitive bool) (*syncstate.StorageState, error) {
	out := syncstate.NewStorageState()
	for original, fs := range raw.Files {
		key := pathnorm.Normalize(original, caseInsensitive)
		if existing, collided := out.Files[key]; collided && existing.Path != original {
			return nil, syncerr.WrapSync("normalization collision: %q and %q both normalize to %q", existing.Path, original, key)
		}
		fs.Path = original
		out.Files[key] = fs
	}
	return out, nil
}

// statePath computes <state-dir>/hash_dict({src,dst,filter,depth}), the
// per-pair snapshot filename.
func (p *Pair) statePath() (string, error) {
	identity := struct {
		Src    string
		Dst    string
		Filter string
		Depth  int
	}{p.Source.Handle(), p.Destination.Handle(), p.FilterExpr, p.Depth}

	name, err := hashing.HashDict(identity)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.StateDir, name), nil
}
