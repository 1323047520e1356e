// Package executor applies a single planned SyncAction against the two
// providers of a pair and updates the in-memory StorageStates to reflect the
// new truth.
package executor

import (
	"context"
	"sync"

	"github.com/syncpair/syncpair/internal/comparator"
	"github.com/syncpair/syncpair/internal/planner"
	"github.com/syncpair/syncpair/internal/provider"
	"github.com/syncpair/syncpair/internal/syncerr"
	"github.com/syncpair/syncpair/internal/syncstate"
)

// Executor applies actions against one sync pair's providers, guarding the
// two shared StorageStates with a single mutex so the final maps always
// reflect exactly the set of successful actions even when actions run
// concurrently across distinct paths.
type Executor struct {
	mu       sync.Mutex
	SrcState *syncstate.StorageState
	DstState *syncstate.StorageState
}

// New builds an Executor over the given states, which it owns for the
// duration of a run.
func New(srcState, dstState *syncstate.StorageState) *Executor {
	return &Executor{SrcState: srcState, DstState: dstState}
}

// Execute applies one action against srcProv/dstProv (already the clones
// assigned to the calling worker).
func (e *Executor) Execute(ctx context.Context, action planner.SyncAction, srcProv, dstProv provider.Provider) error {
	switch action.Kind {
	case planner.Upload:
		return e.upload(ctx, action.Path, srcProv, dstProv)
	case planner.Download:
		return e.download(ctx, action.Path, srcProv, dstProv)
	case planner.RemoveOnSource:
		return e.removeOnSource(ctx, action.Path, srcProv)
	case planner.RemoveOnDestination:
		return e.removeOnDestination(ctx, action.Path, dstProv)
	case planner.MoveOnSource:
		return e.moveOnSource(ctx, action.Path, action.NewPath, srcProv)
	case planner.MoveOnDestination:
		return e.moveOnDestination(ctx, action.Path, action.NewPath, dstProv)
	case planner.ResolveConflict:
		return e.resolveConflict(ctx, action.Path, srcProv, dstProv)
	case planner.Noop:
		return nil
	case planner.RaiseError:
		return syncerr.WrapSync("%s: %s", action.Path, action.Message)
	default:
		return syncerr.WrapSync("executor: unknown action kind for %s", action.Path)
	}
}

func (e *Executor) srcPath(normalized string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fs, ok := e.SrcState.Files[normalized]; ok {
		return fs.Path
	}
	return normalized
}

func (e *Executor) dstPath(normalized string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fs, ok := e.DstState.Files[normalized]; ok {
		return fs.Path
	}
	return normalized
}

func (e *Executor) upload(ctx context.Context, normalized string, srcProv, dstProv provider.Provider) error {
	srcNative := e.srcPath(normalized)
	dstNative := e.dstPath(normalized)

	stream, err := srcProv.OpenRead(ctx, srcNative)
	if err != nil {
		return syncerr.WrapProvider("upload: open source", normalized, err)
	}
	defer stream.Close()

	e.mu.Lock()
	priorDst, hadPrior := e.DstState.Files[normalized]
	e.mu.Unlock()

	if hadPrior && priorDst.Revision != "" && dstProv.SupportsUpdate() {
		if err := dstProv.Update(ctx, dstNative, stream, priorDst.Revision); err != nil {
			return syncerr.WrapProvider("upload: update destination", normalized, err)
		}
	} else if err := dstProv.Write(ctx, dstNative, stream); err != nil {
		return syncerr.WrapProvider("upload: write destination", normalized, err)
	}

	newState, err := dstProv.Stat(ctx, dstNative)
	if err != nil {
		return syncerr.WrapProvider("upload: stat destination", normalized, err)
	}
	e.mu.Lock()
	e.DstState.Files[normalized] = newState
	e.mu.Unlock()
	return nil
}

func (e *Executor) download(ctx context.Context, normalized string, srcProv, dstProv provider.Provider) error {
	dstNative := e.dstPath(normalized)
	srcNative := e.srcPath(normalized)

	stream, err := dstProv.OpenRead(ctx, dstNative)
	if err != nil {
		return syncerr.WrapProvider("download: open destination", normalized, err)
	}
	defer stream.Close()

	e.mu.Lock()
	priorSrc, hadPrior := e.SrcState.Files[normalized]
	e.mu.Unlock()

	if hadPrior && priorSrc.Revision != "" && srcProv.SupportsUpdate() {
		if err := srcProv.Update(ctx, srcNative, stream, priorSrc.Revision); err != nil {
			return syncerr.WrapProvider("download: update source", normalized, err)
		}
	} else if err := srcProv.Write(ctx, srcNative, stream); err != nil {
		return syncerr.WrapProvider("download: write source", normalized, err)
	}

	newState, err := srcProv.Stat(ctx, srcNative)
	if err != nil {
		return syncerr.WrapProvider("download: stat source", normalized, err)
	}
	e.mu.Lock()
	e.SrcState.Files[normalized] = newState
	e.mu.Unlock()
	return nil
}

// removeOnSource and removeOnDestination treat NotFound as fatal: it implies
// the baseline or the provider's current listing has drifted from what the
// diff engine assumed when it planned this action.
func (e *Executor) removeOnSource(ctx context.Context, normalized string, srcProv provider.Provider) error {
	native := e.srcPath(normalized)
	if err := srcProv.RemoveFile(ctx, native); err != nil {
		return syncerr.WrapProvider("remove on source", normalized, err)
	}
	e.mu.Lock()
	delete(e.SrcState.Files, normalized)
	e.mu.Unlock()
	return nil
}

func (e *Executor) removeOnDestination(ctx context.Context, normalized string, dstProv provider.Provider) error {
	native := e.dstPath(normalized)
	if err := dstProv.RemoveFile(ctx, native); err != nil {
		return syncerr.WrapProvider("remove on destination", normalized, err)
	}
	e.mu.Lock()
	delete(e.DstState.Files, normalized)
	e.mu.Unlock()
	return nil
}

// moveOnSource mirrors a move observed on the destination onto the source.
// The new path's native casing comes from the destination's own current
// state (already populated by enumeration), not from the normalized key,
// so case-preserving source backends see the casing the destination
// actually observed.
func (e *Executor) moveOnSource(ctx context.Context, normalized, newNormalized string, srcProv provider.Provider) error {
	native := e.srcPath(normalized)
	newNative := e.dstPath(newNormalized)
	if err := srcProv.Move(ctx, native, newNative); err != nil {
		return syncerr.WrapProvider("move on source", normalized, err)
	}
	e.mu.Lock()
	fs := e.SrcState.Files[normalized]
	fs.Path = newNative
	delete(e.SrcState.Files, normalized)
	e.SrcState.Files[newNormalized] = fs
	e.mu.Unlock()
	return nil
}

// moveOnDestination mirrors a move observed on the source onto the
// destination, using the source's own current state to resolve the new
// path's native casing for the same reason.
func (e *Executor) moveOnDestination(ctx context.Context, normalized, newNormalized string, dstProv provider.Provider) error {
	native := e.dstPath(normalized)
	newNative := e.srcPath(newNormalized)
	if err := dstProv.Move(ctx, native, newNative); err != nil {
		return syncerr.WrapProvider("move on destination", normalized, err)
	}
	e.mu.Lock()
	fs := e.DstState.Files[normalized]
	fs.Path = newNative
	delete(e.DstState.Files, normalized)
	e.DstState.Files[newNormalized] = fs
	e.mu.Unlock()
	return nil
}

func (e *Executor) resolveConflict(ctx context.Context, normalized string, srcProv, dstProv provider.Provider) error {
	e.mu.Lock()
	srcFile := e.SrcState.Files[normalized]
	dstFile := e.DstState.Files[normalized]
	e.mu.Unlock()

	equal, err := comparator.Equal(ctx, srcProv, dstProv, srcFile, dstFile)
	if err != nil {
		return syncerr.WrapProvider("resolve conflict", normalized, err)
	}
	if !equal {
		return syncerr.WrapSync("unresolved conflict at %s: content differs on both sides", normalized)
	}
	return nil
}
