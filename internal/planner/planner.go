// Package planner maps a pair of per-side diffs into the SyncAction that
// reconciles them, via a 2-D matrix keyed on each side's diff kind.
package planner

import (
	"github.com/syncpair/syncpair/internal/diffengine"
)

// Kind tags the variant a SyncAction carries.
type Kind int

const (
	Upload Kind = iota
	Download
	RemoveOnSource
	RemoveOnDestination
	MoveOnSource
	MoveOnDestination
	ResolveConflict
	Noop
	RaiseError
)

// SyncAction is a single planned action against a path. NewPath is only
// meaningful for MoveOnSource/MoveOnDestination. Message is only meaningful
// for RaiseError.
type SyncAction struct {
	Kind    Kind
	Path    string
	NewPath string
	Message string
}

// Equal reports whether two actions have the same tag, path, and new path.
func (a SyncAction) Equal(b SyncAction) bool {
	return a.Kind == b.Kind && a.Path == b.Path && a.NewPath == b.NewPath
}

// Plan walks srcDiffs and dstDiffs together, keyed by path, and returns one
// SyncAction per affected path plus any combinations the matrix could not
// resolve. The caller (the orchestrator) is responsible for failing the run
// when undecidedPaths is non-empty.
func Plan(srcDiffs, dstDiffs map[string]diffengine.Diff) (actions []SyncAction, undecidedPaths []string) {
	paths := make(map[string]struct{}, len(srcDiffs)+len(dstDiffs))
	for p := range srcDiffs {
		paths[p] = struct{}{}
	}
	for p := range dstDiffs {
		paths[p] = struct{}{}
	}

	for p := range paths {
		sd, hasSrc := srcDiffs[p]
		dd, hasDst := dstDiffs[p]

		action, ok := resolve(p, sd, hasSrc, dd, hasDst)
		if !ok {
			undecidedPaths = append(undecidedPaths, p)
			continue
		}
		actions = append(actions, action)
	}
	return actions, undecidedPaths
}

func resolve(path string, sd diffengine.Diff, hasSrc bool, dd diffengine.Diff, hasDst bool) (SyncAction, bool) {
	switch {
	case !hasSrc && !hasDst:
		return SyncAction{Kind: Noop, Path: path}, true

	case !hasSrc && hasDst:
		switch dd.Kind {
		case diffengine.Added:
			return SyncAction{Kind: Download, Path: path}, true
		case diffengine.Removed:
			return SyncAction{Kind: RemoveOnSource, Path: path}, true
		case diffengine.Changed:
			return SyncAction{Kind: Download, Path: path}, true
		case diffengine.Moved:
			return SyncAction{Kind: MoveOnSource, Path: path, NewPath: dd.NewPath}, true
		}

	case hasSrc && !hasDst:
		switch sd.Kind {
		case diffengine.Added:
			return SyncAction{Kind: Upload, Path: path}, true
		case diffengine.Removed:
			return SyncAction{Kind: RemoveOnDestination, Path: path}, true
		case diffengine.Changed:
			return SyncAction{Kind: Upload, Path: path}, true
		case diffengine.Moved:
			return SyncAction{Kind: MoveOnDestination, Path: path, NewPath: sd.NewPath}, true
		}

	default: // both sides changed
		switch {
		case sd.Kind == diffengine.Added && dd.Kind == diffengine.Added:
			return SyncAction{Kind: ResolveConflict, Path: path}, true
		case sd.Kind == diffengine.Removed && dd.Kind == diffengine.Removed:
			return SyncAction{Kind: Noop, Path: path}, true
		case sd.Kind == diffengine.Removed && dd.Kind == diffengine.Changed:
			return SyncAction{Kind: RaiseError, Path: path, Message: "removed on src, changed on dst"}, true
		case sd.Kind == diffengine.Changed && dd.Kind == diffengine.Removed:
			return SyncAction{Kind: RaiseError, Path: path, Message: "changed on src, removed on dst"}, true
		case sd.Kind == diffengine.Changed && dd.Kind == diffengine.Changed:
			return SyncAction{Kind: ResolveConflict, Path: path}, true
		case sd.Kind == diffengine.Moved && dd.Kind == diffengine.Moved:
			if sd.NewPath == dd.NewPath {
				return SyncAction{Kind: Noop, Path: path}, true
			}
			return SyncAction{Kind: RaiseError, Path: path, Message: "moved to different locations: " + sd.NewPath + " vs " + dd.NewPath}, true
		}
	}

	return SyncAction{}, false
}
