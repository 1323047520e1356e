// Package diffengine computes the set of changes between a provider's
// current StorageState and its last-known baseline, including move
// detection.
package diffengine

import (
	"path"
	"sort"

	"github.com/syncpair/syncpair/internal/logging"
	"github.com/syncpair/syncpair/internal/syncstate"
)

// Kind tags the variant a Diff carries.
type Kind int

const (
	Added Kind = iota
	Removed
	Changed
	Moved
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "Added"
	case Removed:
		return "Removed"
	case Changed:
		return "Changed"
	case Moved:
		return "Moved"
	default:
		return "Unknown"
	}
}

// Diff is a single change to a path between baseline and current. NewPath is
// only meaningful when Kind == Moved, and holds the path's new location.
type Diff struct {
	Kind    Kind
	Path    string
	NewPath string
}

// Compute returns the diffs between current and baseline, keyed implicitly
// by Diff.Path, with move detection applied as a post-pass over the raw
// added/removed/changed set.
func Compute(current, baseline *syncstate.StorageState, log *logging.Logger) map[string]Diff {
	diffs := make(map[string]Diff)

	for p, cur := range current.Files {
		base, existed := baseline.Files[p]
		switch {
		case !existed:
			diffs[p] = Diff{Kind: Added, Path: p}
		case cur.ContentHash != base.ContentHash || cur.HashType != base.HashType:
			diffs[p] = Diff{Kind: Changed, Path: p}
		}
	}
	for p := range baseline.Files {
		if _, stillPresent := current.Files[p]; !stillPresent {
			diffs[p] = Diff{Kind: Removed, Path: p}
		}
	}

	detectMoves(diffs, current, baseline, log)
	return diffs
}

// detectMoves buckets Added and Removed diffs by content hash and pairs them
// within each balanced bucket using greedy minimum-edit-distance matching on
// the filename component, replacing matched pairs with a single Moved diff
// stored under the old path. Unbalanced buckets, and buckets that cannot be
// cleanly paired, are left as separate Added/Removed entries.
func detectMoves(diffs map[string]Diff, current, baseline *syncstate.StorageState, log *logging.Logger) {
	type bucketKey struct {
		hash, htype string
	}
	added := make(map[bucketKey][]string)
	removed := make(map[bucketKey][]string)

	for p, d := range diffs {
		if d.Kind == Added {
			fs := current.Files[p]
			k := bucketKey{fs.ContentHash, fs.HashType}
			added[k] = append(added[k], p)
		}
		if d.Kind == Removed {
			fs := baseline.Files[p]
			k := bucketKey{fs.ContentHash, fs.HashType}
			removed[k] = append(removed[k], p)
		}
	}

	for k, removedPaths := range removed {
		addedPaths, ok := added[k]
		if !ok || len(addedPaths) != len(removedPaths) {
			log.Warn("diffengine: unbalanced move bucket for hash %s (%d removed, %d added), leaving entries as add/remove", k.hash, len(removedPaths), len(addedPaths))
			continue // unbalanced bucket, leave as separate Added/Removed
		}

		sort.Strings(removedPaths)
		remaining := append([]string(nil), addedPaths...)
		sort.Strings(remaining)

		pairs := make(map[string]string, len(removedPaths))
		ok = true
		for _, rp := range removedPaths {
			bestIdx := -1
			bestDist := -1
			for i, ap := range remaining {
				d := levenshtein(path.Base(rp), path.Base(ap))
				if bestIdx == -1 || d < bestDist || (d == bestDist && ap < remaining[bestIdx]) {
					bestIdx, bestDist = i, d
				}
			}
			if bestIdx == -1 {
				ok = false
				break
			}
			pairs[rp] = remaining[bestIdx]
			remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		}
		if !ok {
			log.Warn("diffengine: could not cleanly pair move bucket for hash %s, leaving entries as add/remove", k.hash)
			continue
		}

		for oldPath, newPath := range pairs {
			diffs[oldPath] = Diff{Kind: Moved, Path: oldPath, NewPath: newPath}
			delete(diffs, newPath)
		}
	}
}

// levenshtein returns the classic edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
