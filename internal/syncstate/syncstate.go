// Package syncstate holds the per-file and per-pair state model and its
// on-disk persistence.
package syncstate

// FileState is the per-file record keyed by a normalized relative path in a
// StorageState.
type FileState struct {
	// Path is the original relative path as reported by the provider; it may
	// differ in case or Unicode form from the StorageState key it is stored
	// under.
	Path string
	// ContentHash is opaque and only meaningful alongside HashType.
	ContentHash string
	// HashType tags the algorithm ContentHash was computed with.
	HashType string
	// Revision is an optional opaque token for optimistic-update CAS; may be
	// empty when the provider does not support revisions.
	Revision string
}

// Equal reports whether two FileStates carry the same content identity.
// Cross-provider comparisons must never use this directly; go through the
// content comparator instead, since hash types differ across providers.
func (f FileState) Equal(other FileState) bool {
	return f.ContentHash == other.ContentHash &&
		f.HashType == other.HashType &&
		f.Revision == other.Revision
}

// StorageState maps a normalized relative path to its FileState. Keys are
// NFC-normalized, and additionally case-folded whenever the state is built
// for a case-insensitive provider or a pair where either side is.
type StorageState struct {
	Files map[string]FileState
}

// NewStorageState returns an empty StorageState ready for use.
func NewStorageState() *StorageState {
	return &StorageState{Files: make(map[string]FileState)}
}

// Clone returns a deep copy, since the executor mutates a run's current
// states in place and callers sometimes need the pre-mutation snapshot.
func (s *StorageState) Clone() *StorageState {
	out := NewStorageState()
	for k, v := range s.Files {
		out.Files[k] = v
	}
	return out
}

// PathSet returns the set of normalized keys present, used by the
// post-execution correctness check and by tests asserting convergence.
func (s *StorageState) PathSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Files))
	for k := range s.Files {
		set[k] = struct{}{}
	}
	return set
}

// SyncPairState is the ordered pair of snapshots persisted between runs.
type SyncPairState struct {
	Source      *StorageState
	Destination *StorageState
}

// NewSyncPairState returns an empty pair state, used as the baseline when no
// snapshot file exists yet or the existing one failed to load.
func NewSyncPairState() *SyncPairState {
	return &SyncPairState{Source: NewStorageState(), Destination: NewStorageState()}
}
