package syncstate

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/syncpair/syncpair/internal/syncerr"
)

// formatVersion is written as the first byte of every persisted snapshot, so
// a future encoding change can be detected by Load instead of silently
// misparsing an old file.
const formatVersion byte = 1

// Save atomically writes state to path: a temp file in the same directory is
// written and fsynced, then renamed over the destination, so a crash never
// leaves a half-written snapshot in place.
func Save(path string, state *SyncPairState) error {
	var buf bytes.Buffer
	buf.WriteByte(formatVersion)
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return syncerr.WrapProvider("encode snapshot", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".syncstate-*.tmp")
	if err != nil {
		return syncerr.WrapProvider("create temp snapshot", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return syncerr.WrapProvider("write temp snapshot", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return syncerr.WrapProvider("sync temp snapshot", path, err)
	}
	if err := tmp.Close(); err != nil {
		return syncerr.WrapProvider("close temp snapshot", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return syncerr.WrapProvider("chmod temp snapshot", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return syncerr.WrapProvider("rename snapshot into place", path, err)
	}
	return nil
}

// Load reads and decodes the snapshot at path. A missing file or one that
// fails to decode is reported via a distinct, identifiable error so callers
// can fall back to an empty baseline rather than treating it as fatal.
func Load(path string) (*SyncPairState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("snapshot %s is empty", path)
	}
	if data[0] != formatVersion {
		return nil, fmt.Errorf("snapshot %s has unsupported format version %d", path, data[0])
	}
	var state SyncPairState
	if err := gob.NewDecoder(bytes.NewReader(data[1:])).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if state.Source == nil {
		state.Source = NewStorageState()
	}
	if state.Destination == nil {
		state.Destination = NewStorageState()
	}
	return &state, nil
}

// LoadOrEmpty is the orchestrator's entry point for step 1 of a run: missing
// or corrupt state is logged by the caller and treated as two empty
// baselines, never as a fatal error.
func LoadOrEmpty(path string) (*SyncPairState, error) {
	state, err := Load(path)
	if err != nil {
		return NewSyncPairState(), err
	}
	return state, nil
}
