package syncstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot")

	state := NewSyncPairState()
	state.Source.Files["a"] = FileState{Path: "a", ContentHash: "h1", HashType: "sha256"}
	state.Destination.Files["a"] = FileState{Path: "a", ContentHash: "h1", HashType: "sha256", Revision: "r1"}

	require.NoError(t, Save(path, state))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, state.Source.Files, loaded.Source.Files)
	assert.Equal(t, state.Destination.Files, loaded.Destination.Files)
}

func TestSave_NoLeftoverTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot")

	require.NoError(t, Save(path, NewSyncPairState()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snapshot", entries[0].Name())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoad_UnsupportedFormatVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 'x'}, 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported format version")
}

func TestLoad_CorruptGob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot")
	require.NoError(t, os.WriteFile(path, []byte{formatVersion, 'x', 'y', 'z'}, 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOrEmpty_FallsBackOnMissingFile(t *testing.T) {
	state, err := LoadOrEmpty(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
	require.NotNil(t, state)
	assert.Empty(t, state.Source.Files)
	assert.Empty(t, state.Destination.Files)
}
