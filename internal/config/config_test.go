package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), f)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
threads = 8
state_dir = "/var/lib/syncpair"
log_level = "debug"
`), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Threads)
	assert.Equal(t, "/var/lib/syncpair", f.StateDir)
	assert.Equal(t, "debug", f.LogLevel)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestMerge_FlagOverridesTakePrecedence(t *testing.T) {
	base := Defaults()
	merged := base.Merge("*.go", 16, "/tmp/state", "trace")
	assert.Equal(t, "*.go", merged.Filter)
	assert.Equal(t, 16, merged.Threads)
	assert.Equal(t, "/tmp/state", merged.StateDir)
	assert.Equal(t, "trace", merged.LogLevel)
}

func TestMerge_ZeroOverridesLeaveBaseUnchanged(t *testing.T) {
	base := Defaults()
	merged := base.Merge("", 0, "", "")
	assert.Equal(t, base, merged)
}
