package providerbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncpair/syncpair/internal/provider"
)

func TestBuild_FS(t *testing.T) {
	dir := t.TempDir()
	p, err := Build(provider.Config{Type: "FS", Options: map[string]string{"root": dir, "cache_dir": dir}})
	require.NoError(t, err)
	assert.NotEmpty(t, p.Handle())
}

func TestBuild_FS_MissingRoot(t *testing.T) {
	_, err := Build(provider.Config{Type: "FS", Options: map[string]string{}})
	assert.ErrorContains(t, err, "requires root=")
}

func TestBuild_SFTP_MissingHost(t *testing.T) {
	_, err := Build(provider.Config{Type: "SFTP", Options: map[string]string{"user": "me"}})
	assert.ErrorContains(t, err, "requires host=")
}

func TestBuild_SFTP_MissingUser(t *testing.T) {
	_, err := Build(provider.Config{Type: "SFTP", Options: map[string]string{"host": "example.com"}})
	assert.ErrorContains(t, err, "requires user=")
}

func TestBuild_SFTP_InvalidPort(t *testing.T) {
	_, err := Build(provider.Config{Type: "SFTP", Options: map[string]string{"host": "example.com", "user": "me", "port": "nope"}})
	assert.ErrorContains(t, err, "invalid port")
}

func TestBuild_UnknownType(t *testing.T) {
	_, err := Build(provider.Config{Type: "NOPE"})
	assert.ErrorContains(t, err, "unknown provider type")
}
