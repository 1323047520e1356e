package sftp

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbs_JoinsRootAndRelativePath(t *testing.T) {
	p := &Provider{cfg: Config{Root: "/home/me/sync"}}
	assert.Equal(t, "/home/me/sync/dir/file.txt", p.abs("dir/file.txt"))
}

func TestHandle_StableForSameConfig(t *testing.T) {
	p1 := &Provider{cfg: Config{Host: "example.com", User: "me", Root: "/data", Port: 22}}
	p2 := &Provider{cfg: Config{Host: "example.com", User: "me", Root: "/data", Port: 22}}
	assert.Equal(t, p1.Handle(), p2.Handle())
}

func TestHandle_DiffersAcrossHosts(t *testing.T) {
	p1 := &Provider{cfg: Config{Host: "a.example.com", Root: "/data"}}
	p2 := &Provider{cfg: Config{Host: "b.example.com", Root: "/data"}}
	assert.NotEqual(t, p1.Handle(), p2.Handle())
}

func TestAuthMethod_MissingKeyFileErrors(t *testing.T) {
	_, err := authMethod(Config{Key: "/does/not/exist"})
	assert.Error(t, err)
}

func TestAuthMethod_FallsBackToPasswordWhenNoKey(t *testing.T) {
	auth, err := authMethod(Config{Pass: "secret"})
	require.NoError(t, err)
	assert.NotNil(t, auth)
}

// The remaining Provider methods require a live SSH/SFTP server and are
// exercised only when one is explicitly configured, mirroring how the
// example pack gates its own localhost-SSH round-trip tests.
func liveSFTPConfig(t *testing.T) Config {
	t.Helper()
	if os.Getenv("SYNCPAIR_TEST_SFTP") != "true" {
		t.Skip("set SYNCPAIR_TEST_SFTP=true against a reachable SSH server to run this test")
	}
	return Config{
		Host: os.Getenv("SYNCPAIR_TEST_SFTP_HOST"),
		User: os.Getenv("SYNCPAIR_TEST_SFTP_USER"),
		Root: os.Getenv("SYNCPAIR_TEST_SFTP_ROOT"),
		Key:  os.Getenv("SYNCPAIR_TEST_SFTP_KEY"),
	}
}

func TestLive_WriteStatReadRemoveRoundTrip(t *testing.T) {
	cfg := liveSFTPConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Write(ctx, "roundtrip.txt", bytes.NewReader([]byte("payload"))))

	fs, err := p.Stat(ctx, "roundtrip.txt")
	require.NoError(t, err)
	assert.Equal(t, "roundtrip.txt", fs.Path)

	require.NoError(t, p.RemoveFile(ctx, "roundtrip.txt"))
}
