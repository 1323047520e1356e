package syncer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncpair/syncpair/internal/filter"
	"github.com/syncpair/syncpair/internal/logging"
	"github.com/syncpair/syncpair/internal/providertest"
)

func newTestPair(t *testing.T, src, dst *providertest.Memory) *Pair {
	t.Helper()
	f, err := filter.Compile("")
	require.NoError(t, err)
	return &Pair{
		Source:      src,
		Destination: dst,
		Filter:      f,
		StateDir:    t.TempDir(),
		Depth:       0,
		Threads:     4,
		Log:         logging.Discard(),
	}
}

func TestRun_EmptyToEmpty(t *testing.T) {
	src := providertest.New("src", true, true)
	dst := providertest.New("dst", true, true)
	pair := newTestPair(t, src, dst)

	report, err := pair.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Actions)
	assert.NotEmpty(t, report.RunID)
}

func TestRun_NewFileUploadsOneWay(t *testing.T) {
	src := providertest.New("src", true, true)
	dst := providertest.New("dst", true, true)
	src.Put("new-file.txt", []byte("hello"))
	pair := newTestPair(t, src, dst)

	report, err := pair.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Actions, 1)

	data, err := dst.OpenRead(context.Background(), "new-file.txt")
	require.NoError(t, err)
	data.Close()
}

func TestRun_DestinationAdditionDownloads(t *testing.T) {
	src := providertest.New("src", true, true)
	dst := providertest.New("dst", true, true)
	dst.Put("fresh.txt", []byte("world"))
	pair := newTestPair(t, src, dst)

	_, err := pair.Run(context.Background())
	require.NoError(t, err)

	_, err = src.OpenRead(context.Background(), "fresh.txt")
	require.NoError(t, err)
}

// TestRun_MoveDetectedAndMirroredOnSecondRun seeds an identical tree on both sides,
// syncs once to establish a baseline, then renames the file on the source
// side only and checks the second run mirrors the rename to the
// destination rather than treating it as an add+remove pair.
func TestRun_MoveDetectedAndMirroredOnSecondRun(t *testing.T) {
	src := providertest.New("src", true, true)
	dst := providertest.New("dst", true, true)
	src.Put("dir/original.txt", []byte("payload"))
	dst.Put("dir/original.txt", []byte("payload"))

	statePath := t.TempDir()
	f, err := filter.Compile("")
	require.NoError(t, err)
	pair := &Pair{
		Source: src, Destination: dst, Filter: f,
		StateDir: statePath, Threads: 4, Log: logging.Discard(),
	}

	_, err = pair.Run(context.Background())
	require.NoError(t, err)

	content, err := src.OpenRead(context.Background(), "dir/original.txt")
	require.NoError(t, err)
	content.Close()
	require.NoError(t, src.Move(context.Background(), "dir/original.txt", "dir/renamed.txt"))

	report, err := pair.Run(context.Background())
	require.NoError(t, err)

	sawMove := false
	for _, a := range report.Actions {
		if a.NewPath == "dir/renamed.txt" {
			sawMove = true
		}
	}
	assert.True(t, sawMove, "expected a move action mirroring the rename to the destination")

	_, err = dst.OpenRead(context.Background(), "dir/renamed.txt")
	assert.NoError(t, err)
}

func TestRun_DryRunAppliesNothing(t *testing.T) {
	src := providertest.New("src", true, true)
	dst := providertest.New("dst", true, true)
	src.Put("only-on-src.txt", []byte("x"))
	pair := newTestPair(t, src, dst)
	pair.DryRun = true

	report, err := pair.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)

	_, err = dst.OpenRead(context.Background(), "only-on-src.txt")
	assert.Error(t, err)
}

func TestRun_MutualConflictOnBothSidesRaisesError(t *testing.T) {
	src := providertest.New("src", true, true)
	dst := providertest.New("dst", true, true)
	src.Put("clash.txt", []byte("from-src"))
	dst.Put("clash.txt", []byte("from-dst"))
	pair := newTestPair(t, src, dst)

	_, err := pair.Run(context.Background())
	assert.Error(t, err)
}

func TestStatePath_StableAcrossRuns(t *testing.T) {
	src := providertest.New("src", true, true)
	dst := providertest.New("dst", true, true)
	pair := newTestPair(t, src, dst)

	p1, err := pair.statePath()
	require.NoError(t, err)
	p2, err := pair.statePath()
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, pair.StateDir, filepath.Dir(p1))
}
