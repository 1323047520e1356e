package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncpair/syncpair/internal/executor"
	"github.com/syncpair/syncpair/internal/logging"
	"github.com/syncpair/syncpair/internal/planner"
	"github.com/syncpair/syncpair/internal/providertest"
	"github.com/syncpair/syncpair/internal/syncstate"
)

func TestRunPool_AppliesAllActions(t *testing.T) {
	src := providertest.New("src", true, true)
	dst := providertest.New("dst", true, true)
	src.Put("a.txt", []byte("1"))
	src.Put("b.txt", []byte("2"))

	exec := executor.New(
		&syncstate.StorageState{Files: map[string]syncstate.FileState{
			"a.txt": {Path: "a.txt"},
			"b.txt": {Path: "b.txt"},
		}},
		syncstate.NewStorageState(),
	)

	actions := []planner.SyncAction{
		{Kind: planner.Upload, Path: "a.txt"},
		{Kind: planner.Upload, Path: "b.txt"},
	}

	errs := runPool(context.Background(), 2, actions, exec, src, dst, logging.Discard())
	assert.Empty(t, errs)
	assert.Contains(t, exec.DstState.Files, "a.txt")
	assert.Contains(t, exec.DstState.Files, "b.txt")
}

func TestRunPool_CollectsPerActionErrorsWithoutAborting(t *testing.T) {
	src := providertest.New("src", true, true)
	dst := providertest.New("dst", true, true)
	src.Put("exists.txt", []byte("x"))

	exec := executor.New(
		&syncstate.StorageState{Files: map[string]syncstate.FileState{
			"exists.txt": {Path: "exists.txt"},
			"missing.txt": {Path: "missing.txt"},
		}},
		syncstate.NewStorageState(),
	)

	actions := []planner.SyncAction{
		{Kind: planner.Upload, Path: "missing.txt"}, // src has no such file: fails
		{Kind: planner.Upload, Path: "exists.txt"},  // succeeds regardless
	}

	errs := runPool(context.Background(), 2, actions, exec, src, dst, logging.Discard())
	require.Len(t, errs, 1)
	assert.Contains(t, exec.DstState.Files, "exists.txt")
}

func TestRunPool_RecordsCancellation(t *testing.T) {
	src := providertest.New("src", true, true)
	dst := providertest.New("dst", true, true)
	exec := executor.New(syncstate.NewStorageState(), syncstate.NewStorageState())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errs := runPool(ctx, 1, []planner.SyncAction{{Kind: planner.Noop, Path: "a"}}, exec, src, dst, logging.Discard())
	require.NotEmpty(t, errs)
}
