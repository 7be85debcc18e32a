package spatial_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fred-dee/spatial"
)

func TestRemove_DeletesReferenceAndDecrementsCount(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()

	g, err := putBox(ctx, store, 0, 0, 1, 1)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, g))

	require.NoError(t, ix.Remove(ctx, g, false))

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	empty, err := ix.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	indexed, err := ix.IsNodeIndexed(ctx, g)
	require.NoError(t, err)
	require.False(t, indexed)
}

func TestRemove_StrictFailsOnMissingGeometry(t *testing.T) {
	ctx := context.Background()
	ix, _, _ := newTestIndex()

	err := ix.Remove(ctx, spatial.NodeID("does-not-exist"), false)
	require.ErrorIs(t, err, spatial.ErrNotFound)
}

func TestRemove_NonStrictSucceedsSilentlyOnMissingGeometry(t *testing.T) {
	ctx := context.Background()
	ix, _, _ := newTestIndex()

	err := ix.RemoveNonStrict(ctx, spatial.NodeID("does-not-exist"), false)
	require.NoError(t, err)
}

func TestRemove_CompactsEmptyAncestorsAfterManyDeletions(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()

	var ids []spatial.NodeID
	for i := 0; i < 250; i++ {
		x := float64(i)
		g, err := putBox(ctx, store, x, x, x+0.5, x+0.5)
		require.NoError(t, err)
		require.NoError(t, ix.Add(ctx, g))
		ids = append(ids, g)
	}

	for _, id := range ids {
		require.NoError(t, ix.Remove(ctx, id, false))
	}

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	empty, err := ix.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
}

func TestClear_IsIdempotentAndLeavesAnEmptyTree(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()

	g, err := putBox(ctx, store, 0, 0, 1, 1)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, g))

	require.NoError(t, ix.Clear(ctx, nil))
	require.NoError(t, ix.Clear(ctx, nil))

	empty, err := ix.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestRemoveAll_DeletesRecordsWhenRequested(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()

	g, err := putBox(ctx, store, 0, 0, 1, 1)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, g))

	require.NoError(t, ix.RemoveAll(ctx, true, nil))

	tx, err := store.Begin(ctx, false)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	_, ok, err := tx.GetFloats(ctx, g, "bbox")
	require.NoError(t, err)
	require.False(t, ok)
}
