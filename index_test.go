package spatial_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fred-dee/spatial"
)

func TestIndex_EmptyTreeHasNoBoundingBox(t *testing.T) {
	ctx := context.Background()
	ix, _, _ := newTestIndex()

	empty, err := ix.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	_, ok, err := ix.GetBoundingBox(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestIndex_AddSingleGeometryIsIndexedAndCounted(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()

	g, err := putBox(ctx, store, 0, 0, 1, 1)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, g))

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	indexed, err := ix.IsNodeIndexed(ctx, g)
	require.NoError(t, err)
	require.True(t, indexed)

	env, ok, err := ix.GetBoundingBox(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, spatial.NewEnvelope(0, 0, 1, 1), env)
}

func TestIndex_BoundingBoxGrowsWithInserts(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()

	g1, err := putBox(ctx, store, 0, 0, 1, 1)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, g1))

	g2, err := putBox(ctx, store, 5, 5, 6, 6)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, g2))

	env, ok, err := ix.GetBoundingBox(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, spatial.NewEnvelope(0, 0, 6, 6), env)

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestIndex_SplitOnOverflowKeepsAllGeometriesReachable(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()
	require.NoError(t, ix.Configure(map[string]any{"splitMode": "quadratic"}))

	want := map[spatial.NodeID]bool{}
	for i := 0; i < 250; i++ {
		x := float64(i)
		g, err := putBox(ctx, store, x, x, x+0.5, x+0.5)
		require.NoError(t, err)
		require.NoError(t, ix.Add(ctx, g))
		want[g] = true
	}

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 250, n)

	got := map[spatial.NodeID]bool{}
	for id, err := range ix.GetAllIndexedNodes(ctx) {
		require.NoError(t, err)
		got[id] = true
	}
	require.Equal(t, want, got)
}

func TestIndex_ConfigureRejectsUnknownSplitMode(t *testing.T) {
	ix, _, _ := newTestIndex()
	err := ix.Configure(map[string]any{"splitMode": "bogus"})
	require.ErrorIs(t, err, spatial.ErrInvalidArgument)
}

func TestIndex_ConfigureRejectsUnknownKey(t *testing.T) {
	ix, _, _ := newTestIndex()
	err := ix.Configure(map[string]any{"frobnicate": true})
	require.ErrorIs(t, err, spatial.ErrInvalidArgument)
}

func TestIndex_ConfigureRejectsInvalidMaxNodeReferences(t *testing.T) {
	ix, _, _ := newTestIndex()
	err := ix.Configure(map[string]any{"maxNodeReferences": 0})
	require.ErrorIs(t, err, spatial.ErrInvalidArgument)
}

func TestIndex_ConfigureRejectsInvalidLoadingFactor(t *testing.T) {
	ix, _, _ := newTestIndex()
	err := ix.Configure(map[string]any{"loadingFactor": 0.0})
	require.ErrorIs(t, err, spatial.ErrInvalidArgument)
}

func TestIndex_ConfigureMaxNodeReferencesForcesEarlierSplits(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()
	require.NoError(t, ix.Configure(map[string]any{"maxNodeReferences": 4}))

	want := map[spatial.NodeID]bool{}
	for i := 0; i < 20; i++ {
		x := float64(i)
		g, err := putBox(ctx, store, x, x, x+0.5, x+0.5)
		require.NoError(t, err)
		require.NoError(t, ix.Add(ctx, g))
		want[g] = true
	}

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 20, n)

	got := map[spatial.NodeID]bool{}
	for id, err := range ix.GetAllIndexedNodes(ctx) {
		require.NoError(t, err)
		got[id] = true
	}
	require.Equal(t, want, got)

	internal := 0
	for id, err := range ix.GetAllIndexInternalNodes(ctx) {
		require.NoError(t, err)
		require.NotEmpty(t, id)
		internal++
	}
	require.Greater(t, internal, 1, "maxNodeReferences=4 over 20 geometries must have split into more than one node")
}

func TestIndex_WarmUpOnEmptyTreeIsANoOp(t *testing.T) {
	ctx := context.Background()
	ix, _, _ := newTestIndex()
	require.NoError(t, ix.WarmUp(ctx))
}
