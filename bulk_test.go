package spatial_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fred-dee/spatial"
)

type countingMonitor struct {
	rebuilds int
	splits   int
	cases    []string
}

func newCountingMonitor() *countingMonitor {
	return &countingMonitor{}
}

func (m *countingMonitor) AddSplit()                           { m.splits++ }
func (m *countingMonitor) AddNbrRebuilt()                       { m.rebuilds++ }
func (m *countingMonitor) AddCase(tag string)                   { m.cases = append(m.cases, tag) }
func (m *countingMonitor) MatchedTreeNode(int, spatial.NodeID) {}

func TestAddMany_SmallBatchUsesSeededClustering(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()
	mon := newCountingMonitor()
	ix.AddMonitor(mon)

	var seed []spatial.NodeID
	for i := 0; i < 100; i++ {
		x := float64(i)
		g, err := putBox(ctx, store, x, x, x+0.5, x+0.5)
		require.NoError(t, err)
		require.NoError(t, ix.Add(ctx, g))
		seed = append(seed, g)
	}
	require.Equal(t, 0, mon.rebuilds)

	var batch []spatial.NodeID
	for i := 100; i < 110; i++ {
		x := float64(i)
		g, err := putBox(ctx, store, x, x, x+0.5, x+0.5)
		require.NoError(t, err)
		batch = append(batch, g)
	}

	require.NoError(t, ix.AddMany(ctx, batch))
	require.Equal(t, 0, mon.rebuilds)

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, len(seed)+len(batch), n)

	got := map[spatial.NodeID]bool{}
	for id, err := range ix.GetAllIndexedNodes(ctx) {
		require.NoError(t, err)
		got[id] = true
	}
	require.Len(t, got, len(seed)+len(batch))
}

func TestAddMany_LargeBatchTriggersRebuild(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()
	mon := newCountingMonitor()
	ix.AddMonitor(mon)

	var seed []spatial.NodeID
	for i := 0; i < 20; i++ {
		x := float64(i)
		g, err := putBox(ctx, store, x, x, x+0.5, x+0.5)
		require.NoError(t, err)
		require.NoError(t, ix.Add(ctx, g))
		seed = append(seed, g)
	}

	var batch []spatial.NodeID
	for i := 20; i < 40; i++ {
		x := float64(i)
		g, err := putBox(ctx, store, x, x, x+0.5, x+0.5)
		require.NoError(t, err)
		batch = append(batch, g)
	}

	require.NoError(t, ix.AddMany(ctx, batch))
	require.Equal(t, 1, mon.rebuilds)

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, len(seed)+len(batch), n)
}

func TestAddMany_RebuildHonorsConfiguredMaxNodeReferences(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()
	require.NoError(t, ix.Configure(map[string]any{"maxNodeReferences": 4, "loadingFactor": 0.5}))

	var batch []spatial.NodeID
	for i := 0; i < 40; i++ {
		x := float64(i)
		g, err := putBox(ctx, store, x, x, x+0.5, x+0.5)
		require.NoError(t, err)
		batch = append(batch, g)
	}

	require.NoError(t, ix.AddMany(ctx, batch))

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, len(batch), n)

	got := map[spatial.NodeID]bool{}
	for id, err := range ix.GetAllIndexedNodes(ctx) {
		require.NoError(t, err)
		got[id] = true
	}
	require.Len(t, got, len(batch))
}

func TestAddMany_EmptyBatchIsANoOp(t *testing.T) {
	ctx := context.Background()
	ix, _, _ := newTestIndex()
	require.NoError(t, ix.AddMany(ctx, nil))

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
