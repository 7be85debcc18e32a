package spatial_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fred-dee/spatial"
)

func TestSearchIndex_EnvelopeFilterPrunesNonIntersecting(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()

	near, err := putBox(ctx, store, 0, 0, 1, 1)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, near))

	far, err := putBox(ctx, store, 100, 100, 101, 101)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, far))

	var got []spatial.NodeID
	for id, err := range ix.SearchIndex(ctx, spatial.EnvelopeFilter{Query: spatial.NewEnvelope(-1, -1, 2, 2)}) {
		require.NoError(t, err)
		got = append(got, id)
	}
	require.Equal(t, []spatial.NodeID{near}, got)
}

func TestSearchIndex_PointFilterMatchesContainingLeaves(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()

	g, err := putBox(ctx, store, 0, 0, 10, 10)
	require.NoError(t, err)
	require.NoError(t, ix.Add(ctx, g))

	var got []spatial.NodeID
	for id, err := range ix.SearchIndex(ctx, spatial.PointFilter{Point: [2]float64{5, 5}}) {
		require.NoError(t, err)
		got = append(got, id)
	}
	require.Equal(t, []spatial.NodeID{g}, got)

	got = nil
	for id, err := range ix.SearchIndex(ctx, spatial.PointFilter{Point: [2]float64{50, 50}}) {
		require.NoError(t, err)
		got = append(got, id)
	}
	require.Empty(t, got)
}

func TestSearchIndex_EarlyStopReleasesIteration(t *testing.T) {
	ctx := context.Background()
	ix, store, _ := newTestIndex()

	for i := 0; i < 20; i++ {
		x := float64(i)
		g, err := putBox(ctx, store, x, x, x+0.5, x+0.5)
		require.NoError(t, err)
		require.NoError(t, ix.Add(ctx, g))
	}

	count := 0
	for _, err := range ix.SearchIndex(ctx, spatial.EnvelopeFilter{Query: spatial.NewEnvelope(0, 0, 100, 100)}) {
		require.NoError(t, err)
		count++
		if count == 3 {
			break
		}
	}
	require.Equal(t, 3, count)
}
