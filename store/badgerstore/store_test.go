package badgerstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fred-dee/spatial"
	"github.com/Fred-dee/spatial/store/badgerstore"
)

func openTestStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	s, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestBadgerstore_EdgeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tx, err := s.Begin(ctx, true)
	require.NoError(t, err)
	a, err := tx.CreateNode(ctx)
	require.NoError(t, err)
	b, err := tx.CreateNode(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateEdge(ctx, spatial.EdgeChild, a, b))
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.Begin(ctx, false)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	out, err := tx.Outgoing(ctx, a, spatial.EdgeChild)
	require.NoError(t, err)
	require.Equal(t, []spatial.NodeID{b}, out)

	in, err := tx.Incoming(ctx, b, spatial.EdgeChild)
	require.NoError(t, err)
	require.Equal(t, []spatial.NodeID{a}, in)
}

func TestBadgerstore_PropertiesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tx, err := s.Begin(ctx, true)
	require.NoError(t, err)
	a, err := tx.CreateNode(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetFloats(ctx, a, spatial.PropBBox, []float64{1, 2, 3, 4}))
	require.NoError(t, tx.SetInt(ctx, a, spatial.PropTotalGeometryCount, 7))
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.Begin(ctx, false)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	vals, ok, err := tx.GetFloats(ctx, a, spatial.PropBBox)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{1, 2, 3, 4}, vals)

	n, ok, err := tx.GetInt(ctx, a, spatial.PropTotalGeometryCount)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7, n)
}

func TestBadgerstore_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tx, err := s.Begin(ctx, true)
	require.NoError(t, err)
	a, err := tx.CreateNode(ctx)
	require.NoError(t, err)
	b, err := tx.CreateNode(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateEdge(ctx, spatial.EdgeReference, a, b))
	require.NoError(t, tx.Rollback(ctx))

	tx, err = s.Begin(ctx, false)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	out, err := tx.Outgoing(ctx, a, spatial.EdgeReference)
	require.NoError(t, err)
	require.Empty(t, out)
}
