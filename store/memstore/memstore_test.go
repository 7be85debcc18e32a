package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fred-dee/spatial"
	"github.com/Fred-dee/spatial/store/memstore"
)

func TestMemstore_CreateEdgeOutgoingIncoming(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	var a, b spatial.NodeID
	tx, err := s.Begin(ctx, true)
	require.NoError(t, err)

	a, err = tx.CreateNode(ctx)
	require.NoError(t, err)
	b, err = tx.CreateNode(ctx)
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

func TestMemstore_DeleteEdgeAndProperties(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx, true)
	require.NoError(t, err)
	a, err := tx.CreateNode(ctx)
	require.NoError(t, err)
	b, err := tx.CreateNode(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateEdge(ctx, spatial.EdgeReference, a, b))
	require.NoError(t, tx.SetFloats(ctx, a, spatial.PropBBox, []float64{0, 0, 1, 1}))
	require.NoError(t, tx.SetInt(ctx, a, spatial.PropMaxNodeReferences, 4))
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.Begin(ctx, true)
	require.NoError(t, err)
	require.NoError(t, tx.DeleteEdge(ctx, spatial.EdgeReference, a, b))
	require.NoError(t, tx.DeleteProperty(ctx, a, spatial.PropBBox))
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.Begin(ctx, false)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	out, err := tx.Outgoing(ctx, a, spatial.EdgeReference)
	require.NoError(t, err)
	require.Empty(t, out)

	_, ok, err := tx.GetFloats(ctx, a, spatial.PropBBox)
	require.NoError(t, err)
	require.False(t, ok)

	n, ok, err := tx.GetInt(ctx, a, spatial.PropMaxNodeReferences)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, n)
}

func TestMemstore_ReadOnlyTxRejectsWrites(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	tx, err := s.Begin(ctx, false)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = tx.CreateNode(ctx)
	require.Error(t, err)
}
