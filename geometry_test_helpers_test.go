package spatial_test

import (
	"context"

	"github.com/Fred-dee/spatial"
	"github.com/Fred-dee/spatial/store/memstore"
)

// boxDecoder decodes a geometry's envelope from a "bbox" float property
// set directly on the geometry node, so tests don't need a real
// geometry payload type.
type boxDecoder struct{}

func (boxDecoder) DecodeEnvelope(ctx context.Context, tx spatial.Tx, id spatial.NodeID) (spatial.Envelope, error) {
	vals, ok, err := tx.GetFloats(ctx, id, "bbox")
	if err != nil {
		return spatial.Envelope{}, err
	}
	if !ok || len(vals) != 4 {
		return spatial.Envelope{}, spatial.ErrInvalidArgument
	}
	return spatial.NewEnvelope(vals[0], vals[1], vals[2], vals[3]), nil
}

// newTestIndex builds an Index over a fresh memstore, with a LayerRoot
// already allocated.
func newTestIndex(opts ...spatial.Option) (*spatial.Index, *memstore.Store, spatial.NodeID) {
	store := memstore.New()
	layerRoot := store.NewNodeID()
	ix := spatial.New(store, boxDecoder{}, layerRoot, opts...)
	return ix, store, layerRoot
}

// putBox creates a geometry node with the given envelope and returns its
// id.
func putBox(ctx context.Context, store *memstore.Store, x1, y1, x2, y2 float64) (spatial.NodeID, error) {
	tx, err := store.Begin(ctx, true)
	if err != nil {
		return "", err
	}
	id, err := tx.CreateNode(ctx)
	if err != nil {
		tx.Rollback(ctx)
		return "", err
	}
	if err := tx.SetFloats(ctx, id, "bbox", []float64{x1, y1, x2, y2}); err != nil {
		tx.Rollback(ctx)
		return "", err
	}
	return id, tx.Commit(ctx)
}
