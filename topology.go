package spatial

import "context"

// indexRootID follows a LayerRoot's unique ROOT edge to its IndexRoot.
// ok is false if the LayerRoot has no ROOT edge yet (index never used).
func indexRootID(ctx context.Context, tx Tx, layerRoot NodeID) (NodeID, bool, error) {
	roots, err := tx.Outgoing(ctx, layerRoot, EdgeRoot)
	if err != nil {
		return "", false, storeErr("indexRoot", err)
	}
	if len(roots) == 0 {
		return "", false, nil
	}
	return roots[0], true, nil
}

// childIDs enumerates n's outgoing CHILD edges.
func childIDs(ctx context.Context, tx Tx, n NodeID) ([]NodeID, error) {
	ids, err := tx.Outgoing(ctx, n, EdgeChild)
	if err != nil {
		return nil, storeErr("children", err)
	}
	return ids, nil
}

// referenceIDs enumerates n's outgoing REFERENCE edges.
func referenceIDs(ctx context.Context, tx Tx, n NodeID) ([]NodeID, error) {
	ids, err := tx.Outgoing(ctx, n, EdgeReference)
	if err != nil {
		return nil, storeErr("references", err)
	}
	return ids, nil
}

// isLeaf reports whether n has no outgoing CHILD edge (§4.3). A node
// with neither CHILD nor REFERENCE edges (freshly created, not yet
// populated) is also considered a leaf: it has nowhere to descend.
func isLeaf(ctx context.Context, tx Tx, n NodeID) (bool, error) {
	children, err := childIDs(ctx, tx, n)
	if err != nil {
		return false, err
	}
	return len(children) == 0, nil
}

// parentID returns the start of n's unique incoming CHILD edge, or
// ok=false if n has none (n is the IndexRoot).
func parentID(ctx context.Context, tx Tx, n NodeID) (NodeID, bool, error) {
	parents, err := tx.Incoming(ctx, n, EdgeChild)
	if err != nil {
		return "", false, storeErr("parent", err)
	}
	if len(parents) == 0 {
		return "", false, nil
	}
	if len(parents) > 1 {
		return "", false, invariantf("node %s has %d incoming CHILD edges, want at most 1", n, len(parents))
	}
	return parents[0], true, nil
}

// height returns 1 + height of n's first child if n has children, else
// 1. This retains the source convention that the leaf level is 1 and
// the IndexRoot's height equals the tree's total number of levels,
// including the leaf level.
func height(ctx context.Context, tx Tx, n NodeID) (int, error) {
	children, err := childIDs(ctx, tx, n)
	if err != nil {
		return 0, err
	}
	if len(children) == 0 {
		return 1, nil
	}
	h, err := height(ctx, tx, children[0])
	if err != nil {
		return 0, err
	}
	return h + 1, nil
}

// nodeEnvelope reads an IndexNode's bbox property. ok is false if the
// property is absent, which only happens transiently during splits or
// for a node that has never held any children.
func nodeEnvelope(ctx context.Context, tx Tx, n NodeID) (Envelope, bool, error) {
	vals, ok, err := tx.GetFloats(ctx, n, PropBBox)
	if err != nil {
		return emptyEnvelope, false, storeErr("envelopeOf", err)
	}
	if !ok {
		return emptyEnvelope, false, nil
	}
	if len(vals) != 4 {
		return emptyEnvelope, false, invariantf("bbox property on %s has %d values, want 4", n, len(vals))
	}
	return Envelope{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, true, nil
}

// setNodeEnvelope writes n's bbox property.
func setNodeEnvelope(ctx context.Context, tx Tx, n NodeID, env Envelope) error {
	if err := tx.SetFloats(ctx, n, PropBBox, []float64{env.MinX, env.MinY, env.MaxX, env.MaxY}); err != nil {
		return storeErr("setEnvelopeOf", err)
	}
	return nil
}

// clearNodeEnvelope removes n's bbox property, reverting it to the
// "no children yet" state.
func clearNodeEnvelope(ctx context.Context, tx Tx, n NodeID) error {
	if err := tx.DeleteProperty(ctx, n, PropBBox); err != nil {
		return storeErr("clearEnvelopeOf", err)
	}
	return nil
}
