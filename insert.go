package spatial

import "context"

// Add inserts a single geometry reference (§4.4 add(geometry)). geomID
// must already exist as a node in the store; its envelope is read via
// the configured EnvelopeDecoder.
func (ix *Index) Add(ctx context.Context, geomID NodeID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	cfg := ix.cfg
	return withTxVoid(ctx, ix.store, true, func(ctx context.Context, tx TxScope) error {
		return ix.addLocked(ctx, tx, geomID, cfg)
	})
}

// addLocked performs one insertion inside an already-open transaction.
// Shared by Add and the bulk loader's per-outlier and reinsertion paths.
func (ix *Index) addLocked(ctx context.Context, tx TxScope, geomID NodeID, cfg config) error {
	rootID, metaID, err := ensureInitialized(ctx, tx, ix.root, ix.cfg.effectiveMaxNodeReferences())
	if err != nil {
		return err
	}
	maxRefs, err := maxNodeReferences(ctx, tx, metaID)
	if err != nil {
		return err
	}

	if err := ix.insertEntryAt(ctx, tx, rootID, geomID, cfg, maxRefs); err != nil {
		return err
	}

	return ix.bumpCount(ctx, tx, metaID, 1)
}

// insertEntryAt runs the chooseSubtree/attach/split machinery for geomID
// starting its descent at start, without touching totalGeometryCount.
// addLocked uses it with start == the IndexRoot; the bulk loader's
// seeded-clustering path (§4.6) uses it with start set to the node whose
// children are being clustered (small-cluster reinsertion) or to a
// cluster child (moving a one-level scratch tree's references into it),
// and accounts for the count itself in its own batch formula.
func (ix *Index) insertEntryAt(ctx context.Context, tx TxScope, start, geomID NodeID, cfg config, maxRefs int) error {
	geomEnv, err := ix.decoder.DecodeEnvelope(ctx, tx, geomID)
	if err != nil {
		return err
	}

	leaf, err := chooseSubtree(ctx, tx, start, geomEnv)
	if err != nil {
		return err
	}

	if err := tx.CreateEdge(ctx, EdgeReference, leaf, geomID); err != nil {
		return storeErr("addReference", err)
	}

	changed, err := retightenNode(ctx, tx, ix.decoder, leaf)
	if err != nil {
		return err
	}

	refs, err := referenceIDs(ctx, tx, leaf)
	if err != nil {
		return err
	}

	if len(refs) > maxRefs {
		return ix.splitAndAdjustPathBoundingBox(ctx, tx, leaf, cfg, maxRefs)
	} else if changed {
		return adjustPathUpward(ctx, tx, ix.decoder, leaf)
	}
	return nil
}

// bumpCount applies delta to Metadata's totalGeometryCount and marks the
// in-process cache unsaved, per §5's lazily-persisted-count model.
func (ix *Index) bumpCount(ctx context.Context, tx TxScope, metaID NodeID, delta int) error {
	n, _, err := tx.GetInt(ctx, metaID, PropTotalGeometryCount)
	if err != nil {
		return storeErr("bumpCount", err)
	}
	if err := tx.SetInt(ctx, metaID, PropTotalGeometryCount, n+delta); err != nil {
		return storeErr("bumpCount", err)
	}
	ix.countDirty = true
	return nil
}

// chooseSubtree descends from n, picking a child at each internal level,
// until a leaf is reached (§4.4).
func chooseSubtree(ctx context.Context, tx Tx, n NodeID, geomEnv Envelope) (NodeID, error) {
	cur := n
	for {
		leaf, err := isLeaf(ctx, tx, cur)
		if err != nil {
			return "", err
		}
		if leaf {
			return cur, nil
		}

		children, err := childIDs(ctx, tx, cur)
		if err != nil {
			return "", err
		}
		if len(children) == 0 {
			return "", invariantf("no viable child on internal node %s", cur)
		}

		next, err := pickChild(ctx, tx, children, geomEnv)
		if err != nil {
			return "", err
		}
		cur = next
	}
}

// pickChild implements §4.4's child-selection rule: prefer a child whose
// bbox already contains geomEnv, smallest area first; otherwise the
// child needing the smallest enlargement, ties broken by smallest area,
// further ties by first encountered.
func pickChild(ctx context.Context, tx Tx, children []NodeID, geomEnv Envelope) (NodeID, error) {
	type candidate struct {
		id  NodeID
		env Envelope
	}

	cands := make([]candidate, 0, len(children))
	for _, c := range children {
		env, ok, err := nodeEnvelope(ctx, tx, c)
		if err != nil {
			return "", err
		}
		if !ok {
			env = emptyEnvelope
		}
		cands = append(cands, candidate{id: c, env: env})
	}

	var bestContaining *candidate
	for i := range cands {
		if cands[i].env.Contains(geomEnv) {
			if bestContaining == nil || cands[i].env.area() < bestContaining.env.area() {
				bestContaining = &cands[i]
			}
		}
	}
	if bestContaining != nil {
		return bestContaining.id, nil
	}

	best := cands[0]
	bestEnl := best.env.enlargement(geomEnv)
	for _, c := range cands[1:] {
		enl := c.env.enlargement(geomEnv)
		if enl < bestEnl || (enl == bestEnl && c.env.area() < best.env.area()) {
			best, bestEnl = c, enl
		}
	}
	return best.id, nil
}

// retightenNode recomputes n's bbox as the union of its current
// children's envelopes (decoding geometry envelopes for a leaf,
// reading stored bboxes for an internal node) and writes it if
// different from the stored value. It reports whether the bbox
// changed, and clears the property entirely if n now has no children
// (the empty-tree sentinel of §9).
func retightenNode(ctx context.Context, tx Tx, decoder EnvelopeDecoder, n NodeID) (bool, error) {
	union, any, err := recomputeEnvelope(ctx, tx, decoder, n)
	if err != nil {
		return false, err
	}

	cur, ok, err := nodeEnvelope(ctx, tx, n)
	if err != nil {
		return false, err
	}

	if !any {
		if !ok {
			return false, nil
		}
		return true, clearNodeEnvelope(ctx, tx, n)
	}

	if ok && cur == union {
		return false, nil
	}
	return true, setNodeEnvelope(ctx, tx, n, union)
}

// recomputeEnvelope returns the union of n's children's envelopes and
// whether n has any children at all.
func recomputeEnvelope(ctx context.Context, tx Tx, decoder EnvelopeDecoder, n NodeID) (Envelope, bool, error) {
	leaf, err := isLeaf(ctx, tx, n)
	if err != nil {
		return emptyEnvelope, false, err
	}

	var envs []Envelope
	if leaf {
		refs, err := referenceIDs(ctx, tx, n)
		if err != nil {
			return emptyEnvelope, false, err
		}
		for _, g := range refs {
			e, err := decoder.DecodeEnvelope(ctx, tx, g)
			if err != nil {
				return emptyEnvelope, false, err
			}
			envs = append(envs, e)
		}
	} else {
		children, err := childIDs(ctx, tx, n)
		if err != nil {
			return emptyEnvelope, false, err
		}
		for _, c := range children {
			e, ok, err := nodeEnvelope(ctx, tx, c)
			if err != nil {
				return emptyEnvelope, false, err
			}
			if ok {
				envs = append(envs, e)
			}
		}
	}

	union, ok := envelopeOfAll(envs)
	return union, ok, nil
}

// adjustPathUpward walks from n's parent to the root, retightening each
// ancestor's bbox, stopping as soon as one is unchanged (§4.4). It is
// idempotent and always terminates at the root or the first unchanged
// parent.
func adjustPathUpward(ctx context.Context, tx Tx, decoder EnvelopeDecoder, n NodeID) error {
	cur := n
	for {
		parent, ok, err := parentID(ctx, tx, cur)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		changed, err := retightenNode(ctx, tx, decoder, parent)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		cur = parent
	}
}

// splitAndAdjustPathBoundingBox runs the configured Splitter on n and
// propagates the result (§4.4). If n was the IndexRoot, a new IndexRoot
// is created above n and its siblings; otherwise the new siblings are
// attached to n's parent, which is split in turn if it now overflows.
func (ix *Index) splitAndAdjustPathBoundingBox(ctx context.Context, tx TxScope, n NodeID, cfg config, maxRefs int) error {
	parent, hasParent, err := parentID(ctx, tx, n)
	if err != nil {
		return err
	}

	siblings, err := splitNode(ctx, tx, ix.decoder, n, cfg.splitMode, maxRefs)
	if err != nil {
		return err
	}
	ix.monitor.AddSplit()
	if len(siblings) > 1 {
		ix.monitor.AddCase("split:resplit-guard")
	}

	if !hasParent {
		newRoot, err := tx.CreateNode(ctx)
		if err != nil {
			return storeErr("createNewRoot", err)
		}
		if err := tx.CreateEdge(ctx, EdgeChild, newRoot, n); err != nil {
			return storeErr("attachOldRoot", err)
		}
		for _, sib := range siblings {
			if err := tx.CreateEdge(ctx, EdgeChild, newRoot, sib); err != nil {
				return storeErr("attachSibling", err)
			}
		}
		if _, err := retightenNode(ctx, tx, ix.decoder, newRoot); err != nil {
			return err
		}
		if err := tx.DeleteEdge(ctx, EdgeRoot, ix.root, n); err != nil {
			return storeErr("unlinkOldRoot", err)
		}
		if err := tx.CreateEdge(ctx, EdgeRoot, ix.root, newRoot); err != nil {
			return storeErr("linkNewRoot", err)
		}

		newRootChildren, err := childIDs(ctx, tx, newRoot)
		if err != nil {
			return err
		}
		if len(newRootChildren) > maxRefs {
			return ix.splitAndAdjustPathBoundingBox(ctx, tx, newRoot, cfg, maxRefs)
		}
		return nil
	}

	if _, err := retightenNode(ctx, tx, ix.decoder, n); err != nil {
		return err
	}
	for _, sib := range siblings {
		if err := tx.CreateEdge(ctx, EdgeChild, parent, sib); err != nil {
			return storeErr("attachSplitSibling", err)
		}
	}
	if _, err := retightenNode(ctx, tx, ix.decoder, parent); err != nil {
		return err
	}

	parentChildren, err := childIDs(ctx, tx, parent)
	if err != nil {
		return err
	}
	if len(parentChildren) > maxRefs {
		return ix.splitAndAdjustPathBoundingBox(ctx, tx, parent, cfg, maxRefs)
	}
	return adjustPathUpward(ctx, tx, ix.decoder, parent)
}
