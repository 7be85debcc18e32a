package spatial

import (
	"context"
	"math"
	"sort"
)

// rebuildThreshold is the fraction of totalGeometryCount that a batch
// must exceed to trigger a full rebuild rather than seeded clustering.
const rebuildThreshold = 0.4

// AddMany inserts a batch of geometries, choosing between a full rebuild
// and seeded-clustering insertion based on batch size relative to the
// tree's current size (§4.6's add(list) decision).
func (ix *Index) AddMany(ctx context.Context, geomIDs []NodeID) error {
	if len(geomIDs) == 0 {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	cfg := ix.cfg

	return withTxVoid(ctx, ix.store, true, func(ctx context.Context, tx TxScope) error {
		rootID, metaID, err := ensureInitialized(ctx, tx, ix.root, ix.cfg.effectiveMaxNodeReferences())
		if err != nil {
			return err
		}
		maxRefs, err := maxNodeReferences(ctx, tx, metaID)
		if err != nil {
			return err
		}

		entries := make([]Ref, 0, len(geomIDs))
		for _, g := range geomIDs {
			env, err := ix.decoder.DecodeEnvelope(ctx, tx, g)
			if err != nil {
				return err
			}
			entries = append(entries, Ref{Kind: RefGeometry, ID: g, Env: env})
		}

		t, _, err := tx.GetInt(ctx, metaID, PropTotalGeometryCount)
		if err != nil {
			return storeErr("addMany", err)
		}

		k := len(entries)
		if float64(k) > rebuildThreshold*float64(t) {
			ix.monitor.AddCase("bulk:rebuild")
			ix.monitor.AddNbrRebuilt()
			return ix.fullRebuild(ctx, tx, rootID, metaID, entries, maxRefs, cfg)
		}

		ix.monitor.AddCase("bulk:seeded-clustering")
		return ix.seededClusteringAdd(ctx, tx, rootID, metaID, entries, maxRefs, t, k, cfg)
	})
}

// fullRebuild collects every currently indexed geometry, combines it
// with the new entries, tears down every IndexNode but IndexRoot, and
// rebuilds the whole tree via partition (§4.6 Full rebuild).
func (ix *Index) fullRebuild(ctx context.Context, tx TxScope, rootID, metaID NodeID, newEntries []Ref, maxRefs int, cfg config) error {
	existing, err := ix.collectAllEntries(ctx, tx, rootID)
	if err != nil {
		return err
	}

	if err := ix.clearChildrenOnly(ctx, tx, rootID); err != nil {
		return err
	}

	combined := append(existing, newEntries...)
	if err := ix.partitionAttach(ctx, tx, rootID, combined, 0, maxRefs, cfg.loadingFactor()); err != nil {
		return err
	}

	if err := tx.SetInt(ctx, metaID, PropTotalGeometryCount, len(combined)); err != nil {
		return storeErr("fullRebuild", err)
	}
	ix.countDirty = false
	return nil
}

// collectAllEntries reads every geometry currently indexed under root,
// together with its envelope, via a depth-first walk.
func (ix *Index) collectAllEntries(ctx context.Context, tx Tx, rootID NodeID) ([]Ref, error) {
	var out []Ref
	var walk func(n NodeID) error
	walk = func(n NodeID) error {
		leaf, err := isLeaf(ctx, tx, n)
		if err != nil {
			return err
		}
		if leaf {
			refs, err := referenceIDs(ctx, tx, n)
			if err != nil {
				return err
			}
			for _, g := range refs {
				env, err := ix.decoder.DecodeEnvelope(ctx, tx, g)
				if err != nil {
					return err
				}
				out = append(out, Ref{Kind: RefGeometry, ID: g, Env: env})
			}
			return nil
		}
		children, err := childIDs(ctx, tx, n)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(rootID); err != nil {
		return nil, err
	}
	return out, nil
}

// clearChildrenOnly detaches and deletes every descendant of root
// (CHILD subtrees and direct REFERENCE children alike) without deleting
// root itself, leaving it a childless IndexRoot ready for partition.
func (ix *Index) clearChildrenOnly(ctx context.Context, tx TxScope, root NodeID) error {
	children, err := childIDs(ctx, tx, root)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := tx.DeleteEdge(ctx, EdgeChild, root, c); err != nil {
			return storeErr("clearChildren", err)
		}
		if err := deleteSubtree(ctx, tx, c); err != nil {
			return err
		}
	}

	refs, err := referenceIDs(ctx, tx, root)
	if err != nil {
		return err
	}
	for _, g := range refs {
		if err := tx.DeleteEdge(ctx, EdgeReference, root, g); err != nil {
			return storeErr("clearChildren", err)
		}
	}

	return clearNodeEnvelope(ctx, tx, root)
}

// partitionAttach is the overlap-minimizing top-down bulk build (§4.6
// partition). It sorts entries by minX at even depths and minY at odd
// depths, attaches them directly once the slice is small enough, and
// otherwise recurses into p roughly-equal contiguous slices, each under
// a fresh IndexNode attached as a CHILD of root.
func (ix *Index) partitionAttach(ctx context.Context, tx TxScope, root NodeID, entries []Ref, depth, maxRefs int, lf float64) error {
	if len(entries) == 0 {
		return clearNodeEnvelope(ctx, tx, root)
	}

	target := int(math.Round(float64(maxRefs) * lf))
	if target < 1 {
		target = 1
	}

	sorted := make([]Ref, len(entries))
	copy(sorted, entries)
	if depth%2 == 0 {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Env.MinX < sorted[j].Env.MinX })
	} else {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Env.MinY < sorted[j].Env.MinY })
	}

	if len(sorted) <= target {
		if err := attachGroup(ctx, tx, root, EdgeReference, sorted); err != nil {
			return err
		}
		_, err := retightenNode(ctx, tx, ix.decoder, root)
		return err
	}

	h := expectedHeight(lf, len(sorted), maxRefs)
	s := int(math.Round(math.Pow(float64(target), float64(h-1))))
	if s < 1 {
		s = 1
	}
	p := int(math.Ceil(float64(len(sorted)) / float64(s)))
	if p < 1 {
		p = 1
	}

	for _, slice := range splitNearEqual(sorted, p) {
		child, err := tx.CreateNode(ctx)
		if err != nil {
			return storeErr("partition", err)
		}
		if err := ix.partitionAttach(ctx, tx, child, slice, depth+1, maxRefs, lf); err != nil {
			return err
		}
		if err := tx.CreateEdge(ctx, EdgeChild, root, child); err != nil {
			return storeErr("partition", err)
		}
	}

	_, err := retightenNode(ctx, tx, ix.decoder, root)
	return err
}

// expectedHeight estimates the height of a subtree holding size entries
// at loading factor lf (§4.6).
func expectedHeight(lf float64, size, maxRefs int) int {
	if size <= 1 {
		return 1
	}
	base := math.Floor(float64(maxRefs) * lf)
	if base < 2 {
		base = 2
	}
	return int(math.Ceil(math.Log(float64(size)) / math.Log(base)))
}

// splitNearEqual divides entries into p contiguous slices whose sizes
// differ by at most one.
func splitNearEqual(entries []Ref, p int) [][]Ref {
	n := len(entries)
	base := n / p
	rem := n % p
	out := make([][]Ref, 0, p)
	idx := 0
	for i := 0; i < p; i++ {
		sz := base
		if i < rem {
			sz++
		}
		out = append(out, entries[idx:idx+sz])
		idx += sz
	}
	return out
}

// seededClusteringAdd runs bulkInsertion from the IndexRoot, inserts any
// outliers individually, and updates totalGeometryCount once for the
// whole batch (§4.6 Seeded clustering; count is t + (k - |outliers|),
// plus one increment per outlier's own add).
func (ix *Index) seededClusteringAdd(ctx context.Context, tx TxScope, rootID, metaID NodeID, entries []Ref, maxRefs, t, k int, cfg config) error {
	rootHeight, err := height(ctx, tx, rootID)
	if err != nil {
		return err
	}

	outliers, err := ix.bulkInsertion(ctx, tx, rootID, rootHeight, entries, cfg.loadingFactor(), maxRefs, cfg)
	if err != nil {
		return err
	}

	if err := tx.SetInt(ctx, metaID, PropTotalGeometryCount, t+(k-len(outliers))); err != nil {
		return storeErr("seededClustering", err)
	}
	ix.countDirty = false

	for _, o := range outliers {
		if err := ix.addLocked(ctx, tx, o.ID, cfg); err != nil {
			return err
		}
	}
	return nil
}

// bulkInsertion clusters entries against root's existing children and
// recurses, reinserts, or grafts a scratch tree per cluster depending on
// expected subtree height versus the local tree level (§4.6). It
// returns entries that fit under no existing child.
func (ix *Index) bulkInsertion(ctx context.Context, tx TxScope, root NodeID, rootHeight int, entries []Ref, lf float64, maxRefs int, cfg config) ([]Ref, error) {
	children, err := childIDs(ctx, tx, root)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return entries, nil
	}

	type childInfo struct {
		id  NodeID
		env Envelope
	}
	infos := make([]childInfo, 0, len(children))
	for _, c := range children {
		env, ok, err := nodeEnvelope(ctx, tx, c)
		if err != nil {
			return nil, err
		}
		if !ok {
			env = emptyEnvelope
		}
		infos = append(infos, childInfo{id: c, env: env})
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].env.area() < infos[j].env.area() })

	clusters := make(map[NodeID][]Ref, len(infos))
	var outliers []Ref
	for _, e := range entries {
		placed := false
		for _, info := range infos {
			if info.env.Contains(e.Env) {
				clusters[info.id] = append(clusters[info.id], e)
				placed = true
				break
			}
		}
		if !placed {
			outliers = append(outliers, e)
		}
	}

	lt := rootHeight - 2
	for _, info := range infos {
		c := info.id
		cluster := clusters[c]
		if len(cluster) == 0 {
			continue
		}

		hi := expectedHeight(lf, len(cluster), maxRefs)
		if hi-lt > 1 {
			return nil, invariantf("bulk insertion cluster height %d exceeds local level %d by more than one", hi, lt)
		}

		switch {
		case hi < lt:
			childOutliers, err := ix.bulkInsertion(ctx, tx, c, rootHeight-1, cluster, lf, maxRefs, cfg)
			if err != nil {
				return nil, err
			}
			outliers = append(outliers, childOutliers...)

		case hi == lt && float64(len(cluster)) < float64(maxRefs)*lf/2:
			for _, e := range cluster {
				if err := ix.insertEntryAt(ctx, tx, root, e.ID, cfg, maxRefs); err != nil {
					return nil, err
				}
			}

		case hi == lt:
			scratch, err := ix.buildScratchTree(ctx, tx, cluster, lf, maxRefs)
			if err != nil {
				return nil, err
			}
			if err := ix.attachScratchViaOverflow(ctx, tx, c, scratch, maxRefs, cfg); err != nil {
				return nil, err
			}

		default: // hi > lt
			scratch, err := ix.buildScratchTree(ctx, tx, cluster, lf, maxRefs)
			if err != nil {
				return nil, err
			}
			scratchHeight, err := height(ctx, tx, scratch)
			if err != nil {
				return nil, err
			}
			if scratchHeight == 1 {
				refs, err := referenceIDs(ctx, tx, scratch)
				if err != nil {
					return nil, err
				}
				for _, g := range refs {
					if err := tx.DeleteEdge(ctx, EdgeReference, scratch, g); err != nil {
						return nil, storeErr("bulkInsertion", err)
					}
					if err := ix.insertEntryAt(ctx, tx, c, g, cfg, maxRefs); err != nil {
						return nil, err
					}
				}
				if err := tx.DeleteNode(ctx, scratch); err != nil {
					return nil, storeErr("bulkInsertion", err)
				}
			} else {
				targetDepth := scratchHeight - lt
				nodes, err := collectNodesAtDepth(ctx, tx, scratch, targetDepth)
				if err != nil {
					return nil, err
				}
				for _, nd := range nodes {
					parent, ok, err := parentID(ctx, tx, nd)
					if err != nil {
						return nil, err
					}
					if ok {
						if err := tx.DeleteEdge(ctx, EdgeChild, parent, nd); err != nil {
							return nil, storeErr("bulkInsertion", err)
						}
					}
					if err := tx.CreateEdge(ctx, EdgeChild, c, nd); err != nil {
						return nil, storeErr("bulkInsertion", err)
					}
				}
				if err := deleteSubtree(ctx, tx, scratch); err != nil {
					return nil, err
				}
			}
		}

		if _, err := retightenNode(ctx, tx, ix.decoder, c); err != nil {
			return nil, err
		}
		if err := adjustPathUpward(ctx, tx, ix.decoder, c); err != nil {
			return nil, err
		}
	}

	return outliers, nil
}

// buildScratchTree partitions entries into a freshly created, detached
// IndexNode subtree, used by the seeded-clustering grafting cases.
func (ix *Index) buildScratchTree(ctx context.Context, tx TxScope, entries []Ref, lf float64, maxRefs int) (NodeID, error) {
	scratch, err := tx.CreateNode(ctx)
	if err != nil {
		return "", storeErr("scratchTree", err)
	}
	if err := ix.partitionAttach(ctx, tx, scratch, entries, 0, maxRefs, lf); err != nil {
		return "", err
	}
	return scratch, nil
}

// attachScratchViaOverflow attaches scratch as a new CHILD of c, then
// runs the normal overflow/split path on c (§4.6's "attach via the
// normal overflow/split path").
func (ix *Index) attachScratchViaOverflow(ctx context.Context, tx TxScope, c, scratch NodeID, maxRefs int, cfg config) error {
	if err := tx.CreateEdge(ctx, EdgeChild, c, scratch); err != nil {
		return storeErr("attachScratch", err)
	}
	if _, err := retightenNode(ctx, tx, ix.decoder, c); err != nil {
		return err
	}

	children, err := childIDs(ctx, tx, c)
	if err != nil {
		return err
	}
	if len(children) > maxRefs {
		return ix.splitAndAdjustPathBoundingBox(ctx, tx, c, cfg, maxRefs)
	}
	return adjustPathUpward(ctx, tx, ix.decoder, c)
}

// collectNodesAtDepth returns every node exactly depth edges below root
// (root itself at depth 0), without mutating the tree.
func collectNodesAtDepth(ctx context.Context, tx Tx, root NodeID, depth int) ([]NodeID, error) {
	if depth <= 0 {
		return []NodeID{root}, nil
	}
	var out []NodeID
	var walk func(n NodeID, d int) error
	walk = func(n NodeID, d int) error {
		if d == depth {
			out = append(out, n)
			return nil
		}
		children, err := childIDs(ctx, tx, n)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := walk(c, d+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return nil, err
	}
	return out, nil
}
