package spatial

import (
	"context"
	"fmt"
)

// Remove deletes a geometry reference, failing if geomID does not exist
// or is indexed by a different tree (§4.7, strict policy).
func (ix *Index) Remove(ctx context.Context, geomID NodeID, deleteRecord bool) error {
	return ix.removeWithStrict(ctx, geomID, deleteRecord, true)
}

// RemoveNonStrict deletes a geometry reference, succeeding silently if
// geomID does not exist or belongs to a different tree.
func (ix *Index) RemoveNonStrict(ctx context.Context, geomID NodeID, deleteRecord bool) error {
	return ix.removeWithStrict(ctx, geomID, deleteRecord, false)
}

func (ix *Index) removeWithStrict(ctx context.Context, geomID NodeID, deleteRecord, strict bool) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	return withTxVoid(ctx, ix.store, true, func(ctx context.Context, tx TxScope) error {
		return ix.removeLocked(ctx, tx, geomID, deleteRecord, strict)
	})
}

func (ix *Index) removeLocked(ctx context.Context, tx TxScope, geomID NodeID, deleteRecord, strict bool) error {
	leaves, err := tx.Incoming(ctx, geomID, EdgeReference)
	if err != nil {
		return storeErr("remove", err)
	}
	if len(leaves) == 0 {
		if strict {
			return fmt.Errorf("%w: %s", ErrNotFound, geomID)
		}
		return nil
	}
	leafID := leaves[0]

	rootOfLeaf, err := climbToRoot(ctx, tx, leafID)
	if err != nil {
		return err
	}
	indexRoot, ok, err := indexRootID(ctx, tx, ix.root)
	if err != nil {
		return err
	}
	if !ok || rootOfLeaf != indexRoot {
		if strict {
			return fmt.Errorf("%w: %s", ErrNotIndexedHere, geomID)
		}
		return nil
	}

	if err := tx.DeleteEdge(ctx, EdgeReference, leafID, geomID); err != nil {
		return storeErr("remove", err)
	}
	if deleteRecord {
		if err := tx.DeleteNode(ctx, geomID); err != nil {
			return storeErr("remove", err)
		}
	}

	if err := ix.compactAfterRemoval(ctx, tx, leafID, indexRoot); err != nil {
		return err
	}

	_, metaID, err := ensureInitialized(ctx, tx, ix.root, ix.cfg.effectiveMaxNodeReferences())
	if err != nil {
		return err
	}
	return ix.bumpCount(ctx, tx, metaID, -1)
}

// compactAfterRemoval deletes empty ancestors of leafID upward, stopping
// at the first non-empty ancestor or at rootID (the IndexRoot, which is
// never deleted — only its bbox is cleared when it becomes empty), then
// tightens bboxes from that point up (§4.7 steps 4-5).
func (ix *Index) compactAfterRemoval(ctx context.Context, tx TxScope, leafID, rootID NodeID) error {
	cur := leafID
	for cur != rootID {
		parent, hasParent, err := parentID(ctx, tx, cur)
		if err != nil {
			return err
		}
		if !hasParent {
			return invariantf("node %s has no parent and is not the IndexRoot", cur)
		}

		empty, err := isNodeEmpty(ctx, tx, cur)
		if err != nil {
			return err
		}
		if !empty {
			break
		}

		if err := tx.DeleteEdge(ctx, EdgeChild, parent, cur); err != nil {
			return storeErr("compact", err)
		}
		if err := tx.DeleteNode(ctx, cur); err != nil {
			return storeErr("compact", err)
		}
		cur = parent
	}

	if _, err := retightenNode(ctx, tx, ix.decoder, cur); err != nil {
		return err
	}
	return adjustPathUpward(ctx, tx, ix.decoder, cur)
}

// isNodeEmpty reports whether n has neither CHILD nor REFERENCE edges.
func isNodeEmpty(ctx context.Context, tx Tx, n NodeID) (bool, error) {
	children, err := childIDs(ctx, tx, n)
	if err != nil {
		return false, err
	}
	if len(children) > 0 {
		return false, nil
	}
	refs, err := referenceIDs(ctx, tx, n)
	if err != nil {
		return false, err
	}
	return len(refs) == 0, nil
}

// RemoveAll deletes every indexed geometry and, optionally, the
// geometry records themselves, then tears down the IndexNode tree, the
// Metadata node, and the ROOT edge. Work is split into one transaction
// per leaf (§5); the final teardown is one more transaction.
func (ix *Index) RemoveAll(ctx context.Context, deleteRecords bool, progress ProgressListener) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if progress == nil {
		progress = noopProgress{}
	}

	total, err := ix.countLocked(ctx)
	if err != nil {
		return err
	}
	progress.Begin(total)

	leaves, err := ix.collectLeaves(ctx)
	if err != nil {
		return err
	}

	for _, leafID := range leaves {
		worked, err := withTx(ctx, ix.store, true, func(ctx context.Context, tx TxScope) (int, error) {
			refs, err := referenceIDs(ctx, tx, leafID)
			if err != nil {
				return 0, err
			}
			for _, g := range refs {
				if err := tx.DeleteEdge(ctx, EdgeReference, leafID, g); err != nil {
					return 0, storeErr("removeAll", err)
				}
				if deleteRecords {
					if err := tx.DeleteNode(ctx, g); err != nil {
						return 0, storeErr("removeAll", err)
					}
				}
			}
			return len(refs), nil
		})
		if err != nil {
			return err
		}
		progress.Worked(worked)
	}

	err = withTxVoid(ctx, ix.store, true, func(ctx context.Context, tx TxScope) error {
		rootID, ok, err := indexRootID(ctx, tx, ix.root)
		if err != nil {
			return err
		}
		if ok {
			if err := deleteSubtree(ctx, tx, rootID); err != nil {
				return err
			}
			if err := tx.DeleteEdge(ctx, EdgeRoot, ix.root, rootID); err != nil {
				return storeErr("removeAll", err)
			}
		}

		metaIDs, err := tx.Outgoing(ctx, ix.root, EdgeMetadata)
		if err != nil {
			return storeErr("removeAll", err)
		}
		for _, m := range metaIDs {
			if err := tx.DeleteEdge(ctx, EdgeMetadata, ix.root, m); err != nil {
				return storeErr("removeAll", err)
			}
			if err := tx.DeleteNode(ctx, m); err != nil {
				return storeErr("removeAll", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	progress.Done()
	ix.countDirty = true
	return nil
}

// Clear removes everything and reinitializes an empty IndexRoot and
// Metadata, so the index is immediately ready for reuse. Calling Clear
// twice in a row is a no-op the second time.
func (ix *Index) Clear(ctx context.Context, progress ProgressListener) error {
	if err := ix.RemoveAll(ctx, false, progress); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	return withTxVoid(ctx, ix.store, true, func(ctx context.Context, tx TxScope) error {
		_, _, err := ensureInitialized(ctx, tx, ix.root, ix.cfg.effectiveMaxNodeReferences())
		return err
	})
}

// collectLeaves reads every current leaf id via a single read-only
// traversal, before any mutation begins.
func (ix *Index) collectLeaves(ctx context.Context) ([]NodeID, error) {
	return withTx(ctx, ix.store, false, func(ctx context.Context, tx TxScope) ([]NodeID, error) {
		rootID, ok, err := indexRootID(ctx, tx, ix.root)
		if err != nil || !ok {
			return nil, err
		}

		var leaves []NodeID
		var walk func(n NodeID) error
		walk = func(n NodeID) error {
			leaf, err := isLeaf(ctx, tx, n)
			if err != nil {
				return err
			}
			if leaf {
				leaves = append(leaves, n)
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

		return leaves, walk(rootID)
	})
}

// deleteSubtree recursively deletes every IndexNode rooted at n,
// detaching CHILD edges depth-first. Callers must have already removed
// any REFERENCE edges under n.
func deleteSubtree(ctx context.Context, tx TxScope, n NodeID) error {
	children, err := childIDs(ctx, tx, n)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := tx.DeleteEdge(ctx, EdgeChild, n, c); err != nil {
			return storeErr("deleteSubtree", err)
		}
		if err := deleteSubtree(ctx, tx, c); err != nil {
			return err
		}
	}
	return tx.DeleteNode(ctx, n)
}
