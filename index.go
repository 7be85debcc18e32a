// Package spatial implements the core of a persistent R-tree spatial
// index over an external graph-structured store. See SPEC_FULL.md for
// the full component breakdown; this file wires the components
// together into the public Index type.
package spatial

import (
	"context"
	"iter"
	"log/slog"
	"sync"
)

// Index is a persistent R-tree spatial index rooted at a single
// LayerRoot node in an external store. All exported methods are safe to
// call from one goroutine at a time (§5 single-writer assumption); an
// Index does not itself provide concurrent-writer coordination.
type Index struct {
	store   StoreAdapter
	decoder EnvelopeDecoder
	root    NodeID // LayerRoot id
	monitor Monitor
	log     *slog.Logger

	mu         sync.Mutex
	cfg        config
	countDirty bool
}

// Option configures an Index at construction time.
type Option func(*Index)

// WithMonitor injects an instrumentation sink. The default is a no-op.
func WithMonitor(m Monitor) Option {
	return func(ix *Index) { ix.monitor = m }
}

// WithLogger sets the logger held by the Index. The default is
// slog.Default(). No operation in this package writes log lines to it.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) { ix.log = l }
}

// WithSplitMode sets the initial Splitter strategy, equivalent to
// calling Configure({"splitMode": mode}) right after New.
func WithSplitMode(mode SplitMode) Option {
	return func(ix *Index) { ix.cfg.splitMode = mode }
}

// New builds an Index over layerRoot, a caller-owned anchor node in
// store. decoder extracts bounding boxes from geometry records; it is
// the only way this package ever interprets a Geometry payload.
func New(store StoreAdapter, decoder EnvelopeDecoder, layerRoot NodeID, opts ...Option) *Index {
	ix := &Index{
		store:   store,
		decoder: decoder,
		root:    layerRoot,
		monitor: noopMonitor{},
		log:     slog.Default(),
		cfg:     defaultConfig(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// AddMonitor replaces the instrumentation sink.
func (ix *Index) AddMonitor(m Monitor) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if m == nil {
		m = noopMonitor{}
	}
	ix.monitor = m
}

// Configure applies configuration changes (§6 Writer API). Unknown keys
// or values return ErrInvalidArgument and leave the configuration
// unchanged.
func (ix *Index) Configure(opts map[string]any) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.cfg.applyConfigure(opts)
}

// ensureInitialized creates the IndexRoot and Metadata nodes on first
// use (§3 Lifecycle) and returns their ids. defaultMaxRefs seeds
// Metadata's maxNodeReferences the first time it is created; it has no
// effect once Metadata already exists.
func ensureInitialized(ctx context.Context, tx TxScope, layerRoot NodeID, defaultMaxRefs int) (rootID, metaID NodeID, err error) {
	rootID, ok, err := indexRootID(ctx, tx, layerRoot)
	if err != nil {
		return "", "", err
	}
	if !ok {
		rootID, err = tx.CreateNode(ctx)
		if err != nil {
			return "", "", storeErr("createIndexRoot", err)
		}
		if err := tx.CreateEdge(ctx, EdgeRoot, layerRoot, rootID); err != nil {
			return "", "", storeErr("linkIndexRoot", err)
		}
	}

	metaIDs, err := tx.Outgoing(ctx, layerRoot, EdgeMetadata)
	if err != nil {
		return "", "", storeErr("metadata", err)
	}
	if len(metaIDs) == 0 {
		metaID, err = tx.CreateNode(ctx)
		if err != nil {
			return "", "", storeErr("createMetadata", err)
		}
		if err := tx.SetInt(ctx, metaID, PropMaxNodeReferences, defaultMaxRefs); err != nil {
			return "", "", storeErr("initMetadata", err)
		}
		if err := tx.SetInt(ctx, metaID, PropTotalGeometryCount, 0); err != nil {
			return "", "", storeErr("initMetadata", err)
		}
		if err := tx.CreateEdge(ctx, EdgeMetadata, layerRoot, metaID); err != nil {
			return "", "", storeErr("linkMetadata", err)
		}
	} else {
		metaID = metaIDs[0]
	}

	return rootID, metaID, nil
}

// metadataID returns the Metadata node for this index's LayerRoot,
// creating the IndexRoot/Metadata pair if this is the first use.
func (ix *Index) metadataID(ctx context.Context, tx TxScope) (rootID, metaID NodeID, err error) {
	return ensureInitialized(ctx, tx, ix.root, ix.cfg.effectiveMaxNodeReferences())
}

// maxNodeReferences reads Metadata's fan-out ceiling.
func maxNodeReferences(ctx context.Context, tx Tx, metaID NodeID) (int, error) {
	n, ok, err := tx.GetInt(ctx, metaID, PropMaxNodeReferences)
	if err != nil {
		return 0, storeErr("maxNodeReferences", err)
	}
	if !ok {
		return DefaultMaxNodeReferences, nil
	}
	return n, nil
}

// envResult lets GetBoundingBox return (Envelope, bool) through the
// single-value withTx helper.
type envResult struct {
	env Envelope
	ok  bool
}

// GetBoundingBox returns the envelope of the IndexRoot. ok is false if
// the tree is empty.
func (ix *Index) GetBoundingBox(ctx context.Context) (Envelope, bool, error) {
	r, err := withTx(ctx, ix.store, false, func(ctx context.Context, tx TxScope) (envResult, error) {
		rootID, ok, err := indexRootID(ctx, tx, ix.root)
		if err != nil || !ok {
			return envResult{}, err
		}
		env, ok, err := nodeEnvelope(ctx, tx, rootID)
		return envResult{env: env, ok: ok}, err
	})
	return r.env, r.ok, err
}

// IsEmpty reports whether the IndexRoot has no bbox, i.e. holds no
// geometry.
func (ix *Index) IsEmpty(ctx context.Context) (bool, error) {
	_, ok, err := ix.GetBoundingBox(ctx)
	return !ok, err
}

// recountTree performs a full traversal counting REFERENCE edges
// reachable from IndexRoot (§5 defensive recompute).
func recountTree(ctx context.Context, tx Tx, rootID NodeID) (int, error) {
	total := 0
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
			total += len(refs)
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
		return 0, err
	}
	return total, nil
}

// Count returns the exact number of indexed geometries, recomputing
// from the tree if the cached value is marked unsaved or reads as zero
// (§5).
func (ix *Index) Count(ctx context.Context) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.countLocked(ctx)
}

// countLocked is Count's logic for callers that already hold ix.mu.
func (ix *Index) countLocked(ctx context.Context) (int, error) {
	dirty := ix.countDirty
	return withTx(ctx, ix.store, true, func(ctx context.Context, tx TxScope) (int, error) {
		rootID, ok, err := indexRootID(ctx, tx, ix.root)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}

		_, metaID, err := ensureInitialized(ctx, tx, ix.root, ix.cfg.effectiveMaxNodeReferences())
		if err != nil {
			return 0, err
		}

		n, present, err := tx.GetInt(ctx, metaID, PropTotalGeometryCount)
		if err != nil {
			return 0, storeErr("count", err)
		}

		if dirty || !present || n == 0 {
			recount, err := recountTree(ctx, tx, rootID)
			if err != nil {
				return 0, err
			}
			if recount != n {
				if err := tx.SetInt(ctx, metaID, PropTotalGeometryCount, recount); err != nil {
					return 0, storeErr("count", err)
				}
			}
			ix.countDirty = false
			return recount, nil
		}

		return n, nil
	})
}

// IsNodeIndexed reports whether geomID has an incoming REFERENCE edge
// from a leaf of this tree.
func (ix *Index) IsNodeIndexed(ctx context.Context, geomID NodeID) (bool, error) {
	return withTx(ctx, ix.store, false, func(ctx context.Context, tx TxScope) (bool, error) {
		leaves, err := tx.Incoming(ctx, geomID, EdgeReference)
		if err != nil {
			return false, storeErr("isNodeIndexed", err)
		}
		if len(leaves) == 0 {
			return false, nil
		}
		underThisTree, err := climbToRoot(ctx, tx, leaves[0])
		if err != nil {
			return false, err
		}
		rootID, ok, err := indexRootID(ctx, tx, ix.root)
		if err != nil || !ok {
			return false, err
		}
		return underThisTree == rootID, nil
	})
}

// climbToRoot walks CHILD edges upward from n until it reaches a node
// with no parent, returning that node's id.
func climbToRoot(ctx context.Context, tx Tx, n NodeID) (NodeID, error) {
	cur := n
	for {
		p, ok, err := parentID(ctx, tx, cur)
		if err != nil {
			return "", err
		}
		if !ok {
			return cur, nil
		}
		cur = p
	}
}

// GetAllIndexedNodes lazily enumerates every indexed Geometry id.
func (ix *Index) GetAllIndexedNodes(ctx context.Context) iter.Seq2[NodeID, error] {
	allPassFilter := allMatchFilter{}
	return ix.SearchIndex(ctx, allPassFilter)
}

// GetAllIndexInternalNodes lazily enumerates every IndexNode (internal
// and leaf), depth-first from IndexRoot.
func (ix *Index) GetAllIndexInternalNodes(ctx context.Context) iter.Seq2[NodeID, error] {
	return func(yield func(NodeID, error) bool) {
		_ = withTxVoid(ctx, ix.store, false, func(ctx context.Context, tx TxScope) error {
			rootID, ok, err := indexRootID(ctx, tx, ix.root)
			if err != nil {
				yield("", err)
				return err
			}
			if !ok {
				return nil
			}
			var walk func(n NodeID) (bool, error)
			walk = func(n NodeID) (bool, error) {
				if !yield(n, nil) {
					return false, nil
				}
				children, err := childIDs(ctx, tx, n)
				if err != nil {
					yield("", err)
					return false, err
				}
				for _, c := range children {
					cont, err := walk(c)
					if err != nil || !cont {
						return cont, err
					}
				}
				return true, nil
			}
			_, err = walk(rootID)
			return err
		})
	}
}

// allMatchFilter is the Filter used by GetAllIndexedNodes: visit every
// subtree, match every geometry.
type allMatchFilter struct{}

func (allMatchFilter) NeedsToVisit(Envelope) bool { return true }
func (allMatchFilter) GeometryMatches(context.Context, Tx, NodeID) (bool, error) {
	return true, nil
}

// WarmUp performs a full traversal with a no-op visitor, to page the
// tree in.
func (ix *Index) WarmUp(ctx context.Context) error {
	return withTxVoid(ctx, ix.store, false, func(ctx context.Context, tx TxScope) error {
		rootID, ok, err := indexRootID(ctx, tx, ix.root)
		if err != nil || !ok {
			return err
		}
		return visit(ctx, tx, allMatchFilter{}, rootID, 0, noopMonitor{})
	})
}

// withTxVoid is withTx for operations with no useful return value.
func withTxVoid(ctx context.Context, store StoreAdapter, writable bool, fn func(context.Context, TxScope) error) error {
	_, err := withTx(ctx, store, writable, func(ctx context.Context, tx TxScope) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}
