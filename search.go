package spatial

import (
	"context"
	"iter"
)

// Filter prunes a search traversal (§4.8). NeedsToVisit decides whether
// a subtree's bbox is worth descending into; GeometryMatches decides
// whether a candidate geometry at a matching leaf should be yielded.
type Filter interface {
	NeedsToVisit(env Envelope) bool
	GeometryMatches(ctx context.Context, tx Tx, geomID NodeID) (bool, error)
}

// EnvelopeFilter matches every geometry whose own envelope intersects
// Query; SearchIndex applies NeedsToVisit to each geometry's envelope, so
// GeometryMatches needs no second check. It is the common case: range
// search by bounding box.
type EnvelopeFilter struct {
	Query Envelope
}

func (f EnvelopeFilter) NeedsToVisit(env Envelope) bool { return f.Query.Intersects(env) }

func (f EnvelopeFilter) GeometryMatches(context.Context, Tx, NodeID) (bool, error) {
	return true, nil
}

// PointFilter matches geometries whose own envelope contains Point.
type PointFilter struct {
	Point [2]float64
}

func (f PointFilter) NeedsToVisit(env Envelope) bool {
	return env.ContainsPoint(f.Point[0], f.Point[1])
}

func (f PointFilter) GeometryMatches(context.Context, Tx, NodeID) (bool, error) {
	return true, nil
}

// SearchIndex returns a lazy, pull-based, composable sequence of
// matching geometry ids, pruned depth-first by filter.NeedsToVisit at
// every CHILD edge and, against the geometry's decoded envelope, at every
// REFERENCE edge; a geometry that passes is then tested by
// filter.GeometryMatches (§4.8). Iteration may stop early; the underlying
// transaction is released as soon as the sequence is abandoned or
// exhausted.
func (ix *Index) SearchIndex(ctx context.Context, filter Filter) iter.Seq2[NodeID, error] {
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

			rootEnv, ok, err := nodeEnvelope(ctx, tx, rootID)
			if err != nil {
				yield("", err)
				return err
			}
			if !ok || !filter.NeedsToVisit(rootEnv) {
				return nil
			}

			var walk func(n NodeID) (bool, error)
			walk = func(n NodeID) (bool, error) {
				leaf, err := isLeaf(ctx, tx, n)
				if err != nil {
					return false, err
				}

				if leaf {
					refs, err := referenceIDs(ctx, tx, n)
					if err != nil {
						return false, err
					}
					for _, g := range refs {
						genv, err := ix.decoder.DecodeEnvelope(ctx, tx, g)
						if err != nil {
							return false, err
						}
						if !filter.NeedsToVisit(genv) {
							continue
						}
						ok, err := filter.GeometryMatches(ctx, tx, g)
						if err != nil {
							return false, err
						}
						if !ok {
							continue
						}
						if !yield(g, nil) {
							return false, nil
						}
					}
					return true, nil
				}

				children, err := childIDs(ctx, tx, n)
				if err != nil {
					return false, err
				}
				for _, c := range children {
					env, ok, err := nodeEnvelope(ctx, tx, c)
					if err != nil {
						return false, err
					}
					if !ok || !filter.NeedsToVisit(env) {
						continue
					}
					cont, err := walk(c)
					if err != nil || !cont {
						return cont, err
					}
				}
				return true, nil
			}

			_, err = walk(rootID)
			if err != nil {
				yield("", err)
			}
			return err
		})
	}
}

// visit eagerly walks the subtree rooted at n, applying filter's pruning
// and reporting every matched leaf to monitor (used by WarmUp, which
// needs a full traversal but no results).
func visit(ctx context.Context, tx Tx, filter Filter, n NodeID, depth int, monitor Monitor) error {
	env, ok, err := nodeEnvelope(ctx, tx, n)
	if err != nil {
		return err
	}
	if !ok || !filter.NeedsToVisit(env) {
		return nil
	}

	leaf, err := isLeaf(ctx, tx, n)
	if err != nil {
		return err
	}

	if leaf {
		monitor.MatchedTreeNode(depth, n)
		refs, err := referenceIDs(ctx, tx, n)
		if err != nil {
			return err
		}
		for _, g := range refs {
			if _, err := filter.GeometryMatches(ctx, tx, g); err != nil {
				return err
			}
		}
		return nil
	}

	children, err := childIDs(ctx, tx, n)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := visit(ctx, tx, filter, c, depth+1, monitor); err != nil {
			return err
		}
	}
	return nil
}
