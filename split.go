package spatial

import (
	"context"
	"sort"
)

// pickSeeds enumerates all child pairs (i, j), i<j, and returns the
// indices of the pair with maximum separation between their envelopes,
// ties broken by first encountered (§4.5 Seed selection, shared by both
// split strategies).
func pickSeeds(entries []Ref) (int, int) {
	bi, bj := 0, 1
	best := -1.0
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			sep := entries[i].Env.separation(entries[j].Env)
			if sep > best {
				best = sep
				bi, bj = i, j
			}
		}
	}
	return bi, bj
}

// quadraticPartition implements §4.5's quadratic split: seed two
// groups, then assign each remaining entry (in encounter order) to
// whichever group needs the smaller enlargement, ties broken by
// smaller current group area, further ties to group 1.
func quadraticPartition(entries []Ref) (g1, g2 []Ref) {
	si, sj := pickSeeds(entries)

	g1 = []Ref{entries[si]}
	g2 = []Ref{entries[sj]}
	e1 := entries[si].Env
	e2 := entries[sj].Env

	for i, e := range entries {
		if i == si || i == sj {
			continue
		}
		exp1 := e1.enlargement(e.Env)
		exp2 := e2.enlargement(e.Env)

		switch {
		case exp1 < exp2:
			g1 = append(g1, e)
			e1.expandToInclude(e.Env)
		case exp2 < exp1:
			g2 = append(g2, e)
			e2.expandToInclude(e.Env)
		default:
			if e1.area() <= e2.area() {
				g1 = append(g1, e)
				e1.expandToInclude(e.Env)
			} else {
				g2 = append(g2, e)
				e2.expandToInclude(e.Env)
			}
		}
	}

	return g1, g2
}

// greenePartition implements Greene's split: pick the split dimension as
// whichever of x or y separates the two seeds further apart (ties to
// x), sort all entries by center along that dimension (stable), and cut
// the sorted sequence in half.
//
// The per-dimension separation is computed directly along each axis
// (dimSeparation), not recomputed identically for every dimension in a
// shared loop — that would always yield the same winner regardless of
// axis and silently prefer whichever dimension is checked last.
func greenePartition(entries []Ref) (g1, g2 []Ref) {
	si, sj := pickSeeds(entries)
	seedEnvI, seedEnvJ := entries[si].Env, entries[sj].Env

	dim := 0
	if seedEnvI.dimSeparation(seedEnvJ, 1) > seedEnvI.dimSeparation(seedEnvJ, 0) {
		dim = 1
	}

	sorted := make([]Ref, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Env.centre(dim) < sorted[j].Env.centre(dim)
	})

	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}

// partition dispatches to the configured split strategy.
func partition(mode SplitMode, entries []Ref) (g1, g2 []Ref) {
	if mode == SplitGreene {
		return greenePartition(entries)
	}
	return quadraticPartition(entries)
}

// splitNode runs the configured Splitter over n's children and
// distributes them into n (kept) and freshly created sibling nodes, as
// grouped by splitIntoGroups (§4.5's "re-splitting if the ceiling is
// still exceeded" guard). It returns
// the new sibling ids; the caller is responsible for attaching them
// into the tree and propagating bbox changes.
func splitNode(ctx context.Context, tx TxScope, decoder EnvelopeDecoder, n NodeID, mode SplitMode, maxRefs int) ([]NodeID, error) {
	leaf, err := isLeaf(ctx, tx, n)
	if err != nil {
		return nil, err
	}
	edgeKind := EdgeChild
	refKind := RefSubtree
	if leaf {
		edgeKind = EdgeReference
		refKind = RefGeometry
	}

	childIDsList, err := tx.Outgoing(ctx, n, edgeKind)
	if err != nil {
		return nil, storeErr("splitNode", err)
	}

	entries := make([]Ref, 0, len(childIDsList))
	for _, c := range childIDsList {
		var env Envelope
		if leaf {
			env, err = decoder.DecodeEnvelope(ctx, tx, c)
		} else {
			var ok bool
			env, ok, err = nodeEnvelope(ctx, tx, c)
			if err == nil && !ok {
				env = emptyEnvelope
			}
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, Ref{Kind: refKind, ID: c, Env: env})
	}

	for _, e := range entries {
		if err := tx.DeleteEdge(ctx, edgeKind, n, e.ID); err != nil {
			return nil, storeErr("splitNode", err)
		}
	}

	groups := splitIntoGroups(entries, mode, maxRefs)

	if err := attachGroup(ctx, tx, n, edgeKind, groups[0]); err != nil {
		return nil, err
	}
	if _, err := retightenNode(ctx, tx, decoder, n); err != nil {
		return nil, err
	}

	siblings := make([]NodeID, 0, len(groups)-1)
	for _, g := range groups[1:] {
		sib, err := tx.CreateNode(ctx)
		if err != nil {
			return nil, storeErr("splitNode", err)
		}
		if err := attachGroup(ctx, tx, sib, edgeKind, g); err != nil {
			return nil, err
		}
		if _, err := retightenNode(ctx, tx, decoder, sib); err != nil {
			return nil, err
		}
		siblings = append(siblings, sib)
	}

	return siblings, nil
}

// splitIntoGroups partitions entries using the configured strategy,
// recursively re-splitting any resulting group that still exceeds
// maxRefs. A group of two or fewer entries is never split further, so
// with maxRefs == 1 a two-entry group stays whole and no sibling is
// produced. For maxRefs >= 2, ordinary single-entry overflow always
// yields exactly two groups, each at most maxRefs in size (no minimum
// group size is enforced); the recursive guard exists for the rare
// bulk-load path where a node can accumulate more than maxRefs+1
// children before its overflow is resolved.
func splitIntoGroups(entries []Ref, mode SplitMode, maxRefs int) [][]Ref {
	if len(entries) <= maxRefs || len(entries) <= 2 {
		return [][]Ref{entries}
	}
	g1, g2 := partition(mode, entries)
	return append(splitIntoGroups(g1, mode, maxRefs), splitIntoGroups(g2, mode, maxRefs)...)
}

// attachGroup creates edgeKind edges from n to every entry in g.
func attachGroup(ctx context.Context, tx TxScope, n NodeID, edgeKind EdgeKind, g []Ref) error {
	for _, e := range g {
		if err := tx.CreateEdge(ctx, edgeKind, n, e.ID); err != nil {
			return storeErr("attachGroup", err)
		}
	}
	return nil
}
