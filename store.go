package spatial

import "context"

// NodeID identifies any node in the external store — a LayerRoot, an
// IndexNode, a Metadata node, or a Geometry record — by a stable,
// backend-chosen key. The core treats it as opaque.
type NodeID string

// Property names used on IndexNode and Metadata records. Kept as
// constants rather than inlined strings so the persisted layout in
// SPEC_FULL.md §6 has one source of truth.
const (
	// PropBBox holds an IndexNode's bounding box as four float64s in
	// (minX, minY, maxX, maxY) order. Absent iff the node has no
	// children yet.
	PropBBox = "bbox"
	// PropMaxNodeReferences holds Metadata's configured fan-out ceiling.
	PropMaxNodeReferences = "maxNodeReferences"
	// PropTotalGeometryCount holds Metadata's lazily persisted count.
	PropTotalGeometryCount = "totalGeometryCount"
)

// StoreAdapter is the minimal contract the core requires of the external
// graph-structured record store (§4.2). The store's own CRUD and
// transaction machinery is out of scope for this package; only this
// interface is specified. Implementations live under store/ (memstore,
// badgerstore) or may be supplied by the caller.
type StoreAdapter interface {
	// Begin opens a scoped transaction. writable must be true for any
	// operation that mutates the store. The returned TxScope guarantees
	// release on both the success and failure paths — callers must
	// always reach a Commit or Rollback, typically via defer.
	Begin(ctx context.Context, writable bool) (TxScope, error)
}

// Tx is the set of store operations available inside a transaction
// scope.
type Tx interface {
	// CreateNode allocates a new, otherwise empty node and returns its
	// id.
	CreateNode(ctx context.Context) (NodeID, error)
	// DeleteNode removes a node. Behavior is undefined if the node
	// still has edges; callers must detach edges first.
	DeleteNode(ctx context.Context, id NodeID) error

	// CreateEdge adds a typed directed edge from -> to. The store does
	// not deduplicate; callers must not create the same edge twice.
	CreateEdge(ctx context.Context, kind EdgeKind, from, to NodeID) error
	// DeleteEdge removes a typed directed edge. A no-op if the edge
	// does not exist.
	DeleteEdge(ctx context.Context, kind EdgeKind, from, to NodeID) error

	// Outgoing lists the endpoints of from's outgoing edges of kind,
	// in a stable, backend-defined order.
	Outgoing(ctx context.Context, from NodeID, kind EdgeKind) ([]NodeID, error)
	// Incoming lists the origins of to's incoming edges of kind.
	Incoming(ctx context.Context, to NodeID, kind EdgeKind) ([]NodeID, error)

	// GetFloats reads a double-array property. ok is false if the
	// property is absent.
	GetFloats(ctx context.Context, id NodeID, prop string) (vals []float64, ok bool, err error)
	// SetFloats writes a double-array property.
	SetFloats(ctx context.Context, id NodeID, prop string, vals []float64) error
	// DeleteProperty removes a property so later GetFloats/GetInt report
	// it absent.
	DeleteProperty(ctx context.Context, id NodeID, prop string) error

	// GetInt reads an integer property. ok is false if the property is
	// absent.
	GetInt(ctx context.Context, id NodeID, prop string) (val int, ok bool, err error)
	// SetInt writes an integer property.
	SetInt(ctx context.Context, id NodeID, prop string, val int) error
}

// TxScope is a Tx bound to a single transaction's lifetime.
type TxScope interface {
	Tx
	// Commit persists the transaction's effects. Calling it more than
	// once, or calling Rollback afterward, is an error.
	Commit(ctx context.Context) error
	// Rollback discards the transaction's effects. Safe to call after a
	// Commit has already happened only if the implementation documents
	// it as a no-op in that case; callers should instead defer a single
	// Rollback guarded by a "committed" flag (see withTx).
	Rollback(ctx context.Context) error
}

// EnvelopeDecoder extracts a 2D bounding box from a user geometry
// record. This is an external collaborator (§1 Out of scope): the core
// never interprets geometry payloads itself.
type EnvelopeDecoder interface {
	DecodeEnvelope(ctx context.Context, tx Tx, geomID NodeID) (Envelope, error)
}

// withTx runs fn inside a scoped, writable-as-requested transaction,
// committing on success and rolling back on any error or panic. This is
// the one place the package opens a transaction directly; every other
// mutating or reading method funnels through it so a scope is never
// leaked across a failure path (§5).
func withTx[T any](ctx context.Context, store StoreAdapter, writable bool, fn func(ctx context.Context, tx TxScope) (T, error)) (T, error) {
	var zero T
	scope, err := store.Begin(ctx, writable)
	if err != nil {
		return zero, storeErr("begin", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = scope.Rollback(ctx)
		}
	}()

	result, err := fn(ctx, scope)
	if err != nil {
		return zero, err
	}

	if err := scope.Commit(ctx); err != nil {
		return zero, storeErr("commit", err)
	}
	committed = true

	return result, nil
}
