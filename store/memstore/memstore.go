// Package memstore is an in-memory reference implementation of
// spatial.StoreAdapter, useful for tests and for callers that don't need
// durability. It holds the whole graph in maps guarded by a single mutex;
// transactions are a bookkeeping convenience, not isolation.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Fred-dee/spatial"
)

type edgeKey struct {
	kind     spatial.EdgeKind
	from, to spatial.NodeID
}

// Store is an in-memory graph of nodes, typed edges, and per-node
// properties.
type Store struct {
	mu  sync.Mutex
	seq uint64

	nodes     map[spatial.NodeID]struct{}
	outgoing  map[spatial.NodeID]map[spatial.EdgeKind][]spatial.NodeID
	incoming  map[spatial.NodeID]map[spatial.EdgeKind][]spatial.NodeID
	floats    map[spatial.NodeID]map[string][]float64
	ints      map[spatial.NodeID]map[string]int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		nodes:    make(map[spatial.NodeID]struct{}),
		outgoing: make(map[spatial.NodeID]map[spatial.EdgeKind][]spatial.NodeID),
		incoming: make(map[spatial.NodeID]map[spatial.EdgeKind][]spatial.NodeID),
		floats:   make(map[spatial.NodeID]map[string][]float64),
		ints:     make(map[spatial.NodeID]map[string]int),
	}
}

// NewNodeID allocates a node outside of any transaction (for seeding a
// LayerRoot before an Index exists).
func (s *Store) NewNodeID() spatial.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	s.nodes[id] = struct{}{}
	return id
}

func (s *Store) allocID() spatial.NodeID {
	n := atomic.AddUint64(&s.seq, 1)
	return spatial.NodeID(fmt.Sprintf("mem:%d", n))
}

// Begin implements spatial.StoreAdapter. There is no concurrency control
// beyond the Store's single mutex, held for the transaction's whole
// lifetime; writable only gates whether mutating calls are rejected.
func (s *Store) Begin(ctx context.Context, writable bool) (spatial.TxScope, error) {
	s.mu.Lock()
	return &tx{s: s, writable: writable}, nil
}

type tx struct {
	s        *Store
	writable bool
	done     bool
}

func (t *tx) checkWritable() error {
	if !t.writable {
		return fmt.Errorf("memstore: write attempted in a read-only transaction")
	}
	return nil
}

func (t *tx) CreateNode(ctx context.Context) (spatial.NodeID, error) {
	if err := t.checkWritable(); err != nil {
		return "", err
	}
	id := t.s.allocID()
	t.s.nodes[id] = struct{}{}
	return id, nil
}

func (t *tx) DeleteNode(ctx context.Context, id spatial.NodeID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	delete(t.s.nodes, id)
	delete(t.s.outgoing, id)
	delete(t.s.incoming, id)
	delete(t.s.floats, id)
	delete(t.s.ints, id)
	return nil
}

func (t *tx) CreateEdge(ctx context.Context, kind spatial.EdgeKind, from, to spatial.NodeID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if t.s.outgoing[from] == nil {
		t.s.outgoing[from] = make(map[spatial.EdgeKind][]spatial.NodeID)
	}
	t.s.outgoing[from][kind] = append(t.s.outgoing[from][kind], to)

	if t.s.incoming[to] == nil {
		t.s.incoming[to] = make(map[spatial.EdgeKind][]spatial.NodeID)
	}
	t.s.incoming[to][kind] = append(t.s.incoming[to][kind], from)
	return nil
}

func (t *tx) DeleteEdge(ctx context.Context, kind spatial.EdgeKind, from, to spatial.NodeID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if out := t.s.outgoing[from]; out != nil {
		out[kind] = removeOne(out[kind], to)
	}
	if in := t.s.incoming[to]; in != nil {
		in[kind] = removeOne(in[kind], from)
	}
	return nil
}

func removeOne(ids []spatial.NodeID, target spatial.NodeID) []spatial.NodeID {
	for i, id := range ids {
		if id == target {
			out := make([]spatial.NodeID, 0, len(ids)-1)
			out = append(out, ids[:i]...)
			out = append(out, ids[i+1:]...)
			return out
		}
	}
	return ids
}

func (t *tx) Outgoing(ctx context.Context, from spatial.NodeID, kind spatial.EdgeKind) ([]spatial.NodeID, error) {
	out := t.s.outgoing[from][kind]
	cp := make([]spatial.NodeID, len(out))
	copy(cp, out)
	return cp, nil
}

func (t *tx) Incoming(ctx context.Context, to spatial.NodeID, kind spatial.EdgeKind) ([]spatial.NodeID, error) {
	in := t.s.incoming[to][kind]
	cp := make([]spatial.NodeID, len(in))
	copy(cp, in)
	return cp, nil
}

func (t *tx) GetFloats(ctx context.Context, id spatial.NodeID, prop string) ([]float64, bool, error) {
	vals, ok := t.s.floats[id][prop]
	if !ok {
		return nil, false, nil
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	return cp, true, nil
}

func (t *tx) SetFloats(ctx context.Context, id spatial.NodeID, prop string, vals []float64) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if t.s.floats[id] == nil {
		t.s.floats[id] = make(map[string][]float64)
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	t.s.floats[id][prop] = cp
	return nil
}

func (t *tx) DeleteProperty(ctx context.Context, id spatial.NodeID, prop string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	delete(t.s.floats[id], prop)
	delete(t.s.ints[id], prop)
	return nil
}

func (t *tx) GetInt(ctx context.Context, id spatial.NodeID, prop string) (int, bool, error) {
	v, ok := t.s.ints[id][prop]
	return v, ok, nil
}

func (t *tx) SetInt(ctx context.Context, id spatial.NodeID, prop string, val int) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if t.s.ints[id] == nil {
		t.s.ints[id] = make(map[string]int)
	}
	t.s.ints[id][prop] = val
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("memstore: transaction already closed")
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}
