// Package badgerstore is a durable spatial.StoreAdapter backed by
// Badger (github.com/dgraph-io/badger/v4). Nodes, typed edges (with a
// maintained reverse index), and per-node properties are encoded into a
// single flat Badger keyspace, in the same key-prefix style sqlexec's
// resource/badger package uses for tables, rows, and indexes.
package badgerstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Fred-dee/spatial"
)

// Store wraps a Badger database as a spatial.StoreAdapter.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a Badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a Badger database that keeps everything in memory,
// useful for tests that want real transaction/commit semantics without
// touching disk.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open in-memory: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewNodeID allocates a fresh node id and marks it as existing, outside
// of any spatial.Tx — used to seed a LayerRoot before an Index exists.
func (s *Store) NewNodeID(ctx context.Context) (spatial.NodeID, error) {
	id := spatial.NodeID(uuid.NewString())
	err := s.db.Update(func(btx *badger.Txn) error {
		return btx.Set(encodeNodeKey(id), nil)
	})
	if err != nil {
		return "", fmt.Errorf("badgerstore: seed node: %w", err)
	}
	return id, nil
}

// Begin implements spatial.StoreAdapter.
func (s *Store) Begin(ctx context.Context, writable bool) (spatial.TxScope, error) {
	return &tx{btx: s.db.NewTransaction(writable), writable: writable}, nil
}

type tx struct {
	btx      *badger.Txn
	writable bool
	done     bool
}

func (t *tx) checkWritable() error {
	if !t.writable {
		return fmt.Errorf("badgerstore: write attempted in a read-only transaction")
	}
	return nil
}

func (t *tx) CreateNode(ctx context.Context) (spatial.NodeID, error) {
	if err := t.checkWritable(); err != nil {
		return "", err
	}
	id := spatial.NodeID(uuid.NewString())
	if err := t.btx.Set(encodeNodeKey(id), nil); err != nil {
		return "", fmt.Errorf("badgerstore: create node: %w", err)
	}
	return id, nil
}

func (t *tx) DeleteNode(ctx context.Context, id spatial.NodeID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if err := t.btx.Delete(encodeNodeKey(id)); err != nil {
		return fmt.Errorf("badgerstore: delete node: %w", err)
	}
	return nil
}

func (t *tx) CreateEdge(ctx context.Context, kind spatial.EdgeKind, from, to spatial.NodeID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if err := t.btx.Set(encodeEdgeKey(kind, from, to), nil); err != nil {
		return fmt.Errorf("badgerstore: create edge: %w", err)
	}
	if err := t.btx.Set(encodeRevEdgeKey(kind, from, to), nil); err != nil {
		return fmt.Errorf("badgerstore: create edge: %w", err)
	}
	return nil
}

func (t *tx) DeleteEdge(ctx context.Context, kind spatial.EdgeKind, from, to spatial.NodeID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if err := t.btx.Delete(encodeEdgeKey(kind, from, to)); err != nil && err != badger.ErrKeyNotFound {
		return fmt.Errorf("badgerstore: delete edge: %w", err)
	}
	if err := t.btx.Delete(encodeRevEdgeKey(kind, from, to)); err != nil && err != badger.ErrKeyNotFound {
		return fmt.Errorf("badgerstore: delete edge: %w", err)
	}
	return nil
}

func (t *tx) Outgoing(ctx context.Context, from spatial.NodeID, kind spatial.EdgeKind) ([]spatial.NodeID, error) {
	return t.scanIDs(encodeEdgePrefix(kind, from))
}

func (t *tx) Incoming(ctx context.Context, to spatial.NodeID, kind spatial.EdgeKind) ([]spatial.NodeID, error) {
	return t.scanIDs(encodeRevEdgePrefix(kind, to))
}

func (t *tx) scanIDs(prefix []byte) ([]spatial.NodeID, error) {
	var out []spatial.NodeID
	it := t.btx.NewIterator(badger.IteratorOptions{PrefetchValues: false})
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		out = append(out, decodeTrailingID(key))
	}
	return out, nil
}

func (t *tx) GetFloats(ctx context.Context, id spatial.NodeID, prop string) ([]float64, bool, error) {
	raw, ok, err := t.getValue(encodePropertyKey(id, prop))
	if err != nil || !ok {
		return nil, ok, err
	}
	vals, err := decodeFloats(raw)
	if err != nil {
		return nil, false, err
	}
	return vals, true, nil
}

func (t *tx) SetFloats(ctx context.Context, id spatial.NodeID, prop string, vals []float64) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if err := t.btx.Set(encodePropertyKey(id, prop), encodeFloats(vals)); err != nil {
		return fmt.Errorf("badgerstore: set floats: %w", err)
	}
	return nil
}

func (t *tx) DeleteProperty(ctx context.Context, id spatial.NodeID, prop string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if err := t.btx.Delete(encodePropertyKey(id, prop)); err != nil && err != badger.ErrKeyNotFound {
		return fmt.Errorf("badgerstore: delete property: %w", err)
	}
	return nil
}

func (t *tx) GetInt(ctx context.Context, id spatial.NodeID, prop string) (int, bool, error) {
	raw, ok, err := t.getValue(encodePropertyKey(id, prop))
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := decodeInt(raw)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (t *tx) SetInt(ctx context.Context, id spatial.NodeID, prop string, val int) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if err := t.btx.Set(encodePropertyKey(id, prop), encodeInt(val)); err != nil {
		return fmt.Errorf("badgerstore: set int: %w", err)
	}
	return nil
}

func (t *tx) getValue(key []byte) ([]byte, bool, error) {
	item, err := t.btx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badgerstore: get %s: %w", key, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, fmt.Errorf("badgerstore: read value: %w", err)
	}
	return val, true, nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("badgerstore: transaction already closed")
	}
	t.done = true
	if err := t.btx.Commit(); err != nil {
		return fmt.Errorf("badgerstore: commit: %w", err)
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.btx.Discard()
	return nil
}
