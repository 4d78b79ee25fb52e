// Package memdb implements kv.Backend entirely in memory. It backs
// ephemeral nodes (storage.path unset) and is the default backend used by
// this module's own test suites, mirroring the teacher's ethdb.NewMemDatabase.
package memdb

import (
	"sort"
	"sync"

	"github.com/cardano-node/ledgercore/kv"
)

// Database is an in-memory key-value store, held in an unsorted map and
// guarded by a single mutex. Its iterators and snapshots do not stream:
// each copies the whole map when created, and an iterator then sorts the
// keys in its range. It is not meant for production use; its purpose is
// tests and the ephemeral no-storage-path mode.
type Database struct {
	mu         sync.RWMutex
	data       map[string][]byte
	schemaHash string
	hasSchema  bool
}

// New returns an empty Database.
func New() *Database {
	return &Database{data: make(map[string][]byte)}
}

func (d *Database) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.data[string(key)]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (d *Database) Has(key []byte) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.data[string(key)]
	return ok, nil
}

func (d *Database) put(key, value []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[string(key)] = append([]byte(nil), value...)
}

func (d *Database) delete(key []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.data, string(key))
}

func (d *Database) NewBatch() kv.Batch {
	return &batch{db: d}
}

func (d *Database) snapshotData() map[string][]byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string][]byte, len(d.data))
	for k, v := range d.data {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

func (d *Database) NewIterator(start, end []byte) kv.Iterator {
	return newIterator(d.snapshotData(), start, end)
}

func (d *Database) NewSnapshot() (kv.Snapshot, error) {
	return &snapshotView{data: d.snapshotData()}, nil
}

func (d *Database) SchemaHash() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.schemaHash, d.hasSchema
}

func (d *Database) SetSchemaHash(hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.schemaHash = hash
	d.hasSchema = true
	return nil
}

func (d *Database) Close() error { return nil }

type op struct {
	del   bool
	key   []byte
	value []byte
}

type batch struct {
	db  *Database
	ops []op
}

func (b *batch) Put(key, value []byte) error {
	b.ops = append(b.ops, op{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.ops = append(b.ops, op{del: true, key: append([]byte(nil), key...)})
	return nil
}

func (b *batch) Len() int { return len(b.ops) }
func (b *batch) Reset()   { b.ops = b.ops[:0] }

func (b *batch) Commit(sync bool) error {
	for _, o := range b.ops {
		if o.del {
			b.db.delete(o.key)
		} else {
			b.db.put(o.key, o.value)
		}
	}
	return nil
}

func inRange(key string, start, end []byte) bool {
	if start != nil && key < string(start) {
		return false
	}
	if end != nil && key >= string(end) {
		return false
	}
	return true
}

func newIterator(data map[string][]byte, start, end []byte) *memIterator {
	keys := make([]string, 0, len(data))
	for k := range data {
		if inRange(k, start, end) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &memIterator{data: data, keys: keys, pos: -1}
}

type memIterator struct {
	data map[string][]byte
	keys []string
	pos  int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *memIterator) Value() []byte { return it.data[it.keys[it.pos]] }
func (it *memIterator) Error() error  { return nil }
func (it *memIterator) Close() error  { return nil }

type snapshotView struct {
	data map[string][]byte
}

func (s *snapshotView) Get(key []byte) ([]byte, error) {
	v, ok := s.data[string(key)]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return v, nil
}

func (s *snapshotView) Has(key []byte) (bool, error) {
	_, ok := s.data[string(key)]
	return ok, nil
}

func (s *snapshotView) NewIterator(start, end []byte) kv.Iterator {
	return newIterator(s.data, start, end)
}

func (s *snapshotView) Release() {}
