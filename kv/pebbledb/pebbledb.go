// Package pebbledb adapts cockroachdb/pebble to the kv.Backend interface.
// It backs the "fjall" storage.state.backend option.
package pebbledb

import (
	"github.com/cockroachdb/pebble"

	"github.com/cardano-node/ledgercore/kv"
)

var schemaHashKey = []byte("\x00schema-hash")

// Database wraps a *pebble.DB.
type Database struct {
	db *pebble.DB
}

// Open creates or opens a pebble database at path. cacheMB sizes pebble's
// block cache.
func Open(path string, cacheMB int) (*Database, error) {
	opts := &pebble.Options{}
	if cacheMB > 0 {
		opts.Cache = pebble.NewCache(int64(cacheMB) * 1024 * 1024)
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	v, closer, err := d.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, nil
}

func (d *Database) Has(key []byte) (bool, error) {
	_, closer, err := d.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (d *Database) NewBatch() kv.Batch {
	return &batch{b: d.db.NewBatch()}
}

func (d *Database) NewIterator(start, end []byte) kv.Iterator {
	it, _ := d.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: end})
	return &iterator{it: it, first: true}
}

func (d *Database) NewSnapshot() (kv.Snapshot, error) {
	return &snapshot{snap: d.db.NewSnapshot()}, nil
}

func (d *Database) SchemaHash() (string, bool) {
	v, err := d.Get(schemaHashKey)
	if err != nil {
		return "", false
	}
	return string(v), true
}

func (d *Database) SetSchemaHash(hash string) error {
	return d.db.Set(schemaHashKey, []byte(hash), pebble.Sync)
}

func (d *Database) Close() error {
	return d.db.Close()
}

type batch struct {
	b *pebble.Batch
}

func (b *batch) Put(key, value []byte) error { return b.b.Set(key, value, nil) }
func (b *batch) Delete(key []byte) error     { return b.b.Delete(key, nil) }
func (b *batch) Len() int                    { return int(b.b.Len()) }
func (b *batch) Reset()                      { b.b.Reset() }

func (b *batch) Commit(sync bool) error {
	if sync {
		return b.b.Commit(pebble.Sync)
	}
	return b.b.Commit(pebble.NoSync)
}

type iterator struct {
	it    *pebble.Iterator
	first bool
	err   error
}

func (i *iterator) Next() bool {
	if i.first {
		i.first = false
		return i.it.First()
	}
	return i.it.Next()
}

func (i *iterator) Key() []byte   { return i.it.Key() }
func (i *iterator) Value() []byte { return i.it.Value() }
func (i *iterator) Error() error {
	if i.err != nil {
		return i.err
	}
	return i.it.Error()
}
func (i *iterator) Close() error { return i.it.Close() }

type snapshot struct {
	snap *pebble.Snapshot
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	v, closer, err := s.snap.Get(key)
	if err == pebble.ErrNotFound {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, nil
}

func (s *snapshot) Has(key []byte) (bool, error) {
	_, closer, err := s.snap.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (s *snapshot) NewIterator(start, end []byte) kv.Iterator {
	it, _ := s.snap.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: end})
	return &iterator{it: it, first: true}
}

func (s *snapshot) Release() {
	s.snap.Close()
}
