// Package leveldb adapts syndtr/goleveldb to the kv.Backend interface. It
// backs the "redb" storage.state.backend option.
package leveldb

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/cardano-node/ledgercore/kv"
)

var schemaHashKey = []byte("\x00schema-hash")

// Database wraps a *leveldb.DB.
type Database struct {
	db *leveldb.DB
}

// Open creates or opens a goleveldb database at path. cacheMB sizes the
// block cache.
func Open(path string, cacheMB int) (*Database, error) {
	var o opt.Options
	if cacheMB > 0 {
		o.BlockCacheCapacity = cacheMB * opt.MiB
	}
	db, err := leveldb.OpenFile(path, &o)
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	v, err := d.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, kv.ErrNotFound
	}
	return v, err
}

func (d *Database) Has(key []byte) (bool, error) {
	return d.db.Has(key, nil)
}

func (d *Database) NewBatch() kv.Batch {
	return &batch{db: d.db, b: new(leveldb.Batch)}
}

func (d *Database) NewIterator(start, end []byte) kv.Iterator {
	it := d.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	return &iterator{it: it}
}

func (d *Database) NewSnapshot() (kv.Snapshot, error) {
	snap, err := d.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &snapshot{snap: snap}, nil
}

func (d *Database) SchemaHash() (string, bool) {
	v, err := d.Get(schemaHashKey)
	if err != nil {
		return "", false
	}
	return string(v), true
}

func (d *Database) SetSchemaHash(hash string) error {
	return d.db.Put(schemaHashKey, []byte(hash), &opt.WriteOptions{Sync: true})
}

func (d *Database) Close() error {
	return d.db.Close()
}

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) Len() int { return b.b.Len() }
func (b *batch) Reset()   { b.b.Reset() }

func (b *batch) Commit(sync bool) error {
	return b.db.Write(b.b, &opt.WriteOptions{Sync: sync})
}

type iterator struct {
	it iteratorLike
}

// iteratorLike mirrors the subset of leveldb/iterator.Iterator this package
// needs, so the wrapper type is documented at its actual call surface.
type iteratorLike interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

func (i *iterator) Next() bool    { return i.it.Next() }
func (i *iterator) Key() []byte   { return append([]byte(nil), i.it.Key()...) }
func (i *iterator) Value() []byte { return append([]byte(nil), i.it.Value()...) }
func (i *iterator) Error() error  { return i.it.Error() }
func (i *iterator) Close() error  { i.it.Release(); return nil }

type snapshot struct {
	snap *leveldb.Snapshot
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	v, err := s.snap.Get(key, nil)
	if err == errors.ErrNotFound {
		return nil, kv.ErrNotFound
	}
	return v, err
}

func (s *snapshot) Has(key []byte) (bool, error) {
	return s.snap.Has(key, nil)
}

func (s *snapshot) NewIterator(start, end []byte) kv.Iterator {
	it := s.snap.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	return &iterator{it: it}
}

func (s *snapshot) Release() {
	s.snap.Release()
}
