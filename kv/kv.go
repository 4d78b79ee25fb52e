// Package kv defines the pluggable embedded key-value abstraction shared by
// the state, archive and WAL stores. A single logical keyspace is
// implemented by hashing a short namespace tag into the key prefix (see
// NamespaceKey), so that a backend with one physical keyspace can still
// offer per-namespace contiguous ranges.
package kv

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Backend is the storage-engine-independent surface every embedded KV
// implementation (pebble, goleveldb) must offer. Readers observe a
// consistent point-in-time snapshot and never block writers; at most one
// writer batch is committed at a time, enforced by the backend.
type Backend interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)

	NewBatch() Batch
	NewIterator(start, end []byte) Iterator
	NewSnapshot() (Snapshot, error)

	// SchemaHash returns the schema-hash recorded when the database was
	// created, or ("", false) for a freshly created empty database.
	SchemaHash() (string, bool)
	// SetSchemaHash records the schema-hash for a freshly created
	// database. It must only be called once, before any other write.
	SetSchemaHash(hash string) error

	Close() error
}

// Snapshot is a consistent, isolated read view taken at a point in time.
// Obtaining one never blocks concurrent writers.
type Snapshot interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	NewIterator(start, end []byte) Iterator
	Release()
}

// Batch accumulates puts and deletes for a single atomic commit.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	// Commit writes the batch atomically. sync requests a durability
	// barrier (fsync) before returning; buffered batches pass sync=false.
	Commit(sync bool) error
	// Reset clears the batch for reuse without a new allocation.
	Reset()
	Len() int
}

// Iterator walks a half-open byte range [start, end) in key order. A nil
// end means "no upper bound". Must be released with Close after use, and
// must stream rather than buffer — callers rely on this for sweep-time
// range scans over large namespaces.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "kv: not found" }

// NamespaceHash returns the stable 8-byte prefix used to keep a namespace's
// entity keys in a contiguous range within the single `entities` keyspace.
// xxhash (XXH64) is used for size, not collision-resistance: namespace tags
// are a small fixed set chosen at compile time, not attacker-controlled.
func NamespaceHash(namespace string) uint64 {
	return xxhash.Sum64String(namespace)
}

// NamespaceKey builds the physical key for (namespace, entityKey):
// ns_hash_u64_be ++ entity_key_bytes.
func NamespaceKey(namespace string, entityKey []byte) []byte {
	out := make([]byte, 8+len(entityKey))
	binary.BigEndian.PutUint64(out[:8], NamespaceHash(namespace))
	copy(out[8:], entityKey)
	return out
}

// NamespaceRange returns the [start, end) byte range that contains every
// key in namespace, suitable for passing to NewIterator.
func NamespaceRange(namespace string) (start, end []byte) {
	h := NamespaceHash(namespace)
	start = make([]byte, 8)
	binary.BigEndian.PutUint64(start, h)
	end = make([]byte, 8)
	binary.BigEndian.PutUint64(end, h+1)
	return start, end
}
