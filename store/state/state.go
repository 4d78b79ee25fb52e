// Package state implements the durable state store: the current UTxO set,
// every entity, and the chain cursor, backed by a pluggable kv.Backend.
package state

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/cardano-node/ledgercore/kv"
	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/ledgererr"
	"github.com/cardano-node/ledgercore/log"
	"github.com/cardano-node/ledgercore/metrics"
	"github.com/cardano-node/ledgercore/point"
)

// utxoCacheSize bounds the in-memory hot-UTxO cache. A block's inputs are
// frequently outputs a very recent ancestor block produced, so caching
// recently read-or-written UTxOs saves a backend round trip for exactly
// that case without needing to cache the whole working set.
const utxoCacheSize = 50000

// Logical keyspaces, multiplexed over a single kv.Backend by a one-byte
// prefix. The on-disk layout document calls these "state-cursor",
// "state-utxos" and "state-entities" as if they were separate keyspace
// files; a single-keyspace embedded backend achieves the same isolation
// with a prefix byte instead of a second file.
var (
	prefixCursor = []byte{0x00}
	prefixUTxo   = []byte{0x01}
	prefixEntity = []byte{0x02}
)

// Keyspaces is the name set SchemaHash is computed over.
var Keyspaces = []string{"state-cursor", "state-utxos", "state-entities"}

var (
	metricWriterCommits = metrics.NewRegisteredCounter("state/writer/commits", nil)
	metricBatchBytes    = metrics.NewRegisteredHistogram("state/writer/batch_size", nil, metrics.NewUniformSample(1028))
)

// Store is the durable state store.
type Store struct {
	backend kv.Backend
	log     log.Logger

	utxoCache *lru.Cache

	// wg counts Writer.Commit calls in progress so Close waits for them
	// before closing the backend.
	wg sync.WaitGroup
}

func withKey(prefix, key []byte) []byte {
	out := make([]byte, len(prefix)+len(key))
	copy(out, prefix)
	copy(out[len(prefix):], key)
	return out
}

func utxoKey(ref ledger.TxoRef) []byte {
	return withKey(prefixUTxo, ref.Bytes())
}

func entityKey(ns string, key []byte) []byte {
	return withKey(prefixEntity, kv.NamespaceKey(ns, key))
}

// Open wraps backend as a state Store, verifying (or initializing) its
// schema-hash.
func Open(backend kv.Backend) (*Store, error) {
	want := kv.SchemaHash(Keyspaces)
	got, ok := backend.SchemaHash()
	if !ok {
		if err := backend.SetSchemaHash(want); err != nil {
			return nil, ledgererr.StateError("open", err, false)
		}
	} else if got != want {
		return nil, ledgererr.ErrInvalidStoreVersion
	}
	cache, err := lru.New(utxoCacheSize)
	if err != nil {
		return nil, ledgererr.StateError("open/utxo_cache", err, false)
	}
	return &Store{backend: backend, log: log.Root().New("module", "state"), utxoCache: cache}, nil
}

// ReadCursor returns the chain cursor, or (Origin, false) if never
// written.
func (s *Store) ReadCursor() (point.ChainPoint, bool, error) {
	v, err := s.backend.Get(withKey(prefixCursor, nil))
	if err == kv.ErrNotFound {
		return point.Origin, false, nil
	}
	if err != nil {
		return point.Origin, false, ledgererr.StateError("read_cursor", err, true)
	}
	var raw [point.WireSize]byte
	copy(raw[:], v)
	return point.FromBytes(raw), true, nil
}

// ReadEntities performs a batch read of keys in namespace ns under a
// single snapshot, preserving request order. Missing keys come back as a
// nil slice at their index.
func (s *Store) ReadEntities(ns string, keys [][]byte) ([][]byte, error) {
	snap, err := s.backend.NewSnapshot()
	if err != nil {
		return nil, ledgererr.StateError("read_entities/snapshot", err, true)
	}
	defer snap.Release()

	out := make([][]byte, len(keys))
	for i, k := range keys {
		v, err := snap.Get(entityKey(ns, k))
		if err == kv.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, ledgererr.StateError("read_entities", err, true)
		}
		out[i] = v
	}
	return out, nil
}

// IterEntities returns a lazy iterator over every key in namespace ns
// within [start, end). It streams rather than collecting into memory,
// which matters at sweep time when a namespace can hold every account on
// the chain.
func (s *Store) IterEntities(ns string, start, end []byte) kv.Iterator {
	nsStart, nsEnd := kv.NamespaceRange(ns)
	lo := withKey(prefixEntity, nsStart)
	hi := withKey(prefixEntity, nsEnd)
	if start != nil {
		lo = entityKey(ns, start)
	}
	if end != nil {
		hi = entityKey(ns, end)
	}
	return &strippedIterator{inner: s.backend.NewIterator(lo, hi), stripLen: len(prefixEntity) + 8}
}

// strippedIterator presents keys with the prefix+namespace-hash stripped
// off, so callers see only the entity key they originally stored.
type strippedIterator struct {
	inner    kv.Iterator
	stripLen int
}

func (it *strippedIterator) Next() bool { return it.inner.Next() }
func (it *strippedIterator) Key() []byte {
	k := it.inner.Key()
	if len(k) <= it.stripLen {
		return nil
	}
	return k[it.stripLen:]
}
func (it *strippedIterator) Value() []byte { return it.inner.Value() }
func (it *strippedIterator) Error() error  { return it.inner.Error() }
func (it *strippedIterator) Close() error  { return it.inner.Close() }

// GetUTxOs performs a batch point-lookup of refs, consulting the hot-UTxO
// cache before falling back to a snapshot read of the backend. Missing
// refs are simply absent from the returned map.
func (s *Store) GetUTxOs(refs []ledger.TxoRef) (map[ledger.TxoRef]ledger.UTxO, error) {
	out := make(map[ledger.TxoRef]ledger.UTxO, len(refs))
	var misses []ledger.TxoRef
	for _, ref := range refs {
		if v, ok := s.utxoCache.Get(ref); ok {
			out[ref] = v.(ledger.UTxO)
			continue
		}
		misses = append(misses, ref)
	}
	if len(misses) == 0 {
		return out, nil
	}

	snap, err := s.backend.NewSnapshot()
	if err != nil {
		return nil, ledgererr.StateError("get_utxos/snapshot", err, true)
	}
	defer snap.Release()

	for _, ref := range misses {
		v, err := snap.Get(utxoKey(ref))
		if err == kv.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, ledgererr.StateError("get_utxos", err, true)
		}
		var u ledger.UTxO
		if err := ledger.Unmarshal(v, &u); err != nil {
			return nil, ledgererr.StateError("get_utxos/decode", err, false)
		}
		out[ref] = u
		s.utxoCache.Add(ref, u)
	}
	return out, nil
}

// Writer accumulates entity puts/deletes and UTxO deltas into one atomic
// commit. The cursor is updated within the same transaction as the rest of
// the batch.
type Writer struct {
	store *Store
	batch kv.Batch

	utxoPuts    map[ledger.TxoRef]ledger.UTxO
	utxoDeletes []ledger.TxoRef
}

// StartWriter returns a fresh Writer backed by a new batch.
func (s *Store) StartWriter() *Writer {
	return &Writer{store: s, batch: s.backend.NewBatch()}
}

func (w *Writer) PutEntity(ns string, key, value []byte) error {
	return w.batch.Put(entityKey(ns, key), value)
}

func (w *Writer) DeleteEntity(ns string, key []byte) error {
	return w.batch.Delete(entityKey(ns, key))
}

func (w *Writer) PutUTxO(ref ledger.TxoRef, value ledger.UTxO) error {
	v, err := ledger.Marshal(value)
	if err != nil {
		return err
	}
	if err := w.batch.Put(utxoKey(ref), v); err != nil {
		return err
	}
	if w.utxoPuts == nil {
		w.utxoPuts = map[ledger.TxoRef]ledger.UTxO{}
	}
	w.utxoPuts[ref] = value
	return nil
}

func (w *Writer) DeleteUTxO(ref ledger.TxoRef) error {
	if err := w.batch.Delete(utxoKey(ref)); err != nil {
		return err
	}
	w.utxoDeletes = append(w.utxoDeletes, ref)
	return nil
}

// SetCursor stages the new chain cursor for this batch.
func (w *Writer) SetCursor(p point.ChainPoint) error {
	b := p.Bytes()
	return w.batch.Put(withKey(prefixCursor, nil), b[:])
}

// Commit writes the batch atomically. sync requests flush_on_commit
// durability (fsync); the buffered mode is used for bulk import and live
// follow, with a periodic persist handled by the caller.
func (w *Writer) Commit(sync bool) error {
	w.store.wg.Add(1)
	defer w.store.wg.Done()
	if err := w.batch.Commit(sync); err != nil {
		return ledgererr.StateError("commit", err, false)
	}
	for ref, u := range w.utxoPuts {
		w.store.utxoCache.Add(ref, u)
	}
	for _, ref := range w.utxoDeletes {
		w.store.utxoCache.Remove(ref)
	}
	metricWriterCommits.Inc(1)
	metricBatchBytes.Update(int64(w.batch.Len()))
	return nil
}

// Close waits for any Commit in progress to finish before closing the
// backend. Commit runs synchronously; there is no background flush worker.
func (s *Store) Close() error {
	s.wg.Wait()
	if err := s.backend.Close(); err != nil {
		return ledgererr.StateError("close", err, false)
	}
	return nil
}
