// Package wal implements the write-ahead log: a rollback-safe record of
// recent block deltas that bridges the immutable archive and the live
// tip, and the source of truth for crash recovery and chain-follower
// clients.
package wal

import (
	"bytes"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/cardano-node/ledgercore/event"
	"github.com/cardano-node/ledgercore/kv"
	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/ledgererr"
	"github.com/cardano-node/ledgercore/log"
	"github.com/cardano-node/ledgercore/point"
)

// Keyspaces is the name set SchemaHash is computed over.
var Keyspaces = []string{"wal-log", "wal-index"}

var (
	prefixEntry = []byte{0x00} // LogKey(40) -> entry blob
	prefixSeq   = []byte{0x01} // seq_be(8) -> LogKey(40)
	prefixPoint = []byte{0x02} // point_bytes(40) -> seq_be(8)
	prefixMeta  = []byte{0x03} // singleton keys
)

var (
	metaLastSeq = append(append([]byte{}, prefixMeta...), []byte("last_seq")...)
	metaAnchor  = append(append([]byte{}, prefixMeta...), []byte("anchor_point")...)
)

// Entry is one record in the write-ahead log: the chain point it advances
// to, the raw block bytes, the entity deltas computed for it, and the
// input-UTxO map the deltas were computed against (needed to replay the
// block's fee/balance checks without re-resolving inputs from the state
// store).
type Entry struct {
	Seq        uint64
	Point      point.ChainPoint
	RawBlock   []byte
	Deltas     []ledger.Delta
	InputUTxOs map[ledger.TxoRef]ledger.UTxO
}

// TipChange is sent on the tip-change feed whenever AppendEntries commits.
type TipChange struct {
	Seq   uint64
	Point point.ChainPoint
}

// deltaRecord is the wire envelope for a single ledger.Delta. Exactly one
// of Entity or UTxo is set; Kind disambiguates so decode doesn't need a
// type registry.
type deltaRecord struct {
	Kind   uint8               `cbor:"0,keyasint"`
	Entity *ledger.EntityDelta `cbor:"1,keyasint,omitempty"`
	UTxo   *ledger.UTxODelta   `cbor:"2,keyasint,omitempty"`
}

const (
	deltaKindEntity uint8 = 0
	deltaKindUTxo   uint8 = 1
)

type inputPair struct {
	RefBytes []byte      `cbor:"0,keyasint"`
	Value    ledger.UTxO `cbor:"1,keyasint"`
}

type wireEntry struct {
	Seq       uint64        `cbor:"0,keyasint"`
	PointBz   []byte        `cbor:"1,keyasint"`
	RawBlock  []byte        `cbor:"2,keyasint"`
	Deltas    []deltaRecord `cbor:"3,keyasint"`
	InputRefs []inputPair   `cbor:"4,keyasint"`
}

func toWire(e Entry) (wireEntry, error) {
	pb := e.Point.Bytes()
	records := make([]deltaRecord, len(e.Deltas))
	for i, d := range e.Deltas {
		switch v := d.(type) {
		case *ledger.EntityDelta:
			records[i] = deltaRecord{Kind: deltaKindEntity, Entity: v}
		case *ledger.UTxODelta:
			records[i] = deltaRecord{Kind: deltaKindUTxo, UTxo: v}
		default:
			return wireEntry{}, ledgererr.NewBrokenInvariant("wal/encode", "unknown delta type %T", d)
		}
	}
	refs := make([]ledger.TxoRef, 0, len(e.InputUTxOs))
	for ref := range e.InputUTxOs {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return bytes.Compare(refs[i].Bytes(), refs[j].Bytes()) < 0 })
	pairs := make([]inputPair, len(refs))
	for i, ref := range refs {
		pairs[i] = inputPair{RefBytes: ref.Bytes(), Value: e.InputUTxOs[ref]}
	}
	return wireEntry{
		Seq:       e.Seq,
		PointBz:   pb[:],
		RawBlock:  e.RawBlock,
		Deltas:    records,
		InputRefs: pairs,
	}, nil
}

func fromWire(w wireEntry) (Entry, error) {
	var pb [point.WireSize]byte
	copy(pb[:], w.PointBz)
	deltas := make([]ledger.Delta, len(w.Deltas))
	for i, r := range w.Deltas {
		switch r.Kind {
		case deltaKindEntity:
			deltas[i] = r.Entity
		case deltaKindUTxo:
			deltas[i] = r.UTxo
		default:
			return Entry{}, ledgererr.NewBrokenInvariant("wal/decode", "unknown delta kind %d", r.Kind)
		}
	}
	inputs := make(map[ledger.TxoRef]ledger.UTxO, len(w.InputRefs))
	for _, p := range w.InputRefs {
		var ref ledger.TxoRef
		copy(ref.TxHash[:], p.RefBytes[:32])
		ref.Index = binary.BigEndian.Uint32(p.RefBytes[32:36])
		inputs[ref] = p.Value
	}
	return Entry{
		Seq:        w.Seq,
		Point:      point.FromBytes(pb),
		RawBlock:   w.RawBlock,
		Deltas:     deltas,
		InputUTxOs: inputs,
	}, nil
}

// logKey builds the 40-byte physical key an entry's blob is stored under:
// slot:u64_be || entity_key:32. Whole-block entries aren't keyed to a
// single entity, so the entity_key half is zero-padded.
func logKey(slot uint64) []byte {
	out := make([]byte, 40)
	binary.BigEndian.PutUint64(out[:8], slot)
	return out
}

func be64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func withPrefix(prefix, key []byte) []byte {
	out := make([]byte, len(prefix)+len(key))
	copy(out, prefix)
	copy(out[len(prefix):], key)
	return out
}

// seqRangeEnd returns the exclusive upper bound of the whole prefixSeq
// keyspace, so a scan started at any prefixSeq-prefixed key never spills
// into the point or meta keyspaces that follow it.
func seqRangeEnd() []byte {
	end := append([]byte{}, prefixSeq...)
	end[len(end)-1]++
	return end
}

// Store is the write-ahead log.
type Store struct {
	backend kv.Backend
	log     log.Logger

	mu       sync.Mutex
	lastSeq  uint64
	hasEntry bool
	anchor   point.ChainPoint

	tipFeed event.FeedOf[TipChange]
}

// Open opens or creates the write-ahead log on backend.
func Open(backend kv.Backend) (*Store, error) {
	want := kv.SchemaHash(Keyspaces)
	got, ok := backend.SchemaHash()
	if !ok {
		if err := backend.SetSchemaHash(want); err != nil {
			return nil, ledgererr.WalError("open", err, false)
		}
	} else if got != want {
		return nil, ledgererr.ErrInvalidStoreVersion
	}

	s := &Store{backend: backend, log: log.Root().New("module", "wal")}

	if raw, err := backend.Get(metaLastSeq); err == nil {
		s.lastSeq = binary.BigEndian.Uint64(raw)
		s.hasEntry = true
	} else if err != kv.ErrNotFound {
		return nil, ledgererr.WalError("open/last_seq", err, true)
	}
	if raw, err := backend.Get(metaAnchor); err == nil {
		var pb [point.WireSize]byte
		copy(pb[:], raw)
		s.anchor = point.FromBytes(pb)
	} else if err != kv.ErrNotFound {
		return nil, ledgererr.WalError("open/anchor", err, true)
	}
	return s, nil
}

// Tip returns the log's current tip point: the point of the last appended
// entry, or the anchor point if the log has no entries.
func (s *Store) Tip() point.ChainPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tipLocked()
}

func (s *Store) tipLocked() point.ChainPoint {
	if !s.hasEntry {
		return s.anchor
	}
	lk, err := s.backend.Get(withPrefix(prefixSeq, be64(s.lastSeq)))
	if err != nil {
		return s.anchor
	}
	blob, err := s.backend.Get(withPrefix(prefixEntry, lk))
	if err != nil {
		return s.anchor
	}
	e, err := s.readEntry(blob)
	if err != nil {
		return s.anchor
	}
	return e.Point
}

// AppendEntries atomically appends entries at the tail. Every entry's Seq
// must strictly increase over the previous one (and over the log's
// current tail); violation fails the whole call with
// ledgererr.ErrNonMonotonicAppend and appends nothing.
func (s *Store) AppendEntries(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.lastSeq
	have := s.hasEntry
	for _, e := range entries {
		if have && e.Seq <= last {
			return ledgererr.ErrNonMonotonicAppend
		}
		if !have {
			have = true
		}
		last = e.Seq
	}

	b := s.backend.NewBatch()
	var tipSeq uint64
	var tipPoint point.ChainPoint
	for _, e := range entries {
		w, err := toWire(e)
		if err != nil {
			return ledgererr.Wrap("wal/append", err)
		}
		blob, err := ledger.Marshal(w)
		if err != nil {
			return ledgererr.WalError("append/marshal", err, false)
		}
		lk := logKey(e.Point.Slot())
		b.Put(withPrefix(prefixEntry, lk), blob)
		b.Put(withPrefix(prefixSeq, be64(e.Seq)), lk)
		pb := e.Point.Bytes()
		b.Put(withPrefix(prefixPoint, pb[:]), be64(e.Seq))
		tipSeq = e.Seq
		tipPoint = e.Point
	}
	b.Put(metaLastSeq, be64(last))
	if err := b.Commit(true); err != nil {
		return ledgererr.WalError("append/commit", err, false)
	}

	s.lastSeq = last
	s.hasEntry = true
	s.tipFeed.Send(TipChange{Seq: tipSeq, Point: tipPoint})
	return nil
}

func (s *Store) readEntry(blob []byte) (Entry, error) {
	var w wireEntry
	if err := ledger.Unmarshal(blob, &w); err != nil {
		return Entry{}, ledgererr.WalError("decode", err, false)
	}
	return fromWire(w)
}

// LocatePoint looks up the log sequence an entry with point p was
// appended at.
func (s *Store) LocatePoint(p point.ChainPoint) (uint64, bool, error) {
	pb := p.Bytes()
	raw, err := s.backend.Get(withPrefix(prefixPoint, pb[:]))
	if err == kv.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, ledgererr.WalError("locate_point", err, true)
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

// FindIntersect walks candidates in order and returns the first one
// present in the log.
func (s *Store) FindIntersect(candidates []point.ChainPoint) (uint64, point.ChainPoint, bool, error) {
	for _, c := range candidates {
		seq, ok, err := s.LocatePoint(c)
		if err != nil {
			return 0, point.ChainPoint{}, false, err
		}
		if ok {
			return seq, c, true, nil
		}
	}
	return 0, point.ChainPoint{}, false, nil
}

// Cursor iterates log entries in ascending seq order.
type Cursor struct {
	s   *Store
	it  kv.Iterator
	cur Entry
	err error
}

// Next advances the cursor. It returns false at end of range or on error;
// callers should check Error after a false return.
func (c *Cursor) Next() bool {
	if !c.it.Next() {
		c.err = c.it.Error()
		return false
	}
	lk := c.it.Value()
	raw, err := c.s.backend.Get(withPrefix(prefixEntry, lk))
	if err != nil {
		c.err = err
		return false
	}
	e, err := c.s.readEntry(raw)
	if err != nil {
		c.err = err
		return false
	}
	c.cur = e
	return true
}

// Entry returns the entry the cursor currently points at.
func (c *Cursor) Entry() Entry { return c.cur }

// Error returns the first error Next encountered, if any.
func (c *Cursor) Error() error { return c.err }

// Close releases the cursor's underlying iterator.
func (c *Cursor) Close() error { return c.it.Close() }

// CrawlFrom returns a forward cursor starting at seq (inclusive).
func (s *Store) CrawlFrom(seq uint64) *Cursor {
	it := s.backend.NewIterator(withPrefix(prefixSeq, be64(seq)), seqRangeEnd())
	return &Cursor{s: s, it: it}
}

// CrawlRange returns a cursor bounded to [seqA, seqB).
func (s *Store) CrawlRange(seqA, seqB uint64) *Cursor {
	it := s.backend.NewIterator(withPrefix(prefixSeq, be64(seqA)), withPrefix(prefixSeq, be64(seqB)))
	return &Cursor{s: s, it: it}
}

// Subscribe registers ch to receive a TipChange on every future commit.
func (s *Store) Subscribe(ch chan<- TipChange) event.Subscription {
	return s.tipFeed.Subscribe(ch)
}

// ResetTo truncates the log to and including the entry at point p;
// subsequent appends resume from there. If p is Origin, the entire log is
// wiped and the anchor is reset to Origin.
func (s *Store) ResetTo(p point.ChainPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IsOrigin() {
		return s.wipeLocked(point.Origin)
	}

	seq, ok, err := s.LocatePoint(p)
	if err != nil {
		return err
	}
	if !ok {
		return s.wipeLocked(p)
	}

	b := s.backend.NewBatch()
	it := s.backend.NewIterator(withPrefix(prefixSeq, be64(seq+1)), seqRangeEnd())
	for it.Next() {
		seqKey := append([]byte(nil), it.Key()...)
		lk := it.Value()
		raw, err := s.backend.Get(withPrefix(prefixEntry, lk))
		if err == nil {
			e, derr := s.readEntry(raw)
			if derr == nil {
				pb := e.Point.Bytes()
				b.Delete(withPrefix(prefixPoint, pb[:]))
			}
		}
		b.Delete(withPrefix(prefixEntry, lk))
		b.Delete(seqKey)
	}
	if err := it.Error(); err != nil {
		it.Close()
		return ledgererr.WalError("reset_to/scan", err, true)
	}
	it.Close()
	b.Put(metaLastSeq, be64(seq))
	if err := b.Commit(true); err != nil {
		return ledgererr.WalError("reset_to/commit", err, false)
	}
	s.lastSeq = seq
	s.hasEntry = true
	return nil
}

// wipeLocked deletes every entry/seq/point row and sets the anchor to
// anchor. Callers must hold s.mu.
func (s *Store) wipeLocked(anchor point.ChainPoint) error {
	b := s.backend.NewBatch()
	it := s.backend.NewIterator(prefixSeq, seqRangeEnd())
	for it.Next() {
		seqKey := append([]byte(nil), it.Key()...)
		lk := it.Value()
		raw, err := s.backend.Get(withPrefix(prefixEntry, lk))
		if err == nil {
			e, derr := s.readEntry(raw)
			if derr == nil {
				pb := e.Point.Bytes()
				b.Delete(withPrefix(prefixPoint, pb[:]))
			}
		}
		b.Delete(withPrefix(prefixEntry, lk))
		b.Delete(seqKey)
	}
	if err := it.Error(); err != nil {
		it.Close()
		return ledgererr.WalError("wipe/scan", err, true)
	}
	it.Close()
	b.Delete(metaLastSeq)
	ab := anchor.Bytes()
	b.Put(metaAnchor, ab[:])
	if err := b.Commit(true); err != nil {
		return ledgererr.WalError("wipe/commit", err, false)
	}
	s.lastSeq = 0
	s.hasEntry = false
	s.anchor = anchor
	return nil
}

// PruneHistory deletes entries older than tip.slot - maxSlots, bounded to
// maxPrune entries removed per call.
func (s *Store) PruneHistory(maxSlots uint64, maxPrune int) (int, error) {
	tip := s.Tip()
	if tip.Slot() < maxSlots {
		return 0, nil
	}
	threshold := tip.Slot() - maxSlots

	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.backend.NewIterator(prefixSeq, seqRangeEnd())
	defer it.Close()

	b := s.backend.NewBatch()
	pruned := 0
	for pruned < maxPrune && it.Next() {
		lk := it.Value()
		slot := binary.BigEndian.Uint64(lk[:8])
		if slot >= threshold {
			break
		}
		seqKey := append([]byte(nil), it.Key()...)
		raw, err := s.backend.Get(withPrefix(prefixEntry, lk))
		if err == nil {
			e, derr := s.readEntry(raw)
			if derr == nil {
				pb := e.Point.Bytes()
				b.Delete(withPrefix(prefixPoint, pb[:]))
			}
		}
		b.Delete(withPrefix(prefixEntry, lk))
		b.Delete(seqKey)
		pruned++
	}
	if err := it.Error(); err != nil {
		return pruned, ledgererr.WalError("prune/scan", err, true)
	}
	if pruned == 0 {
		return 0, nil
	}
	if err := b.Commit(true); err != nil {
		return pruned, ledgererr.WalError("prune/commit", err, false)
	}
	return pruned, nil
}

// EnsureInSyncWithState reconciles the log against the state store's
// cursor on startup, per the recovery protocol: the state is the truth
// because archive and state are committed before the WAL prunes its
// window.
func (s *Store) EnsureInSyncWithState(stateCursor point.ChainPoint, stateEmpty bool) error {
	if stateEmpty {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.wipeLocked(point.Origin)
	}
	if s.Tip().Equal(stateCursor) {
		return nil
	}
	return s.ResetTo(stateCursor)
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
