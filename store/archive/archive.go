// Package archive implements the append-only archive store: raw block
// bodies in fixed-capacity segment files plus exact and approximate
// secondary indexes for hash/number/tx/address/asset/datum/metadata
// lookups.
package archive

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/cardano-node/ledgercore/kv"
	"github.com/cardano-node/ledgercore/ledgererr"
	"github.com/cardano-node/ledgercore/log"
	"github.com/cardano-node/ledgercore/point"
)

// Index key prefixes within the single index kv.Backend.
var (
	prefixLocation    = []byte{0x00} // slot_be(8) -> Location.Bytes()
	prefixBlockHash   = []byte{0x01} // block_hash(32) -> slot_be(8)
	prefixBlockNumber = []byte{0x02} // number_be(8) -> slot_be(8)
	prefixTxHash      = []byte{0x03} // tx_hash(32) -> slot_be(8)
	prefixApprox      = []byte{0x04} // xxh64(payload)_be(8) ++ slot_be(8) -> empty
	prefixTip         = []byte{0x05} // singleton: slot_be(8)
)

// Keyspaces is the name set SchemaHash is computed over.
var Keyspaces = []string{"archive-segments", "archive-index"}

// Tags is the set of index entries a block contributes, beyond its own
// hash/number/slot.
type Tags struct {
	BlockHash   [32]byte
	BlockNumber uint64
	TxHashes    [][32]byte
	// Approximate carries every other payload that should be
	// prefix-scannable: addresses, payment/stake credentials, asset
	// policy+name, datum hashes, metadata labels. Hashed with XXH64
	// (cespare/xxhash), not XXH3, for key-size reduction only; membership
	// must be re-checked against the
	// block body by the caller.
	Approximate [][]byte
}

// Store is the archive store.
type Store struct {
	segDir string
	index  kv.Backend
	log    log.Logger

	mu       sync.Mutex
	segments map[uint32]*segmentFile
}

// Open creates or opens an archive store rooted at segDir for block
// bodies, using index as the backend for its secondary indexes.
func Open(segDir string, index kv.Backend) (*Store, error) {
	want := kv.SchemaHash(Keyspaces)
	got, ok := index.SchemaHash()
	if !ok {
		if err := index.SetSchemaHash(want); err != nil {
			return nil, ledgererr.ArchiveError("open", err, false)
		}
	} else if got != want {
		return nil, ledgererr.ErrInvalidStoreVersion
	}
	if err := os.MkdirAll(segDir, 0o755); err != nil {
		return nil, ledgererr.ArchiveError("open/mkdir", err, false)
	}
	return &Store{
		segDir:   segDir,
		index:    index,
		log:      log.Root().New("module", "archive"),
		segments: make(map[uint32]*segmentFile),
	}, nil
}

func (s *Store) segmentFor(id uint32) (*segmentFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seg, ok := s.segments[id]; ok {
		return seg, nil
	}
	seg, err := openSegment(s.segDir, id)
	if err != nil {
		return nil, err
	}
	s.segments[id] = seg
	return seg, nil
}

func be64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// Apply appends raw's block body to the segment for p.Slot(), then writes
// every index entry from tags in a single atomic batch. One fsync is
// performed per touched segment file at commit.
func (s *Store) Apply(p point.ChainPoint, raw []byte, tags Tags) error {
	segID := SegmentFor(p.Slot())
	seg, err := s.segmentFor(segID)
	if err != nil {
		return ledgererr.ArchiveError("apply/open_segment", err, true)
	}
	offset, err := seg.append(raw)
	if err != nil {
		return ledgererr.ArchiveError("apply/append", err, false)
	}
	if err := seg.sync(); err != nil {
		return ledgererr.ArchiveError("apply/fsync", err, true)
	}

	loc := Location{SegmentID: segID, Offset: offset, Length: uint32(len(raw))}
	locBytes := loc.Bytes()

	b := s.index.NewBatch()
	b.Put(withPrefix(prefixLocation, be64(p.Slot())), locBytes[:])
	b.Put(withPrefix(prefixBlockHash, tags.BlockHash[:]), be64(p.Slot()))
	b.Put(withPrefix(prefixBlockNumber, be64(tags.BlockNumber)), be64(p.Slot()))
	for _, tx := range tags.TxHashes {
		b.Put(withPrefix(prefixTxHash, tx[:]), be64(p.Slot()))
	}
	for _, payload := range tags.Approximate {
		h := xxhash.Sum64(payload)
		key := append(append([]byte{}, prefixApprox...), be64(h)...)
		key = append(key, be64(p.Slot())...)
		b.Put(key, nil)
	}
	if tip, ok, _ := s.tipSlot(); !ok || p.Slot() > tip {
		b.Put(append([]byte{}, prefixTip...), be64(p.Slot()))
	}
	if err := b.Commit(true); err != nil {
		return ledgererr.ArchiveError("apply/index_commit", err, false)
	}
	return nil
}

func withPrefix(prefix, key []byte) []byte {
	out := make([]byte, len(prefix)+len(key))
	copy(out, prefix)
	copy(out[len(prefix):], key)
	return out
}

// Undo removes every index entry tags contributed and truncates the
// segment at the offset the block was recorded at. Truncating to zero
// removes the segment file.
func (s *Store) Undo(p point.ChainPoint, tags Tags) error {
	locKey := withPrefix(prefixLocation, be64(p.Slot()))
	raw, err := s.index.Get(locKey)
	if err == kv.ErrNotFound {
		return ledgererr.NewBrokenInvariant("archive/undo", "no location recorded for slot %d", p.Slot())
	}
	if err != nil {
		return ledgererr.ArchiveError("undo/get_location", err, true)
	}
	var locBytes [16]byte
	copy(locBytes[:], raw)
	loc := LocationFromBytes(locBytes)

	seg, err := s.segmentFor(loc.SegmentID)
	if err != nil {
		return ledgererr.ArchiveError("undo/open_segment", err, true)
	}
	if err := seg.truncateTo(int64(loc.Offset), s.segDir, loc.SegmentID); err != nil {
		return ledgererr.ArchiveError("undo/truncate", err, false)
	}

	b := s.index.NewBatch()
	b.Delete(locKey)
	b.Delete(withPrefix(prefixBlockHash, tags.BlockHash[:]))
	b.Delete(withPrefix(prefixBlockNumber, be64(tags.BlockNumber)))
	for _, tx := range tags.TxHashes {
		b.Delete(withPrefix(prefixTxHash, tx[:]))
	}
	for _, payload := range tags.Approximate {
		h := xxhash.Sum64(payload)
		key := append(append([]byte{}, prefixApprox...), be64(h)...)
		key = append(key, be64(p.Slot())...)
		b.Delete(key)
	}
	if err := b.Commit(true); err != nil {
		return ledgererr.ArchiveError("undo/index_commit", err, false)
	}
	return nil
}

// GetBySlot returns the raw block body stored at slot, if any.
func (s *Store) GetBySlot(slot uint64) ([]byte, bool, error) {
	raw, err := s.index.Get(withPrefix(prefixLocation, be64(slot)))
	if err == kv.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ledgererr.ArchiveError("get_by_slot", err, true)
	}
	var locBytes [16]byte
	copy(locBytes[:], raw)
	loc := LocationFromBytes(locBytes)
	seg, err := s.segmentFor(loc.SegmentID)
	if err != nil {
		return nil, false, ledgererr.ArchiveError("get_by_slot/open_segment", err, true)
	}
	body, err := seg.readAt(loc.Offset, loc.Length)
	if err != nil {
		return nil, false, ledgererr.ArchiveError("get_by_slot/read", err, true)
	}
	return body, true, nil
}

// SlotByBlockHash resolves the exact block_hash -> slot index.
func (s *Store) SlotByBlockHash(hash [32]byte) (uint64, bool, error) {
	return s.getSlotIndex(withPrefix(prefixBlockHash, hash[:]))
}

// SlotByBlockNumber resolves the exact block_number -> slot index.
func (s *Store) SlotByBlockNumber(number uint64) (uint64, bool, error) {
	return s.getSlotIndex(withPrefix(prefixBlockNumber, be64(number)))
}

// SlotByTxHash resolves the exact tx_hash -> slot index.
func (s *Store) SlotByTxHash(hash [32]byte) (uint64, bool, error) {
	return s.getSlotIndex(withPrefix(prefixTxHash, hash[:]))
}

func (s *Store) getSlotIndex(key []byte) (uint64, bool, error) {
	v, err := s.index.Get(key)
	if err == kv.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, ledgererr.ArchiveError("slot_index", err, true)
	}
	return binary.BigEndian.Uint64(v), true, nil
}

// ApproximateSlots returns every slot whose approximate index for payload
// falls within [fromSlot, toSlot]. Because the key is a hash, a match is
// not proof of membership: callers must re-check against the block body
// before treating it as authoritative.
func (s *Store) ApproximateSlots(payload []byte, fromSlot, toSlot uint64) ([]uint64, error) {
	h := xxhash.Sum64(payload)
	prefix := append(append([]byte{}, prefixApprox...), be64(h)...)
	end := append([]byte{}, prefix...)
	end[len(end)-1]++
	it := s.index.NewIterator(prefix, end)
	defer it.Close()
	var out []uint64
	for it.Next() {
		k := it.Key()
		if len(k) < len(prefix)+8 {
			continue
		}
		slot := binary.BigEndian.Uint64(k[len(prefix):])
		if slot >= fromSlot && slot <= toSlot {
			out = append(out, slot)
		}
	}
	return out, it.Error()
}

func (s *Store) tipSlot() (uint64, bool, error) {
	v, err := s.index.Get(append([]byte{}, prefixTip...))
	if err == kv.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return binary.BigEndian.Uint64(v), true, nil
}

// GetTip returns the highest stored slot, O(1) via the tip marker updated
// on every Apply.
func (s *Store) GetTip() (uint64, bool, error) {
	slot, ok, err := s.tipSlot()
	if err != nil {
		return 0, false, ledgererr.ArchiveError("get_tip", err, true)
	}
	return slot, ok, nil
}

// SlotRange returns every slot in [from, to) that has a stored block, in
// ascending order. It scans the location index, which is keyed by slot.
func (s *Store) SlotRange(from uint64, to *uint64) ([]uint64, error) {
	start := withPrefix(prefixLocation, be64(from))
	var end []byte
	if to != nil {
		end = withPrefix(prefixLocation, be64(*to))
	} else {
		end = append([]byte{}, prefixLocation...)
		end[len(end)-1]++
	}
	it := s.index.NewIterator(start, end)
	defer it.Close()
	var out []uint64
	for it.Next() {
		k := it.Key()
		out = append(out, binary.BigEndian.Uint64(k[len(prefixLocation):]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, it.Error()
}

// PruneHistory deletes every segment whose id is strictly less than the
// segment containing (tip.slot - maxSlots), bounded to maxPrune segments
// removed per call. Candidates are found by scanning segDir on disk, not
// just the in-memory segments map: that map is populated lazily by
// segmentFor on access, so after a process restart it starts empty and
// would otherwise leave every untouched segment file unprunable.
func (s *Store) PruneHistory(maxSlots uint64, maxPrune int) (int, error) {
	tip, ok, err := s.GetTip()
	if err != nil || !ok {
		return 0, err
	}
	if tip < maxSlots {
		return 0, nil
	}
	threshold := SegmentFor(tip - maxSlots)

	ids, err := segmentIDsOnDisk(s.segDir)
	if err != nil {
		return 0, ledgererr.ArchiveError("prune/scan_dir", err, false)
	}
	var toPrune []uint32
	for _, id := range ids {
		if id < threshold {
			toPrune = append(toPrune, id)
		}
	}
	sort.Slice(toPrune, func(i, j int) bool { return toPrune[i] < toPrune[j] })

	pruned := 0
	for _, id := range toPrune {
		if pruned >= maxPrune {
			break
		}
		if err := s.pruneSegment(id); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

// segmentIDsOnDisk lists every segment id with a ".segment" file in dir,
// regardless of whether this process has opened it via segmentFor.
func segmentIDsOnDisk(dir string) ([]uint32, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ids []uint32
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var id uint32
		if _, err := fmt.Sscanf(e.Name(), "%06d.segment", &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) pruneSegment(id uint32) error {
	seg, err := s.segmentFor(id)
	if err != nil {
		return ledgererr.ArchiveError("prune/open_segment", err, false)
	}
	s.mu.Lock()
	delete(s.segments, id)
	s.mu.Unlock()
	if err := seg.truncateTo(0, s.segDir, id); err != nil {
		return ledgererr.ArchiveError("prune/truncate", err, false)
	}

	lo := be64(uint64(id) * SlotsPerSegment)
	hi := be64(uint64(id+1) * SlotsPerSegment)
	it := s.index.NewIterator(withPrefix(prefixLocation, lo), withPrefix(prefixLocation, hi))
	defer it.Close()
	b := s.index.NewBatch()
	for it.Next() {
		b.Delete(append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return ledgererr.ArchiveError("prune/scan", err, true)
	}
	return b.Commit(true)
}

// Close closes every open segment file and the index backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seg := range s.segments {
		seg.close()
	}
	return s.index.Close()
}
