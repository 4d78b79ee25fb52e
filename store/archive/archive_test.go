package archive

import (
	"os"
	"testing"

	"github.com/cardano-node/ledgercore/kv/memdb"
	"github.com/cardano-node/ledgercore/point"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "archive-test-")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	s, err := Open(dir, memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPoint(slot uint64, b byte) point.ChainPoint {
	var h [32]byte
	h[0] = b
	return point.NewSpecific(slot, h)
}

func TestApplyThenGetBySlot(t *testing.T) {
	s := newTestStore(t)
	p := testPoint(100, 1)
	tags := Tags{BlockHash: p.Hash(), BlockNumber: 1}
	if err := s.Apply(p, []byte("block-100"), tags); err != nil {
		t.Fatal(err)
	}

	body, ok, err := s.GetBySlot(100)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if string(body) != "block-100" {
		t.Fatalf("got %q", body)
	}

	slot, ok, err := s.SlotByBlockHash(p.Hash())
	if err != nil || !ok || slot != 100 {
		t.Fatalf("slot=%d ok=%v err=%v", slot, ok, err)
	}
	slot, ok, err = s.SlotByBlockNumber(1)
	if err != nil || !ok || slot != 100 {
		t.Fatalf("slot=%d ok=%v err=%v", slot, ok, err)
	}
}

// TestUndoTruncatesAndAllowsRewrite drives the scenario of writing blocks
// at slots 100 and 200 into segment 0, undoing slot 200, confirming its
// indexes are gone and the segment shrinks back, then rewriting slot 200
// reusing the reclaimed space.
func TestUndoTruncatesAndAllowsRewrite(t *testing.T) {
	s := newTestStore(t)

	p100 := testPoint(100, 1)
	tags100 := Tags{BlockHash: p100.Hash(), BlockNumber: 1}
	if err := s.Apply(p100, []byte("block-100-body"), tags100); err != nil {
		t.Fatal(err)
	}

	p200 := testPoint(200, 2)
	tags200 := Tags{BlockHash: p200.Hash(), BlockNumber: 2}
	if err := s.Apply(p200, []byte("block-200-body"), tags200); err != nil {
		t.Fatal(err)
	}

	seg, err := s.segmentFor(0)
	if err != nil {
		t.Fatal(err)
	}
	sizeBeforeUndo := seg.size

	if err := s.Undo(p200, tags200); err != nil {
		t.Fatal(err)
	}

	if seg.size >= sizeBeforeUndo {
		t.Fatalf("expected segment to shrink: before=%d after=%d", sizeBeforeUndo, seg.size)
	}

	if _, ok, err := s.SlotByBlockHash(p200.Hash()); err != nil || ok {
		t.Fatalf("expected block hash index removed: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.SlotByBlockNumber(2); err != nil || ok {
		t.Fatalf("expected block number index removed: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.GetBySlot(200); err != nil || ok {
		t.Fatalf("expected slot 200 body gone: ok=%v err=%v", ok, err)
	}

	// slot 100 must still be intact.
	body, ok, err := s.GetBySlot(100)
	if err != nil || !ok || string(body) != "block-100-body" {
		t.Fatalf("slot 100 corrupted: body=%q ok=%v err=%v", body, ok, err)
	}

	// rewrite slot 200, reusing the truncated space.
	newTags200 := Tags{BlockHash: testPoint(200, 9).Hash(), BlockNumber: 2}
	if err := s.Apply(p200, []byte("block-200-rewritten"), newTags200); err != nil {
		t.Fatal(err)
	}
	body, ok, err = s.GetBySlot(200)
	if err != nil || !ok || string(body) != "block-200-rewritten" {
		t.Fatalf("rewritten slot 200 wrong: body=%q ok=%v err=%v", body, ok, err)
	}
}

func TestGetTipTracksHighestAppliedSlot(t *testing.T) {
	s := newTestStore(t)
	if _, ok, err := s.GetTip(); err != nil || ok {
		t.Fatalf("fresh store should have no tip: ok=%v err=%v", ok, err)
	}

	for _, slot := range []uint64{50, 300, 150} {
		p := testPoint(slot, byte(slot))
		if err := s.Apply(p, []byte("b"), Tags{BlockHash: p.Hash(), BlockNumber: slot}); err != nil {
			t.Fatal(err)
		}
	}
	tip, ok, err := s.GetTip()
	if err != nil || !ok || tip != 300 {
		t.Fatalf("tip=%d ok=%v err=%v", tip, ok, err)
	}
}

func TestSlotRangeReturnsAscendingOrder(t *testing.T) {
	s := newTestStore(t)
	for _, slot := range []uint64{300, 100, 200} {
		p := testPoint(slot, byte(slot))
		if err := s.Apply(p, []byte("b"), Tags{BlockHash: p.Hash(), BlockNumber: slot}); err != nil {
			t.Fatal(err)
		}
	}
	slots, err := s.SlotRange(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{100, 200, 300}
	if len(slots) != len(want) {
		t.Fatalf("got %v", slots)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("got %v, want %v", slots, want)
		}
	}
}

// TestPruneHistoryPrunesSegmentsNeverOpenedThisProcess simulates a
// restart: after writing blocks into several segments, a fresh Store is
// opened on the same segDir with an empty in-memory segments map, and
// PruneHistory must still find and remove the old segments by scanning
// the directory rather than relying on segmentFor having been called.
func TestPruneHistoryPrunesSegmentsNeverOpenedThisProcess(t *testing.T) {
	dir, err := os.MkdirTemp("", "archive-prune-test-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	// index is shared across s1 and s2 to model a durable on-disk index
	// backend (pebble/leveldb) surviving a restart; only the in-memory
	// segments map, which is per-Store, is expected to reset.
	index := memdb.New()
	s1, err := Open(dir, index)
	if err != nil {
		t.Fatal(err)
	}
	for _, slot := range []uint64{1, SlotsPerSegment + 1, 2*SlotsPerSegment + 1} {
		p := testPoint(slot, byte(slot))
		if err := s1.Apply(p, []byte("b"), Tags{BlockHash: p.Hash(), BlockNumber: slot}); err != nil {
			t.Fatal(err)
		}
	}
	for _, seg := range s1.segments {
		seg.close()
	}

	ids, err := segmentIDsOnDisk(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 segment files on disk before reopen, got %v", ids)
	}

	s2, err := Open(dir, index)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	if len(s2.segments) != 0 {
		t.Fatalf("expected fresh Store to have no in-memory segments before pruning, got %d", len(s2.segments))
	}

	// tip sits at slot 2*SlotsPerSegment+1 (segment 2); maxSlots=1 pulls
	// the retention floor back to slot 2*SlotsPerSegment, which falls in
	// segment 2, so segments 0 and 1 are strictly below threshold.
	pruned, err := s2.PruneHistory(1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 2 {
		t.Fatalf("pruned = %d, want 2", pruned)
	}

	ids, err = segmentIDsOnDisk(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("expected only segment 2 left on disk, got %v", ids)
	}
}

func TestApproximateSlotsMatchesWithinRange(t *testing.T) {
	s := newTestStore(t)
	addr := []byte("addr1qxyz")
	p := testPoint(500, 5)
	if err := s.Apply(p, []byte("b"), Tags{BlockHash: p.Hash(), BlockNumber: 1, Approximate: [][]byte{addr}}); err != nil {
		t.Fatal(err)
	}
	slots, err := s.ApproximateSlots(addr, 0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 || slots[0] != 500 {
		t.Fatalf("got %v", slots)
	}
	slots, err = s.ApproximateSlots(addr, 0, 400)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no match outside range, got %v", slots)
	}
}
