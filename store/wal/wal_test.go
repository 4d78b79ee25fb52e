package wal

import (
	"testing"

	"github.com/cardano-node/ledgercore/kv/memdb"
	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/point"
)

func testPoint(slot uint64, b byte) point.ChainPoint {
	var h [32]byte
	h[0] = b
	return point.NewSpecific(slot, h)
}

func testEntry(seq, slot uint64, b byte) Entry {
	ref := ledger.TxoRef{Index: uint32(slot)}
	ref.TxHash[0] = b
	return Entry{
		Seq:      seq,
		Point:    testPoint(slot, b),
		RawBlock: []byte{b, b, b},
		Deltas: []ledger.Delta{
			&ledger.EntityDelta{Namespace: ledger.NSAccounts, Key: []byte("acct"), Next: []byte{b}},
			&ledger.UTxODelta{Ref: ref, Next: &ledger.UTxO{Era: ledger.EraShelley, CBOR: []byte{b}}},
		},
		InputUTxOs: map[ledger.TxoRef]ledger.UTxO{
			ref: {Era: ledger.EraShelley, CBOR: []byte{b}},
		},
	}
}

func TestAppendAndLocatePoint(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}

	e1 := testEntry(1, 100, 1)
	e2 := testEntry(2, 200, 2)
	if err := s.AppendEntries([]Entry{e1, e2}); err != nil {
		t.Fatal(err)
	}

	seq, ok, err := s.LocatePoint(e2.Point)
	if err != nil || !ok || seq != 2 {
		t.Fatalf("seq=%d ok=%v err=%v", seq, ok, err)
	}

	if !s.Tip().Equal(e2.Point) {
		t.Fatalf("tip=%v want %v", s.Tip(), e2.Point)
	}
}

func TestAppendRejectsNonMonotonic(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AppendEntries([]Entry{testEntry(5, 100, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendEntries([]Entry{testEntry(5, 200, 2)}); err == nil {
		t.Fatal("expected non-monotonic append to fail")
	}
	if _, ok, _ := s.LocatePoint(testPoint(200, 2)); ok {
		t.Fatal("rejected append must not have written anything")
	}
}

func TestCrawlFromReturnsEntriesInOrderWithDeltasIntact(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	entries := []Entry{testEntry(1, 100, 1), testEntry(2, 200, 2), testEntry(3, 300, 3)}
	if err := s.AppendEntries(entries); err != nil {
		t.Fatal(err)
	}

	c := s.CrawlFrom(2)
	defer c.Close()
	var got []Entry
	for c.Next() {
		got = append(got, c.Entry())
	}
	if err := c.Error(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].Seq != 2 || got[1].Seq != 3 {
		t.Fatalf("got seqs %d %d", got[0].Seq, got[1].Seq)
	}
	ed, ok := got[0].Deltas[0].(*ledger.EntityDelta)
	if !ok || ed.Namespace != ledger.NSAccounts {
		t.Fatalf("entity delta not round-tripped: %+v", got[0].Deltas[0])
	}
	ud, ok := got[0].Deltas[1].(*ledger.UTxODelta)
	if !ok || ud.Next == nil || ud.Next.Era != ledger.EraShelley {
		t.Fatalf("utxo delta not round-tripped: %+v", got[0].Deltas[1])
	}
	if len(got[0].InputUTxOs) != 1 {
		t.Fatalf("input utxos not round-tripped: %+v", got[0].InputUTxOs)
	}
}

func TestResetToTruncatesTail(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	e1 := testEntry(1, 100, 1)
	e2 := testEntry(2, 200, 2)
	e3 := testEntry(3, 300, 3)
	if err := s.AppendEntries([]Entry{e1, e2, e3}); err != nil {
		t.Fatal(err)
	}

	if err := s.ResetTo(e2.Point); err != nil {
		t.Fatal(err)
	}
	if !s.Tip().Equal(e2.Point) {
		t.Fatalf("tip=%v want %v", s.Tip(), e2.Point)
	}
	if _, ok, _ := s.LocatePoint(e3.Point); ok {
		t.Fatal("expected point 3 removed after reset")
	}

	// appends resume from the truncated point.
	e3b := testEntry(3, 300, 9)
	if err := s.AppendEntries([]Entry{e3b}); err != nil {
		t.Fatal(err)
	}
}

func TestPruneHistoryRemovesOldEntriesBounded(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	var entries []Entry
	for i, slot := range []uint64{100, 200, 300, 400, 500} {
		entries = append(entries, testEntry(uint64(i+1), slot, byte(i+1)))
	}
	if err := s.AppendEntries(entries); err != nil {
		t.Fatal(err)
	}

	pruned, err := s.PruneHistory(150, 10)
	if err != nil {
		t.Fatal(err)
	}
	// tip slot 500, threshold = 350: entries at 100, 200 and 300 are below it.
	if pruned != 3 {
		t.Fatalf("pruned=%d", pruned)
	}
	if _, ok, _ := s.LocatePoint(entries[0].Point); ok {
		t.Fatal("expected oldest entry pruned")
	}
	if _, ok, _ := s.LocatePoint(entries[3].Point); !ok {
		t.Fatal("expected slot-400 entry retained")
	}
}

func TestEnsureInSyncWithStateEmptyWipesLog(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AppendEntries([]Entry{testEntry(1, 100, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureInSyncWithState(point.Origin, true); err != nil {
		t.Fatal(err)
	}
	if !s.Tip().IsOrigin() {
		t.Fatalf("expected tip reset to origin, got %v", s.Tip())
	}
}

func TestEnsureInSyncWithStateResetsToCursor(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	e1 := testEntry(1, 100, 1)
	e2 := testEntry(2, 200, 2)
	if err := s.AppendEntries([]Entry{e1, e2}); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureInSyncWithState(e1.Point, false); err != nil {
		t.Fatal(err)
	}
	if !s.Tip().Equal(e1.Point) {
		t.Fatalf("tip=%v want %v", s.Tip(), e1.Point)
	}
}

func TestEnsureInSyncWithStateReinitializesFreshAnchor(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	cursor := testPoint(42, 7)
	if err := s.EnsureInSyncWithState(cursor, false); err != nil {
		t.Fatal(err)
	}
	if !s.Tip().Equal(cursor) {
		t.Fatalf("tip=%v want %v", s.Tip(), cursor)
	}
}
