package facade

import (
	"context"
	"os"
	"testing"

	"github.com/cardano-node/ledgercore/kv/memdb"
	"github.com/cardano-node/ledgercore/point"
	"github.com/cardano-node/ledgercore/store/archive"
	"github.com/cardano-node/ledgercore/store/wal"
)

func testPoint(slot uint64, b byte) point.ChainPoint {
	var h [32]byte
	h[0] = b
	return point.NewSpecific(slot, h)
}

func newTestFacade(t *testing.T) (*Facade, *archive.Store, *wal.Store) {
	t.Helper()
	dir, err := os.MkdirTemp("", "facade-test-")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	as, err := archive.Open(dir, memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { as.Close() })

	ws, err := wal.Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ws.Close() })

	return New(as, ws), as, ws
}

func TestCrawlerWalksArchiveThenWALThenTip(t *testing.T) {
	f, as, ws := newTestFacade(t)

	for slot := uint64(1); slot <= 3; slot++ {
		p := testPoint(slot, byte(slot))
		if err := as.Apply(p, []byte{byte(slot)}, archive.Tags{BlockHash: p.Hash(), BlockNumber: slot}); err != nil {
			t.Fatal(err)
		}
	}
	for slot := uint64(4); slot <= 5; slot++ {
		p := testPoint(slot, byte(slot))
		if err := ws.AppendEntries([]wal.Entry{{Seq: slot, Point: p, RawBlock: []byte{byte(slot)}}}); err != nil {
			t.Fatal(err)
		}
	}

	crawler, intersect, ok, err := f.StartCrawler([]point.ChainPoint{point.Origin})
	if err != nil {
		t.Fatalf("StartCrawler: %v", err)
	}
	if !ok || !intersect.IsOrigin() {
		t.Fatalf("expected origin intersect, got ok=%v point=%v", ok, intersect)
	}
	defer crawler.Close()

	ctx := context.Background()
	var gotSlots []uint64
	for i := 0; i < 5; i++ {
		p, raw, ok, err := crawler.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			t.Fatalf("Next returned ok=false at iteration %d", i)
		}
		if len(raw) != 1 || raw[0] != byte(p.Slot()) {
			t.Fatalf("unexpected raw block %v at slot %d", raw, p.Slot())
		}
		gotSlots = append(gotSlots, p.Slot())
	}
	want := []uint64{1, 2, 3, 4, 5}
	if len(gotSlots) != len(want) {
		t.Fatalf("got %d slots, want %d", len(gotSlots), len(want))
	}
	for i, s := range want {
		if gotSlots[i] != s {
			t.Fatalf("slot[%d] = %d, want %d", i, gotSlots[i], s)
		}
	}
}

func TestCrawlerDeliversLiveTipEventAfterWALDrains(t *testing.T) {
	f, _, ws := newTestFacade(t)

	p4 := testPoint(4, 4)
	if err := ws.AppendEntries([]wal.Entry{{Seq: 1, Point: p4, RawBlock: []byte{4}}}); err != nil {
		t.Fatal(err)
	}

	crawler, _, ok, err := f.StartCrawler([]point.ChainPoint{point.Origin})
	if err != nil || !ok {
		t.Fatalf("StartCrawler: ok=%v err=%v", ok, err)
	}
	defer crawler.Close()

	ctx := context.Background()
	if _, _, ok, err := crawler.Next(ctx); err != nil || !ok {
		t.Fatalf("expected to drain the one WAL entry: ok=%v err=%v", ok, err)
	}

	done := make(chan struct{})
	var gotPoint point.ChainPoint
	var gotRaw []byte
	go func() {
		p, raw, ok, err := crawler.Next(ctx)
		if err == nil && ok {
			gotPoint, gotRaw = p, raw
		}
		close(done)
	}()

	p5 := testPoint(5, 5)
	f.Notify(TipEvent{Kind: TipApply, Point: p5, RawBlock: []byte{5}})
	<-done

	if !gotPoint.Equal(p5) {
		t.Fatalf("got point %v, want %v", gotPoint, p5)
	}
	if len(gotRaw) != 1 || gotRaw[0] != 5 {
		t.Fatalf("got raw %v, want [5]", gotRaw)
	}
}

func TestCrawlerTipUndoCarriesNilRawBlock(t *testing.T) {
	f, _, _ := newTestFacade(t)

	crawler, _, ok, err := f.StartCrawler([]point.ChainPoint{point.Origin})
	if err != nil || !ok {
		t.Fatalf("StartCrawler: ok=%v err=%v", ok, err)
	}
	defer crawler.Close()

	ctx := context.Background()
	done := make(chan struct{})
	var gotRaw []byte
	var gotOK bool
	go func() {
		_, raw, ok, err := crawler.Next(ctx)
		gotRaw, gotOK = raw, ok
		if err != nil {
			t.Error(err)
		}
		close(done)
	}()

	f.Notify(TipEvent{Kind: TipUndo, Point: testPoint(9, 9)})
	<-done

	if !gotOK {
		t.Fatalf("expected ok=true for an undo event")
	}
	if gotRaw != nil {
		t.Fatalf("expected nil raw block for an undo event, got %v", gotRaw)
	}
}

func TestStartCrawlerFailsOverlapInvariantWhenArchiveTipPrecedesWalStart(t *testing.T) {
	f, as, ws := newTestFacade(t)

	p1 := testPoint(1, 1)
	if err := as.Apply(p1, []byte{1}, archive.Tags{BlockHash: p1.Hash(), BlockNumber: 1}); err != nil {
		t.Fatal(err)
	}
	p10 := testPoint(10, 10)
	if err := ws.AppendEntries([]wal.Entry{{Seq: 1, Point: p10, RawBlock: []byte{10}}}); err != nil {
		t.Fatal(err)
	}

	_, _, _, err := f.StartCrawler([]point.ChainPoint{point.Origin})
	if err == nil {
		t.Fatalf("expected an archive/wal overlap invariant error")
	}
}

func TestStartCrawlerReturnsFalseWhenNoCandidateIntersects(t *testing.T) {
	f, _, _ := newTestFacade(t)
	_, _, ok, err := f.StartCrawler([]point.ChainPoint{testPoint(100, 100)})
	if err != nil {
		t.Fatalf("StartCrawler: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false, no candidate intersects and Origin wasn't offered")
	}
}
