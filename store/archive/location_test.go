package archive

import "testing"

func TestLocationRoundTrip(t *testing.T) {
	l := Location{SegmentID: 42, Offset: 123456789, Length: 999}
	got := LocationFromBytes(l.Bytes())
	if got != l {
		t.Fatalf("got %+v, want %+v", got, l)
	}
}

func TestSegmentFor(t *testing.T) {
	if SegmentFor(0) != 0 {
		t.Fatal("slot 0 should be segment 0")
	}
	if SegmentFor(SlotsPerSegment) != 1 {
		t.Fatal("first slot of segment 1 should map to segment 1")
	}
	if SegmentFor(SlotsPerSegment - 1) != 0 {
		t.Fatal("last slot of segment 0 should map to segment 0")
	}
}
