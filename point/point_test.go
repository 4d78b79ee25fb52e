package point

import (
	"testing"
)

func TestOriginRoundTrip(t *testing.T) {
	b := Origin.Bytes()
	got := FromBytes(b)
	if !got.Equal(Origin) {
		t.Fatalf("origin round-trip mismatch: %v", got)
	}
	if got.String() != "Origin" {
		t.Fatalf("origin string = %q, want Origin", got.String())
	}
}

func TestSpecificRoundTrip(t *testing.T) {
	var h [HashSize]byte
	h[0] = 0xab
	h[31] = 0xcd
	p := NewSpecific(12345, h)
	got := FromBytes(p.Bytes())
	if !got.Equal(p) {
		t.Fatalf("round-trip mismatch: %v != %v", got, p)
	}
	want := "12345(ab000000000000000000000000000000000000000000000000000000000000cd)"
	if got.String() != want {
		t.Fatalf("string = %q, want %q", got.String(), want)
	}
}

func TestCompareMatchesBinaryOrder(t *testing.T) {
	var h1, h2 [HashSize]byte
	h1[0] = 1
	h2[0] = 2

	p1 := NewSpecific(100, h1)
	p2 := NewSpecific(100, h2)
	if p1.Compare(p2) >= 0 {
		t.Fatalf("expected p1 < p2")
	}

	p3 := NewSpecific(50, h2)
	if p3.Compare(p1) >= 0 {
		t.Fatalf("expected lower slot to sort first regardless of hash")
	}
}

func TestSlotOnlyPoint(t *testing.T) {
	p := NewSlot(999)
	if p.IsSpecific() {
		t.Fatalf("slot-only point reported as specific")
	}
	if p.IsOrigin() {
		t.Fatalf("nonzero slot reported as origin")
	}
	if p.String() != "999" {
		t.Fatalf("string = %q, want 999", p.String())
	}
}
