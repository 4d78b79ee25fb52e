package ledger

import "testing"

func TestParseCIP67KnownLabel(t *testing.T) {
	label, ok := ParseCIP67Label("000643b0")
	if !ok || label != 100 {
		t.Fatalf("got %d, %v, want 100, true", label, ok)
	}
}

func TestParseCIP67ChecksumFailure(t *testing.T) {
	// Flip the final hex nibble of a valid label.
	if _, ok := ParseCIP67Label("000643b1"); ok {
		t.Fatal("expected checksum failure")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, label := range []uint16{100, 222, 333, 444} {
		enc := EncodeCIP67Label(label)
		got, ok := ParseCIP67Label(enc)
		if !ok || got != label {
			t.Fatalf("label %d: round trip got %d, %v", label, got, ok)
		}
	}
}

func TestEncodeKnownLabel(t *testing.T) {
	if got := EncodeCIP67Label(100); got != "000643b0" {
		t.Fatalf("got %q, want 000643b0", got)
	}
}
