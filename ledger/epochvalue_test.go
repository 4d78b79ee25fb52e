package ledger

import "testing"

func TestDefaultTransitionRotation(t *testing.T) {
	var v EpochValue[uint64]
	v.Live = 1
	v.DefaultTransition(2)
	if v.AtMark() != 1 {
		t.Fatalf("mark = %d, want 1", v.AtMark())
	}
	if v.Live != 2 {
		t.Fatalf("live = %d, want 2", v.Live)
	}

	v.DefaultTransition(3)
	if v.AtMark() != 2 || v.AtSet() != 1 {
		t.Fatalf("mark=%d set=%d, want 2,1", v.AtMark(), v.AtSet())
	}

	v.DefaultTransition(4)
	if v.AtMark() != 3 || v.AtSet() != 2 || v.AtGo() != 1 {
		t.Fatalf("mark=%d set=%d go=%d, want 3,2,1", v.AtMark(), v.AtSet(), v.AtGo())
	}

	v.DefaultTransition(5)
	if v.AtGo() != 2 {
		t.Fatalf("go should drop the oldest snapshot: got %d, want 2", v.AtGo())
	}
}
