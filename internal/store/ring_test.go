package store

import (
	"bytes"
	"testing"
)

func TestAppendWithinCapacityFIFO(t *testing.T) {
	r := NewRing()
	packets := []string{"alpha\n", "beta\n", "gamma\n"}
	for _, p := range packets {
		r.Append([]byte(p))
	}

	var got []string
	r.Iterate(func(e Entry) {
		got = append(got, string(e.Bytes()))
	})

	if len(got) != len(packets) {
		t.Fatalf("expected %d entries, got %d", len(packets), len(got))
	}
	for i, p := range packets {
		if got[i] != p {
			t.Errorf("entry %d: expected %q, got %q", i, p, got[i])
		}
	}

	var wantSize int64
	for _, p := range packets {
		wantSize += int64(len(p))
	}
	if r.TotalSize() != wantSize {
		t.Errorf("expected total size %d, got %d", wantSize, r.TotalSize())
	}
}

func TestAppendOverwritesOldest(t *testing.T) {
	r := NewRing()
	for i := 0; i < Capacity+1; i++ {
		r.Append([]byte{byte('a' + i), '\n'})
	}

	var got []string
	r.Iterate(func(e Entry) { got = append(got, string(e.Bytes())) })

	if len(got) != Capacity {
		t.Fatalf("expected %d surviving entries, got %d", Capacity, len(got))
	}
	// the first appended packet ('a'..) should have been evicted; the
	// survivors are entries 1..Capacity (0-indexed 'b'.. through 'k'..)
	for i, e := range got {
		want := string([]byte{byte('a' + 1 + i), '\n'})
		if e != want {
			t.Errorf("entry %d: expected %q, got %q", i, want, e)
		}
	}
}

func TestFindForOffsetRoundTrip(t *testing.T) {
	r := NewRing()
	r.Append([]byte("alpha\n"))
	r.Append([]byte("beta\n"))

	e, residual, ok := r.FindForOffset(0)
	if !ok || residual != 0 || string(e.Bytes()) != "alpha\n" {
		t.Fatalf("offset 0: got entry=%q residual=%d ok=%v", e.Bytes(), residual, ok)
	}

	e, residual, ok = r.FindForOffset(6)
	if !ok || residual != 0 || string(e.Bytes()) != "beta\n" {
		t.Fatalf("offset 6: got entry=%q residual=%d ok=%v", e.Bytes(), residual, ok)
	}

	e, residual, ok = r.FindForOffset(8)
	if !ok || residual != 2 || string(e.Bytes()) != "beta\n" {
		t.Fatalf("offset 8: got entry=%q residual=%d ok=%v", e.Bytes(), residual, ok)
	}

	_, _, ok = r.FindForOffset(r.TotalSize())
	if ok {
		t.Errorf("offset == total size should report EOF (ok=false)")
	}
}

func TestAbsoluteOffset(t *testing.T) {
	r := NewRing()
	r.Append([]byte("alpha\n"))
	r.Append([]byte("beta\n"))

	pos, err := r.AbsoluteOffset(1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != 8 {
		t.Errorf("expected absolute position 8, got %d", pos)
	}
}

func TestAbsoluteOffsetOutOfRange(t *testing.T) {
	r := NewRing()
	r.Append([]byte("alpha\n"))

	if _, err := r.AbsoluteOffset(1, 0); err == nil {
		t.Errorf("expected error for command index >= valid count")
	}
	if _, err := r.AbsoluteOffset(0, 6); err == nil {
		t.Errorf("expected error for byte offset == entry length")
	}
}

func TestSnapshotMatchesConcatenation(t *testing.T) {
	r := NewRing()
	r.Append([]byte("hel"))
	r.Append([]byte("lo\nwor"))
	// note: Append here treats each call as a whole committed packet;
	// fragmentation across calls is the reassembler's job, not the ring's.
	got := r.Snapshot()
	want := append(append([]byte{}, "hel"...), "lo\nwor"...)
	if !bytes.Equal(got, want) {
		t.Errorf("expected snapshot %q, got %q", want, got)
	}
}

func TestEmptyRing(t *testing.T) {
	r := NewRing()
	if r.TotalSize() != 0 {
		t.Errorf("expected total size 0 for empty ring")
	}
	if _, _, ok := r.FindForOffset(0); ok {
		t.Errorf("expected ok=false for FindForOffset on empty ring")
	}
}

func TestAppendRejectsZeroLength(t *testing.T) {
	r := NewRing()
	r.Append(nil)
	if r.TotalSize() != 0 {
		t.Errorf("zero-length append should be a no-op")
	}
}
