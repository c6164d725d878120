package sgl

import (
	"bytes"
	"errors"
	"testing"
)

func TestRegionReleaseExactlyOnce(t *testing.T) {
	unpins := 0
	r := &Region{data: make([]byte, 8), unpin: func() { unpins++ }}

	r.Release()
	r.Release()
	if unpins != 1 {
		t.Fatalf("unpin ran %d times, want 1", unpins)
	}
	if !r.Released() {
		t.Fatal("Released() = false after Release")
	}
}

func TestDefaultPinnerRejectsNil(t *testing.T) {
	if _, err := DefaultPinner(nil); !errors.Is(err, ErrOutOfPinnableMemory) {
		t.Fatalf("DefaultPinner(nil) = %v, want ErrOutOfPinnableMemory", err)
	}
	if _, err := DefaultPinner(make([]byte, 4)); err != nil {
		t.Fatalf("DefaultPinner = %v", err)
	}
}

func TestAcquireBoundedByMaxBytes(t *testing.T) {
	var l RxList
	bufs := [][]byte{make([]byte, 100), make([]byte, 100), make([]byte, 100)}

	n, err := l.Acquire(nil, bufs, 150)
	if err != nil {
		t.Fatal(err)
	}
	if n != 150 {
		t.Fatalf("Acquire = %d, want 150", n)
	}
	if got := len(l.Entries()); got != 2 {
		t.Fatalf("entries = %d, want 2", got)
	}
	if l.Capacity() != 150 {
		t.Fatalf("Capacity() = %d, want 150", l.Capacity())
	}
}

func TestAcquireBoundedByMaxPages(t *testing.T) {
	var l RxList
	bufs := make([][]byte, MaxPages+4)
	for i := range bufs {
		bufs[i] = make([]byte, 1)
	}
	if _, err := l.Acquire(nil, bufs, 1<<20); err != nil {
		t.Fatal(err)
	}
	if got := len(l.Entries()); got != MaxPages {
		t.Fatalf("entries = %d, want %d", got, MaxPages)
	}
}

func TestAcquirePinFailureLeavesListUsable(t *testing.T) {
	pinned := 0
	pin := func(b []byte) (*Region, error) {
		if pinned == 1 {
			return nil, ErrOutOfPinnableMemory
		}
		pinned++
		return NewRegion(b), nil
	}

	var l RxList
	_, err := l.Acquire(pin, [][]byte{make([]byte, 10), make([]byte, 10)}, 100)
	if !errors.Is(err, ErrOutOfPinnableMemory) {
		t.Fatalf("Acquire = %v, want ErrOutOfPinnableMemory", err)
	}
	if len(l.Entries()) != 1 {
		t.Fatalf("entries = %d, want the one pinned before the failure", len(l.Entries()))
	}
	l.Release()
}

func TestLinkPreservesOrder(t *testing.T) {
	var a, b RxList
	if _, err := a.Acquire(nil, [][]byte{make([]byte, 10)}, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Acquire(nil, [][]byte{make([]byte, 20)}, 20); err != nil {
		t.Fatal(err)
	}

	first := a.Entries()[0]
	second := b.Entries()[0]
	a.Link(&b)

	got := a.Entries()
	if len(got) != 2 || got[0] != first || got[1] != second {
		t.Fatal("Link reordered or dropped entries")
	}
	if len(b.Entries()) != 0 {
		t.Fatal("Link must empty the source list")
	}
}

func TestScatterAcrossEntries(t *testing.T) {
	var l RxList
	b1 := make([]byte, 4)
	b2 := make([]byte, 8)
	if _, err := l.Acquire(nil, [][]byte{b1, b2}, 12); err != nil {
		t.Fatal(err)
	}

	n := l.Scatter([]byte("abcdefgh"))
	if n != 8 {
		t.Fatalf("Scatter = %d, want 8", n)
	}
	if !bytes.Equal(b1, []byte("abcd")) || !bytes.Equal(b2[:4], []byte("efgh")) {
		t.Fatalf("scatter placement wrong: %q %q", b1, b2[:4])
	}
	if l.Filled() != 8 {
		t.Fatalf("Filled() = %d, want 8", l.Filled())
	}

	// A second scatter appends after the fill point.
	if m := l.Scatter([]byte("XYZ")); m != 3 {
		t.Fatalf("second Scatter = %d, want 3", m)
	}
	if !bytes.Equal(b2[4:7], []byte("XYZ")) {
		t.Fatalf("second scatter placement wrong: %q", b2[4:7])
	}

	// Capacity exhaustion truncates.
	if m := l.Scatter(make([]byte, 10)); m != 1 {
		t.Fatalf("overflow Scatter = %d, want 1", m)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	var l RxList
	if _, err := l.Acquire(nil, [][]byte{make([]byte, 10)}, 10); err != nil {
		t.Fatal(err)
	}
	r := l.Entries()[0].Region

	l.Release()
	if !r.Released() {
		t.Fatal("Release did not drop the pin")
	}
	l.Release() // no-op
}
