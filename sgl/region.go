package sgl

import (
	"errors"
	"sync/atomic"
)

var (
	ErrOutOfPinnableMemory = errors.New("sgl: cannot pin caller memory")
)

// PageSize is the allocation and accounting granularity for buffered data.
const PageSize = 4096

// Region is an owned handle to a pinned memory area. While a Region is
// referenced by descriptors the underlying bytes must not be reclaimed or
// reused by the caller. Release is idempotent: the pin is dropped exactly
// once, on the first call.
type Region struct {
	data     []byte
	unpin    func()
	released atomic.Bool
}

// NewRegion wraps an already-pinned byte slice.
func NewRegion(b []byte) *Region {
	return &Region{data: b}
}

// Len returns the region's capacity in bytes.
func (r *Region) Len() int { return len(r.data) }

// Bytes returns the backing slice. Callers must not retain it past Release.
func (r *Region) Bytes() []byte { return r.data }

// Released reports whether the pin has been dropped.
func (r *Region) Released() bool { return r.released.Load() }

// Release drops the pin. Releasing an already-released region is a no-op.
func (r *Region) Release() {
	if r.released.Swap(true) {
		return
	}
	if r.unpin != nil {
		r.unpin()
	}
}

// Pinner pins a caller-supplied buffer for the duration it is referenced by
// descriptors. Implementations return ErrOutOfPinnableMemory when the buffer
// cannot be pinned (invalid, unmapped, or resource exhaustion).
type Pinner func(b []byte) (*Region, error)

// DefaultPinner accepts any non-nil buffer. In-process memory needs no
// physical pin; the Region's released flag still enforces the
// exactly-once release discipline.
func DefaultPinner(b []byte) (*Region, error) {
	if b == nil {
		return nil, ErrOutOfPinnableMemory
	}
	return NewRegion(b), nil
}

// Desc describes one contiguous byte range of a region without copying it.
type Desc struct {
	Region *Region
	Off    int
	Len    int
}

// Bytes returns the described range of the backing region.
func (d Desc) Bytes() []byte {
	return d.Region.data[d.Off : d.Off+d.Len]
}

// Gather copies n bytes from the descriptor sequence into a fresh
// contiguous buffer. It panics if the descriptors cover fewer than n bytes;
// callers size the sequence with TxList.Count first.
func Gather(descs []Desc, n int) []byte {
	out := make([]byte, n)
	off := 0
	for _, d := range descs {
		if off == n {
			break
		}
		m := copy(out[off:], d.Bytes())
		off += m
	}
	if off != n {
		panic("sgl: gather past end of descriptor list")
	}
	return out
}
