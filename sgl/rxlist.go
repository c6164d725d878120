package sgl

// MaxPages bounds how many output regions one acquire call may pin.
const MaxPages = 16

// RxEntry records one pinned output region and, after completion, the
// number of bytes the transform wrote into it.
type RxEntry struct {
	Region *Region
	Cap    int
	Filled int
}

// RxList is an ordered list of output regions built fresh per receive call
// from caller-supplied memory. Entries are filled in acquisition order.
type RxList struct {
	entries []*RxEntry
}

// Acquire pins caller-supplied buffers, up to MaxPages regions and maxBytes
// of capacity, appending entries after any previously acquired ones.
// Returns the output capacity added. On a pin failure the entries pinned
// so far stay in the list for the caller to Release, and the pinner's
// error (typically ErrOutOfPinnableMemory) is returned.
func (l *RxList) Acquire(pin Pinner, buffers [][]byte, maxBytes int) (int, error) {
	if pin == nil {
		pin = DefaultPinner
	}
	added := 0
	for _, b := range buffers {
		if added >= maxBytes || len(l.entries) >= MaxPages {
			break
		}
		r, err := pin(b)
		if err != nil {
			return added, err
		}
		c := r.Len()
		if c > maxBytes-added {
			c = maxBytes - added
		}
		l.entries = append(l.entries, &RxEntry{Region: r, Cap: c})
		added += c
	}
	return added, nil
}

// Link appends next's entries onto the tail of l without copying,
// preserving order. next is emptied.
func (l *RxList) Link(next *RxList) {
	l.entries = append(l.entries, next.entries...)
	next.entries = nil
}

// Entries returns the acquired entries in order.
func (l *RxList) Entries() []*RxEntry { return l.entries }

// Capacity returns the total writable bytes across all entries.
func (l *RxList) Capacity() int {
	n := 0
	for _, e := range l.entries {
		n += e.Cap
	}
	return n
}

// Filled returns the total bytes written across all entries.
func (l *RxList) Filled() int {
	n := 0
	for _, e := range l.entries {
		n += e.Filled
	}
	return n
}

// Scatter copies p across the entries in order, recording per-entry fill
// counts. Returns the number of bytes placed, which is less than len(p)
// only when the list's capacity is exhausted.
func (l *RxList) Scatter(p []byte) int {
	placed := 0
	for _, e := range l.entries {
		if placed == len(p) {
			break
		}
		n := copy(e.Region.Bytes()[e.Filled:e.Cap], p[placed:])
		e.Filled += n
		placed += n
	}
	return placed
}

// Release unpins every region in the list. Releasing twice is a no-op;
// each region's own released flag guarantees the pin drops exactly once.
func (l *RxList) Release() {
	for _, e := range l.entries {
		e.Region.Release()
	}
}
