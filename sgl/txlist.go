package sgl

import (
	"errors"
)

var (
	ErrCapacityExceeded = errors.New("sgl: segment list capacity exceeded")
)

// nodeEnts is the descriptor capacity of one TX node, sized so a node
// occupies roughly one page-sized allocation unit.
const nodeEnts = 128

// txNode is a fixed-capacity chunk of the TX list. Nodes are appended at
// the tail and consumed from the head; cur marks how many descriptors in
// this node have already been pulled.
type txNode struct {
	next *txNode
	cur  int
	ents int
	sg   [nodeEnts]Desc
}

// TxList is a FIFO of input descriptors built as data arrives. It is not
// safe for concurrent use; the owning channel serializes access.
type TxList struct {
	head    *txNode
	tail    *txNode
	segs    int
	maxSegs int
	bytes   int
}

// NewTxList creates a TX list bounded to maxSegs descriptors in total.
// maxSegs <= 0 means unbounded.
func NewTxList(maxSegs int) *TxList {
	return &TxList{maxSegs: maxSegs}
}

// Empty reports whether no unconsumed bytes remain.
func (l *TxList) Empty() bool { return l.bytes == 0 }

// Len returns the number of unconsumed bytes.
func (l *TxList) Len() int { return l.bytes }

// Segs returns the number of live descriptors.
func (l *TxList) Segs() int { return l.segs }

// TailRoom returns the spare byte capacity behind the tail descriptor,
// within its backing region. Zero when the list is empty.
func (l *TxList) TailRoom() int {
	d := l.tailDesc()
	if d == nil {
		return 0
	}
	return d.Region.Len() - (d.Off + d.Len)
}

func (l *TxList) tailDesc() *Desc {
	if l.tail == nil || l.tail.ents == l.tail.cur {
		return nil
	}
	return &l.tail.sg[l.tail.ents-1]
}

// MergeTail copies bytes into the spare room behind the tail descriptor,
// extending it in place rather than starting a new descriptor. Returns the
// number of bytes merged, which may be zero.
func (l *TxList) MergeTail(p []byte) int {
	d := l.tailDesc()
	if d == nil {
		return 0
	}
	room := d.Region.Len() - (d.Off + d.Len)
	if room <= 0 {
		return 0
	}
	n := copy(d.Region.data[d.Off+d.Len:], p)
	d.Len += n
	l.bytes += n
	return n
}

// Append adds a descriptor for n bytes of r starting at off, allocating a
// new tail node when the current one is full. Returns ErrCapacityExceeded
// when the descriptor budget is exhausted.
func (l *TxList) Append(r *Region, off, n int) error {
	if l.maxSegs > 0 && l.segs >= l.maxSegs {
		return ErrCapacityExceeded
	}
	if l.tail == nil || l.tail.ents == nodeEnts {
		node := &txNode{}
		if l.tail == nil {
			l.head = node
		} else {
			l.tail.next = node
		}
		l.tail = node
	}
	l.tail.sg[l.tail.ents] = Desc{Region: r, Off: off, Len: n}
	l.tail.ents++
	l.segs++
	l.bytes += n
	return nil
}

// Count reports how many whole descriptors are needed to cover budget
// bytes, starting skip bytes into the unconsumed data. It does not mutate
// the list.
func (l *TxList) Count(budget, skip int) int {
	count := 0
	for node := l.head; node != nil; node = node.next {
		for i := node.cur; i < node.ents; i++ {
			if budget <= 0 {
				return count
			}
			n := node.sg[i].Len
			if skip >= n {
				skip -= n
				continue
			}
			n -= skip
			skip = 0
			budget -= n
			count++
		}
	}
	return count
}

// Snapshot copies descriptors covering up to n bytes from the head into
// dst without consuming them, truncating the last descriptor to fit.
// Zero-length descriptors are skipped, matching how Count sizes dst.
// Returns the number of descriptors written.
func (l *TxList) Snapshot(n int, dst []Desc) int {
	w := 0
	for node := l.head; node != nil && n > 0; node = node.next {
		for i := node.cur; i < node.ents && n > 0; i++ {
			d := node.sg[i]
			if d.Len == 0 {
				continue
			}
			if d.Len > n {
				d.Len = n
			}
			dst[w] = d
			w++
			n -= d.Len
		}
	}
	return w
}

// Pull consumes exactly n bytes from the head of the list. Consumed
// descriptors are copied into dst starting at dstOff when dst is non-nil.
// Fully drained descriptors release their regions and fully drained nodes
// are freed; a partially consumed descriptor is retained with its offset
// advanced. Pulling more bytes than buffered is a fatal contract violation.
func (l *TxList) Pull(n int, dst []Desc, dstOff int) {
	if n > l.bytes {
		panic("sgl: pull past end of TX list")
	}
	l.bytes -= n
	for n > 0 {
		node := l.head
		d := &node.sg[node.cur]
		take := d.Len
		if take > n {
			take = n
		}
		if dst != nil {
			dst[dstOff] = Desc{Region: d.Region, Off: d.Off, Len: take}
			dstOff++
		}
		n -= take
		if take < d.Len {
			d.Off += take
			d.Len -= take
			break
		}
		d.Region.Release()
		*d = Desc{}
		node.cur++
		l.segs--
		if node.cur == node.ents {
			l.head = node.next
			if l.head == nil {
				l.tail = nil
			}
		}
	}
}

// Drop releases every buffered byte and region, emptying the list.
func (l *TxList) Drop() {
	l.Pull(l.bytes, nil, 0)
}
