package algchan

import (
	"context"
	"errors"
	"sync"

	"github.com/algchan/algchan/flow"
	"github.com/algchan/algchan/provider"
	"github.com/algchan/algchan/sgl"
)

var (
	ErrChannelClosed    = errors.New("algchan: channel closed")
	ErrNilProvider      = errors.New("algchan: nil provider")
	ErrIVSize           = errors.New("algchan: IV length does not match provider")
	ErrControlBusy      = errors.New("algchan: control change with data buffered")
	ErrAssocUnsupported = errors.New("algchan: associated data unsupported by provider kind")
	ErrMessageTooShort  = errors.New("algchan: buffered message shorter than required")
	ErrNoOutputSpace    = errors.New("algchan: no output space supplied")
)

// Re-exported error kinds from the subsystems a channel drives, so callers
// can match with errors.Is against one package.
var (
	ErrWouldBlock          = flow.ErrWouldBlock
	ErrInterrupted         = flow.ErrInterrupted
	ErrCapacityExceeded    = sgl.ErrCapacityExceeded
	ErrOutOfPinnableMemory = sgl.ErrOutOfPinnableMemory
	ErrShortOutput         = provider.ErrShortOutput
)

// Control carries the per-message metadata set before dispatching reads.
type Control struct {
	IV        []byte
	Direction provider.Direction
	AssocLen  int
}

// Channel is one connection's streaming context: a TX segment list of
// buffered input, two flow-control gates, and the control metadata for the
// bound provider. A channel's sender and receiver may run concurrently;
// one mutex per channel serializes them.
type Channel struct {
	mu  sync.Mutex
	p   provider.Provider
	tx  *sgl.TxList
	snd *flow.Gate
	rcv *flow.Gate
	pin sgl.Pinner

	iv       []byte
	assocLen int
	dir      provider.Direction
	more     bool
	merge    bool
	nonblock bool
	busy     bool
	closed   bool
}

// Open creates a channel bound to p.
func Open(p provider.Provider, opts ...Option) (*Channel, error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	snd := flow.NewGate(cfg.sndBuf)
	return &Channel{
		p:        p,
		tx:       sgl.NewTxList(4 * snd.Capacity() / flow.PageSize),
		snd:      snd,
		rcv:      flow.NewGate(cfg.rcvBuf),
		pin:      cfg.pin,
		nonblock: cfg.nonblock,
		iv:       make([]byte, p.IVSize()),
	}, nil
}

// OpenName looks name up in the provider registry, builds a keyed provider
// and opens a channel bound to it.
func OpenName(name string, key []byte, opts ...Option) (*Channel, error) {
	p, err := provider.New(name, key)
	if err != nil {
		return nil, err
	}
	return Open(p, opts...)
}

// SetControl records the IV, direction and associated-data length for the
// next message. It is rejected while data is buffered, so metadata cannot
// change mid-message.
func (c *Channel) SetControl(ctl Control) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if !c.tx.Empty() {
		return ErrControlBusy
	}
	if ctl.IV != nil && len(ctl.IV) != len(c.iv) {
		return ErrIVSize
	}
	if ctl.AssocLen > 0 && c.p.Kind() != provider.KindAEAD {
		return ErrAssocUnsupported
	}
	if ctl.IV != nil {
		copy(c.iv, ctl.IV)
	}
	c.dir = ctl.Direction
	c.assocLen = ctl.AssocLen
	return nil
}

// Writable reports whether the send gate would admit at least one page.
func (c *Channel) Writable() bool { return c.snd.Open() }

// Readable reports whether unconsumed input is buffered.
func (c *Channel) Readable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.tx.Empty()
}

// Buffered returns the unconsumed input bytes.
func (c *Channel) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx.Len()
}

// Write buffers p into the channel's TX list, copying into channel-owned
// pages. more signals that further data belongs to the same message. The
// send gate bounds buffered bytes: Write suspends while the gate is closed
// (or returns ErrWouldBlock on a non-blocking channel) and reports how many
// bytes were accepted alongside any error.
func (c *Channel) Write(ctx context.Context, p []byte, more bool) (int, error) {
	if len(p) == 0 {
		// Flush: update the message boundary without touching the gate,
		// so a full buffer can still be finalized for readers.
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return 0, ErrChannelClosed
		}
		c.more = more
		c.mu.Unlock()
		c.snd.Wakeup()
		return 0, nil
	}
	copied := 0
	for {
		if err := c.snd.Wait(ctx, c.nonblock, c.sendReady); err != nil {
			return copied, err
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return copied, ErrChannelClosed
		}
		avail := c.snd.Available()
		if avail < flow.PageSize {
			// Lost the race against another writer; wait again.
			c.mu.Unlock()
			continue
		}

		if c.merge {
			budget := len(p)
			if budget > avail {
				budget = avail
			}
			if n := c.tx.MergeTail(p[:budget]); n > 0 {
				c.snd.Charge(n)
				copied += n
				p = p[n:]
				avail -= n
			}
			if c.tx.TailRoom() == 0 {
				c.merge = false
			}
			if len(p) == 0 {
				break
			}
			if avail == 0 {
				c.mu.Unlock()
				continue
			}
		}

		plen := len(p)
		if plen > flow.PageSize {
			plen = flow.PageSize
		}
		if plen > avail {
			plen = avail
		}
		page := sgl.NewRegion(make([]byte, flow.PageSize))
		copy(page.Bytes(), p[:plen])
		if err := c.tx.Append(page, 0, plen); err != nil {
			page.Release()
			c.more = more
			c.mu.Unlock()
			c.snd.Wakeup()
			return copied, err
		}
		c.snd.Charge(plen)
		copied += plen
		p = p[plen:]
		c.merge = plen < flow.PageSize
		if len(p) == 0 {
			break
		}
		c.mu.Unlock()
	}
	c.more = more
	c.mu.Unlock()
	// Wake readers waiting for data.
	c.snd.Wakeup()
	return copied, nil
}

// WriteRegion appends an already-pinned caller region to the TX list
// without copying. The range is admitted as a single descriptor, so the
// wait is for enough gate capacity to charge all of it at once; a range
// larger than the send buffer can never be admitted and is rejected with
// ErrCapacityExceeded. Ownership of the region transfers to the list; it
// is released when the bytes are consumed. Merging is disabled afterwards
// since the region's spare capacity belongs to the caller.
func (c *Channel) WriteRegion(ctx context.Context, r *sgl.Region, off, n int, more bool) error {
	if off < 0 || n < 0 || off+n > r.Len() {
		return errors.New("algchan: region range out of bounds")
	}
	if n > c.snd.Capacity() {
		return ErrCapacityExceeded
	}
	if n == 0 {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrChannelClosed
		}
		c.more = more
		c.mu.Unlock()
		c.snd.Wakeup()
		return nil
	}
	ready := func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.closed || c.snd.Available() >= n
	}
	for {
		if err := c.snd.Wait(ctx, c.nonblock, ready); err != nil {
			return err
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrChannelClosed
		}
		if c.snd.Available() < n {
			// Lost the race against another writer; wait again.
			c.mu.Unlock()
			continue
		}
		if err := c.tx.Append(r, off, n); err != nil {
			c.mu.Unlock()
			return err
		}
		c.snd.Charge(n)
		c.merge = false
		c.more = more
		c.mu.Unlock()
		c.snd.Wakeup()
		return nil
	}
}

func (c *Channel) sendReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || c.snd.Open()
}

func (c *Channel) recvDataReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	if c.busy || c.tx.Empty() {
		return false
	}
	if c.p.Kind().WholeMessage() && c.more {
		return false
	}
	return true
}

// Read runs one transform over the buffered input, scattering output into
// the caller-supplied buffers, and blocks until the provider completes.
// It returns the number of output bytes produced. Cancelling ctx returns
// ErrInterrupted; the in-flight operation still completes and releases its
// resources, so the caller must not reuse the output buffers until it
// independently confirms completion.
func (c *Channel) Read(ctx context.Context, buffers [][]byte) (int, error) {
	req, err := c.prepare(ctx, buffers, nil)
	if err != nil {
		return 0, err
	}
	c.p.Transform(req.op)
	return req.wait(ctx)
}

// ReadAsync assembles and dispatches one transform, then returns without
// waiting. cb is invoked exactly once with the result, possibly inline
// before ReadAsync returns when the provider completes synchronously. The
// output buffers must stay untouched until cb fires.
func (c *Channel) ReadAsync(ctx context.Context, buffers [][]byte, cb func(n int, err error)) error {
	req, err := c.prepare(ctx, buffers, cb)
	if err != nil {
		return err
	}
	c.p.Transform(req.op)
	return nil
}

// prepare waits for data, reserves output space and assembles a request.
// On any failure no request exists and the TX list is untouched.
func (c *Channel) prepare(ctx context.Context, buffers [][]byte, cb func(int, error)) (*request, error) {
	for {
		if err := c.snd.Wait(ctx, c.nonblock, c.recvDataReady); err != nil {
			return nil, err
		}
		if err := c.rcv.Wait(ctx, c.nonblock, c.rcv.Open); err != nil {
			return nil, err
		}

		// Pin caller output regions, chaining one list per buffer,
		// while the receive gate admits more promised bytes.
		rx := &sgl.RxList{}
		rxCap := 0
		for _, b := range buffers {
			avail := c.rcv.Available() - rxCap
			if avail <= 0 {
				break
			}
			sub := &sgl.RxList{}
			n, err := sub.Acquire(c.pin, [][]byte{b}, avail)
			if err != nil {
				sub.Release()
				rx.Release()
				return nil, err
			}
			rx.Link(sub)
			rxCap += n
		}
		if rxCap == 0 {
			rx.Release()
			return nil, ErrNoOutputSpace
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			rx.Release()
			return nil, ErrChannelClosed
		}
		if c.busy || c.tx.Empty() || (c.p.Kind().WholeMessage() && c.more) {
			// Lost the race against another reader or writer;
			// drop the reservation and wait again.
			c.mu.Unlock()
			rx.Release()
			continue
		}

		req, err := newRequest(c, rx, rxCap, cb)
		if err != nil {
			c.mu.Unlock()
			rx.Release()
			return nil, err
		}
		c.busy = true
		c.rcv.Charge(rxCap)
		c.mu.Unlock()
		return req, nil
	}
}

// Close releases all buffered segments and wakes every waiter. Closing an
// already-closed channel is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	n := c.tx.Len()
	c.tx.Drop()
	c.mu.Unlock()
	if n > 0 {
		c.snd.Uncharge(n)
	} else {
		c.snd.Wakeup()
	}
	c.rcv.Wakeup()
	return nil
}
