package algchan

import (
	"context"
	"fmt"

	"github.com/algchan/algchan/flow"
	"github.com/algchan/algchan/provider"
	"github.com/algchan/algchan/sgl"
)

// opPayload is the cipher-kind-specific part of a request, selected from
// the bound provider's kind when the request is allocated.
type opPayload interface {
	// plan computes how many TX bytes the operation consumes and
	// validates the reserved output capacity against it.
	plan(used, rxCap, assocLen, overhead int, dir provider.Direction) (srcLen int, err error)
}

// blockCipherOp transforms as much buffered data as the output can hold;
// partial messages are fine.
type blockCipherOp struct{}

func (blockCipherOp) plan(used, rxCap, _, _ int, _ provider.Direction) (int, error) {
	srcLen := used
	if srcLen > rxCap {
		srcLen = rxCap
	}
	return srcLen, nil
}

// aeadOp consumes the whole buffered message: associated data, payload and
// (on decrypt) the trailing tag. Output is sized exactly, accounting for
// tag expansion on encrypt and shrink on decrypt.
type aeadOp struct{}

func (aeadOp) plan(used, rxCap, assocLen, overhead int, dir provider.Direction) (int, error) {
	if used < assocLen {
		return 0, ErrMessageTooShort
	}
	var outLen int
	if dir == provider.Encrypt {
		outLen = used + overhead
	} else {
		if used-assocLen < overhead {
			return 0, ErrMessageTooShort
		}
		outLen = used - overhead
	}
	if rxCap < outLen {
		return 0, ErrShortOutput
	}
	return used, nil
}

// codecOp consumes the whole message with data-dependent output length;
// output shortfalls surface from the provider's scatter.
type codecOp struct{}

func (codecOp) plan(used, _, _, _ int, _ provider.Direction) (int, error) {
	return used, nil
}

func payloadFor(k provider.Kind) opPayload {
	switch k {
	case provider.KindAEAD:
		return aeadOp{}
	case provider.KindBlockCipher:
		return blockCipherOp{}
	default:
		return codecOp{}
	}
}

// request is the transient unit of one transform invocation: a read-only
// snapshot of TX descriptors, a freshly built RX list, and a one-shot
// completion slot consumed by either a blocking waiter or a callback.
type request struct {
	ch       *Channel
	op       *provider.Op
	rx       *sgl.RxList
	rxCap    int
	txLen    int
	callback func(int, error)

	done chan struct{}
	n    int
	err  error
}

// newRequest snapshots the TX range and assembles the provider operation.
// Called with the channel lock held.
func newRequest(c *Channel, rx *sgl.RxList, rxCap int, cb func(int, error)) (*request, error) {
	pl := payloadFor(c.p.Kind())
	srcLen, err := pl.plan(c.tx.Len(), rxCap, c.assocLen, c.p.Overhead(), c.dir)
	if err != nil {
		return nil, err
	}

	cnt := c.tx.Count(srcLen, 0)
	descs := make([]sgl.Desc, cnt)
	c.tx.Snapshot(srcLen, descs)

	iv := make([]byte, len(c.iv))
	copy(iv, c.iv)

	r := &request{
		ch:       c,
		rx:       rx,
		rxCap:    rxCap,
		txLen:    srcLen,
		callback: cb,
		done:     make(chan struct{}),
	}
	r.op = provider.NewOp(c.dir, iv, c.assocLen, descs, srcLen, rx, r.complete)
	return r, nil
}

// complete finishes the request: on success the bound TX range is pulled
// and the send gate woken; on failure the input stays buffered. Either way
// the RX list is released, the receive gate uncharged and the result
// delivered exactly once (the provider Op enforces single fire).
func (r *request) complete(n int, err error) {
	c := r.ch
	c.mu.Lock()
	pulled := 0
	if err == nil && !c.closed {
		c.tx.Pull(r.txLen, nil, 0)
		if c.tx.Empty() {
			c.merge = false
		}
		pulled = r.txLen
	}
	c.busy = false
	c.mu.Unlock()

	if pulled > 0 {
		c.snd.Uncharge(pulled)
	} else {
		c.snd.Wakeup()
	}
	r.rx.Release()
	c.rcv.Uncharge(r.rxCap)

	r.n, r.err = n, err
	close(r.done)
	if r.callback != nil {
		r.callback(n, err)
	}
}

// wait blocks until the provider completes or ctx is cancelled. On
// cancellation the operation is still completed by the provider and its
// resources released; only the waiter gives up.
func (r *request) wait(ctx context.Context) (int, error) {
	select {
	case <-r.done:
		return r.n, r.err
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %v", flow.ErrInterrupted, ctx.Err())
	}
}
