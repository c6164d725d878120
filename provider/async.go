package provider

import (
	"errors"
	"sync"
)

var (
	ErrProviderClosed = errors.New("provider: async provider closed")
)

// Async wraps a provider so Transform returns before the operation
// completes. Operations are handed to a small worker pool; completion
// fires from a worker goroutine. Channels using an Async provider exercise
// the asynchronous completion path end to end.
type Async struct {
	p  Provider
	wg sync.WaitGroup

	// mu orders in-flight Transform sends before the channel close, so a
	// Transform racing Close either queues its op or sees closed.
	mu     sync.RWMutex
	ops    chan *Op
	closed bool
}

// NewAsync wraps p with a pool of workers goroutines.
func NewAsync(p Provider, workers int) *Async {
	if workers <= 0 {
		workers = 1
	}
	a := &Async{
		p:   p,
		ops: make(chan *Op, workers*2),
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	return a
}

func (a *Async) worker() {
	defer a.wg.Done()
	for op := range a.ops {
		a.p.Transform(op)
	}
}

func (a *Async) Kind() Kind    { return a.p.Kind() }
func (a *Async) IVSize() int   { return a.p.IVSize() }
func (a *Async) Overhead() int { return a.p.Overhead() }

// Transform queues the operation. If the wrapper is closed the op is
// completed inline with ErrProviderClosed.
func (a *Async) Transform(op *Op) {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		op.Complete(0, ErrProviderClosed)
		return
	}
	a.ops <- op
	a.mu.RUnlock()
}

// Close drains the workers. Pending operations still complete.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()
	close(a.ops)
	a.wg.Wait()
}
