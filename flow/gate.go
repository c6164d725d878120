package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrWouldBlock  = errors.New("flow: operation would block")
	ErrInterrupted = errors.New("flow: wait interrupted")
)

// PageSize is the quantum for gate capacity and the open threshold. A gate
// is open only while at least one full page is available, so waiters never
// unblock for sub-page increments that cannot make forward progress.
const PageSize = 4096

// Gate is an admission-control counter over one direction of buffered data.
// Capacity is rounded down to page granularity, with a one-page floor.
type Gate struct {
	mu   sync.Mutex
	cap  int
	used int
	wake chan struct{}
}

// NewGate creates a gate with the given byte capacity.
func NewGate(capacity int) *Gate {
	capacity &^= PageSize - 1
	if capacity < PageSize {
		capacity = PageSize
	}
	return &Gate{cap: capacity, wake: make(chan struct{})}
}

// Capacity returns the page-rounded capacity.
func (g *Gate) Capacity() int { return g.cap }

// Used returns the bytes currently charged.
func (g *Gate) Used() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used
}

// Available returns max(capacity - used, 0).
func (g *Gate) Available() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available()
}

func (g *Gate) available() int {
	if g.used >= g.cap {
		return 0
	}
	return g.cap - g.used
}

// Open reports whether at least one full page of capacity is available.
func (g *Gate) Open() bool {
	return g.Available() >= PageSize
}

// Charge records n more bytes in use. Charging does not wake waiters.
func (g *Gate) Charge(n int) {
	g.mu.Lock()
	g.used += n
	g.mu.Unlock()
}

// Uncharge records n bytes released and wakes all waiters so each may
// recheck its condition.
func (g *Gate) Uncharge(n int) {
	g.mu.Lock()
	g.used -= n
	if g.used < 0 {
		g.mu.Unlock()
		panic("flow: gate usage underflow")
	}
	g.wakeLocked()
	g.mu.Unlock()
}

// Wakeup wakes all waiters without changing the usage counter. Used when
// a condition other than the counter may have changed (data arrival, a
// request finishing).
func (g *Gate) Wakeup() {
	g.mu.Lock()
	g.wakeLocked()
	g.mu.Unlock()
}

func (g *Gate) wakeLocked() {
	close(g.wake)
	g.wake = make(chan struct{})
}

// Wait suspends the caller until ready reports true. With nonblock set it
// returns ErrWouldBlock instead of waiting. Cancellation of ctx returns
// ErrInterrupted wrapping the context error. ready is evaluated without
// the gate lock held and must be safe to call repeatedly.
func (g *Gate) Wait(ctx context.Context, nonblock bool, ready func() bool) error {
	for {
		if ready() {
			return nil
		}
		if nonblock {
			return ErrWouldBlock
		}
		g.mu.Lock()
		wake := g.wake
		g.mu.Unlock()
		// Recheck after snapshotting the wakeup channel so a wakeup
		// between the first check and the snapshot is not lost.
		if ready() {
			return nil
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
		}
	}
}
