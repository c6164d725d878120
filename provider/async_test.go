package provider

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

func TestAsyncCompletesOffCaller(t *testing.T) {
	key := bytes.Repeat([]byte{8}, chacha20poly1305.KeySize)
	inner, err := NewChaCha20Poly1305(key)
	if err != nil {
		t.Fatal(err)
	}
	a := NewAsync(inner, 2)
	defer a.Close()

	if a.Kind() != inner.Kind() || a.Overhead() != inner.Overhead() || a.IVSize() != inner.IVSize() {
		t.Fatal("async wrapper must delegate provider properties")
	}

	iv := make([]byte, a.IVSize())
	msg := []byte("completed later")
	dst := make([]byte, len(msg)+a.Overhead())

	done := make(chan struct{})
	var n int
	var opErr error
	op, _, _ := makeOp(t, Encrypt, iv, 0, msg, len(dst))
	op.done = func(got int, err error) {
		n, opErr = got, err
		close(done)
	}

	a.Transform(op)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async transform never completed")
	}
	if opErr != nil || n != len(msg)+a.Overhead() {
		t.Fatalf("n=%d err=%v", n, opErr)
	}
}

func TestAsyncManyConcurrentOps(t *testing.T) {
	a := NewAsync(NewLZ4(), 4)
	defer a.Close()

	const ops = 32
	var wg sync.WaitGroup
	errs := make(chan error, ops)
	for i := 0; i < ops; i++ {
		wg.Add(1)
		msg := bytes.Repeat([]byte{byte(i)}, 512)
		op, _, _ := makeOp(t, Encrypt, nil, 0, msg, 1024)
		op.done = func(_ int, err error) {
			errs <- err
			wg.Done()
		}
		a.Transform(op)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("op failed: %v", err)
		}
	}
}

func TestAsyncClosedCompletesWithError(t *testing.T) {
	a := NewAsync(NewLZ4(), 1)
	a.Close()
	a.Close() // idempotent

	op, _, res := makeOp(t, Encrypt, nil, 0, []byte("x"), 64)
	a.Transform(op)
	if res.err != ErrProviderClosed {
		t.Fatalf("Transform after Close = %v, want ErrProviderClosed", res.err)
	}
}

// Transforms racing Close must each complete exactly once, either through
// a worker or inline with ErrProviderClosed; none may be dropped.
func TestAsyncCloseRacesTransform(t *testing.T) {
	a := NewAsync(NewLZ4(), 2)

	const ops = 64
	queued := make([]*Op, ops)
	results := make([]*opResult, ops)
	for i := range queued {
		op, _, res := makeOp(t, Encrypt, nil, 0, bytes.Repeat([]byte{byte(i)}, 64), 256)
		queued[i], results[i] = op, res
	}

	var wg sync.WaitGroup
	for _, op := range queued {
		wg.Add(1)
		go func(op *Op) {
			defer wg.Done()
			a.Transform(op)
		}(op)
	}
	a.Close()
	wg.Wait()

	for i, res := range results {
		if res.fires != 1 {
			t.Fatalf("op %d completed %d times", i, res.fires)
		}
		if res.err != nil && res.err != ErrProviderClosed {
			t.Fatalf("op %d: %v", i, res.err)
		}
	}
}
