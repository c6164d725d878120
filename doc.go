// Package algchan implements a streaming channel for feeding bytes through
// a cryptographic (or codec) transform without holding whole messages in
// one contiguous buffer.
//
// A Channel accumulates input written over multiple calls into a bounded
// scatter-gather list, reserves output space against caller-supplied memory
// without copying, and assembles both into a single request dispatched to
// an algorithm provider. Flow-control gates bound buffered input and
// promised output at page granularity; writers and readers block (or
// receive ErrWouldBlock) while a gate is closed and are woken as data is
// consumed.
//
// Providers are looked up by name from the process-wide registry in
// package provider, or supplied directly:
//
//	ch, err := algchan.OpenName("aead/chacha20poly1305", key)
//	...
//	ch.SetControl(algchan.Control{IV: nonce, Direction: provider.Encrypt})
//	ch.Write(ctx, plaintext, false)
//	n, err := ch.Read(ctx, [][]byte{out})
package algchan
