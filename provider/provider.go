package provider

import (
	"errors"
	"sync/atomic"

	"github.com/algchan/algchan/sgl"
)

var (
	ErrShortOutput = errors.New("provider: output capacity exhausted")
	ErrKeySize     = errors.New("provider: invalid key size")
)

// Direction selects the transform direction recorded on a channel.
type Direction int

const (
	Decrypt Direction = iota
	Encrypt
)

func (d Direction) String() string {
	if d == Encrypt {
		return "encrypt"
	}
	return "decrypt"
}

// Kind classifies a provider's transform.
type Kind int

const (
	// KindBlockCipher is a length-preserving cipher that may transform
	// partial messages as data arrives.
	KindBlockCipher Kind = iota
	// KindAEAD is an authenticated transform requiring the whole message,
	// with associated data passed through and tag expansion on encrypt.
	KindAEAD
	// KindCompress is a whole-message transform with data-dependent
	// output length.
	KindCompress
	// KindFEC is a whole-message transform adding or consuming parity.
	KindFEC
)

func (k Kind) String() string {
	switch k {
	case KindBlockCipher:
		return "skcipher"
	case KindAEAD:
		return "aead"
	case KindCompress:
		return "compress"
	case KindFEC:
		return "fec"
	}
	return "unknown"
}

// WholeMessage reports whether the kind requires the complete message to be
// buffered before dispatch.
func (k Kind) WholeMessage() bool { return k != KindBlockCipher }

// Op is one assembled transform invocation: a read-only gather list of
// input descriptors, an output list to scatter into, and the control
// metadata bound when the operation was built. The provider must call
// Complete exactly once with the bytes produced or an error.
type Op struct {
	Direction Direction
	IV        []byte
	AssocLen  int
	Src       []sgl.Desc
	SrcLen    int
	Dst       *sgl.RxList

	done  func(n int, err error)
	fired atomic.Bool
}

// NewOp assembles an operation. done receives the completion exactly once.
func NewOp(dir Direction, iv []byte, assocLen int, src []sgl.Desc, srcLen int, dst *sgl.RxList, done func(n int, err error)) *Op {
	return &Op{
		Direction: dir,
		IV:        iv,
		AssocLen:  assocLen,
		Src:       src,
		SrcLen:    srcLen,
		Dst:       dst,
		done:      done,
	}
}

// SrcBytes gathers the input range into one contiguous buffer.
func (o *Op) SrcBytes() []byte {
	return sgl.Gather(o.Src, o.SrcLen)
}

// WriteDst scatters p into the output list. Returns ErrShortOutput if the
// list cannot hold all of p.
func (o *Op) WriteDst(p []byte) (int, error) {
	n := o.Dst.Scatter(p)
	if n < len(p) {
		return n, ErrShortOutput
	}
	return n, nil
}

// Complete delivers the result. Completing an Op twice is a fatal contract
// violation.
func (o *Op) Complete(n int, err error) {
	if o.fired.Swap(true) {
		panic("provider: op completed twice")
	}
	o.done(n, err)
}

// Completed reports whether Complete has fired.
func (o *Op) Completed() bool { return o.fired.Load() }

// Provider performs the cryptographic (or codec) transform for a channel.
// Transform may complete the op inline or asynchronously.
type Provider interface {
	// Kind returns the transform class, fixed for the provider's lifetime.
	Kind() Kind
	// IVSize returns the required IV length in bytes, zero if unused.
	IVSize() int
	// Overhead returns the output expansion on encrypt (for example an
	// authentication tag), zero for length-preserving transforms.
	Overhead() int
	// Transform runs the operation and calls op.Complete exactly once.
	Transform(op *Op)
}
