package provider

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var (
	ErrCompressionFailed   = errors.New("provider: compression failed")
	ErrDecompressionFailed = errors.New("provider: decompression failed")
)

func init() {
	Register("compress/lz4", func(key []byte) (Provider, error) {
		return NewLZ4(), nil
	})
}

// compressorPool reuses LZ4 writers to reduce allocations.
var compressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewWriter(nil)
	},
}

// decompressorPool reuses LZ4 readers.
var decompressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewReader(nil)
	},
}

// lz4Provider is a whole-message codec provider: the encrypt direction
// compresses, the decrypt direction decompresses. Output length is
// data-dependent, bounded only by the operation's output capacity.
type lz4Provider struct{}

// NewLZ4 builds an LZ4 compression provider. LZ4 is chosen for its
// exceptional speed on commodity hardware.
func NewLZ4() Provider {
	return lz4Provider{}
}

func (lz4Provider) Kind() Kind    { return KindCompress }
func (lz4Provider) IVSize() int   { return 0 }
func (lz4Provider) Overhead() int { return 0 }

func (lz4Provider) Transform(op *Op) {
	src := op.SrcBytes()

	var out []byte
	switch op.Direction {
	case Encrypt:
		var buf bytes.Buffer
		w := compressorPool.Get().(*lz4.Writer)
		defer compressorPool.Put(w)
		w.Reset(&buf)
		if _, err := w.Write(src); err != nil {
			op.Complete(0, ErrCompressionFailed)
			return
		}
		if err := w.Close(); err != nil {
			op.Complete(0, ErrCompressionFailed)
			return
		}
		out = buf.Bytes()
	case Decrypt:
		r := decompressorPool.Get().(*lz4.Reader)
		defer decompressorPool.Put(r)
		r.Reset(bytes.NewReader(src))
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			op.Complete(0, ErrDecompressionFailed)
			return
		}
		out = buf.Bytes()
	}

	n, err := op.WriteDst(out)
	op.Complete(n, err)
}
