package provider

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/chacha20"
)

func init() {
	Register("skcipher/aes-ctr", NewAESCTR)
	Register("skcipher/chacha20", NewChaCha20)
}

// streamProvider adapts a keystream cipher to the provider contract.
// Stream ciphers are length-preserving and symmetric, so both directions
// apply the same keystream and partial messages may be transformed as data
// arrives. The keystream position is kept across operations until the IV
// changes, so a message split over several dispatches stays continuous.
type streamProvider struct {
	newStream func(iv []byte) (cipher.Stream, error)
	ivSize    int
	cur       cipher.Stream
	curIV     []byte
}

// NewAESCTR builds a stream-cipher provider over AES in counter mode.
func NewAESCTR(key []byte) (Provider, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrKeySize
	}
	return &streamProvider{
		newStream: func(iv []byte) (cipher.Stream, error) {
			return cipher.NewCTR(block, iv), nil
		},
		ivSize: block.BlockSize(),
	}, nil
}

// NewChaCha20 builds a stream-cipher provider over unauthenticated
// ChaCha20 from a 32-byte key.
func NewChaCha20(key []byte) (Provider, error) {
	if len(key) != chacha20.KeySize {
		return nil, ErrKeySize
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &streamProvider{
		newStream: func(iv []byte) (cipher.Stream, error) {
			return chacha20.NewUnauthenticatedCipher(k, iv)
		},
		ivSize: chacha20.NonceSize,
	}, nil
}

func (p *streamProvider) Kind() Kind    { return KindBlockCipher }
func (p *streamProvider) IVSize() int   { return p.ivSize }
func (p *streamProvider) Overhead() int { return 0 }

func (p *streamProvider) Transform(op *Op) {
	if p.cur == nil || !bytes.Equal(op.IV, p.curIV) {
		stream, err := p.newStream(op.IV)
		if err != nil {
			op.Complete(0, err)
			return
		}
		p.cur = stream
		p.curIV = append(p.curIV[:0], op.IV...)
	}
	buf := op.SrcBytes()
	p.cur.XORKeyStream(buf, buf)
	n, err := op.WriteDst(buf)
	op.Complete(n, err)
}
