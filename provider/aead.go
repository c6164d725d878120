package provider

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrCiphertextTooShort = errors.New("provider: ciphertext too short")
	ErrAuthFailed         = errors.New("provider: authentication failed")
)

func init() {
	Register("aead/chacha20poly1305", NewChaCha20Poly1305)
	Register("aead/aes-gcm", NewAESGCM)
}

// aeadProvider adapts a cipher.AEAD to the provider contract. Input is
// associated data followed by the payload; output is the associated data
// passed through unchanged, followed by the sealed or opened payload.
type aeadProvider struct {
	aead cipher.AEAD
}

// NewChaCha20Poly1305 builds an AEAD provider over ChaCha20-Poly1305
// (RFC 8439) from a 32-byte key.
func NewChaCha20Poly1305(key []byte) (Provider, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrKeySize
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &aeadProvider{aead: aead}, nil
}

// NewAESGCM builds an AEAD provider over AES-GCM from a 16-, 24- or
// 32-byte key.
func NewAESGCM(key []byte) (Provider, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrKeySize
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aeadProvider{aead: aead}, nil
}

func (p *aeadProvider) Kind() Kind    { return KindAEAD }
func (p *aeadProvider) IVSize() int   { return p.aead.NonceSize() }
func (p *aeadProvider) Overhead() int { return p.aead.Overhead() }

func (p *aeadProvider) Transform(op *Op) {
	src := op.SrcBytes()
	ad := src[:op.AssocLen]
	payload := src[op.AssocLen:]

	var out []byte
	switch op.Direction {
	case Encrypt:
		out = p.aead.Seal(nil, op.IV, payload, ad)
	case Decrypt:
		if len(payload) < p.aead.Overhead() {
			op.Complete(0, ErrCiphertextTooShort)
			return
		}
		var err error
		out, err = p.aead.Open(nil, op.IV, payload, ad)
		if err != nil {
			op.Complete(0, ErrAuthFailed)
			return
		}
	}

	n, err := op.WriteDst(ad)
	if err != nil {
		op.Complete(n, err)
		return
	}
	m, err := op.WriteDst(out)
	op.Complete(n+m, err)
}
