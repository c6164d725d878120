package provider

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/chacha20poly1305"
)

func aeadRoundTrip(t *testing.T, newP func(key []byte) (Provider, error), keySize int) {
	t.Helper()
	key := bytes.Repeat([]byte{7}, keySize)
	p, err := newP(key)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind() != KindAEAD {
		t.Fatalf("Kind = %v, want KindAEAD", p.Kind())
	}

	iv := make([]byte, p.IVSize())
	iv[0] = 0x42
	ad := []byte("header")
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	msg := append(append([]byte{}, ad...), plaintext...)

	encOp, ct, encRes := makeOp(t, Encrypt, iv, len(ad), msg, len(msg)+p.Overhead())
	p.Transform(encOp)
	if encRes.err != nil {
		t.Fatalf("encrypt: %v", encRes.err)
	}
	wantLen := len(msg) + p.Overhead()
	if encRes.n != wantLen {
		t.Fatalf("encrypt produced %d bytes, want %d", encRes.n, wantLen)
	}
	if !bytes.Equal(ct[:len(ad)], ad) {
		t.Fatal("associated data not passed through")
	}
	if bytes.Contains(ct, plaintext) {
		t.Fatal("ciphertext contains plaintext")
	}

	decOp, pt, decRes := makeOp(t, Decrypt, iv, len(ad), ct[:encRes.n], len(msg))
	p.Transform(decOp)
	if decRes.err != nil {
		t.Fatalf("decrypt: %v", decRes.err)
	}
	if !bytes.Equal(pt[:decRes.n], msg) {
		t.Fatalf("round trip mismatch: %q", pt[:decRes.n])
	}
}

func TestChaCha20Poly1305RoundTrip(t *testing.T) {
	aeadRoundTrip(t, NewChaCha20Poly1305, chacha20poly1305.KeySize)
}

func TestAESGCMRoundTrip(t *testing.T) {
	aeadRoundTrip(t, NewAESGCM, 32)
}

func TestAEADRejectsBadKeySize(t *testing.T) {
	if _, err := NewChaCha20Poly1305(make([]byte, 16)); err != ErrKeySize {
		t.Fatalf("NewChaCha20Poly1305 = %v, want ErrKeySize", err)
	}
	if _, err := NewAESGCM(make([]byte, 7)); err != ErrKeySize {
		t.Fatalf("NewAESGCM = %v, want ErrKeySize", err)
	}
}

func TestAEADTamperDetected(t *testing.T) {
	key := bytes.Repeat([]byte{9}, chacha20poly1305.KeySize)
	p, err := NewChaCha20Poly1305(key)
	if err != nil {
		t.Fatal(err)
	}
	iv := make([]byte, p.IVSize())

	msg := []byte("authentic message")
	encOp, ct, encRes := makeOp(t, Encrypt, iv, 0, msg, len(msg)+p.Overhead())
	p.Transform(encOp)
	if encRes.err != nil {
		t.Fatal(encRes.err)
	}

	ct[3] ^= 0x80
	decOp, _, decRes := makeOp(t, Decrypt, iv, 0, ct[:encRes.n], len(msg))
	p.Transform(decOp)
	if decRes.err != ErrAuthFailed {
		t.Fatalf("decrypt of tampered ciphertext = %v, want ErrAuthFailed", decRes.err)
	}
}

func TestAEADCiphertextTooShort(t *testing.T) {
	key := bytes.Repeat([]byte{1}, chacha20poly1305.KeySize)
	p, err := NewChaCha20Poly1305(key)
	if err != nil {
		t.Fatal(err)
	}
	op, _, res := makeOp(t, Decrypt, make([]byte, p.IVSize()), 0, []byte("tiny"), 64)
	p.Transform(op)
	if res.err != ErrCiphertextTooShort {
		t.Fatalf("decrypt = %v, want ErrCiphertextTooShort", res.err)
	}
}
