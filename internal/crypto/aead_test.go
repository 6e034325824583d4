package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func newTestStream(t *testing.T, ad []byte) *AEADStream {
	t.Helper()
	key, err := GenerateFileKey()
	if err != nil {
		t.Fatalf("GenerateFileKey() error = %v", err)
	}
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce() error = %v", err)
	}
	s, err := NewAEADStream(key, nonce, ad)
	if err != nil {
		t.Fatalf("NewAEADStream() error = %v", err)
	}
	return s
}

func TestAEADStreamSealOpenRoundTrip(t *testing.T) {
	ad := []byte("associated-data")
	key, err := GenerateFileKey()
	if err != nil {
		t.Fatalf("GenerateFileKey() error = %v", err)
	}
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce() error = %v", err)
	}
	enc, err := NewAEADStream(key, nonce, ad)
	if err != nil {
		t.Fatalf("NewAEADStream() error = %v", err)
	}
	dec, err := NewAEADStream(key, nonce, ad)
	if err != nil {
		t.Fatalf("NewAEADStream() error = %v", err)
	}

	plaintext := []byte("chunk contents")
	ciphertext := enc.Seal(plaintext, false)
	got, err := dec.Open(ciphertext, false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Open() = %q, want %q", got, plaintext)
	}
}

func TestAEADStreamOpenWrapsErrAuthOnTamperedCiphertext(t *testing.T) {
	ad := []byte("ad")
	s := newTestStream(t, ad)
	ciphertext := s.Seal([]byte("plaintext"), false)
	ciphertext[0] ^= 0xFF

	_, err := s.Open(ciphertext, false)
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("Open() error = %v, want errors.Is(err, ErrAuth)", err)
	}
}

func TestAEADStreamOpenWrapsErrAuthOnFinalMismatch(t *testing.T) {
	ad := []byte("ad")
	key, err := GenerateFileKey()
	if err != nil {
		t.Fatalf("GenerateFileKey() error = %v", err)
	}
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce() error = %v", err)
	}
	enc, err := NewAEADStream(key, nonce, ad)
	if err != nil {
		t.Fatalf("NewAEADStream() error = %v", err)
	}
	dec, err := NewAEADStream(key, nonce, ad)
	if err != nil {
		t.Fatalf("NewAEADStream() error = %v", err)
	}

	ciphertext := enc.Seal([]byte("plaintext"), false)
	_, err = dec.Open(ciphertext, true)
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("Open() error = %v, want errors.Is(err, ErrAuth)", err)
	}
}
