package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrAuth is wrapped into the error Open returns on any authentication
// failure (tampered ciphertext, wrong key, or an isFinal mismatch),
// letting callers classify the failure with errors.Is instead of matching
// on Open's error text, which is free to change wording.
var ErrAuth = errors.New("crypto: chunk authentication failed")

// AEADStream drives ChaCha20-Poly1305 across a chunked payload under one
// key, one base nonce, and one associated-data value for the life of a
// Pack/Unpack call. cipher.AEAD's Seal/Open are whole-message primitives,
// not the incremental update/finish pair the spec describes, so each chunk
// gets its own Seal/Open call with a per-chunk nonce derived by XORing the
// chunk index into the low 4 bytes of the header's base nonce — the same
// adaptation streaming AEAD wrappers over a whole-message primitive use
// elsewhere. The header still carries exactly one base nonce and one AD;
// each chunk's call additionally folds a one-byte final-chunk marker into
// that chunk's AD, so Open on a chunk sealed as final fails if the caller
// (having reached apparent EOF early) asks for it as non-final, or vice
// versa — a dropped tail of whole chunks is rejected rather than silently
// accepted as a short-but-complete payload.
type AEADStream struct {
	aead      interface {
		Seal(dst, nonce, plaintext, ad []byte) []byte
		Open(dst, nonce, ciphertext, ad []byte) ([]byte, error)
		Overhead() int
		NonceSize() int
	}
	baseNonce []byte
	ad        []byte
	chunkIdx  uint32
}

// NewAEADStream constructs a stream keyed by fileKey, bound to ad, using
// baseNonce as the per-stream nonce that every chunk's nonce is derived
// from.
func NewAEADStream(fileKey, baseNonce, ad []byte) (*AEADStream, error) {
	aead, err := chacha20poly1305.New(fileKey)
	if err != nil {
		return nil, fmt.Errorf("constructing AEAD: %w", err)
	}
	if len(baseNonce) != aead.NonceSize() {
		return nil, fmt.Errorf("nonce size %d, want %d", len(baseNonce), aead.NonceSize())
	}
	return &AEADStream{aead: aead, baseNonce: append([]byte{}, baseNonce...), ad: ad}, nil
}

// Overhead returns the AEAD's per-chunk authentication tag size.
func (s *AEADStream) Overhead() int { return s.aead.Overhead() }

func (s *AEADStream) chunkNonce() []byte {
	nonce := append([]byte{}, s.baseNonce...)
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], s.chunkIdx)
	for i := 0; i < 4; i++ {
		nonce[i] ^= idx[i]
	}
	s.chunkIdx++
	return nonce
}

// chunkAD returns the per-call associated data: the stream's fixed AD
// with a trailing 0x00 (non-final) or 0x01 (final) marker, built fresh
// each call so it never aliases s.ad's backing array.
func (s *AEADStream) chunkAD(isFinal bool) []byte {
	ad := make([]byte, len(s.ad)+1)
	copy(ad, s.ad)
	if isFinal {
		ad[len(s.ad)] = 1
	}
	return ad
}

// Seal encrypts and authenticates one chunk, returning ciphertext||tag.
// isFinal must match the value the corresponding Open call is given.
func (s *AEADStream) Seal(plaintext []byte, isFinal bool) []byte {
	return s.aead.Seal(nil, s.chunkNonce(), plaintext, s.chunkAD(isFinal))
}

// Open decrypts and verifies one chunk, stripping its tag. isFinal must
// match the value the chunk was Seal-ed with, or authentication fails —
// this is what rejects a stream truncated by whole chunks, since the
// chunk the pipeline now treats as final was sealed as non-final. The
// returned error wraps ErrAuth on any verification failure; callers
// classify it with errors.Is(err, ErrAuth) rather than matching text.
func (s *AEADStream) Open(ciphertext []byte, isFinal bool) ([]byte, error) {
	pt, err := s.aead.Open(nil, s.chunkNonce(), ciphertext, s.chunkAD(isFinal))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return pt, nil
}
