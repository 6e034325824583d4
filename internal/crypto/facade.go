// Package crypto is the thin primitives facade the cipherpack core builds
// on: RSA-OAEP key wrapping, RSA-PKCS1v15 (EMSA1) signing, a chunked AEAD
// over ChaCha20-Poly1305, and public-key fingerprinting. Nothing here
// negotiates algorithms — CryptoConfig names are validated by the header
// package, not chosen here.
package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySet is the loaded key material a single Pack/Unpack call needs.
// Loading PEM/DER files into these fields is the keyring package's job;
// the facade only ever consumes already-parsed keys.
type KeySet struct {
	// HostSignKey signs Header₁ on the encrypt path.
	HostSignKey *rsa.PrivateKey
	// HostVerifyKeys are the trusted signer public keys on the decrypt
	// path; the header's fingerprt_host must match exactly one of them.
	HostVerifyKeys []*rsa.PublicKey
	// RecipientPublicKeys wrap the file key on the encrypt path, one per
	// recipient, in order.
	RecipientPublicKeys []*rsa.PublicKey
	// RecipientPrivateKey unwraps the file key on the decrypt path.
	RecipientPrivateKey *rsa.PrivateKey
}

// Fingerprint returns the SHA-256 digest of the key's DER-encoded
// SubjectPublicKeyInfo, the stable identifier bound into the header.
func Fingerprint(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshaling public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return sum[:], nil
}

// GenerateFileKey draws a fresh random AEAD key sized for ChaCha20-Poly1305.
func GenerateFileKey() ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating file key: %w", err)
	}
	return key, nil
}

// GenerateNonce draws a fresh random nonce sized for ChaCha20-Poly1305.
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return nonce, nil
}

// Zeroize overwrites b with zero bytes in place. Call on any buffer that
// held a file key, private key material, or a passphrase once it is no
// longer needed.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// WrapKey encrypts the file key under a recipient's public key with
// RSA-OAEP/SHA-256.
func WrapKey(pub *rsa.PublicKey, fileKey []byte) ([]byte, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, fileKey, nil)
	if err != nil {
		return nil, fmt.Errorf("wrapping file key: %w", err)
	}
	return ct, nil
}

// UnwrapKeyOrRandom attempts to recover the file key from a wrapped-key
// ciphertext under priv. If decryption fails or yields a plaintext of the
// wrong length, it returns a freshly-drawn random buffer of expectedLen
// instead, selected without an observable branch — the standard defense
// against Bleichenbacher-style padding oracles. Callers authenticate the
// result implicitly, by feeding it to the AEAD: a wrong key simply fails
// the subsequent tag check in AEADStream.Open, never here.
func UnwrapKeyOrRandom(priv *rsa.PrivateKey, ciphertext []byte, expectedLen int) ([]byte, error) {
	random := make([]byte, expectedLen)
	if _, err := rand.Read(random); err != nil {
		return nil, fmt.Errorf("drawing random fallback key: %w", err)
	}

	recovered, decErr := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)

	result := make([]byte, expectedLen)
	ok := decErr == nil && len(recovered) == expectedLen
	// subtle.ConstantTimeCopy avoids branching on ok when selecting which
	// buffer's bytes end up in result.
	padded := make([]byte, expectedLen)
	if decErr == nil && len(recovered) <= expectedLen {
		copy(padded[expectedLen-len(recovered):], recovered)
	}
	var okFlag int
	if ok {
		okFlag = 1
	}
	subtle.ConstantTimeCopy(okFlag, result, padded)
	subtle.ConstantTimeCopy(1-okFlag, result, random)

	return result, nil
}

// Sign signs msg with priv using RSA-PKCS1v15 over a SHA-256 digest — the
// Go rendering of EMSA1(SHA-256).
func Sign(priv *rsa.PrivateKey, msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, stdcrypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing header: %w", err)
	}
	return sig, nil
}

// Verify checks sig over msg against pub using RSA-PKCS1v15/SHA-256.
func Verify(pub *rsa.PublicKey, msg, sig []byte) error {
	digest := sha256.Sum256(msg)
	if err := rsa.VerifyPKCS1v15(pub, stdcrypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("verifying signature: %w", err)
	}
	return nil
}
