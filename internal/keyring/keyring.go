// Package keyring loads and generates the RSA key material cipherpack
// operations need: PEM-encoded PKCS#1 private keys and PKIX public keys
// on disk, with fingerprinting delegated to internal/crypto. This is the
// out-of-scope-for-the-core "key file parsing" collaborator: the core's
// crypto.KeySet only ever consumes the *rsa.PublicKey/*rsa.PrivateKey
// values a KeyRecord carries, never a file path.
package keyring

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"cipherpack/internal/crypto"
)

// KeyRecord is a loaded or generated key, with its fingerprint
// precomputed and LoadedFrom set to the source path for diagnostics only
// — never persisted in a header or registry entry.
type KeyRecord struct {
	Fingerprint []byte
	PublicKey   *rsa.PublicKey
	PrivateKey  *rsa.PrivateKey // nil for a public-only record
	Label       string
	LoadedFrom  string
}

const (
	pemBlockPrivate = "RSA PRIVATE KEY"
	pemBlockPublic  = "PUBLIC KEY"
)

// GenerateKeyPair draws a fresh RSA key pair of the given bit size (2048
// minimum for any production use) and fingerprints the public half.
func GenerateKeyPair(bits int) (*KeyRecord, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generating rsa key pair: %w", err)
	}
	fp, err := crypto.Fingerprint(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting generated key: %w", err)
	}
	return &KeyRecord{Fingerprint: fp, PublicKey: &priv.PublicKey, PrivateKey: priv}, nil
}

// SavePrivateKey writes priv to path as a PEM-encoded PKCS#1 block with
// 0600 permissions, since the file carries secret key material.
func SavePrivateKey(priv *rsa.PrivateKey, path string) error {
	der := x509.MarshalPKCS1PrivateKey(priv)
	block := &pem.Block{Type: pemBlockPrivate, Bytes: der}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("opening private key file: %w", err)
	}
	defer f.Close()
	if err := pem.Encode(f, block); err != nil {
		return fmt.Errorf("encoding private key: %w", err)
	}
	return nil
}

// SavePublicKey writes pub to path as a PEM-encoded PKIX block.
func SavePublicKey(pub *rsa.PublicKey, path string) error {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return fmt.Errorf("marshaling public key: %w", err)
	}
	block := &pem.Block{Type: pemBlockPublic, Bytes: der}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("opening public key file: %w", err)
	}
	defer f.Close()
	if err := pem.Encode(f, block); err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}
	return nil
}

// LoadPrivateKey reads a PEM-encoded PKCS#1 RSA private key from path.
func LoadPrivateKey(path string) (*KeyRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key file: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS1 private key: %w", err)
	}
	fp, err := crypto.Fingerprint(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting loaded key: %w", err)
	}
	return &KeyRecord{Fingerprint: fp, PublicKey: &priv.PublicKey, PrivateKey: priv, LoadedFrom: path}, nil
}

// LoadPublicKey reads a PEM-encoded PKIX RSA public key from path.
func LoadPublicKey(path string) (*KeyRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading public key file: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing PKIX public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s does not hold an RSA public key", path)
	}
	fp, err := crypto.Fingerprint(rsaPub)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting loaded key: %w", err)
	}
	return &KeyRecord{Fingerprint: fp, PublicKey: rsaPub, LoadedFrom: path}, nil
}
