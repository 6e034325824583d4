// Package header implements the two-pass Header₁ assembler and the strict
// Header₁/Header₂ parser: the binary format that connects cipherpack's
// encrypt and decrypt state machines.
package header

import (
	"encoding/asn1"
	"time"
)

// CryptoConfig names the algorithm set a stream was produced with. It is
// immutable for the life of a stream and is cross-checked field-by-field
// on decode against the caller's expectation.
type CryptoConfig struct {
	PKType            string // e.g. "RSA"
	PKFingerprintHash string // e.g. "SHA-256"
	PKEncPadding      string // e.g. "OAEP"
	PKEncHash         string // e.g. "SHA-256"
	PKSignAlgo        string // e.g. "EMSA1(SHA-256)"
	SymEncMACOID      asn1.ObjectIdentifier
}

// OIDChaCha20Poly1305 identifies the symmetric AEAD this repository's
// pipeline actually runs (golang.org/x/crypto/chacha20poly1305). There is
// no IANA-registered OID for this algorithm; cipherpack mints a private
// enterprise-arc identifier purely as a stable on-wire tag, exactly the
// role §6's sym_enc_mac_oid field plays — it is never resolved against any
// external registry.
var OIDChaCha20Poly1305 = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 55594, 1, 1}

// DefaultCryptoConfig is the one algorithm set this repository implements.
func DefaultCryptoConfig() CryptoConfig {
	return CryptoConfig{
		PKType:            "RSA",
		PKFingerprintHash: "SHA-256",
		PKEncPadding:      "OAEP",
		PKEncHash:         "SHA-256",
		PKSignAlgo:        "EMSA1(SHA-256)",
		SymEncMACOID:      OIDChaCha20Poly1305,
	}
}

// RecipientEntry is one (fingerprint, wrapped file key) pair from Header₁.
type RecipientEntry struct {
	Fingerprint  []byte
	EncryptedKey []byte
}

// Header1 is the fully-populated, parsed or about-to-be-assembled first
// DER SEQUENCE of a cipherpack stream.
type Header1 struct {
	PackageMagic          []byte
	Header1Size           uint32 // the field's own value; see Invariants in §3
	TargetPath            string
	ContentSize           int64
	HasContentSize        bool // resolves §9 Open Question (ii)
	CreationTime          time.Time
	Intention             string
	PayloadVersion        string
	PayloadVersionParent  string
	Crypto                CryptoConfig
	Nonce                 []byte
	HostFingerprint       []byte
	Recipients            []RecipientEntry
}

// PackHeader is the listener-facing view of a header: everything Header1
// carries, plus decrypt-only and validity bookkeeping the parser adds.
type PackHeader struct {
	TargetPath             string
	ContentSize            int64
	HasContentSize         bool
	CreationTime           time.Time
	Intention              string
	PayloadVersion         string
	PayloadVersionParent   string
	Crypto                 CryptoConfig
	HostKeyFingerprint     []byte
	RecipientFingerprints  [][]byte
	UsedRecipientIndex     int  // -1 if not applicable (encrypt, or no match yet)
	Valid                  bool
}

// FromHeader1 builds the listener-facing PackHeader from a parsed/assembled
// Header1, before any recipient has necessarily been matched.
func FromHeader1(h1 *Header1) *PackHeader {
	fps := make([][]byte, len(h1.Recipients))
	for i, r := range h1.Recipients {
		fps[i] = r.Fingerprint
	}
	return &PackHeader{
		TargetPath:            h1.TargetPath,
		ContentSize:           h1.ContentSize,
		HasContentSize:        h1.HasContentSize,
		CreationTime:          h1.CreationTime,
		Intention:             h1.Intention,
		PayloadVersion:        h1.PayloadVersion,
		PayloadVersionParent:  h1.PayloadVersionParent,
		Crypto:                h1.Crypto,
		HostKeyFingerprint:    h1.HostFingerprint,
		RecipientFingerprints: fps,
		UsedRecipientIndex:    -1,
	}
}
