package header

import (
	"bytes"
	"crypto/rsa"
	"encoding/binary"
	"testing"

	"cipherpack/internal/crypto"
	"cipherpack/internal/der"
)

func buildLegacyBytes(t *testing.T, magic []byte) []byte {
	t.Helper()
	sizeBuf := make([]byte, 4)

	build := func(size uint32) []byte {
		binary.LittleEndian.PutUint32(sizeBuf, size)
		return der.EncodeSequence(
			der.EncodeOctetString(magic),
			der.EncodeOctetString(append([]byte{}, sizeBuf...)),
			der.EncodeOctetString([]byte("legacy.bin")),
			der.EncodeOctetString([]byte("v0")),
			der.EncodeOctetString([]byte("")),
			der.EncodeOctetString([]byte("EMSA1(SHA-256)")),
			der.EncodeOctetString([]byte("RSA")),
			der.EncodeObjectIdentifier(OIDChaCha20Poly1305),
			der.EncodeOctetString(bytes.Repeat([]byte{0xAB}, 256)),
			der.EncodeOctetString(bytes.Repeat([]byte{0x22}, 12)),
		)
	}

	pass1 := build(0)
	pass2 := build(uint32(len(pass1)))
	if len(pass2) != len(pass1) {
		t.Fatalf("legacy header length diverged between passes")
	}
	return pass2
}

func TestParseLegacyHeader(t *testing.T) {
	magic := []byte("CPKLEGACY")
	raw := buildLegacyBytes(t, magic)

	lh, err := ParseLegacy(raw, magic)
	if err != nil {
		t.Fatalf("ParseLegacy() error = %v", err)
	}
	if lh.TargetPath != "legacy.bin" {
		t.Errorf("TargetPath = %q", lh.TargetPath)
	}
	if lh.PayloadVersion != "v0" {
		t.Errorf("PayloadVersion = %q", lh.PayloadVersion)
	}
	if len(lh.EncryptedKey) != 256 {
		t.Errorf("EncryptedKey length = %d", len(lh.EncryptedKey))
	}

	upgraded := lh.Upgrade([]byte("hostfp"), []byte("recipientfp"), DefaultCryptoConfig())
	if len(upgraded.Recipients) != 1 {
		t.Fatalf("expected exactly one upgraded recipient, got %d", len(upgraded.Recipients))
	}
	if !bytes.Equal(upgraded.Recipients[0].EncryptedKey, lh.EncryptedKey) {
		t.Error("upgraded recipient key does not match legacy encrypted key")
	}
}

func TestParseLegacyRejectsWrongMagic(t *testing.T) {
	raw := buildLegacyBytes(t, []byte("CPKLEGACY"))
	_, err := ParseLegacy(raw, []byte("WRONGMAGIC"))
	if err == nil {
		t.Fatal("expected error for mismatched legacy package_magic")
	}
}

// TestParseFallsBackToLegacyWhenAccepted exercises the production
// Parse path end-to-end: a reduced single-recipient wire stream that
// Parse's strict decode cannot interpret is accepted only when
// AcceptLegacy is set, and rejected otherwise.
func TestParseFallsBackToLegacyWhenAccepted(t *testing.T) {
	hostKey := genKey(t, 2048)
	magic := []byte("CPKLEGACY")
	h1Bytes := buildLegacyBytes(t, magic)

	sig, err := crypto.Sign(hostKey, h1Bytes)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	header2Bytes := der.EncodeSequence(der.EncodeOctetString(sig))

	var wire bytes.Buffer
	wire.Write(h1Bytes)
	wire.Write(header2Bytes)

	result, err := Parse(&wire, ParseOptions{
		PackageMagic:    magic,
		TrustedHostKeys: []*rsa.PublicKey{&hostKey.PublicKey},
		AcceptLegacy:    true,
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !result.Verified {
		t.Fatal("expected Verified=true")
	}
	if result.Header1.TargetPath != "legacy.bin" {
		t.Errorf("TargetPath = %q", result.Header1.TargetPath)
	}
	if len(result.Header1.Recipients) != 1 {
		t.Fatalf("got %d recipients, want 1", len(result.Header1.Recipients))
	}

	idx, err := MatchRecipient(result.Header1, &hostKey.PublicKey)
	if err != nil {
		t.Fatalf("MatchRecipient() error = %v", err)
	}
	if idx != 0 {
		t.Errorf("idx = %d, want 0", idx)
	}
}

func TestParseRejectsLegacyWireWhenNotAccepted(t *testing.T) {
	hostKey := genKey(t, 2048)
	magic := []byte("CPKLEGACY")
	h1Bytes := buildLegacyBytes(t, magic)

	sig, err := crypto.Sign(hostKey, h1Bytes)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	header2Bytes := der.EncodeSequence(der.EncodeOctetString(sig))

	var wire bytes.Buffer
	wire.Write(h1Bytes)
	wire.Write(header2Bytes)

	_, err = Parse(&wire, ParseOptions{
		PackageMagic:    magic,
		TrustedHostKeys: []*rsa.PublicKey{&hostKey.PublicKey},
	})
	if err == nil {
		t.Fatal("expected error decoding a legacy wire stream with AcceptLegacy unset")
	}
}
