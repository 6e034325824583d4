package header

import (
	"bytes"
	"crypto/rsa"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"cipherpack/internal/crypto"
	"cipherpack/internal/der"
)

// Kind classifies why Parse rejected a stream, mirroring the abstract
// error taxonomy: decode framing failures, algorithm mismatches,
// signature failures, and missing recipients are all distinguishable by
// the orchestrator so it can report the right ErrorKind upward.
type Kind int

const (
	KindDecode Kind = iota
	KindAlgorithmMismatch
	KindSignatureMismatch
	KindNoRecipientMatch
)

// ParseError reports why header parsing failed.
type ParseError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("header: %s", e.Err)
	}
	return fmt.Sprintf("header: %s", e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(kind Kind, msg string, err error) *ParseError {
	return &ParseError{Kind: kind, Msg: msg, Err: err}
}

// ParseOptions controls header decoding.
type ParseOptions struct {
	// PackageMagic is the expected package_magic value; mismatches are
	// rejected as KindDecode.
	PackageMagic []byte
	// Expected is the CryptoConfig the caller requires; every algorithm
	// identifier in Header1 must match it exactly.
	Expected CryptoConfig
	// TrustedHostKeys are candidate signer public keys; the header's
	// fingerprt_host must match exactly one, and that key must verify
	// Header2's signature.
	TrustedHostKeys []*rsa.PublicKey
	// AcceptLegacy enables decoding the reduced single-recipient header
	// variant described in §6 ("Earlier format variant"). Off by default:
	// an unrecognized reduced header is otherwise treated as unknown.
	AcceptLegacy bool
}

// ParseResult carries the parsed Header1 plus the bookkeeping Parse needs
// to hand back to the caller: whether the signature was verified, the
// trusted host key that verified it, and Header1's exact wire bytes. The
// recipient entry is selected separately, by MatchRecipient.
type ParseResult struct {
	Header1         *Header1
	Verified        bool
	MatchedHostKey  *rsa.PublicKey
	Header1RawBytes []byte
}

// Parse implements §4.3's decode algorithm against r, which must be
// positioned at the start of Header1. r is consumed exactly through the
// end of Header2; nothing past that point is read.
//
// DER's own length prefix already tells a reader the exact byte count of
// the Header1 SEQUENCE's content, so step 1's "peek just the first two
// OctetStrings" collapses here into one read of the whole self-delimited
// element; header1_size is then validated as the cross-check §3's
// invariant describes, not used to decide how many bytes to read.
func Parse(r io.Reader, opts ParseOptions) (*ParseResult, error) {
	el, err := der.ExpectTag(r, der.TagSequence)
	if err != nil {
		return nil, newParseError(KindDecode, "reading header1 sequence", err)
	}
	h1Bytes := el.Raw

	h1, err := decodeHeader1(h1Bytes)
	if err != nil {
		if opts.AcceptLegacy {
			return parseLegacyFallback(r, h1Bytes, opts)
		}
		return nil, newParseError(KindDecode, "parsing header1 body", err)
	}
	if !bytes.Equal(h1.PackageMagic, opts.PackageMagic) {
		return nil, newParseError(KindDecode, "package_magic mismatch", nil)
	}
	if h1.Header1Size != uint32(len(h1Bytes)) {
		return nil, newParseError(KindDecode, "embedded header1_size disagrees with observed wire length", nil)
	}

	// Step 3: parse Header2, extracting the signature.
	h2Body, _, _, err := der.ReadSequenceHeader(r)
	if err != nil {
		return nil, newParseError(KindDecode, "reading header2 sequence header", err)
	}
	sig, err := der.ReadOctetString(h2Body)
	if err != nil {
		return nil, newParseError(KindDecode, "reading header_sign_host", err)
	}

	// Step 4: verify the signature using the host key whose fingerprint
	// matches fingerprt_host.
	var matched *rsa.PublicKey
	for _, candidate := range opts.TrustedHostKeys {
		fp, err := crypto.Fingerprint(candidate)
		if err != nil {
			continue
		}
		if bytes.Equal(fp, h1.HostFingerprint) {
			matched = candidate
			break
		}
	}
	if matched == nil {
		return nil, newParseError(KindSignatureMismatch, "no trusted host key matches fingerprt_host", nil)
	}
	if err := crypto.Verify(matched, h1Bytes, sig); err != nil {
		return nil, newParseError(KindSignatureMismatch, "header1 signature verification failed", err)
	}

	// Step 5: validate every algorithm identifier against the caller's
	// expected CryptoConfig.
	if err := validateCryptoConfig(h1.Crypto, opts.Expected); err != nil {
		return nil, newParseError(KindAlgorithmMismatch, "", err)
	}

	return &ParseResult{
		Header1:         h1,
		Verified:        true,
		MatchedHostKey:  matched,
		Header1RawBytes: h1Bytes,
	}, nil
}

// MatchRecipient implements step 6: locate the first recipient entry
// whose fingerprint matches decKey's public fingerprint. A single
// recipient entry with no fingerprint at all matches unconditionally —
// the wire shape ParseLegacy/Upgrade produce for the reduced single-
// recipient header variant, which carries no per-recipient fingerprint
// to compare against.
func MatchRecipient(h1 *Header1, decKey *rsa.PublicKey) (int, error) {
	if len(h1.Recipients) == 1 && len(h1.Recipients[0].Fingerprint) == 0 {
		return 0, nil
	}

	fp, err := crypto.Fingerprint(decKey)
	if err != nil {
		return -1, newParseError(KindNoRecipientMatch, "fingerprinting decryption key", err)
	}
	for i, rcpt := range h1.Recipients {
		if bytes.Equal(rcpt.Fingerprint, fp) {
			return i, nil
		}
	}
	return -1, newParseError(KindNoRecipientMatch, "no recipient entry matches the supplied decryption key", nil)
}

// parseLegacyFallback decodes h1Bytes as the reduced single-recipient
// header variant (§6 "Earlier format variant") after the strict decode
// has already failed. Header2's signature still follows in r exactly as
// in the modern format; since the legacy wire shape carries no
// fingerprt_host field, every trusted host key is tried against the
// signature rather than narrowed by a fingerprint lookup first.
func parseLegacyFallback(r io.Reader, h1Bytes []byte, opts ParseOptions) (*ParseResult, error) {
	legacy, err := ParseLegacy(h1Bytes, opts.PackageMagic)
	if err != nil {
		return nil, newParseError(KindDecode, "parsing legacy header1 body", err)
	}
	if legacy.Header1Size != uint32(len(h1Bytes)) {
		return nil, newParseError(KindDecode, "embedded header1_size disagrees with observed wire length", nil)
	}

	h2Body, _, _, err := der.ReadSequenceHeader(r)
	if err != nil {
		return nil, newParseError(KindDecode, "reading header2 sequence header", err)
	}
	sig, err := der.ReadOctetString(h2Body)
	if err != nil {
		return nil, newParseError(KindDecode, "reading header_sign_host", err)
	}

	var matched *rsa.PublicKey
	for _, candidate := range opts.TrustedHostKeys {
		if err := crypto.Verify(candidate, h1Bytes, sig); err == nil {
			matched = candidate
			break
		}
	}
	if matched == nil {
		return nil, newParseError(KindSignatureMismatch, "no trusted host key verifies legacy header1 signature", nil)
	}

	hostFingerprint, err := crypto.Fingerprint(matched)
	if err != nil {
		return nil, newParseError(KindSignatureMismatch, "fingerprinting matched host key", err)
	}

	h1 := legacy.Upgrade(hostFingerprint, nil, CryptoConfig{PKSignAlgo: legacy.PKSignAlgo})

	return &ParseResult{
		Header1:         h1,
		Verified:        true,
		MatchedHostKey:  matched,
		Header1RawBytes: h1Bytes,
	}, nil
}

func validateCryptoConfig(got, want CryptoConfig) error {
	switch {
	case got.PKType != want.PKType:
		return fmt.Errorf("pk_type: got %q, want %q", got.PKType, want.PKType)
	case got.PKFingerprintHash != want.PKFingerprintHash:
		return fmt.Errorf("pk_fingerprint_hash: got %q, want %q", got.PKFingerprintHash, want.PKFingerprintHash)
	case got.PKEncPadding != want.PKEncPadding:
		return fmt.Errorf("pk_enc_padding: got %q, want %q", got.PKEncPadding, want.PKEncPadding)
	case got.PKEncHash != want.PKEncHash:
		return fmt.Errorf("pk_enc_hash: got %q, want %q", got.PKEncHash, want.PKEncHash)
	case got.PKSignAlgo != want.PKSignAlgo:
		return fmt.Errorf("pk_sign_algo: got %q, want %q", got.PKSignAlgo, want.PKSignAlgo)
	case !got.SymEncMACOID.Equal(want.SymEncMACOID):
		return fmt.Errorf("sym_enc_mac_oid: got %v, want %v", got.SymEncMACOID, want.SymEncMACOID)
	}
	return nil
}

// decodeHeader1 parses the fields of a Header1 SEQUENCE out of its raw
// TLV bytes, in the order §6 defines them.
func decodeHeader1(raw []byte) (*Header1, error) {
	bodyReader, _, _, err := der.ReadSequenceHeader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	// ReadSequenceHeader always hands back the content wrapped in a
	// *bytes.Reader; asserting it lets us bound encrypted_fkey_count
	// against the bytes actually remaining before allocating for it.
	body := bodyReader.(*bytes.Reader)

	h := &Header1{}

	h.PackageMagic, err = der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("package_magic: %w", err)
	}
	sizeBytes, err := der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("header1_size: %w", err)
	}
	if len(sizeBytes) != 4 {
		return nil, fmt.Errorf("header1_size: expected 4 bytes, got %d", len(sizeBytes))
	}
	h.Header1Size = binary.LittleEndian.Uint32(sizeBytes)

	targetPath, err := der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("target_path: %w", err)
	}
	h.TargetPath = string(targetPath)

	h.ContentSize, err = der.ReadInteger(body)
	if err != nil {
		return nil, fmt.Errorf("content_size: %w", err)
	}
	h.HasContentSize = true // a decoded header always carries an explicit value; callers combining 0 with S1 know it means "empty"

	creationSec, err := der.ReadInteger(body)
	if err != nil {
		return nil, fmt.Errorf("creation_timestamp_sec: %w", err)
	}
	h.CreationTime = time.Unix(creationSec, 0).UTC()

	intention, err := der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("intention: %w", err)
	}
	h.Intention = string(intention)

	payloadVersion, err := der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("payload_version: %w", err)
	}
	h.PayloadVersion = string(payloadVersion)

	payloadVersionParent, err := der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("payload_version_parent: %w", err)
	}
	h.PayloadVersionParent = string(payloadVersionParent)

	pkType, err := der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("pk_type: %w", err)
	}
	h.Crypto.PKType = string(pkType)

	pkFpHash, err := der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("pk_fingerprt_hash_algo: %w", err)
	}
	h.Crypto.PKFingerprintHash = string(pkFpHash)

	pkEncPadding, err := der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("pk_enc_padding_algo: %w", err)
	}
	h.Crypto.PKEncPadding = string(pkEncPadding)

	pkEncHash, err := der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("pk_enc_hash_algo: %w", err)
	}
	h.Crypto.PKEncHash = string(pkEncHash)

	pkSignAlgo, err := der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("pk_sign_algo: %w", err)
	}
	h.Crypto.PKSignAlgo = string(pkSignAlgo)

	h.Crypto.SymEncMACOID, err = der.ReadObjectIdentifier(body)
	if err != nil {
		return nil, fmt.Errorf("sym_enc_mac_oid: %w", err)
	}

	h.Nonce, err = der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	h.HostFingerprint, err = der.ReadOctetString(body)
	if err != nil {
		return nil, fmt.Errorf("fingerprt_host: %w", err)
	}

	count, err := der.ReadInteger(body)
	if err != nil {
		return nil, fmt.Errorf("encrypted_fkey_count: %w", err)
	}
	// Each recipient entry is at least two OctetString TLVs (tag+length
	// bytes included), so count can never legitimately exceed the bytes
	// actually remaining in body; reject before allocating to avoid a
	// crafted header forcing a huge allocation ahead of any read failing.
	if count < 0 || count > int64(body.Len())/2 {
		return nil, fmt.Errorf("encrypted_fkey_count: %d is not plausible for %d remaining bytes", count, body.Len())
	}

	h.Recipients = make([]RecipientEntry, 0, count)
	for i := int64(0); i < count; i++ {
		fp, err := der.ReadOctetString(body)
		if err != nil {
			return nil, fmt.Errorf("fingerprt_term_%d: %w", i, err)
		}
		key, err := der.ReadOctetString(body)
		if err != nil {
			return nil, fmt.Errorf("encrypted_fkey_term_%d: %w", i, err)
		}
		h.Recipients = append(h.Recipients, RecipientEntry{Fingerprint: fp, EncryptedKey: key})
	}

	return h, nil
}
