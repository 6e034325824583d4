package header

import (
	"bytes"

	"cipherpack/internal/der"
)

// LegacyHeader1 is the reduced single-recipient header variant §6 calls
// the "Earlier format variant": package_magic, header1_size, target_path,
// payload_version, payload_version_parent, pk_sign_algo, pk_alg_id,
// cipher_algo_oid, a single encrypted_key, and nonce — no per-recipient
// list, no content_size, no creation_timestamp, no intention.
type LegacyHeader1 struct {
	PackageMagic         []byte
	Header1Size          uint32
	TargetPath           string
	PayloadVersion       string
	PayloadVersionParent string
	PKSignAlgo           string
	PKAlgID              string
	CipherAlgoOID        der.Element
	EncryptedKey         []byte
	Nonce                []byte
}

// ParseLegacy decodes the reduced header variant. Callers only reach this
// path when ParseOptions.AcceptLegacy is set and the strict Parse has
// already failed or been bypassed deliberately; ParseLegacy does not
// itself inspect AcceptLegacy.
func ParseLegacy(raw []byte, expectedMagic []byte) (*LegacyHeader1, error) {
	body, _, _, err := der.ReadSequenceHeader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	h := &LegacyHeader1{}

	h.PackageMagic, err = der.ReadOctetString(body)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(h.PackageMagic, expectedMagic) {
		return nil, newParseError(KindDecode, "legacy header: package_magic mismatch", nil)
	}

	sizeBytes, err := der.ReadOctetString(body)
	if err != nil {
		return nil, err
	}
	if len(sizeBytes) != 4 {
		return nil, newParseError(KindDecode, "legacy header: header1_size must be 4 bytes", nil)
	}
	h.Header1Size = uint32(sizeBytes[0]) | uint32(sizeBytes[1])<<8 | uint32(sizeBytes[2])<<16 | uint32(sizeBytes[3])<<24

	targetPath, err := der.ReadOctetString(body)
	if err != nil {
		return nil, err
	}
	h.TargetPath = string(targetPath)

	payloadVersion, err := der.ReadOctetString(body)
	if err != nil {
		return nil, err
	}
	h.PayloadVersion = string(payloadVersion)

	payloadVersionParent, err := der.ReadOctetString(body)
	if err != nil {
		return nil, err
	}
	h.PayloadVersionParent = string(payloadVersionParent)

	pkSignAlgo, err := der.ReadOctetString(body)
	if err != nil {
		return nil, err
	}
	h.PKSignAlgo = string(pkSignAlgo)

	pkAlgID, err := der.ReadOctetString(body)
	if err != nil {
		return nil, err
	}
	h.PKAlgID = string(pkAlgID)

	cipherAlgoOID, err := der.ExpectTag(body, der.TagObjectID)
	if err != nil {
		return nil, err
	}
	h.CipherAlgoOID = cipherAlgoOID

	h.EncryptedKey, err = der.ReadOctetString(body)
	if err != nil {
		return nil, err
	}

	h.Nonce, err = der.ReadOctetString(body)
	if err != nil {
		return nil, err
	}

	return h, nil
}

// Upgrade converts a legacy single-recipient header into the modern
// Header1 shape the rest of this package and the pipeline operate on, so
// that callers decoding a legacy stream get a uniform Header1 downstream.
// hostFingerprint and recipientFingerprint must be supplied by the caller:
// the legacy format does not carry either, only the raw encrypted key.
func (l *LegacyHeader1) Upgrade(hostFingerprint, recipientFingerprint []byte, crypto CryptoConfig) *Header1 {
	return &Header1{
		PackageMagic:         l.PackageMagic,
		Header1Size:          l.Header1Size,
		TargetPath:           l.TargetPath,
		HasContentSize:       false,
		PayloadVersion:       l.PayloadVersion,
		PayloadVersionParent: l.PayloadVersionParent,
		Crypto:               crypto,
		Nonce:                l.Nonce,
		HostFingerprint:      hostFingerprint,
		Recipients: []RecipientEntry{
			{Fingerprint: recipientFingerprint, EncryptedKey: l.EncryptedKey},
		},
	}
}
