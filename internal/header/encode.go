package header

import (
	"crypto/rsa"
	"encoding/binary"
	"fmt"

	"cipherpack/internal/crypto"
	"cipherpack/internal/der"
)

// Assemble builds the on-wire Header1 and Header2 bytes: two encoding
// passes for Header1 (pass 1 measures the SEQUENCE's total byte length,
// pass 2 binds that length into the header1_size field), then a signature
// over the exact pass-2 bytes, wrapped as Header2.
//
// h.Header1Size is ignored on input and overwritten with the measured
// value.
func Assemble(h *Header1, signKey *rsa.PrivateKey) (header1Bytes, header2Bytes []byte, err error) {
	pass1, err := encodeHeader1(h, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("header: pass 1 encode: %w", err)
	}

	size := uint32(len(pass1))
	pass2, err := encodeHeader1(h, size)
	if err != nil {
		return nil, nil, fmt.Errorf("header: pass 2 encode: %w", err)
	}
	if len(pass2) != len(pass1) {
		return nil, nil, fmt.Errorf("header: pass 2 length %d diverged from pass 1 length %d", len(pass2), len(pass1))
	}
	h.Header1Size = size

	sig, err := crypto.Sign(signKey, pass2)
	if err != nil {
		return nil, nil, fmt.Errorf("header: signing header1: %w", err)
	}
	header2 := der.EncodeSequence(der.EncodeOctetString(sig))

	return pass2, header2, nil
}

// encodeHeader1 renders Header1 as a DER SEQUENCE per §6, with
// header1_size set to the given value (0 on pass 1).
func encodeHeader1(h *Header1, header1Size uint32) ([]byte, error) {
	sizeBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBuf, header1Size)

	contentSize := h.ContentSize
	if !h.HasContentSize {
		contentSize = 0
	}

	elements := [][]byte{
		der.EncodeOctetString(h.PackageMagic),
		der.EncodeOctetString(sizeBuf),
		der.EncodeOctetString([]byte(h.TargetPath)),
		der.EncodeInteger(contentSize),
		der.EncodeInteger(h.CreationTime.Unix()),
		der.EncodeOctetString([]byte(h.Intention)),
		der.EncodeOctetString([]byte(h.PayloadVersion)),
		der.EncodeOctetString([]byte(h.PayloadVersionParent)),
		der.EncodeOctetString([]byte(h.Crypto.PKType)),
		der.EncodeOctetString([]byte(h.Crypto.PKFingerprintHash)),
		der.EncodeOctetString([]byte(h.Crypto.PKEncPadding)),
		der.EncodeOctetString([]byte(h.Crypto.PKEncHash)),
		der.EncodeOctetString([]byte(h.Crypto.PKSignAlgo)),
		der.EncodeObjectIdentifier(h.Crypto.SymEncMACOID),
		der.EncodeOctetString(h.Nonce),
		der.EncodeOctetString(h.HostFingerprint),
		der.EncodeInteger(int64(len(h.Recipients))),
	}
	for _, rcpt := range h.Recipients {
		elements = append(elements, der.EncodeOctetString(rcpt.Fingerprint))
		elements = append(elements, der.EncodeOctetString(rcpt.EncryptedKey))
	}

	return der.EncodeSequence(elements...), nil
}
