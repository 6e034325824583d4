package cipherpack

import (
	"errors"
	"fmt"
	"io"

	"cipherpack/internal/crypto"
	"cipherpack/internal/header"
	"cipherpack/internal/pipeline"
	"cipherpack/internal/stream"
)

// Unpack implements checkSignThenDecrypt: it parses and verifies the
// header from src, locates the recipient entry matching keys'
// decryption key, unwraps the FileKey, then streams the remaining
// ciphertext through the AEAD pipeline into sink.
func Unpack(src stream.Source, sink stream.Sink, keys crypto.KeySet, opts Options, listener Listener) (*header.PackHeader, error) {
	if listener == nil {
		listener = NopListener{}
	}
	const decryptMode = true

	var ph *header.PackHeader
	fail := func(kind ErrorKind, err error) (*header.PackHeader, error) {
		wrapped := newError(kind, err)
		listener.NotifyError(decryptMode, wrapped.Error())
		if ph == nil {
			ph = &header.PackHeader{}
		}
		ph.Valid = false
		listener.NotifyEnd(decryptMode, ph, false)
		sink.Abort()
		return ph, wrapped
	}

	if keys.RecipientPrivateKey == nil {
		return fail(ErrCryptoFailure, fmt.Errorf("no recipient decryption key configured"))
	}

	headerReader := &sourceReader{src: src}

	result, err := header.Parse(headerReader, header.ParseOptions{
		PackageMagic:    opts.PackageMagic,
		Expected:        opts.Crypto,
		TrustedHostKeys: keys.HostVerifyKeys,
		AcceptLegacy:    opts.AcceptLegacyHeader,
	})
	if err != nil {
		var pe *header.ParseError
		if errors.As(err, &pe) {
			switch pe.Kind {
			case header.KindAlgorithmMismatch:
				return fail(ErrAlgorithmMismatch, err)
			case header.KindSignatureMismatch:
				return fail(ErrSignatureMismatch, err)
			case header.KindNoRecipientMatch:
				return fail(ErrNoRecipientMatch, err)
			}
		}
		return fail(ErrDecode, err)
	}
	h1 := result.Header1

	recipientIdx, err := header.MatchRecipient(h1, &keys.RecipientPrivateKey.PublicKey)
	if err != nil {
		return fail(ErrNoRecipientMatch, err)
	}

	ph = header.FromHeader1(h1)
	ph.UsedRecipientIndex = recipientIdx
	ph.Valid = true
	listener.NotifyHeader(decryptMode, ph, result.Verified)

	sendContent := listener.GetSendContent(decryptMode)
	if sendContent {
		if !listener.ContentProcessed(decryptMode, true, result.Header1RawBytes, true) {
			return fail(ErrListenerAbort, fmt.Errorf("listener rejected header1"))
		}
	}

	fileKeyLen, err := expectedFileKeyLen(h1.Crypto)
	if err != nil {
		return fail(ErrCryptoFailure, err)
	}
	fileKey, err := crypto.UnwrapKeyOrRandom(keys.RecipientPrivateKey, h1.Recipients[recipientIdx].EncryptedKey, fileKeyLen)
	if err != nil {
		return fail(ErrCryptoFailure, err)
	}
	defer crypto.Zeroize(fileKey)

	ad := concatWrappedKeys(h1.Recipients)
	aead, err := crypto.NewAEADStream(fileKey, h1.Nonce, ad)
	if err != nil {
		return fail(ErrCryptoFailure, err)
	}

	var bytesProcessed int64
	hook := func(processed []byte, isFinal bool) (bool, error) {
		bytesProcessed += int64(len(processed))
		listener.NotifyProgress(decryptMode, h1.ContentSize, bytesProcessed)
		if sendContent {
			if !listener.ContentProcessed(decryptMode, false, processed, isFinal) {
				return false, nil
			}
		}
		return true, nil
	}

	if _, err := pipeline.Run(src, sink, aead, true, opts.BufferSize, hook); err != nil {
		if err == pipeline.ErrAborted {
			return fail(ErrListenerAbort, err)
		}
		if errors.Is(err, crypto.ErrAuth) {
			return fail(ErrAuthFailure, err)
		}
		return fail(ErrIO, err)
	}

	ph.Valid = true
	listener.NotifyEnd(decryptMode, ph, true)
	return ph, nil
}

func expectedFileKeyLen(cfg header.CryptoConfig) (int, error) {
	if cfg.SymEncMACOID.Equal(header.OIDChaCha20Poly1305) {
		return 32, nil
	}
	return 0, fmt.Errorf("unsupported sym_enc_mac_oid %v", cfg.SymEncMACOID)
}

// sourceReader adapts a stream.Source to an io.Reader so header.Parse can
// consume it with ordinary sequential reads. der.ExpectTag and
// der.ReadSequenceHeader never read past the length each TLV declares, so
// once header parsing returns, src's next Read picks up exactly at the
// first byte of ciphertext; no bytes need to be replayed.
type sourceReader struct {
	src stream.Source
}

func (r *sourceReader) Read(p []byte) (int, error) {
	n, eof, err := r.src.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 && eof {
		return 0, io.EOF
	}
	return n, nil
}
