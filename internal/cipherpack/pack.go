package cipherpack

import (
	"bytes"
	"fmt"
	"time"

	"cipherpack/internal/crypto"
	"cipherpack/internal/header"
	"cipherpack/internal/pipeline"
	"cipherpack/internal/stream"
)

// Pack implements encryptThenSign: it assembles and signs a header over
// src's metadata, wraps a fresh FileKey for every recipient in keys, then
// streams src through the AEAD pipeline into sink. sink is committed on
// success and aborted on any failure, including a Listener abort.
func Pack(src stream.Source, sink stream.Sink, keys crypto.KeySet, opts Options, listener Listener) (*header.PackHeader, error) {
	if listener == nil {
		listener = NopListener{}
	}
	const decryptMode = false

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

	if len(keys.RecipientPublicKeys) == 0 {
		return fail(ErrCryptoFailure, fmt.Errorf("no recipients configured"))
	}
	if keys.HostSignKey == nil {
		return fail(ErrCryptoFailure, fmt.Errorf("no host signing key configured"))
	}

	fileKey, err := crypto.GenerateFileKey()
	if err != nil {
		return fail(ErrCryptoFailure, err)
	}
	defer crypto.Zeroize(fileKey)

	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return fail(ErrCryptoFailure, err)
	}

	recipients := make([]header.RecipientEntry, len(keys.RecipientPublicKeys))
	for i, pub := range keys.RecipientPublicKeys {
		fp, err := crypto.Fingerprint(pub)
		if err != nil {
			return fail(ErrCryptoFailure, fmt.Errorf("fingerprinting recipient %d: %w", i, err))
		}
		wrapped, err := crypto.WrapKey(pub, fileKey)
		if err != nil {
			return fail(ErrCryptoFailure, fmt.Errorf("wrapping file key for recipient %d: %w", i, err))
		}
		recipients[i] = header.RecipientEntry{Fingerprint: fp, EncryptedKey: wrapped}
	}

	hostFingerprint, err := crypto.Fingerprint(&keys.HostSignKey.PublicKey)
	if err != nil {
		return fail(ErrCryptoFailure, err)
	}

	contentSize, hasContentSize := src.ContentSize()

	h1 := &header.Header1{
		PackageMagic:         opts.PackageMagic,
		TargetPath:           opts.TargetPath,
		ContentSize:          contentSize,
		HasContentSize:       hasContentSize,
		CreationTime:         time.Now().UTC(),
		Intention:            opts.Intention,
		PayloadVersion:       opts.PayloadVersion,
		PayloadVersionParent: opts.PayloadVersionParent,
		Crypto:               opts.Crypto,
		Nonce:                nonce,
		HostFingerprint:      hostFingerprint,
		Recipients:           recipients,
	}

	header1Bytes, header2Bytes, err := header.Assemble(h1, keys.HostSignKey)
	if err != nil {
		return fail(ErrCryptoFailure, err)
	}

	sendContent := listener.GetSendContent(decryptMode)

	ph = header.FromHeader1(h1)
	ph.Valid = true
	listener.NotifyHeader(decryptMode, ph, true)

	if _, err := sink.Write(header1Bytes); err != nil {
		return fail(ErrIO, fmt.Errorf("writing header1: %w", err))
	}
	if sendContent {
		if !listener.ContentProcessed(decryptMode, true, header1Bytes, false) {
			return fail(ErrListenerAbort, fmt.Errorf("listener rejected header1"))
		}
	}
	if _, err := sink.Write(header2Bytes); err != nil {
		return fail(ErrIO, fmt.Errorf("writing header2: %w", err))
	}
	if sendContent {
		if !listener.ContentProcessed(decryptMode, true, header2Bytes, true) {
			return fail(ErrListenerAbort, fmt.Errorf("listener rejected header2"))
		}
	}

	ad := concatWrappedKeys(recipients)
	aead, err := crypto.NewAEADStream(fileKey, nonce, ad)
	if err != nil {
		return fail(ErrCryptoFailure, err)
	}

	var bytesProcessed int64
	hook := func(processed []byte, isFinal bool) (bool, error) {
		bytesProcessed += int64(len(processed))
		listener.NotifyProgress(decryptMode, contentSize, bytesProcessed)
		if sendContent {
			if !listener.ContentProcessed(decryptMode, false, processed, isFinal) {
				return false, nil
			}
		}
		return true, nil
	}

	if _, err := pipeline.Run(src, sink, aead, false, opts.BufferSize, hook); err != nil {
		if err == pipeline.ErrAborted {
			return fail(ErrListenerAbort, err)
		}
		return fail(ErrIO, err)
	}

	ph.Valid = true
	listener.NotifyEnd(decryptMode, ph, true)
	return ph, nil
}

func concatWrappedKeys(recipients []header.RecipientEntry) []byte {
	var buf bytes.Buffer
	for _, r := range recipients {
		buf.Write(r.EncryptedKey)
	}
	return buf.Bytes()
}
