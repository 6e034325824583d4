package cipherpack

import (
	"errors"

	"cipherpack/internal/crypto"
	"cipherpack/internal/header"
	"cipherpack/internal/stream"
)

// openFileSink opens dstPath, classifying a disallowed-overwrite
// rejection as ErrOverwrite and every other failure (e.g. a missing
// parent directory) as ErrIO, so PackFile/UnpackFile's early failures
// carry the same ErrorKind granularity as a failure inside the pipeline
// itself.
func openFileSink(dstPath string, overwrite bool) (*stream.FileSink, *Error) {
	sink, err := stream.NewFileSink(dstPath, overwrite)
	if err != nil {
		if errors.Is(err, stream.ErrDestinationExists) {
			return nil, newError(ErrOverwrite, err)
		}
		return nil, newError(ErrIO, err)
	}
	return sink, nil
}

// notifyFailure reports an early failure — one that happened before Pack
// or Unpack itself could run — through the same NotifyError/NotifyEnd
// sequence §7 requires of every other failure path.
func notifyFailure(listener Listener, decryptMode bool, err *Error) (*header.PackHeader, error) {
	if listener == nil {
		listener = NopListener{}
	}
	listener.NotifyError(decryptMode, err.Error())
	ph := &header.PackHeader{Valid: false}
	listener.NotifyEnd(decryptMode, ph, false)
	return ph, err
}

// PackFile is a thin path-based wrapper around Pack: it opens src for
// reading and prepares dst as an atomic destination before doing any
// cryptographic work, so a disallowed overwrite is rejected up front
// rather than after a FileKey has already been generated.
func PackFile(srcPath, dstPath string, keys crypto.KeySet, opts Options, overwrite bool, listener Listener) (*header.PackHeader, error) {
	const decryptMode = false

	src, err := stream.NewFileSource(srcPath)
	if err != nil {
		return notifyFailure(listener, decryptMode, newError(ErrIO, err))
	}
	defer src.Close()

	sink, cpErr := openFileSink(dstPath, overwrite)
	if cpErr != nil {
		return notifyFailure(listener, decryptMode, cpErr)
	}

	return Pack(src, sink, keys, opts, listener)
}

// UnpackFile is the decrypt-side counterpart of PackFile.
func UnpackFile(srcPath, dstPath string, keys crypto.KeySet, opts Options, overwrite bool, listener Listener) (*header.PackHeader, error) {
	const decryptMode = true

	src, err := stream.NewFileSource(srcPath)
	if err != nil {
		return notifyFailure(listener, decryptMode, newError(ErrIO, err))
	}
	defer src.Close()

	sink, cpErr := openFileSink(dstPath, overwrite)
	if cpErr != nil {
		return notifyFailure(listener, decryptMode, cpErr)
	}

	return Unpack(src, sink, keys, opts, listener)
}
