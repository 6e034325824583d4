package cipherpack

import "cipherpack/internal/header"

// Options configures a single Pack or Unpack call. PackageMagic has no
// default: callers (ultimately the CLI's configuration layer) must
// supply one explicitly rather than relying on a package-level constant.
type Options struct {
	PackageMagic []byte
	Crypto       header.CryptoConfig

	// TargetPath, Intention, PayloadVersion, and PayloadVersionParent are
	// only consulted on Pack; Unpack recovers them from the header.
	TargetPath           string
	Intention            string
	PayloadVersion       string
	PayloadVersionParent string

	// BufferSize is the pipeline's chunk size; 0 selects pipeline.DefaultBufferSize.
	BufferSize int

	// AcceptLegacyHeader enables decoding the reduced single-recipient
	// header variant on Unpack.
	AcceptLegacyHeader bool
}
