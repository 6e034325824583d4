// Package sink is the pluggable-destination-backend factory layer
// (component H): it selects and constructs the concrete stream.Sink a
// Pack/Unpack call writes to, driven by configuration the same way
// internal/vault/factory.go picks a Vault implementation from a
// config.VaultConfig's Type field.
package sink

import (
	"fmt"

	"cipherpack/internal/stream"
)

// Config is the tagged-union sink selector: Type determines which other
// fields matter, mirroring config.VaultConfig's shape.
type Config struct {
	Type string // "filesystem", "memory", or "s3"

	// Filesystem-specific.
	Path string

	// S3-specific.
	S3Bucket string
	S3Key    string
	S3Region string

	Overwrite bool
}

var _ stream.Sink = (*S3Sink)(nil)

// New constructs the stream.Sink named by cfg.Type.
func New(cfg Config) (stream.Sink, error) {
	switch cfg.Type {
	case "filesystem":
		if cfg.Path == "" {
			return nil, fmt.Errorf("filesystem sink requires path to be set")
		}
		return stream.NewFileSink(cfg.Path, cfg.Overwrite)
	case "memory":
		return stream.NewMemorySink(), nil
	case "s3":
		if cfg.S3Bucket == "" || cfg.S3Key == "" {
			return nil, fmt.Errorf("s3 sink requires bucket and key to be set")
		}
		return NewS3Sink(cfg.S3Bucket, cfg.S3Key, cfg.S3Region, cfg.Overwrite)
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Type)
	}
}
