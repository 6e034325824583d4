// Package cpapp is the application layer between the CLI and the
// cipherpack/keyring/sink/registry components: it constructs every
// dependency from a config.Config, exposes Pack/Unpack operations that
// accept raw paths and keys, and manages the registry database's
// lifecycle on Close — the cipherpack counterpart of bt-go's
// internal/app.BTApp.
package cpapp

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"cipherpack/internal/cipherpack"
	"cipherpack/internal/config"
	"cipherpack/internal/crypto"
	"cipherpack/internal/header"
	"cipherpack/internal/registry"
	"cipherpack/internal/sink"
	"cipherpack/internal/stream"
)

// App is the wired application: a registry store plus the structured
// logger every operation reports through.
type App struct {
	cfg      *config.Config
	registry *registry.Store
	logger   *slog.Logger
	logFile  *os.File
}

// New constructs a fully wired App from cfg. operation identifies the
// CLI command being run (e.g. "pack", "unpack"); it is folded into the
// logger the same way bt-go's BTApp tags every log line with its
// operation ID. The caller must call Close when done.
func New(cfg *config.Config, operation string) (*App, error) {
	if cfg.PackageMagic == "" {
		return nil, fmt.Errorf("package_magic is required in configuration")
	}

	reg, err := registry.Open(cfg.Registry.Path)
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &App{cfg: cfg, registry: reg, logger: logger, logFile: logFile}, nil
}

// Close releases the registry database and log file.
func (a *App) Close() error {
	var err error
	if a.registry != nil {
		err = a.registry.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return err
}

// options builds the Options every Pack/Unpack call shares from the
// configured crypto identifiers.
func (a *App) options() cipherpack.Options {
	return cipherpack.Options{
		PackageMagic: []byte(a.cfg.PackageMagic),
		Crypto:       a.cfg.Crypto.ToHeaderCryptoConfig(),
	}
}

// Pack encrypts srcPath into the sink named by sinkCfg, recording the
// outcome in the registry.
func (a *App) Pack(srcPath string, sinkCfg config.SinkConfig, keys crypto.KeySet, overwrite bool) (*header.PackHeader, error) {
	const decryptMode = false
	listener := registry.Wrap("pack", a.registry, a.logger, cipherpack.NopListener{})

	// Opening the source/sink happens before Pack's own failure handling
	// can run, so a failure here must still go through NotifyError/
	// NotifyEnd itself — otherwise the registry's Wrap never sees this
	// operation and the audit log silently omits it.
	fail := func(err error) (*header.PackHeader, error) {
		listener.NotifyError(decryptMode, err.Error())
		ph := &header.PackHeader{Valid: false}
		listener.NotifyEnd(decryptMode, ph, false)
		return ph, err
	}

	src, err := stream.NewFileSource(srcPath)
	if err != nil {
		return fail(fmt.Errorf("opening source: %w", err))
	}
	defer src.Close()

	sinkCfg.Overwrite = overwrite
	dst, err := sink.New(toSinkConfig(sinkCfg))
	if err != nil {
		return fail(fmt.Errorf("creating sink: %w", err))
	}

	return cipherpack.Pack(src, dst, keys, a.options(), listener)
}

// Unpack decrypts srcPath into dstPath, recording the outcome in the
// registry.
func (a *App) Unpack(srcPath, dstPath string, keys crypto.KeySet, overwrite bool) (*header.PackHeader, error) {
	listener := registry.Wrap("unpack", a.registry, a.logger, cipherpack.NopListener{})
	return cipherpack.UnpackFile(srcPath, dstPath, keys, a.options(), overwrite, listener)
}

// Registry exposes the underlying audit log for read-only CLI commands
// (e.g. "registry log").
func (a *App) Registry() *registry.Store {
	return a.registry
}

func toSinkConfig(c config.SinkConfig) sink.Config {
	return sink.Config{
		Type:      c.Type,
		Path:      c.Path,
		S3Bucket:  c.S3Bucket,
		S3Key:     c.S3Key,
		S3Region:  c.S3Region,
		Overwrite: c.Overwrite,
	}
}
