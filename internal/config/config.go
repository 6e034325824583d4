// Package config is the configuration layer (component J): a TOML file
// describing the crypto identifiers a pack call expects, where its
// keyring and registry live, and which sink backend packed output goes
// to — read and written the same way bt-go/internal/config does for its
// own tagged-union vault/database/staging configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"cipherpack/internal/header"
)

// Config is the top-level cipherpack configuration.
type Config struct {
	// PackageMagic is required: §9's Open Question (i) resolution makes
	// it configuration, never a hard-coded literal or a default.
	PackageMagic string `toml:"package_magic"`
	LogDir       string `toml:"log_dir"`

	Crypto   CryptoConfig   `toml:"crypto"`
	Keyring  KeyringConfig  `toml:"keyring"`
	Sink     SinkConfig     `toml:"sink"`
	Registry RegistryConfig `toml:"registry"`
}

// CryptoConfig names the identifiers a pack call expects to see in
// Header₁'s pk_type/pk_fingerprt_hash_algo/pk_enc_padding_algo/
// pk_enc_hash_algo/pk_sign_algo fields. The symmetric AEAD identifier
// isn't configurable here: this repository's pipeline only ever runs
// ChaCha20-Poly1305, so ToHeaderCryptoConfig always fills in
// header.OIDChaCha20Poly1305.
type CryptoConfig struct {
	PKType            string `toml:"pk_type"`
	PKFingerprintHash string `toml:"pk_fingerprint_hash"`
	PKEncPadding      string `toml:"pk_enc_padding"`
	PKEncHash         string `toml:"pk_enc_hash"`
	PKSignAlgo        string `toml:"pk_sign_algo"`
}

// ToHeaderCryptoConfig converts the configured identifiers into the form
// the header package expects.
func (c CryptoConfig) ToHeaderCryptoConfig() header.CryptoConfig {
	return header.CryptoConfig{
		PKType:            c.PKType,
		PKFingerprintHash: c.PKFingerprintHash,
		PKEncPadding:      c.PKEncPadding,
		PKEncHash:         c.PKEncHash,
		PKSignAlgo:        c.PKSignAlgo,
		SymEncMACOID:      header.OIDChaCha20Poly1305,
	}
}

// KeyringConfig names a key directory. It is stored and loaded with the
// rest of the configuration; keygen writes to its --out-dir flag and the
// CLI's key-path flags are used as given, so neither reads Dir.
type KeyringConfig struct {
	Dir string `toml:"dir"`
}

// SinkConfig is a tagged union mirroring internal/sink.Config's shape:
// Type selects which other fields matter.
type SinkConfig struct {
	Type      string `toml:"type"` // "filesystem", "memory", or "s3"
	Path      string `toml:"path,omitempty"`
	S3Bucket  string `toml:"s3_bucket,omitempty"`
	S3Key     string `toml:"s3_key,omitempty"`
	S3Region  string `toml:"s3_region,omitempty"`
	Overwrite bool   `toml:"overwrite"`
}

// RegistryConfig names the SQLite database path the audit log is kept
// in.
type RegistryConfig struct {
	Path string `toml:"path"`
}

// NewConfig returns a Config with reasonable defaults rooted at baseDir.
// PackageMagic is deliberately left blank: callers must set it
// explicitly, matching the Open Question (i) resolution.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir: filepath.Join(baseDir, "log"),
		Crypto: CryptoConfig{
			PKType:            "RSA",
			PKFingerprintHash: "SHA-256",
			PKEncPadding:      "OAEP",
			PKEncHash:         "SHA-256",
			PKSignAlgo:        "EMSA1(SHA-256)",
		},
		Keyring: KeyringConfig{
			Dir: filepath.Join(baseDir, "keys"),
		},
		Registry: RegistryConfig{
			Path: filepath.Join(baseDir, "registry.db"),
		},
		Sink: SinkConfig{
			Type: "filesystem",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the
// provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
