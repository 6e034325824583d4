package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		PackageMagic: "CPKT1",
		LogDir:       "/home/user/.local/share/cipherpack/log",
		Crypto: CryptoConfig{
			PKType:            "RSA",
			PKFingerprintHash: "SHA-256",
			PKEncPadding:      "OAEP",
			PKEncHash:         "SHA-256",
			PKSignAlgo:        "EMSA1(SHA-256)",
		},
		Keyring: KeyringConfig{Dir: "/home/user/.local/share/cipherpack/keys"},
		Sink:    SinkConfig{Type: "filesystem", Path: "/backup/out.cpk"},
		Registry: RegistryConfig{
			Path: "/home/user/.local/share/cipherpack/registry.db",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.PackageMagic != original.PackageMagic {
		t.Errorf("PackageMagic = %q, want %q", got.PackageMagic, original.PackageMagic)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Crypto.PKSignAlgo != original.Crypto.PKSignAlgo {
		t.Errorf("Crypto.PKSignAlgo = %q, want %q", got.Crypto.PKSignAlgo, original.Crypto.PKSignAlgo)
	}
	if got.Keyring.Dir != original.Keyring.Dir {
		t.Errorf("Keyring.Dir = %q, want %q", got.Keyring.Dir, original.Keyring.Dir)
	}
	if got.Sink.Type != "filesystem" || got.Sink.Path != "/backup/out.cpk" {
		t.Errorf("Sink = %+v, want filesystem sink to /backup/out.cpk", got.Sink)
	}
	if got.Registry.Path != original.Registry.Path {
		t.Errorf("Registry.Path = %q, want %q", got.Registry.Path, original.Registry.Path)
	}
}

func TestCryptoConfig_ToHeaderCryptoConfig(t *testing.T) {
	c := CryptoConfig{
		PKType:            "RSA",
		PKFingerprintHash: "SHA-256",
		PKEncPadding:      "OAEP",
		PKEncHash:         "SHA-256",
		PKSignAlgo:        "EMSA1(SHA-256)",
	}
	hc := c.ToHeaderCryptoConfig()
	if hc.PKType != c.PKType || hc.PKSignAlgo != c.PKSignAlgo {
		t.Fatalf("ToHeaderCryptoConfig() = %+v, want identifiers carried through", hc)
	}
	if len(hc.SymEncMACOID) == 0 {
		t.Fatal("ToHeaderCryptoConfig() left SymEncMACOID unset")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/cipherpack")

	if cfg.PackageMagic != "" {
		t.Errorf("PackageMagic = %q, want empty (must be set explicitly)", cfg.PackageMagic)
	}
	if cfg.LogDir != "/data/cipherpack/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/cipherpack/log")
	}
	if cfg.Keyring.Dir != "/data/cipherpack/keys" {
		t.Errorf("Keyring.Dir = %q, want %q", cfg.Keyring.Dir, "/data/cipherpack/keys")
	}
	if cfg.Registry.Path != "/data/cipherpack/registry.db" {
		t.Errorf("Registry.Path = %q, want %q", cfg.Registry.Path, "/data/cipherpack/registry.db")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "cipherpack.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "cipherpack.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "cipherpack.toml")
		cfg := NewConfig(dir)
		cfg.PackageMagic = "read-test"

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.PackageMagic != "read-test" {
			t.Errorf("PackageMagic = %q, want %q", got.PackageMagic, "read-test")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/cipherpack.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
