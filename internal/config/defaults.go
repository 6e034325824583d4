package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults holds the application's default paths, resolved from
// environment variables with a fallback to XDG-style locations under the
// user's home directory.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment
// variables first.
//
// Environment variables:
//   - CIPHERPACK_CONFIG: config file location (default: ~/.config/cipherpack.toml)
//   - CIPHERPACK_HOME: base directory for keys/registry (default: ~/.local/share/cipherpack)
func GetDefaults() (Defaults, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return Defaults{}, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return Defaults{}, err
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("CIPHERPACK_CONFIG"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "cipherpack.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("CIPHERPACK_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "cipherpack"), nil
}
