package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cipherpack/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newConfig reads the config file named by --config (or its default),
// the same lookup order as bt-go's newApp/GetDefaults.
func newConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		defaults, err := config.GetDefaults()
		if err != nil {
			return nil, fmt.Errorf("getting defaults: %w", err)
		}
		path = defaults.ConfigPath
	}

	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "cipherpack",
	Short: "Sign-then-encrypt streaming package format",
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the cipherpack config file (default: $CIPHERPACK_CONFIG or ~/.config/cipherpack.toml)")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().String("out-dir", "", "Directory to write the generated key pair into (required)")
	keygenCmd.Flags().Int("bits", 4096, "RSA key size in bits")

	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringArray("recipient", nil, "Path to a recipient's public key (repeatable; at least one required)")
	packCmd.Flags().String("sign-key", "", "Path to the host's private signing key (required)")
	packCmd.Flags().String("out", "", "Destination path (required unless --sink is set)")
	packCmd.Flags().String("sink", "", "Destination: filesystem path, or s3://bucket/key")
	packCmd.Flags().Bool("overwrite", false, "Allow overwriting an existing destination")

	rootCmd.AddCommand(unpackCmd)
	unpackCmd.Flags().StringArray("verify-key", nil, "Path to a trusted host public key (repeatable; at least one required)")
	unpackCmd.Flags().String("dec-key", "", "Path to the recipient's private decryption key (required)")
	unpackCmd.Flags().String("out", "", "Destination path (required)")
	unpackCmd.Flags().Bool("overwrite", false, "Allow overwriting an existing destination")

	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryLogCmd)
	registryLogCmd.Flags().Int("limit", 50, "Maximum number of entries to show (0 for all)")
}
