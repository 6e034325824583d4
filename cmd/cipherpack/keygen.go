package main

import (
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cipherpack/internal/keyring"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an RSA key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out-dir")
		bits, _ := cmd.Flags().GetInt("bits")
		if outDir == "" {
			return fmt.Errorf("--out-dir is required")
		}

		rec, err := keyring.GenerateKeyPair(bits)
		if err != nil {
			return fmt.Errorf("generating key pair: %w", err)
		}

		privPath := filepath.Join(outDir, "cipherpack.key")
		pubPath := filepath.Join(outDir, "cipherpack.pub")

		if err := keyring.SavePrivateKey(rec.PrivateKey, privPath); err != nil {
			return fmt.Errorf("saving private key: %w", err)
		}
		if err := keyring.SavePublicKey(rec.PublicKey, pubPath); err != nil {
			return fmt.Errorf("saving public key: %w", err)
		}

		fmt.Printf("Private key: %s\n", privPath)
		fmt.Printf("Public key:  %s\n", pubPath)
		fmt.Printf("Fingerprint: %s\n", hex.EncodeToString(rec.Fingerprint))
		return nil
	},
}
