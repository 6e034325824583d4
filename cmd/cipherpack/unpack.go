package main

import (
	"crypto/rsa"
	"fmt"

	"github.com/spf13/cobra"

	"cipherpack/internal/cpapp"
	"cipherpack/internal/crypto"
	"cipherpack/internal/keyring"
)

var unpackCmd = &cobra.Command{
	Use:   "unpack SRC",
	Short: "Verify and decrypt SRC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verifyKeyPaths, _ := cmd.Flags().GetStringArray("verify-key")
		decKeyPath, _ := cmd.Flags().GetString("dec-key")
		out, _ := cmd.Flags().GetString("out")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		if len(verifyKeyPaths) == 0 {
			return fmt.Errorf("at least one --verify-key is required")
		}
		if decKeyPath == "" {
			return fmt.Errorf("--dec-key is required")
		}
		if out == "" {
			return fmt.Errorf("--out is required")
		}

		decRec, err := keyring.LoadPrivateKey(decKeyPath)
		if err != nil {
			return fmt.Errorf("loading decryption key: %w", err)
		}

		verifyKeys := make([]*rsa.PublicKey, 0, len(verifyKeyPaths))
		for _, p := range verifyKeyPaths {
			rec, err := keyring.LoadPublicKey(p)
			if err != nil {
				return fmt.Errorf("loading verify key %s: %w", p, err)
			}
			verifyKeys = append(verifyKeys, rec.PublicKey)
		}

		cfg, err := newConfig(cmd)
		if err != nil {
			return err
		}

		a, err := cpapp.New(cfg, "unpack")
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		keys := crypto.KeySet{
			HostVerifyKeys:      verifyKeys,
			RecipientPrivateKey: decRec.PrivateKey,
		}

		h, err := a.Unpack(args[0], out, keys, overwrite)
		if err != nil {
			return fmt.Errorf("unpacking: %w", err)
		}

		fmt.Printf("Unpacked %s -> %s (%d bytes)\n", args[0], out, h.ContentSize)
		return nil
	},
}
