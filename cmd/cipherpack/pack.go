package main

import (
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cipherpack/internal/config"
	"cipherpack/internal/cpapp"
	"cipherpack/internal/crypto"
	"cipherpack/internal/keyring"
)

var packCmd = &cobra.Command{
	Use:   "pack SRC",
	Short: "Sign and encrypt SRC for one or more recipients",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipientPaths, _ := cmd.Flags().GetStringArray("recipient")
		signKeyPath, _ := cmd.Flags().GetString("sign-key")
		out, _ := cmd.Flags().GetString("out")
		sink, _ := cmd.Flags().GetString("sink")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		if len(recipientPaths) == 0 {
			return fmt.Errorf("at least one --recipient is required")
		}
		if signKeyPath == "" {
			return fmt.Errorf("--sign-key is required")
		}

		sinkCfg, err := parseSink(out, sink, overwrite)
		if err != nil {
			return err
		}

		signRec, err := keyring.LoadPrivateKey(signKeyPath)
		if err != nil {
			return fmt.Errorf("loading sign key: %w", err)
		}

		recipients := make([]*rsa.PublicKey, 0, len(recipientPaths))
		for _, p := range recipientPaths {
			rec, err := keyring.LoadPublicKey(p)
			if err != nil {
				return fmt.Errorf("loading recipient key %s: %w", p, err)
			}
			recipients = append(recipients, rec.PublicKey)
		}

		cfg, err := newConfig(cmd)
		if err != nil {
			return err
		}

		a, err := cpapp.New(cfg, "pack")
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		keys := crypto.KeySet{
			HostSignKey:         signRec.PrivateKey,
			RecipientPublicKeys: recipients,
		}

		h, err := a.Pack(args[0], sinkCfg, keys, overwrite)
		if err != nil {
			return fmt.Errorf("packing: %w", err)
		}

		fmt.Printf("Packed %s (%d recipient(s), %d bytes)\n", args[0], len(recipients), h.ContentSize)
		return nil
	},
}

// parseSink resolves --out/--sink into a config.SinkConfig. --sink
// accepts either a bare filesystem path or an s3://bucket/key URL;
// --out is a filesystem-only convenience for the common case.
func parseSink(out, sink string, overwrite bool) (config.SinkConfig, error) {
	switch {
	case sink != "" && strings.HasPrefix(sink, "s3://"):
		rest := strings.TrimPrefix(sink, "s3://")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return config.SinkConfig{}, fmt.Errorf("invalid --sink %q, want s3://bucket/key", sink)
		}
		return config.SinkConfig{Type: "s3", S3Bucket: parts[0], S3Key: parts[1], Overwrite: overwrite}, nil
	case sink != "":
		return config.SinkConfig{Type: "filesystem", Path: sink, Overwrite: overwrite}, nil
	case out != "":
		return config.SinkConfig{Type: "filesystem", Path: out, Overwrite: overwrite}, nil
	default:
		return config.SinkConfig{}, fmt.Errorf("either --out or --sink is required")
	}
}
