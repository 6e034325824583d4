package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cipherpack/internal/cpapp"
)

// fingerprintWidth returns how many hex characters of a host fingerprint to
// print per row, given the terminal's current width: a narrow terminal
// (under 100 columns, e.g. a split tmux pane) gets an abbreviated fingerprint
// so the row doesn't wrap, a wide one gets the full 32-byte value. GetSize fails
// when stdout isn't a terminal (piped to a file or another command), in
// which case the full fingerprint is printed since there's no wrapping risk.
func fingerprintWidth() int {
	const full = 64 // hex.EncodeToString of a 32-byte SHA-256 fingerprint
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return full
	}
	if width < 100 {
		return 8
	}
	return full
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the audit log",
}

var registryLogCmd = &cobra.Command{
	Use:   "log",
	Short: "List recent pack/unpack operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := newConfig(cmd)
		if err != nil {
			return err
		}

		a, err := cpapp.New(cfg, "registry-log")
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		entries, err := a.Registry().List(limit)
		if err != nil {
			return fmt.Errorf("listing registry entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No recorded operations.")
			return nil
		}

		fpWidth := fingerprintWidth()
		for _, e := range entries {
			status := "ok"
			if !e.Success {
				status = "FAILED: " + e.ErrorKind
			}
			fingerprint := hex.EncodeToString(e.HostFingerprint)
			if len(fingerprint) > fpWidth {
				fingerprint = fingerprint[:fpWidth]
			}
			fmt.Printf("#%-5d  %-8s  %-20s  %-8s  %d bytes  host=%s\n",
				e.ID,
				e.Mode,
				e.FinishedAt.Format("2006-01-02 15:04:05"),
				status,
				e.ContentSize,
				fingerprint,
			)
		}
		return nil
	},
}
